package smartlead

import "time"

// Config holds the Smartlead client settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	PageSize int
}

// Campaign is a Smartlead campaign as returned by GET /campaigns.
type Campaign struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// LeadActivity is one row from GET /campaigns/{id}/statistics: a single
// email event (sent/open/click/reply) attributed to a lead.
type LeadActivity struct {
	StatsID         string `json:"stats_id"`
	LeadEmail       string `json:"lead_email"`
	LeadName        string `json:"lead_name"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	CompanyName     string `json:"company_name"`
	LinkedinProfile string `json:"linkedin_profile"`
	EventType       string `json:"event_type"`
	EventTime       string `json:"event_time"`
	SequenceNumber  int    `json:"sequence_number"`
}

// Timestamp parses the activity's event time. Smartlead emits RFC3339;
// a blank or malformed value yields the zero time.
func (a LeadActivity) Timestamp() time.Time {
	if a.EventTime == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, a.EventTime)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// statisticsResponse wraps the paginated statistics payload.
type statisticsResponse struct {
	Data       []LeadActivity `json:"data"`
	TotalStats string         `json:"total_stats"`
	Offset     int            `json:"offset"`
	Limit      int            `json:"limit"`
}
