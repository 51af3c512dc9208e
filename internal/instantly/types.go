package instantly

import "time"

// Config holds the Instantly client settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	PageSize int
}

// Campaign is an Instantly campaign from GET /campaigns.
type Campaign struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp_created"`
}

// campaignsResponse wraps the cursor-paginated campaign list.
type campaignsResponse struct {
	Items             []Campaign `json:"items"`
	NextStartingAfter string     `json:"next_starting_after"`
}

// EmailEvent is one activity from GET /campaigns/{id}/events: a sent,
// open, click, or reply attributed to a lead.
type EmailEvent struct {
	ID          string `json:"id"`
	EventType   string `json:"event_type"`
	LeadEmail   string `json:"lead_email"`
	LeadFirst   string `json:"first_name"`
	LeadLast    string `json:"last_name"`
	CompanyName string `json:"company_name"`
	CampaignID  string `json:"campaign_id"`
	StepIndex   int    `json:"step_index"`
	OccurredAt  string `json:"timestamp_email"`
}

// Timestamp parses the event time. Instantly emits RFC3339; a blank or
// malformed value yields the zero time.
func (e EmailEvent) Timestamp() time.Time {
	if e.OccurredAt == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, e.OccurredAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// eventsResponse wraps the cursor-paginated event list.
type eventsResponse struct {
	Items             []EmailEvent `json:"items"`
	NextStartingAfter string       `json:"next_starting_after"`
}
