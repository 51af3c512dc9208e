package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// RunReport aggregates the totals of one adapter run. A run reports
// counts and does not raise unless the top-level campaign fetch failed.
type RunReport struct {
	ID              uuid.UUID `json:"id"`
	Platform        string    `json:"platform"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Campaigns       int       `json:"campaigns"`
	CampaignsFailed int       `json:"campaigns_failed"`
	Examined        int       `json:"examined"`
	Inserted        int       `json:"inserted"`
	Duplicates      int       `json:"duplicates"`
	SkippedNoEmail  int       `json:"skipped_no_email"`
	SkippedOld      int       `json:"skipped_old"`
	Failed          int       `json:"failed"`
}

// NewRunReport starts a report for one platform run.
func NewRunReport(platform string) *RunReport {
	return &RunReport{
		ID:        uuid.New(),
		Platform:  platform,
		StartedAt: time.Now().UTC(),
	}
}

// Record tallies one per-record outcome.
func (r *RunReport) Record(o Outcome) {
	r.Examined++
	switch o {
	case OutcomeInserted:
		r.Inserted++
	case OutcomeDuplicate:
		r.Duplicates++
	case OutcomeSkippedNoEmail:
		r.SkippedNoEmail++
	case OutcomeFailed:
		r.Failed++
	}
}

// RecordOld tallies an activity skipped by the cursor filter.
func (r *RunReport) RecordOld() {
	r.Examined++
	r.SkippedOld++
}

// Finish stamps the report's end time and returns it.
func (r *RunReport) Finish() *RunReport {
	r.FinishedAt = time.Now().UTC()
	return r
}

// Duration returns the wall time of the run.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
