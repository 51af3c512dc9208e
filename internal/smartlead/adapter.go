package smartlead

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/outreach-sync/internal/eventkey"
	"github.com/ignite/outreach-sync/internal/pipeline"
	"github.com/ignite/outreach-sync/internal/pkg/logger"
)

// APIClient is the client surface the adapter needs; *Client satisfies
// it and tests substitute fakes.
type APIClient interface {
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	ListActivities(ctx context.Context, campaignID int64, offset int) ([]LeadActivity, error)
	PageSize() int
}

// CursorSource derives the platform's sync cursor from stored events.
type CursorSource interface {
	LastSyncTime(ctx context.Context, platform string) (time.Time, error)
}

// Adapter orchestrates one Smartlead delta-sync run: compute cursor,
// fetch campaigns, fetch activities, and feed each record through the
// shared pipeline.
type Adapter struct {
	client    APIClient
	cursor    CursorSource
	processor *pipeline.Processor
	apiKeySet bool
}

// NewAdapter wires a Smartlead adapter. All collaborators are injected.
func NewAdapter(client APIClient, cursor CursorSource, processor *pipeline.Processor, apiKeySet bool) *Adapter {
	return &Adapter{client: client, cursor: cursor, processor: processor, apiKeySet: apiKeySet}
}

// Platform returns the adapter's platform identifier.
func (a *Adapter) Platform() string { return eventkey.PlatformSmartlead }

// Run executes one sync pass. Only a campaign-list fetch failure (or a
// missing API key) aborts the run; activity-fetch failures cost one
// campaign, and record failures cost one record.
func (a *Adapter) Run(ctx context.Context) (*pipeline.RunReport, error) {
	if !a.apiKeySet {
		return nil, &pipeline.ConfigurationError{Op: "smartlead sync", Reason: "api key is not configured"}
	}

	report := pipeline.NewRunReport(a.Platform())

	lastSync, err := a.cursor.LastSyncTime(ctx, a.Platform())
	if err != nil {
		return nil, err
	}

	campaigns, err := a.client.ListCampaigns(ctx)
	if err != nil {
		return nil, &pipeline.TransientNetworkError{Op: "smartlead list campaigns", Err: err}
	}
	report.Campaigns = len(campaigns)
	logger.Info("smartlead sync started", "campaigns", len(campaigns), "last_sync", lastSync.Format(time.RFC3339))

	for _, campaign := range campaigns {
		if err := a.syncCampaign(ctx, campaign, lastSync, report); err != nil {
			// Partial-failure isolation at campaign granularity
			report.CampaignsFailed++
			logger.Warn("smartlead campaign sync failed",
				"campaign_id", strconv.FormatInt(campaign.ID, 10),
				"campaign", campaign.Name,
				"error", err.Error())
		}
	}

	report.Finish()
	logger.Info("smartlead sync finished",
		"examined", report.Examined,
		"inserted", report.Inserted,
		"duplicates", report.Duplicates,
		"skipped_no_email", report.SkippedNoEmail,
		"failed", report.Failed,
		"duration", report.Duration().String())
	return report, nil
}

// syncCampaign pulls all activity pages for one campaign and processes
// each record. Returns an error only for the activity fetch itself.
func (a *Adapter) syncCampaign(ctx context.Context, campaign Campaign, lastSync time.Time, report *pipeline.RunReport) error {
	campaignID := strconv.FormatInt(campaign.ID, 10)

	for offset := 0; ; offset += a.client.PageSize() {
		activities, err := a.client.ListActivities(ctx, campaign.ID, offset)
		if err != nil {
			return &pipeline.TransientNetworkError{Op: "smartlead list activities", Err: err}
		}
		if len(activities) == 0 {
			return nil
		}

		for _, activity := range activities {
			// Shutdown between records, never mid-statement
			if ctx.Err() != nil {
				return ctx.Err()
			}

			ts := activity.Timestamp()
			if !lastSync.IsZero() && !ts.IsZero() && ts.Before(lastSync) {
				// Cursor filter is a performance aid only; the event_key
				// constraint stays authoritative for correctness.
				report.RecordOld()
				continue
			}

			outcome, err := a.processor.Process(ctx, toActivity(campaign, campaignID, activity, ts))
			report.Record(outcome)
			if err != nil {
				logger.Warn("smartlead record failed",
					"campaign_id", campaignID,
					"activity_id", activity.StatsID,
					"lead_email", activity.LeadEmail,
					"error", err.Error())
			}
		}

		if len(activities) < a.client.PageSize() {
			return nil
		}
	}
}

func toActivity(campaign Campaign, campaignID string, la LeadActivity, ts time.Time) pipeline.Activity {
	metadata, _ := json.Marshal(map[string]interface{}{
		"campaign_name":   campaign.Name,
		"sequence_number": la.SequenceNumber,
		"source_event":    la.EventType,
	})
	return pipeline.Activity{
		Platform:        eventkey.PlatformSmartlead,
		CampaignID:      campaignID,
		CampaignName:    campaign.Name,
		ActivityID:      la.StatsID,
		EventType:       normalizeEventType(la.EventType),
		Email:           strings.TrimSpace(la.LeadEmail),
		Name:            la.LeadName,
		FirstName:       la.FirstName,
		LastName:        la.LastName,
		Company:         la.CompanyName,
		LinkedinProfile: la.LinkedinProfile,
		Timestamp:       ts,
		Metadata:        metadata,
	}
}

// normalizeEventType maps Smartlead's event names onto the shared
// event_type vocabulary stored in event_source.
func normalizeEventType(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "EMAIL_SENT", "SENT":
		return "email_sent"
	case "EMAIL_OPEN", "OPEN", "OPENED":
		return "email_open"
	case "EMAIL_CLICK", "CLICK", "CLICKED":
		return "email_click"
	case "EMAIL_REPLY", "REPLY", "REPLIED":
		return "email_reply"
	case "EMAIL_BOUNCE", "BOUNCE", "BOUNCED":
		return "email_bounce"
	case "UNSUBSCRIBED", "UNSUBSCRIBE":
		return "unsubscribe"
	default:
		return fmt.Sprintf("smartlead_%s", strings.ToLower(strings.TrimSpace(raw)))
	}
}
