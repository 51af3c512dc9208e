package instantly

import (
	"context"
	"encoding/json"
	"fmt"
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
	ListEvents(ctx context.Context, campaignID, cursor string) ([]EmailEvent, string, error)
}

// CursorSource derives the platform's sync cursor from stored events.
type CursorSource interface {
	LastSyncTime(ctx context.Context, platform string) (time.Time, error)
}

// Adapter orchestrates one Instantly delta-sync run.
type Adapter struct {
	client    APIClient
	cursor    CursorSource
	processor *pipeline.Processor
	apiKeySet bool
}

// NewAdapter wires an Instantly adapter. All collaborators are injected.
func NewAdapter(client APIClient, cursor CursorSource, processor *pipeline.Processor, apiKeySet bool) *Adapter {
	return &Adapter{client: client, cursor: cursor, processor: processor, apiKeySet: apiKeySet}
}

// Platform returns the adapter's platform identifier.
func (a *Adapter) Platform() string { return eventkey.PlatformInstantly }

// Run executes one sync pass. A campaign-list fetch failure aborts the
// run; everything below that is isolated per-campaign or per-record.
func (a *Adapter) Run(ctx context.Context) (*pipeline.RunReport, error) {
	if !a.apiKeySet {
		return nil, &pipeline.ConfigurationError{Op: "instantly sync", Reason: "api key is not configured"}
	}

	report := pipeline.NewRunReport(a.Platform())

	lastSync, err := a.cursor.LastSyncTime(ctx, a.Platform())
	if err != nil {
		return nil, err
	}

	campaigns, err := a.client.ListCampaigns(ctx)
	if err != nil {
		return nil, &pipeline.TransientNetworkError{Op: "instantly list campaigns", Err: err}
	}
	report.Campaigns = len(campaigns)
	logger.Info("instantly sync started", "campaigns", len(campaigns), "last_sync", lastSync.Format(time.RFC3339))

	for _, campaign := range campaigns {
		if err := a.syncCampaign(ctx, campaign, lastSync, report); err != nil {
			report.CampaignsFailed++
			logger.Warn("instantly campaign sync failed",
				"campaign_id", campaign.ID,
				"campaign", campaign.Name,
				"error", err.Error())
		}
	}

	report.Finish()
	logger.Info("instantly sync finished",
		"examined", report.Examined,
		"inserted", report.Inserted,
		"duplicates", report.Duplicates,
		"skipped_no_email", report.SkippedNoEmail,
		"failed", report.Failed,
		"duration", report.Duration().String())
	return report, nil
}

func (a *Adapter) syncCampaign(ctx context.Context, campaign Campaign, lastSync time.Time, report *pipeline.RunReport) error {
	cursor := ""
	for {
		events, next, err := a.client.ListEvents(ctx, campaign.ID, cursor)
		if err != nil {
			return &pipeline.TransientNetworkError{Op: "instantly list events", Err: err}
		}

		for _, event := range events {
			// Shutdown between records, never mid-statement
			if ctx.Err() != nil {
				return ctx.Err()
			}

			ts := event.Timestamp()
			if !lastSync.IsZero() && !ts.IsZero() && ts.Before(lastSync) {
				report.RecordOld()
				continue
			}

			outcome, err := a.processor.Process(ctx, toActivity(campaign, event, ts))
			report.Record(outcome)
			if err != nil {
				logger.Warn("instantly record failed",
					"campaign_id", campaign.ID,
					"activity_id", event.ID,
					"lead_email", event.LeadEmail,
					"error", err.Error())
			}
		}

		if next == "" || len(events) == 0 {
			return nil
		}
		cursor = next
	}
}

func toActivity(campaign Campaign, event EmailEvent, ts time.Time) pipeline.Activity {
	metadata, _ := json.Marshal(map[string]interface{}{
		"campaign_name": campaign.Name,
		"step_index":    event.StepIndex,
		"source_event":  event.EventType,
	})
	return pipeline.Activity{
		Platform:     eventkey.PlatformInstantly,
		CampaignID:   campaign.ID,
		CampaignName: campaign.Name,
		ActivityID:   event.ID,
		EventType:    normalizeEventType(event.EventType),
		Email:        strings.TrimSpace(event.LeadEmail),
		FirstName:    event.LeadFirst,
		LastName:     event.LeadLast,
		Company:      event.CompanyName,
		Timestamp:    ts,
		Metadata:     metadata,
	}
}

// normalizeEventType maps Instantly's event names onto the shared
// event_type vocabulary stored in event_source.
func normalizeEventType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "email_sent", "sent":
		return "email_sent"
	case "email_opened", "opened":
		return "email_open"
	case "link_clicked", "clicked":
		return "email_click"
	case "reply_received", "replied":
		return "email_reply"
	case "email_bounced", "bounced":
		return "email_bounce"
	case "lead_unsubscribed", "unsubscribed":
		return "unsubscribe"
	default:
		return fmt.Sprintf("instantly_%s", strings.ToLower(strings.TrimSpace(raw)))
	}
}
