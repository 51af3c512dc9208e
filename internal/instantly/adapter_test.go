package instantly

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-sync/internal/eventkey"
	"github.com/ignite/outreach-sync/internal/pipeline"
	"github.com/ignite/outreach-sync/internal/store"
)

// fakeAPI serves events in fixed pages keyed by cursor, the way the v2
// starting_after pagination behaves.
type fakeAPI struct {
	campaigns    []Campaign
	campaignsErr error
	pages        map[string]map[string]eventsResponse
	eventsErr    error
	eventCalls   int
}

func (f *fakeAPI) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	if f.campaignsErr != nil {
		return nil, f.campaignsErr
	}
	return f.campaigns, nil
}

func (f *fakeAPI) ListEvents(ctx context.Context, campaignID, cursor string) ([]EmailEvent, string, error) {
	f.eventCalls++
	if f.eventsErr != nil {
		return nil, "", f.eventsErr
	}
	page := f.pages[campaignID][cursor]
	return page.Items, page.NextStartingAfter, nil
}

type fakeCursor struct {
	last time.Time
}

func (f *fakeCursor) LastSyncTime(ctx context.Context, platform string) (time.Time, error) {
	return f.last, nil
}

type stubResolver struct{}

func (stubResolver) DetectFromCampaign(ctx context.Context, campaignName string) (string, error) {
	return "default", nil
}

type stubTables struct{}

func (stubTables) EnsureTable(ctx context.Context, namespaceName string) (string, error) {
	return "default_user_source", nil
}

type recordingPersister struct {
	events map[string]store.EventRecord
}

func (p *recordingPersister) UpsertUser(ctx context.Context, table string, user store.UserRecord) error {
	return nil
}

func (p *recordingPersister) InsertEvent(ctx context.Context, ev store.EventRecord) (bool, error) {
	if _, exists := p.events[ev.EventKey]; exists {
		return false, nil
	}
	p.events[ev.EventKey] = ev
	return true, nil
}

func newAdapterUnderTest(api *fakeAPI, cursor *fakeCursor, db *recordingPersister) *Adapter {
	processor := pipeline.NewProcessor(stubResolver{}, stubTables{}, db, eventkey.NewGenerator(0), nil)
	return NewAdapter(api, cursor, processor, true)
}

func eventFixture(i int) EmailEvent {
	return EmailEvent{
		ID:         fmt.Sprintf("ev-%d", i),
		EventType:  "email_opened",
		LeadEmail:  fmt.Sprintf("lead%d@example.com", i),
		OccurredAt: "2026-04-01T10:00:00Z",
	}
}

// The adapter follows next_starting_after until the cursor runs out.
func TestRunFollowsCursorPagination(t *testing.T) {
	api := &fakeAPI{
		campaigns: []Campaign{{ID: "cmp-1", Name: "Apollo Outreach Q3"}},
		pages: map[string]map[string]eventsResponse{
			"cmp-1": {
				"":     {Items: []EmailEvent{eventFixture(1), eventFixture(2)}, NextStartingAfter: "ev-2"},
				"ev-2": {Items: []EmailEvent{eventFixture(3)}, NextStartingAfter: ""},
			},
		},
	}
	db := &recordingPersister{events: make(map[string]store.EventRecord)}
	adapter := newAdapterUnderTest(api, &fakeCursor{}, db)

	report, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Examined)
	assert.Equal(t, 3, report.Inserted)
	assert.Equal(t, 2, api.eventCalls)
	assert.Len(t, db.events, 3)
}

func TestRunAbortsWhenCampaignFetchFails(t *testing.T) {
	api := &fakeAPI{campaignsErr: errors.New("503 service unavailable")}
	db := &recordingPersister{events: make(map[string]store.EventRecord)}
	adapter := newAdapterUnderTest(api, &fakeCursor{}, db)

	_, err := adapter.Run(context.Background())
	require.Error(t, err)

	var terr *pipeline.TransientNetworkError
	assert.ErrorAs(t, err, &terr)
}

func TestRunIsolatesEventFetchFailure(t *testing.T) {
	api := &fakeAPI{
		campaigns: []Campaign{{ID: "cmp-1", Name: "Apollo Outreach Q3"}},
		eventsErr: errors.New("timeout"),
	}
	db := &recordingPersister{events: make(map[string]store.EventRecord)}
	adapter := newAdapterUnderTest(api, &fakeCursor{}, db)

	report, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.CampaignsFailed)
	assert.Empty(t, db.events)
}

func TestRunSkipsEventsBeforeCursor(t *testing.T) {
	old := eventFixture(1)
	old.OccurredAt = "2026-03-01T10:00:00Z"
	api := &fakeAPI{
		campaigns: []Campaign{{ID: "cmp-1", Name: "Apollo Outreach Q3"}},
		pages: map[string]map[string]eventsResponse{
			"cmp-1": {
				"": {Items: []EmailEvent{old, eventFixture(2)}},
			},
		},
	}
	db := &recordingPersister{events: make(map[string]store.EventRecord)}
	cursor := &fakeCursor{last: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}
	adapter := newAdapterUnderTest(api, cursor, db)

	report, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedOld)
	assert.Equal(t, 1, report.Inserted)
}

func TestRunRequiresAPIKey(t *testing.T) {
	db := &recordingPersister{events: make(map[string]store.EventRecord)}
	processor := pipeline.NewProcessor(stubResolver{}, stubTables{}, db, eventkey.NewGenerator(0), nil)
	adapter := NewAdapter(&fakeAPI{}, &fakeCursor{}, processor, false)

	_, err := adapter.Run(context.Background())
	require.Error(t, err)

	var cerr *pipeline.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestNormalizeEventType(t *testing.T) {
	assert.Equal(t, "email_open", normalizeEventType("email_opened"))
	assert.Equal(t, "email_click", normalizeEventType("link_clicked"))
	assert.Equal(t, "email_reply", normalizeEventType("reply_received"))
	assert.Equal(t, "instantly_lead_interested", normalizeEventType("lead_interested"))
}
