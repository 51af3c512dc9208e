package smartlead

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

type fakeAPI struct {
	campaigns    []Campaign
	campaignsErr error
	// activities per campaign ID
	activities   map[int64][]LeadActivity
	activityErrs map[int64]error
	pageSize     int
}

func (f *fakeAPI) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	if f.campaignsErr != nil {
		return nil, f.campaignsErr
	}
	return f.campaigns, nil
}

func (f *fakeAPI) ListActivities(ctx context.Context, campaignID int64, offset int) ([]LeadActivity, error) {
	if err := f.activityErrs[campaignID]; err != nil {
		return nil, err
	}
	all := f.activities[campaignID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + f.PageSize()
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeAPI) PageSize() int {
	if f.pageSize <= 0 {
		return 100
	}
	return f.pageSize
}

type fakeCursor struct {
	last time.Time
	err  error
}

func (f *fakeCursor) LastSyncTime(ctx context.Context, platform string) (time.Time, error) {
	return f.last, f.err
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
	users  map[string]store.UserRecord
	events map[string]store.EventRecord
}

func newRecordingPersister() *recordingPersister {
	return &recordingPersister{
		users:  make(map[string]store.UserRecord),
		events: make(map[string]store.EventRecord),
	}
}

func (p *recordingPersister) UpsertUser(ctx context.Context, table string, user store.UserRecord) error {
	p.users[user.Email] = user
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

func activityFixture(i int, eventTime string) LeadActivity {
	return LeadActivity{
		StatsID:   fmt.Sprintf("s-%d", i),
		LeadEmail: fmt.Sprintf("lead%d@example.com", i),
		LeadName:  fmt.Sprintf("Lead %d", i),
		EventType: "EMAIL_OPEN",
		EventTime: eventTime,
	}
}

func TestRunIngestsAllCampaigns(t *testing.T) {
	api := &fakeAPI{
		campaigns: []Campaign{
			{ID: 1, Name: "Apollo Outreach Q3"},
			{ID: 2, Name: "Titan Launch"},
		},
		activities: map[int64][]LeadActivity{
			1: {activityFixture(1, "2026-04-01T10:00:00Z"), activityFixture(2, "2026-04-01T11:00:00Z")},
			2: {activityFixture(3, "2026-04-01T12:00:00Z")},
		},
		pageSize: 2,
	}
	db := newRecordingPersister()
	adapter := newAdapterUnderTest(api, &fakeCursor{}, db)

	report, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Campaigns)
	assert.Equal(t, 0, report.CampaignsFailed)
	assert.Equal(t, 3, report.Examined)
	assert.Equal(t, 3, report.Inserted)
	assert.Len(t, db.events, 3)
}

// Running the same sync twice lands every record exactly once.
func TestRunTwiceIsIdempotent(t *testing.T) {
	api := &fakeAPI{
		campaigns: []Campaign{{ID: 1, Name: "Apollo Outreach Q3"}},
		activities: map[int64][]LeadActivity{
			1: {activityFixture(1, "2026-04-01T10:00:00Z"), activityFixture(2, "2026-04-01T11:00:00Z")},
		},
		pageSize: 10,
	}
	db := newRecordingPersister()
	adapter := newAdapterUnderTest(api, &fakeCursor{}, db)

	first, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Duplicates)
	assert.Len(t, db.events, 2)
}

func TestRunAbortsWhenCampaignFetchFails(t *testing.T) {
	api := &fakeAPI{campaignsErr: errors.New("502 bad gateway")}
	adapter := newAdapterUnderTest(api, &fakeCursor{}, newRecordingPersister())

	_, err := adapter.Run(context.Background())
	require.Error(t, err)

	var terr *pipeline.TransientNetworkError
	assert.ErrorAs(t, err, &terr)
}

// One campaign's activity fetch failing must not lose the others.
func TestRunIsolatesCampaignFailure(t *testing.T) {
	api := &fakeAPI{
		campaigns: []Campaign{
			{ID: 1, Name: "Apollo Outreach Q3"},
			{ID: 2, Name: "Titan Launch"},
		},
		activities: map[int64][]LeadActivity{
			2: {activityFixture(3, "2026-04-01T12:00:00Z")},
		},
		activityErrs: map[int64]error{1: errors.New("timeout")},
		pageSize:     10,
	}
	db := newRecordingPersister()
	adapter := newAdapterUnderTest(api, &fakeCursor{}, db)

	report, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.CampaignsFailed)
	assert.Equal(t, 1, report.Inserted)
	assert.Len(t, db.events, 1)
}

func TestRunSkipsActivitiesBeforeCursor(t *testing.T) {
	api := &fakeAPI{
		campaigns: []Campaign{{ID: 1, Name: "Apollo Outreach Q3"}},
		activities: map[int64][]LeadActivity{
			1: {
				activityFixture(1, "2026-03-01T10:00:00Z"),
				activityFixture(2, "2026-04-02T10:00:00Z"),
			},
		},
		pageSize: 10,
	}
	db := newRecordingPersister()
	cursor := &fakeCursor{last: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}
	adapter := newAdapterUnderTest(api, cursor, db)

	report, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedOld)
	assert.Equal(t, 1, report.Inserted)
	assert.Len(t, db.events, 1)
}

func TestRunRequiresAPIKey(t *testing.T) {
	processor := pipeline.NewProcessor(stubResolver{}, stubTables{}, newRecordingPersister(), eventkey.NewGenerator(0), nil)
	adapter := NewAdapter(&fakeAPI{}, &fakeCursor{}, processor, false)

	_, err := adapter.Run(context.Background())
	require.Error(t, err)

	var cerr *pipeline.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestNormalizeEventType(t *testing.T) {
	assert.Equal(t, "email_open", normalizeEventType("EMAIL_OPEN"))
	assert.Equal(t, "email_open", normalizeEventType("opened"))
	assert.Equal(t, "email_reply", normalizeEventType("REPLY"))
	assert.Equal(t, "unsubscribe", normalizeEventType("UNSUBSCRIBED"))
	assert.Equal(t, "smartlead_webinar_join", normalizeEventType("WEBINAR_JOIN"))
}
