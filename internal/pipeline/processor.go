// Package pipeline implements the per-record ingestion path shared by
// all platform sync adapters: resolve namespace, ensure the tenant
// table, upsert the user, generate the event key, insert the event.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ignite/outreach-sync/internal/eventkey"
	"github.com/ignite/outreach-sync/internal/pkg/logger"
	"github.com/ignite/outreach-sync/internal/store"
)

// Activity is one candidate record pulled from a platform API.
type Activity struct {
	Platform        string
	CampaignID      string
	CampaignName    string
	ActivityID      string
	EventType       string
	Email           string
	Name            string
	FirstName       string
	LastName        string
	Company         string
	LinkedinProfile string
	Timestamp       time.Time
	Metadata        json.RawMessage
}

// Outcome classifies how one activity was handled.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeDuplicate
	OutcomeSkippedNoEmail
	OutcomeFailed
)

// Resolver maps a campaign name to a namespace.
type Resolver interface {
	DetectFromCampaign(ctx context.Context, campaignName string) (string, error)
}

// TableEnsurer provisions the namespace user table on demand.
type TableEnsurer interface {
	EnsureTable(ctx context.Context, namespaceName string) (string, error)
}

// Persister is the store surface the processor writes through.
type Persister interface {
	UpsertUser(ctx context.Context, table string, user store.UserRecord) error
	InsertEvent(ctx context.Context, ev store.EventRecord) (bool, error)
}

// Processor runs the per-record path. All collaborators are
// constructor-injected so tests can substitute fakes.
type Processor struct {
	resolver Resolver
	tables   TableEnsurer
	db       Persister
	keys     *eventkey.Generator
	seen     *SeenCache
}

// NewProcessor wires a Processor. seen may be nil; the prefilter is an
// optimization, never a correctness dependency.
func NewProcessor(resolver Resolver, tables TableEnsurer, db Persister, keys *eventkey.Generator, seen *SeenCache) *Processor {
	return &Processor{resolver: resolver, tables: tables, db: db, keys: keys, seen: seen}
}

// KeyStats exposes the key generator's observability counters.
func (p *Processor) KeyStats() eventkey.Stats {
	return p.keys.Stats()
}

// Process ingests one activity. Per-record failures are returned with
// OutcomeFailed so the caller can log and continue; they never abort a
// run. An activity without an email is a skip, not an error. The user
// upsert and the event insert are independent statements on purpose: a
// crash between them leaves an orphan user row that self-corrects on
// the next run, because the event insert is itself idempotent.
func (p *Processor) Process(ctx context.Context, act Activity) (Outcome, error) {
	if act.Email == "" {
		return OutcomeSkippedNoEmail, nil
	}

	ns, err := p.resolver.DetectFromCampaign(ctx, act.CampaignName)
	if err != nil {
		return OutcomeFailed, &PersistenceError{Op: "resolve namespace", Err: err}
	}

	table, err := p.tables.EnsureTable(ctx, ns)
	if err != nil {
		return OutcomeFailed, &ConfigurationError{Op: "ensure table", Reason: err.Error()}
	}

	key, err := p.keys.Generate(eventkey.Descriptor{
		Platform:   act.Platform,
		CampaignID: act.CampaignID,
		EventType:  act.EventType,
		Email:      act.Email,
		ActivityID: act.ActivityID,
		Timestamp:  act.Timestamp,
	})
	if err != nil {
		// eventkey.ValidationError: per-record failure, never fatal
		return OutcomeFailed, err
	}

	// The prefilter saves an insert round-trip for keys we recently
	// stored; a cache miss or a cache error just falls through to the
	// conflict-tolerant insert.
	if p.seen.Seen(ctx, key) {
		return OutcomeDuplicate, nil
	}

	if err := p.db.UpsertUser(ctx, table, store.UserRecord{
		Email:           act.Email,
		Name:            act.Name,
		FirstName:       act.FirstName,
		LastName:        act.LastName,
		Company:         act.Company,
		LinkedinProfile: act.LinkedinProfile,
		Platform:        act.Platform,
		Namespace:       ns,
		Metadata:        act.Metadata,
	}); err != nil {
		return OutcomeFailed, &PersistenceError{Op: "upsert user", Err: err}
	}

	inserted, err := p.db.InsertEvent(ctx, store.EventRecord{
		EventKey:     key,
		UserIdentity: act.Email,
		EventType:    act.EventType,
		Platform:     act.Platform,
		Namespace:    ns,
		Metadata:     act.Metadata,
	})
	if err != nil {
		return OutcomeFailed, &PersistenceError{Op: "insert event", Err: err}
	}

	p.seen.Mark(ctx, key)

	if !inserted {
		logger.Debug("event already ingested", "event_key", key, "platform", act.Platform)
		return OutcomeDuplicate, nil
	}
	return OutcomeInserted, nil
}
