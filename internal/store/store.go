// Package store provides the Postgres persistence layer for the sync
// pipeline: the read-only namespaces table, dynamically provisioned
// per-namespace user tables, and the shared event_source table whose
// unique event_key constraint is the durable deduplication boundary.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/outreach-sync/internal/namespace"
)

// identifierPattern mirrors the table-manager allowlist. Every dynamic
// identifier is re-checked at the DML boundary as well.
var identifierPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// UserRecord is one row in a namespace user table. Upserts are
// merge-by-coalesce: an absent or empty incoming field never overwrites
// a previously stored value.
type UserRecord struct {
	Email           string
	Name            string
	FirstName       string
	LastName        string
	Company         string
	LinkedinProfile string
	Platform        string
	Namespace       string
	Metadata        json.RawMessage
}

// EventRecord is one row in event_source. Rows are insert-only from
// this pipeline; event_key carries the unique constraint.
type EventRecord struct {
	EventKey     string
	UserIdentity string
	EventType    string
	Platform     string
	Namespace    string
	Metadata     json.RawMessage
}

// Store wraps the shared connection pool.
type Store struct {
	db *sql.DB
}

// New creates a Store on the given pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying pool for collaborators that issue their own
// statements (the table manager).
func (s *Store) DB() *sql.DB { return s.db }

// ListActiveNamespaces returns active namespaces ordered by priority,
// then creation time, so keyword resolution is deterministic.
func (s *Store) ListActiveNamespaces(ctx context.Context) ([]namespace.Namespace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, keywords, table_name, is_active, priority, created_at
		FROM namespaces
		WHERE is_active = TRUE
		ORDER BY priority, created_at`)
	if err != nil {
		return nil, fmt.Errorf("querying namespaces: %w", err)
	}
	defer rows.Close()

	var namespaces []namespace.Namespace
	for rows.Next() {
		var ns namespace.Namespace
		if err := rows.Scan(&ns.ID, &ns.Name, pq.Array(&ns.Keywords), &ns.TableName,
			&ns.IsActive, &ns.Priority, &ns.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning namespace row: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

// LastSyncTime derives the sync cursor for a platform as the newest
// event_source created_at. Returns the zero time on first run. Deriving
// the cursor from stored rows keeps it self-healing: there is no
// separate bookkeeping state to go stale.
func (s *Store) LastSyncTime(ctx context.Context, platform string) (time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM event_source WHERE platform = $1`, platform).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("deriving sync cursor for %s: %w", platform, err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

// UpsertUser inserts or merge-updates a user row in the given namespace
// table. COALESCE(NULLIF(...)) semantics guarantee the upsert is
// non-destructive: incoming empty fields leave stored values intact.
// table must already have passed the identifier allowlist.
func (s *Store) UpsertUser(ctx context.Context, table string, user UserRecord) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("table identifier %q fails allowlist", table)
	}

	metadata := user.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, name, first_name, last_name, company, linkedin_profile,
			platform, namespace, metadata, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
			$8, $9, $10, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), %[1]s.name),
			first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), %[1]s.first_name),
			last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), %[1]s.last_name),
			company = COALESCE(NULLIF(EXCLUDED.company, ''), %[1]s.company),
			linkedin_profile = COALESCE(NULLIF(EXCLUDED.linkedin_profile, ''), %[1]s.linkedin_profile),
			metadata = %[1]s.metadata || EXCLUDED.metadata,
			updated_at = NOW()`, table)

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(), user.Email, user.Name, user.FirstName, user.LastName,
		user.Company, user.LinkedinProfile, user.Platform, user.Namespace, []byte(metadata))
	if err != nil {
		return fmt.Errorf("upserting user into %s: %w", table, err)
	}
	return nil
}

// InsertEvent inserts an event row if its key has not been seen.
// Returns false when the key already exists; a conflict is the designed
// "already ingested" signal, not an error.
func (s *Store) InsertEvent(ctx context.Context, ev EventRecord) (bool, error) {
	metadata := ev.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO event_source (event_key, user_identity, event_type, platform, namespace, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (event_key) DO NOTHING`,
		ev.EventKey, ev.UserIdentity, ev.EventType, ev.Platform, ev.Namespace, []byte(metadata))
	if err != nil {
		// A unique violation should not surface through DO NOTHING, but
		// concurrent runs can still race other constraints; classify it
		// as the duplicate signal rather than a failure.
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("inserting event %s: %w", ev.EventKey, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading insert result for %s: %w", ev.EventKey, err)
	}
	return affected > 0, nil
}

// EventCount returns total event_source rows for a platform. Used by
// the status API.
func (s *Store) EventCount(ctx context.Context, platform string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_source WHERE platform = $1`, platform).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting events for %s: %w", platform, err)
	}
	return n, nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
