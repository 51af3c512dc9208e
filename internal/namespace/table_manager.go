package namespace

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/ignite/outreach-sync/internal/pkg/logger"
)

// tablePattern is the allowlist every derived identifier must satisfy
// before it is interpolated into DDL or DML. Identifiers are built from
// namespace names, which ultimately come from operator input, so this
// check is the injection boundary.
var tablePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// TableManager deterministically derives and idempotently provisions
// the per-namespace user table. Safe to call repeatedly and
// concurrently: the DDL is IF NOT EXISTS throughout.
type TableManager struct {
	db *sql.DB

	mu      sync.Mutex
	ensured map[string]string // namespace name -> table name already provisioned
}

// NewTableManager creates a TableManager on the shared connection pool.
func NewTableManager(db *sql.DB) *TableManager {
	return &TableManager{db: db, ensured: make(map[string]string)}
}

// TableNameFor derives the storage table name for a namespace:
// lowercase, non-alphanumerics collapsed to underscores, suffixed
// "_user_source". A leading digit gets an "ns_" prefix since Postgres
// identifiers cannot start with one. The result is validated against
// the allowlist pattern.
func TableNameFor(namespaceName string) (string, error) {
	slug := slugify(namespaceName)
	if slug == "" {
		return "", fmt.Errorf("namespace %q produces an empty table identifier", namespaceName)
	}
	if unicode.IsDigit(rune(slug[0])) {
		slug = "ns_" + slug
	}
	table := slug + "_user_source"
	if !tablePattern.MatchString(table) {
		return "", fmt.Errorf("derived table name %q fails identifier allowlist", table)
	}
	return table, nil
}

func slugify(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// EnsureTable provisions the user table for the namespace if it does
// not exist and returns its name. Index creation on an existing index
// is a no-op, not an error.
func (m *TableManager) EnsureTable(ctx context.Context, namespaceName string) (string, error) {
	m.mu.Lock()
	if table, ok := m.ensured[namespaceName]; ok {
		m.mu.Unlock()
		return table, nil
	}
	m.mu.Unlock()

	table, err := TableNameFor(namespaceName)
	if err != nil {
		return "", err
	}

	// table passed the allowlist above; interpolation is safe.
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT,
			first_name TEXT,
			last_name TEXT,
			company TEXT,
			linkedin_profile TEXT,
			platform TEXT NOT NULL,
			namespace TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table)
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return "", fmt.Errorf("creating table %s: %w", table, err)
	}

	indexes := []string{
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_email ON %s(email)", table, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_platform ON %s(platform)", table, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_created ON %s(created_at DESC)", table, table),
	}
	for _, stmt := range indexes {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return "", fmt.Errorf("creating index on %s: %w", table, err)
		}
	}

	m.mu.Lock()
	m.ensured[namespaceName] = table
	m.mu.Unlock()

	logger.Info("namespace table ensured", "namespace", namespaceName, "table", table)
	return table, nil
}
