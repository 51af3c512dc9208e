package namespace

import "time"

// Namespace is one logical tenant/cohort. Campaigns route to a
// namespace by keyword match against the campaign name; each namespace
// owns a dedicated user table. Rows are provisioned out-of-band and are
// read-only to the sync pipeline.
type Namespace struct {
	ID        int64
	Name      string
	Keywords  []string
	TableName string
	IsActive  bool
	Priority  int
	CreatedAt time.Time
}
