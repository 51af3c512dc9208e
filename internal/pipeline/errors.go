package pipeline

import "fmt"

// ConfigurationError is fatal for the operation that hit it: a missing
// API key or a namespace-derived identifier that failed the allowlist.
// It surfaces to the run's caller instead of being absorbed per-record.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Op, e.Reason)
}

// TransientNetworkError wraps a platform API failure. It aborts the
// current campaign (activity fetch) or the whole run (campaign fetch)
// and is retried by the next scheduled invocation, not within the run.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network error in %s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// PersistenceError wraps a per-record database failure other than the
// expected event_key conflict. Logged and skipped; the run continues.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
