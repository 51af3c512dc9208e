package namespace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ignite/outreach-sync/internal/pkg/logger"
)

// Lister supplies the current namespace configuration. Implemented by
// the Postgres store.
type Lister interface {
	// ListActiveNamespaces returns active namespaces ordered by
	// (priority, created_at) so the first keyword match wins
	// deterministically.
	ListActiveNamespaces(ctx context.Context) ([]Namespace, error)
}

// Resolver maps campaign names onto namespaces by keyword matching.
// The namespace snapshot is re-read through a short TTL cache so
// namespaces created after process start become effective without a
// restart.
type Resolver struct {
	source      Lister
	defaultName string
	ttl         time.Duration

	mu        sync.Mutex
	snapshot  []Namespace
	fetchedAt time.Time
}

// NewResolver creates a Resolver. defaultName is returned when no
// keyword matches; ttl bounds how stale the namespace snapshot may be.
func NewResolver(source Lister, defaultName string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Resolver{source: source, defaultName: defaultName, ttl: ttl}
}

// DefaultNamespace returns the configured fallback namespace name.
func (r *Resolver) DefaultNamespace() string { return r.defaultName }

// DetectFromCampaign resolves the namespace for a campaign name.
// The name is case-folded and tested against each active namespace's
// keyword set in configuration order; the first match wins. Campaigns
// matching nothing fall back to the default namespace rather than being
// dropped.
func (r *Resolver) DetectFromCampaign(ctx context.Context, campaignName string) (string, error) {
	namespaces, err := r.activeNamespaces(ctx)
	if err != nil {
		return "", fmt.Errorf("loading namespace snapshot: %w", err)
	}

	folded := strings.ToLower(strings.TrimSpace(campaignName))
	for _, ns := range namespaces {
		for _, kw := range ns.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(folded, kw) {
				logger.Debug("namespace resolved", "campaign", campaignName, "namespace", ns.Name, "keyword", kw)
				return ns.Name, nil
			}
		}
	}

	logger.Debug("namespace fallback", "campaign", campaignName, "namespace", r.defaultName)
	return r.defaultName, nil
}

// activeNamespaces returns the cached snapshot, refreshing it when the
// TTL has elapsed. A refresh failure with a previous snapshot in hand
// serves the stale data instead of failing resolution.
func (r *Resolver) activeNamespaces(ctx context.Context) ([]Namespace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot != nil && time.Since(r.fetchedAt) < r.ttl {
		return r.snapshot, nil
	}

	fresh, err := r.source.ListActiveNamespaces(ctx)
	if err != nil {
		if r.snapshot != nil {
			logger.Warn("namespace refresh failed, serving stale snapshot", "error", err.Error())
			return r.snapshot, nil
		}
		return nil, err
	}

	r.snapshot = fresh
	r.fetchedAt = time.Now()
	return r.snapshot, nil
}

// Invalidate drops the cached snapshot so the next resolution re-reads
// configuration. Used by tests and the manual-trigger API.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.snapshot = nil
	r.mu.Unlock()
}
