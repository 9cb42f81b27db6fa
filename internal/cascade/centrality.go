package cascade

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"skg/internal/storage"
)

const defaultCentralityCacheSize = 4096

// CentralityCache memoizes caller-count lookups for one incremental run.
// Counts are expensive graph queries and the scheduler consults them once
// per node; the cache must never outlive a run; post-repair edge state
// changes in-degrees, and a stale count lets a hub escape the skip rule
// (or the reverse) silently.
//
// The cache is scoped to a single org/repo pair and passed explicitly into
// the scheduler; there is no shared module-level state.
type CentralityCache struct {
	store  storage.Store
	org    string
	repo   string
	counts *lru.Cache[string, int]
}

// NewCentralityCache creates a run-scoped cache for one repository.
func NewCentralityCache(store storage.Store, org, repo string) *CentralityCache {
	counts, _ := lru.New[string, int](defaultCentralityCacheSize)
	return &CentralityCache{store: store, org: org, repo: repo, counts: counts}
}

// CallerCount returns the in-degree of id over calls edges, memoized.
func (c *CentralityCache) CallerCount(ctx context.Context, id string) (int, error) {
	if count, ok := c.counts.Get(id); ok {
		return count, nil
	}
	count, err := c.store.CallerCount(ctx, c.org, c.repo, id)
	if err != nil {
		return 0, err
	}
	c.counts.Add(id, count)
	return count, nil
}

// Clear drops every memoized count. Call at run boundaries, before the
// first traversal of a new run.
func (c *CentralityCache) Clear() {
	c.counts.Purge()
}

// Len returns the number of memoized counts. Observability only.
func (c *CentralityCache) Len() int {
	return c.counts.Len()
}
