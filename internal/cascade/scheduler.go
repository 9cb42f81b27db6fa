// Package cascade decides which entities need semantic re-evaluation after
// a change. Every caller of a changed entity is a candidate, but blind
// transitive closure is economically ruinous when each re-evaluation is an
// LLM call; the scheduler bounds the walk with a hop cap, a hub cap, and a
// total budget.
package cascade

import (
	"context"
	"sort"

	"skg/internal/logging"
	"skg/internal/storage"
)

// Config carries the traversal caps.
type Config struct {
	// MaxHops bounds how far the walk proceeds from any changed entity.
	MaxHops int `json:"maxHops" mapstructure:"maxHops"`
	// MaxEntities caps |ReJustifyQueue| + |CascadeQueue| combined.
	MaxEntities int `json:"maxEntities" mapstructure:"maxEntities"`
	// CentralityThreshold is the caller-count above which a node is a hub:
	// traversal does not continue through it.
	CentralityThreshold int `json:"centralityThreshold" mapstructure:"centralityThreshold"`
	// SignificanceThreshold filters low-weight edges (trivial re-exports)
	// from contributing to cascade growth.
	SignificanceThreshold float64 `json:"significanceThreshold" mapstructure:"significanceThreshold"`
}

// DefaultConfig returns the default traversal caps.
func DefaultConfig() Config {
	return Config{
		MaxHops:               2,
		MaxEntities:           100,
		CentralityThreshold:   25,
		SignificanceThreshold: 0.1,
	}
}

// Result is the outcome of one scheduling pass. Computed fresh on every
// run; downstream consumers persist justification outcomes, not the queue.
type Result struct {
	// ReJustifyQueue holds the directly changed identities. Always
	// re-justified; the budget bounds cascade growth, not the seed set.
	ReJustifyQueue []string `json:"reJustifyQueue"`
	// CascadeQueue holds callers discovered by traversal that passed all
	// caps, closest first.
	CascadeQueue []string `json:"cascadeQueue"`
	// Skipped holds hub nodes whose traversal was cut off. Observability:
	// this is where cost was saved.
	Skipped []string `json:"skipped"`
}

// Scheduler builds cascade queues over the post-repair graph.
type Scheduler struct {
	store  storage.Store
	cache  *CentralityCache
	config Config
	logger *logging.Logger
}

// NewScheduler creates a Scheduler. The centrality cache must be scoped to
// the same run as the traversals performed here.
func NewScheduler(store storage.Store, cache *CentralityCache, config Config, logger *logging.Logger) *Scheduler {
	return &Scheduler{store: store, cache: cache, config: config, logger: logger}
}

// BuildQueue walks calls edges callee→caller ("who calls this") breadth-
// first from the changed set, subject to three independent caps:
//
//   - hop cap: no node more than MaxHops edge-hops from a changed entity;
//   - hub cap: a discovered node whose caller-count exceeds
//     CentralityThreshold is recorded in Skipped and not traversed through;
//     widely-used utilities would otherwise drag near the whole graph into
//     every cascade;
//   - total cap: |ReJustifyQueue| + |CascadeQueue| never exceeds
//     MaxEntities; breadth-first order means the closest candidates win.
//
// A changed entity that is itself a hub stays in ReJustifyQueue (never
// Skipped); its callers are simply not visited.
func (s *Scheduler) BuildQueue(ctx context.Context, org, repo string, changed []string) (*Result, error) {
	seeds := dedupe(changed)
	result := &Result{
		ReJustifyQueue: seeds,
		CascadeQueue:   []string{},
		Skipped:        []string{},
	}
	if len(seeds) == 0 {
		return result, nil
	}

	budget := s.config.MaxEntities - len(seeds)
	if budget < 0 {
		budget = 0
	}

	type item struct {
		id  string
		hop int
	}

	visited := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		visited[id] = true
	}
	skipped := make(map[string]bool)

	queue := make([]item, 0, len(seeds))
	// Seeds expand only if they are not hubs themselves.
	for _, id := range seeds {
		hub, err := s.isHub(ctx, id)
		if err != nil {
			return nil, err
		}
		if !hub {
			queue = append(queue, item{id: id, hop: 0})
		}
	}

	for len(queue) > 0 && budget > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.hop >= s.config.MaxHops {
			continue
		}

		callers, err := s.store.Callers(ctx, org, repo, cur.id)
		if err != nil {
			return nil, err
		}
		for _, caller := range callers {
			if budget <= 0 {
				break
			}
			if visited[caller.ID] || skipped[caller.ID] {
				continue
			}
			if caller.Weight > 0 && caller.Weight < s.config.SignificanceThreshold {
				continue
			}

			hub, err := s.isHub(ctx, caller.ID)
			if err != nil {
				return nil, err
			}
			if hub {
				skipped[caller.ID] = true
				result.Skipped = append(result.Skipped, caller.ID)
				continue
			}

			visited[caller.ID] = true
			result.CascadeQueue = append(result.CascadeQueue, caller.ID)
			budget--
			queue = append(queue, item{id: caller.ID, hop: cur.hop + 1})
		}
	}

	sort.Strings(result.Skipped)
	s.logger.Debug("Cascade queue built", map[string]interface{}{
		"changed": len(seeds),
		"cascade": len(result.CascadeQueue),
		"skipped": len(result.Skipped),
	})
	return result, nil
}

func (s *Scheduler) isHub(ctx context.Context, id string) (bool, error) {
	count, err := s.cache.CallerCount(ctx, id)
	if err != nil {
		return false, err
	}
	return count > s.config.CentralityThreshold, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
