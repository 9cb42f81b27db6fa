// Package repair restores the broken-edge invariant after an entity diff:
// no stored edge may reference an identity absent from the current entity
// set. Repair is local to the diff; edges not touching a changed identity
// are never rewritten.
package repair

import (
	"context"

	"skg/internal/delta"
	"skg/internal/entity"
	"skg/internal/logging"
	"skg/internal/storage"
)

// Result summarizes one repair pass.
type Result struct {
	EdgesCreated int `json:"edgesCreated"`
	EdgesDeleted int `json:"edgesDeleted"`
}

// Repairer applies edge repairs through the storage port.
type Repairer struct {
	store  storage.Store
	logger *logging.Logger
}

// NewRepairer creates a Repairer.
func NewRepairer(store storage.Store, logger *logging.Logger) *Repairer {
	return &Repairer{store: store, logger: logger}
}

// Repair brings stored edges in line with the diff and the fresh extraction:
//
//  1. Every edge touching a deleted identity is removed, in both directions.
//  2. For each added or updated identity, its outgoing edges are cleared and
//     re-inserted from freshEdges. Clearing before inserting makes the whole
//     operation idempotent; a retry with the same inputs converges.
//  3. Edges not touching any changed identity are left untouched.
//
// Incoming edges of changed entities are owned by their (unchanged) source
// entities and survive; cascade scheduling depends on them.
func (r *Repairer) Repair(ctx context.Context, org, repo string, diff *delta.EntityDiff, freshEdges []entity.Edge) (*Result, error) {
	result := &Result{}

	if len(diff.Deleted) > 0 {
		deletedIDs := ids(diff.Deleted)
		n, err := r.store.DeleteEdgesTouching(ctx, org, repo, deletedIDs)
		if err != nil {
			return nil, err
		}
		result.EdgesDeleted += n
	}

	changed := make(map[string]bool, len(diff.Added)+len(diff.Updated))
	for _, e := range diff.Added {
		changed[e.ID] = true
	}
	for _, e := range diff.Updated {
		changed[e.ID] = true
	}
	if len(changed) == 0 {
		return result, nil
	}

	changedIDs := make([]string, 0, len(changed))
	for id := range changed {
		changedIDs = append(changedIDs, id)
	}
	n, err := r.store.DeleteEdgesFrom(ctx, org, repo, changedIDs)
	if err != nil {
		return nil, err
	}
	result.EdgesDeleted += n

	// Only edges sourced at a changed identity belong to this repair;
	// extraction of other files may sit in freshEdges when the caller
	// passes a whole-batch edge set.
	toInsert := make([]entity.Edge, 0, len(freshEdges))
	for _, e := range freshEdges {
		if changed[e.From] {
			toInsert = append(toInsert, e)
		}
	}
	if err := r.store.UpsertEdges(ctx, toInsert); err != nil {
		return nil, err
	}
	result.EdgesCreated = len(toInsert)

	r.logger.Debug("Edge repair complete", map[string]interface{}{
		"created": result.EdgesCreated,
		"deleted": result.EdgesDeleted,
	})
	return result, nil
}

func ids(entities []entity.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}
