// Package storage provides the storage port consumed by the consistency
// engine, plus the bundled SQLite implementation. Callers needing a
// different backend implement Store against the same contract.
package storage

import (
	"context"
	"time"

	"skg/internal/entity"
)

// Caller is one direct caller of an entity, discovered over calls edges.
type Caller struct {
	ID     string  // identity key of the calling entity
	Weight float64 // weight of the calls edge
}

// Justification is an LLM-derived semantic annotation on an entity.
// Bi-temporal: at most one row per entity has ValidTo == nil at any time.
type Justification struct {
	ID         string     `json:"id"`
	EntityID   string     `json:"entityId"`
	Purpose    string     `json:"purpose"`
	Taxonomy   string     `json:"taxonomy,omitempty"`
	Confidence float64    `json:"confidence"`
	ValidFrom  time.Time  `json:"validFrom"`
	ValidTo    *time.Time `json:"validTo,omitempty"`
}

// Store is the storage port. All write operations are idempotent: re-running
// a failed batch with the same inputs converges to the same state.
type Store interface {
	// Entities returns the full current entity set for a repository.
	Entities(ctx context.Context, org, repo string) ([]entity.Entity, error)
	// UpsertEntities inserts or replaces entities keyed by identity.
	UpsertEntities(ctx context.Context, entities []entity.Entity) error
	// DeleteEntities removes the given identities from a repository.
	DeleteEntities(ctx context.Context, org, repo string, ids []string) error

	// EdgesFor returns edges referencing the identity in either direction.
	EdgesFor(ctx context.Context, org, repo, id string) ([]entity.Edge, error)
	// UpsertEdges inserts or replaces edges keyed by (from, to, kind).
	UpsertEdges(ctx context.Context, edges []entity.Edge) error
	// DeleteEdgesTouching removes every edge referencing any of the given
	// identities in either direction. Returns the number deleted.
	DeleteEdgesTouching(ctx context.Context, org, repo string, ids []string) (int, error)
	// DeleteEdgesFrom removes every edge whose source is one of the given
	// identities. Incoming edges are left alone: they are owned by their
	// own source entities and survive until those change or disappear.
	DeleteEdgesFrom(ctx context.Context, org, repo string, ids []string) (int, error)

	// Callers returns the direct callers of an entity over calls edges.
	Callers(ctx context.Context, org, repo, id string) ([]Caller, error)
	// CallerCount returns the in-degree of an entity over calls edges.
	CallerCount(ctx context.Context, org, repo, id string) (int, error)

	// CurrentJustification returns the justification with ValidTo == nil,
	// or nil if the entity has none.
	CurrentJustification(ctx context.Context, entityID string) (*Justification, error)
	// SupersedeJustification atomically closes the currently valid
	// justification (if any) and inserts j as the new valid record. There
	// is no window in which two records are simultaneously valid.
	SupersedeJustification(ctx context.Context, j Justification) error

	Close() error
}
