// Package run orchestrates one incremental consistency pass:
// diff → edge repair → cascade scheduling → drift classification, in that
// order. The caller (a durable task runner) serializes runs per repository;
// runs for different repositories share no mutable state.
package run

import (
	"context"
	"time"

	"skg/internal/cascade"
	"skg/internal/delta"
	"skg/internal/drift"
	"skg/internal/entity"
	"skg/internal/logging"
	"skg/internal/provider"
	"skg/internal/quarantine"
	"skg/internal/repair"
	"skg/internal/storage"
)

// ExtractionUnit is the extraction result for one source file. Extraction
// itself happens upstream; the engine consumes its output.
type ExtractionUnit struct {
	FilePath  string          `json:"filePath"`
	SizeBytes int64           `json:"sizeBytes"`
	Entities  []entity.Entity `json:"entities"`
	Edges     []entity.Edge   `json:"edges"`
	// ExtractError carries an upstream extraction failure for this unit;
	// a non-empty value quarantines the unit.
	ExtractError string `json:"extractError,omitempty"`
}

// Request is one incremental run over a set of changed files.
type Request struct {
	OrgID  string           `json:"orgId"`
	RepoID string           `json:"repoId"`
	Units  []ExtractionUnit `json:"units"`
}

// DriftEntry is the drift classification for one updated entity.
type DriftEntry struct {
	EntityID   string         `json:"entityId"`
	Name       string         `json:"name"`
	Category   drift.Category `json:"category"`
	Similarity float64        `json:"embeddingSimilarity"`
}

// Stats counts what one run changed.
type Stats struct {
	UnitsProcessed   int           `json:"unitsProcessed"`
	UnitsQuarantined int           `json:"unitsQuarantined"`
	EntitiesAdded    int           `json:"entitiesAdded"`
	EntitiesUpdated  int           `json:"entitiesUpdated"`
	EntitiesDeleted  int           `json:"entitiesDeleted"`
	EdgesCreated     int           `json:"edgesCreated"`
	EdgesDeleted     int           `json:"edgesDeleted"`
	Duration         time.Duration `json:"duration"`
}

// Report is the full outcome of a run. Quarantine and skip lists are always
// populated alongside successful results so operators can see what was
// excluded and why.
type Report struct {
	OrgID       string              `json:"orgId"`
	RepoID      string              `json:"repoId"`
	Stats       Stats               `json:"stats"`
	Cascade     *cascade.Result     `json:"cascade"`
	Drift       []DriftEntry        `json:"drift,omitempty"`
	Quarantined []quarantine.Record `json:"quarantined"`
}

// Runner executes incremental runs against one storage backend.
type Runner struct {
	store    storage.Store
	config   cascade.Config
	guard    quarantine.Guard
	embedder provider.Embedder // optional; nil disables semantic drift signals
	logger   *logging.Logger
}

// NewRunner creates a Runner. embedder may be nil: drift classification then
// falls back to structural signals only (a structural change with no
// semantic signal classifies as intent drift, the conservative default).
func NewRunner(store storage.Store, config cascade.Config, guard quarantine.Guard, embedder provider.Embedder, logger *logging.Logger) *Runner {
	return &Runner{store: store, config: config, guard: guard, embedder: embedder, logger: logger}
}

// unitResult is the guarded per-unit output.
type unitResult struct {
	entities []entity.Entity
	edges    []entity.Edge
	path     string
}

// Incremental executes one run. Order matters: edge repair consumes the
// diff, and cascade scheduling's graph queries must see post-repair edge
// state so the walk never follows already-deleted edges.
func (r *Runner) Incremental(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	report := &Report{
		OrgID:       req.OrgID,
		RepoID:      req.RepoID,
		Quarantined: []quarantine.Record{},
	}

	// Phase 1: per-unit quarantine. A malformed or oversized file is
	// excluded from this run, never fatal to the batch.
	var (
		fresh      []entity.Entity
		freshEdges []entity.Edge
		okPaths    = map[string]bool{}
	)
	for _, unit := range req.Units {
		outcome := quarantine.Run(ctx, r.guard, unit.FilePath, unit.SizeBytes, func() (unitResult, error) {
			if unit.ExtractError != "" {
				return unitResult{}, errString(unit.ExtractError)
			}
			return unitResult{entities: stamped(unit.Entities, req), edges: scoped(unit.Edges, req), path: unit.FilePath}, nil
		})
		if !outcome.Ok() {
			report.Quarantined = append(report.Quarantined, *outcome.Quarantined)
			continue
		}
		fresh = append(fresh, outcome.Value.entities...)
		freshEdges = append(freshEdges, outcome.Value.edges...)
		okPaths[outcome.Value.path] = true
	}
	report.Stats.UnitsProcessed = len(okPaths)
	report.Stats.UnitsQuarantined = len(report.Quarantined)

	// Phase 2: diff against the stored snapshot, scoped to the files this
	// run actually covers. Entities in quarantined or untouched files are
	// outside the diff and stay as they are.
	stored, err := r.store.Entities(ctx, req.OrgID, req.RepoID)
	if err != nil {
		return nil, err
	}
	var previous []entity.Entity
	prevByID := make(map[string]entity.Entity)
	for _, e := range stored {
		if okPaths[e.FilePath] {
			previous = append(previous, e)
			prevByID[keyOf(e)] = e
		}
	}
	diff := delta.Diff(previous, fresh)
	report.Stats.EntitiesAdded = len(diff.Added)
	report.Stats.EntitiesUpdated = len(diff.Updated)
	report.Stats.EntitiesDeleted = len(diff.Deleted)

	// Phase 3: persist the entity changes, then repair edges. Both are
	// idempotent, so a retried run converges.
	if err := r.store.UpsertEntities(ctx, append(diff.Added, diff.Updated...)); err != nil {
		return nil, err
	}
	if len(diff.Deleted) > 0 {
		deletedIDs := make([]string, len(diff.Deleted))
		for i, e := range diff.Deleted {
			deletedIDs[i] = e.ID
		}
		if err := r.store.DeleteEntities(ctx, req.OrgID, req.RepoID, deletedIDs); err != nil {
			return nil, err
		}
	}

	repairResult, err := repair.NewRepairer(r.store, r.logger).Repair(ctx, req.OrgID, req.RepoID, diff, freshEdges)
	if err != nil {
		return nil, err
	}
	report.Stats.EdgesCreated = repairResult.EdgesCreated
	report.Stats.EdgesDeleted = repairResult.EdgesDeleted

	// Phase 4: cascade scheduling over post-repair edge state. The
	// centrality cache is constructed fresh for this run and cleared
	// before first use; stale counts corrupt hub decisions silently.
	cache := cascade.NewCentralityCache(r.store, req.OrgID, req.RepoID)
	cache.Clear()
	scheduler := cascade.NewScheduler(r.store, cache, r.config, r.logger)
	cascadeResult, err := scheduler.BuildQueue(ctx, req.OrgID, req.RepoID, diff.ChangedKeys())
	if err != nil {
		return nil, err
	}
	report.Cascade = cascadeResult

	// Phase 5: drift classification for updated entities. Cheap signals
	// only; the caller uses these labels to decide which cascade items are
	// worth an LLM call at all.
	report.Drift = r.classifyDrift(ctx, diff.Updated, prevByID)

	report.Stats.Duration = time.Since(start)
	r.logger.Info("Incremental run complete", map[string]interface{}{
		"org":         req.OrgID,
		"repo":        req.RepoID,
		"added":       report.Stats.EntitiesAdded,
		"updated":     report.Stats.EntitiesUpdated,
		"deleted":     report.Stats.EntitiesDeleted,
		"cascade":     len(cascadeResult.CascadeQueue),
		"skipped":     len(cascadeResult.Skipped),
		"quarantined": report.Stats.UnitsQuarantined,
	})
	return report, nil
}

func (r *Runner) classifyDrift(ctx context.Context, updated []entity.Entity, prevByID map[string]entity.Entity) []DriftEntry {
	if len(updated) == 0 {
		return nil
	}
	entries := make([]DriftEntry, 0, len(updated))
	for _, e := range updated {
		prev, ok := prevByID[e.ID]
		if !ok {
			continue
		}
		in := drift.Input{
			ASTHashOld: drift.StructuralHash(drift.NormalizeStructure(prev.Signature + "\x00" + prev.Body)),
			ASTHashNew: drift.StructuralHash(drift.NormalizeStructure(e.Signature + "\x00" + e.Body)),
		}
		if in.ASTHashOld != in.ASTHashNew && r.embedder != nil {
			// Embedding failures degrade to structure-only classification;
			// a single provider fault must not abort the batch.
			if old, err := r.embedder.Embed(ctx, prev.Body); err == nil {
				if cur, err := r.embedder.Embed(ctx, e.Body); err == nil {
					in.EmbeddingOld, in.EmbeddingNew = old, cur
				}
			} else {
				r.logger.Warn("Embedding failed, classifying on structure only", map[string]interface{}{
					"entity": e.ID, "error": err.Error(),
				})
			}
		}
		result := drift.Classify(in)
		entries = append(entries, DriftEntry{
			EntityID:   e.ID,
			Name:       e.Name,
			Category:   result.Category,
			Similarity: result.Similarity,
		})
	}
	return entries
}

// stamped scopes extracted entities to the request's org/repo and fills in
// identity keys.
func stamped(entities []entity.Entity, req Request) []entity.Entity {
	out := make([]entity.Entity, len(entities))
	for i, e := range entities {
		e.OrgID = req.OrgID
		e.RepoID = req.RepoID
		e.ID = e.Key()
		out[i] = e
	}
	return out
}

func scoped(edges []entity.Edge, req Request) []entity.Edge {
	out := make([]entity.Edge, len(edges))
	for i, e := range edges {
		e.OrgID = req.OrgID
		e.RepoID = req.RepoID
		out[i] = e
	}
	return out
}

func keyOf(e entity.Entity) string {
	if e.ID != "" {
		return e.ID
	}
	return e.Key()
}

type errString string

func (e errString) Error() string { return string(e) }
