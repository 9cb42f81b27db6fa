package repair

import (
	"context"
	"testing"

	"skg/internal/delta"
	"skg/internal/entity"
	"skg/internal/logging"
	"skg/internal/storage"
)

func openStore(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.Open(":memory:", logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewSQLite(db)
}

func fn(name string) entity.Entity {
	return entity.New(entity.Entity{
		OrgID: "org", RepoID: "repo", Kind: entity.KindFunction,
		Name: name, FilePath: name + ".go",
	})
}

func callEdge(from, to string) entity.Edge {
	return entity.Edge{From: from, To: to, Kind: entity.EdgeCalls, OrgID: "org", RepoID: "repo"}
}

func TestRepairRemovesEdgesOfDeleted(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	gone, caller, callee := fn("gone"), fn("caller"), fn("callee")
	seed := []entity.Edge{
		callEdge(caller.ID, gone.ID), // incoming to deleted
		callEdge(gone.ID, callee.ID), // outgoing from deleted
		callEdge(caller.ID, callee.ID),
	}
	if err := s.UpsertEdges(ctx, seed); err != nil {
		t.Fatal(err)
	}

	diff := &delta.EntityDiff{Deleted: []entity.Entity{gone}}
	result, err := NewRepairer(s, logging.Discard()).Repair(ctx, "org", "repo", diff, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.EdgesDeleted != 2 {
		t.Errorf("EdgesDeleted = %d, want 2", result.EdgesDeleted)
	}

	left, _ := s.EdgesFor(ctx, "org", "repo", gone.ID)
	if len(left) != 0 {
		t.Errorf("broken-edge invariant violated: %+v", left)
	}
	untouched, _ := s.EdgesFor(ctx, "org", "repo", caller.ID)
	if len(untouched) != 1 {
		t.Errorf("unrelated edge was rewritten: %+v", untouched)
	}
}

func TestRepairRebuildsOutgoingOfChanged(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	changed, oldCallee, newCallee, caller := fn("changed"), fn("oldCallee"), fn("newCallee"), fn("caller")
	seed := []entity.Edge{
		callEdge(changed.ID, oldCallee.ID), // stale outgoing
		callEdge(caller.ID, changed.ID),    // incoming, must survive
	}
	if err := s.UpsertEdges(ctx, seed); err != nil {
		t.Fatal(err)
	}

	diff := &delta.EntityDiff{Updated: []entity.Entity{changed}}
	fresh := []entity.Edge{
		callEdge(changed.ID, newCallee.ID),
		callEdge("unrelatedSource", "x"), // not sourced at a changed identity
	}
	result, err := NewRepairer(s, logging.Discard()).Repair(ctx, "org", "repo", diff, fresh)
	if err != nil {
		t.Fatal(err)
	}
	if result.EdgesCreated != 1 || result.EdgesDeleted != 1 {
		t.Errorf("result = %+v, want created=1 deleted=1", result)
	}

	edges, _ := s.EdgesFor(ctx, "org", "repo", changed.ID)
	var sawNew, sawIncoming, sawStale bool
	for _, e := range edges {
		switch {
		case e.From == changed.ID && e.To == newCallee.ID:
			sawNew = true
		case e.From == caller.ID && e.To == changed.ID:
			sawIncoming = true
		case e.To == oldCallee.ID:
			sawStale = true
		}
	}
	if !sawNew || !sawIncoming || sawStale {
		t.Errorf("edge state after repair wrong: %+v", edges)
	}
}

func TestRepairIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	changed, callee := fn("changed"), fn("callee")
	diff := &delta.EntityDiff{Added: []entity.Entity{changed}}
	fresh := []entity.Edge{callEdge(changed.ID, callee.ID)}

	r := NewRepairer(s, logging.Discard())
	if _, err := r.Repair(ctx, "org", "repo", diff, fresh); err != nil {
		t.Fatal(err)
	}
	firstState, _ := s.EdgesFor(ctx, "org", "repo", changed.ID)

	if _, err := r.Repair(ctx, "org", "repo", diff, fresh); err != nil {
		t.Fatal(err)
	}
	secondState, _ := s.EdgesFor(ctx, "org", "repo", changed.ID)

	if len(firstState) != len(secondState) {
		t.Errorf("repair not idempotent: %d edges then %d", len(firstState), len(secondState))
	}
	if len(secondState) != 1 || secondState[0].To != callee.ID {
		t.Errorf("final edge set wrong: %+v", secondState)
	}
}

func TestRepairEmptyDiffNoOp(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.UpsertEdges(ctx, []entity.Edge{callEdge("a", "b")}); err != nil {
		t.Fatal(err)
	}
	result, err := NewRepairer(s, logging.Discard()).Repair(ctx, "org", "repo", &delta.EntityDiff{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.EdgesCreated != 0 || result.EdgesDeleted != 0 {
		t.Errorf("empty diff should repair nothing: %+v", result)
	}
}
