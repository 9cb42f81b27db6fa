package cascade

import (
	"context"
	"fmt"
	"testing"

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

func call(from, to string) entity.Edge {
	return entity.Edge{From: from, To: to, Kind: entity.EdgeCalls, OrgID: "org", RepoID: "repo"}
}

func seedEdges(t *testing.T, s *storage.SQLite, edges []entity.Edge) {
	t.Helper()
	if err := s.UpsertEdges(context.Background(), edges); err != nil {
		t.Fatal(err)
	}
}

func newScheduler(s *storage.SQLite, config Config) *Scheduler {
	cache := NewCentralityCache(s, "org", "repo")
	return NewScheduler(s, cache, config, logging.Discard())
}

func build(t *testing.T, sched *Scheduler, changed ...string) *Result {
	t.Helper()
	result, err := sched.BuildQueue(context.Background(), "org", "repo", changed)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestCascadeWalksCallers(t *testing.T) {
	s := openStore(t)
	// c2 -> c1 -> changed
	seedEdges(t, s, []entity.Edge{call("c1", "changed"), call("c2", "c1")})

	result := build(t, newScheduler(s, DefaultConfig()), "changed")

	if len(result.ReJustifyQueue) != 1 || result.ReJustifyQueue[0] != "changed" {
		t.Errorf("ReJustifyQueue = %v", result.ReJustifyQueue)
	}
	if len(result.CascadeQueue) != 2 || result.CascadeQueue[0] != "c1" || result.CascadeQueue[1] != "c2" {
		t.Errorf("CascadeQueue = %v, want [c1 c2] closest first", result.CascadeQueue)
	}
	if len(result.Skipped) != 0 {
		t.Errorf("Skipped = %v, want empty", result.Skipped)
	}
}

func TestCascadeHopCap(t *testing.T) {
	s := openStore(t)
	// chain: c3 -> c2 -> c1 -> changed
	seedEdges(t, s, []entity.Edge{call("c1", "changed"), call("c2", "c1"), call("c3", "c2")})

	config := DefaultConfig()
	config.MaxHops = 2
	result := build(t, newScheduler(s, config), "changed")

	if len(result.CascadeQueue) != 2 {
		t.Errorf("CascadeQueue = %v, want exactly the 2-hop neighborhood", result.CascadeQueue)
	}
	for _, id := range result.CascadeQueue {
		if id == "c3" {
			t.Error("c3 is 3 hops away and must not be cascaded")
		}
	}
}

func TestCascadeTotalCap(t *testing.T) {
	s := openStore(t)
	var edges []entity.Edge
	for i := 0; i < 20; i++ {
		edges = append(edges, call(fmt.Sprintf("caller%02d", i), "changed"))
	}
	seedEdges(t, s, edges)

	config := DefaultConfig()
	config.MaxEntities = 5
	config.CentralityThreshold = 100
	result := build(t, newScheduler(s, config), "changed")

	total := len(result.ReJustifyQueue) + len(result.CascadeQueue)
	if total > 5 {
		t.Errorf("|reJustify| + |cascade| = %d, exceeds MaxEntities=5", total)
	}
	if len(result.CascadeQueue) != 4 {
		t.Errorf("CascadeQueue = %d entries, want 4 (budget after 1 seed)", len(result.CascadeQueue))
	}
}

func TestHubContainment(t *testing.T) {
	s := openStore(t)
	// changed <- hub (hub has many callers; callers-of-hub must not cascade
	// through it)
	edges := []entity.Edge{call("hub", "changed")}
	for i := 0; i < 30; i++ {
		edges = append(edges, call(fmt.Sprintf("hubCaller%02d", i), "hub"))
	}
	seedEdges(t, s, edges)

	config := DefaultConfig()
	config.CentralityThreshold = 25
	result := build(t, newScheduler(s, config), "changed")

	if len(result.Skipped) != 1 || result.Skipped[0] != "hub" {
		t.Errorf("Skipped = %v, want [hub]", result.Skipped)
	}
	for _, id := range result.CascadeQueue {
		if id == "hub" {
			t.Error("hub appears in both CascadeQueue and Skipped")
		}
		if len(id) > 9 && id[:9] == "hubCaller" {
			t.Errorf("%s cascaded through a skipped hub", id)
		}
	}
}

func TestChangedHubStaysInReJustifyQueue(t *testing.T) {
	s := openStore(t)
	// f1 calls f2, f2 changes, and 50 other callers
	// make f2 a hub. f2 is re-justified, f1 is not cascaded, and f2 is not
	// in Skipped because nothing traversed through it from upstream.
	edges := []entity.Edge{call("f1", "f2")}
	for i := 0; i < 50; i++ {
		edges = append(edges, call(fmt.Sprintf("extra%02d", i), "f2"))
	}
	seedEdges(t, s, edges)

	config := DefaultConfig()
	config.CentralityThreshold = 25
	result := build(t, newScheduler(s, config), "f2")

	if len(result.ReJustifyQueue) != 1 || result.ReJustifyQueue[0] != "f2" {
		t.Errorf("ReJustifyQueue = %v, want [f2]", result.ReJustifyQueue)
	}
	if len(result.CascadeQueue) != 0 {
		t.Errorf("CascadeQueue = %v, want empty (f2 is a hub)", result.CascadeQueue)
	}
	for _, id := range result.Skipped {
		if id == "f2" {
			t.Error("changed entity must not appear in Skipped")
		}
	}
}

func TestSignificanceThresholdFiltersWeakEdges(t *testing.T) {
	s := openStore(t)
	weak := call("weakCaller", "changed")
	weak.Weight = 0.05
	strong := call("strongCaller", "changed")
	strong.Weight = 0.9
	seedEdges(t, s, []entity.Edge{weak, strong})

	config := DefaultConfig()
	config.SignificanceThreshold = 0.1
	result := build(t, newScheduler(s, config), "changed")

	if len(result.CascadeQueue) != 1 || result.CascadeQueue[0] != "strongCaller" {
		t.Errorf("CascadeQueue = %v, want [strongCaller]", result.CascadeQueue)
	}
}

func TestCascadeDedupesSeeds(t *testing.T) {
	s := openStore(t)
	result := build(t, newScheduler(s, DefaultConfig()), "a", "a", "b")
	if len(result.ReJustifyQueue) != 2 {
		t.Errorf("ReJustifyQueue = %v, want deduped [a b]", result.ReJustifyQueue)
	}
}

func TestCentralityCacheMemoizesAndClears(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	seedEdges(t, s, []entity.Edge{call("a", "target"), call("b", "target")})

	cache := NewCentralityCache(s, "org", "repo")
	count, err := cache.CallerCount(ctx, "target")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("CallerCount = %d, want 2", count)
	}

	// A new edge does not show through the memoized value mid-run.
	seedEdges(t, s, []entity.Edge{call("c", "target")})
	count, _ = cache.CallerCount(ctx, "target")
	if count != 2 {
		t.Errorf("memoized count changed mid-run: %d", count)
	}

	// Clearing at the run boundary picks up the new in-degree.
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after Clear", cache.Len())
	}
	count, _ = cache.CallerCount(ctx, "target")
	if count != 3 {
		t.Errorf("post-clear count = %d, want 3", count)
	}
}
