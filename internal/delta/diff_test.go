package delta

import (
	"testing"

	"skg/internal/entity"
)

func fn(name, body string) entity.Entity {
	return entity.New(entity.Entity{
		OrgID: "org", RepoID: "repo", Kind: entity.KindFunction,
		Name: name, FilePath: "pkg/" + name + ".go", Body: body,
	})
}

func TestDiffClassification(t *testing.T) {
	previous := []entity.Entity{
		fn("unchanged", "same body"),
		fn("modified", "old body"),
		fn("removed", "gone"),
	}
	fresh := []entity.Entity{
		fn("unchanged", "same body"),
		fn("modified", "new body"),
		fn("created", "brand new"),
	}

	diff := Diff(previous, fresh)

	if len(diff.Added) != 1 || diff.Added[0].Name != "created" {
		t.Errorf("Added = %v, want [created]", names(diff.Added))
	}
	if len(diff.Updated) != 1 || diff.Updated[0].Name != "modified" {
		t.Errorf("Updated = %v, want [modified]", names(diff.Updated))
	}
	if len(diff.Deleted) != 1 || diff.Deleted[0].Name != "removed" {
		t.Errorf("Deleted = %v, want [removed]", names(diff.Deleted))
	}
}

func TestDiffDisjoint(t *testing.T) {
	previous := []entity.Entity{fn("a", "1"), fn("b", "1"), fn("c", "1")}
	fresh := []entity.Entity{fn("b", "2"), fn("c", "1"), fn("d", "1")}

	diff := Diff(previous, fresh)

	seen := map[string]string{}
	record := func(set string, entities []entity.Entity) {
		for _, e := range entities {
			if prior, dup := seen[e.ID]; dup {
				t.Errorf("identity %s appears in both %s and %s", e.ID, prior, set)
			}
			seen[e.ID] = set
		}
	}
	record("added", diff.Added)
	record("updated", diff.Updated)
	record("deleted", diff.Deleted)
}

func TestDiffNoOpOmitted(t *testing.T) {
	same := []entity.Entity{fn("a", "body"), fn("b", "body")}
	diff := Diff(same, same)
	if !diff.Empty() {
		t.Errorf("identical sets should produce empty diff, got %+v", diff)
	}
}

func TestDiffRenameIsDeleteAdd(t *testing.T) {
	previous := []entity.Entity{fn("oldName", "body")}
	fresh := []entity.Entity{fn("newName", "body")}

	diff := Diff(previous, fresh)

	if len(diff.Updated) != 0 {
		t.Errorf("rename must not classify as update, got %v", names(diff.Updated))
	}
	if len(diff.Added) != 1 || len(diff.Deleted) != 1 {
		t.Errorf("rename should be delete+add, got added=%v deleted=%v",
			names(diff.Added), names(diff.Deleted))
	}
}

func TestDiffDeterministicOrder(t *testing.T) {
	previous := []entity.Entity{fn("a", "1"), fn("b", "1"), fn("c", "1"), fn("d", "1")}
	var fresh []entity.Entity // everything deleted

	first := Diff(previous, fresh)
	for i := 0; i < 10; i++ {
		again := Diff(previous, fresh)
		for j := range first.Deleted {
			if first.Deleted[j].ID != again.Deleted[j].ID {
				t.Fatalf("diff order unstable at index %d", j)
			}
		}
	}
}

func TestChangedKeysExcludesDeleted(t *testing.T) {
	previous := []entity.Entity{fn("removed", "x")}
	fresh := []entity.Entity{fn("created", "y")}

	diff := Diff(previous, fresh)
	keys := diff.ChangedKeys()

	if len(keys) != 1 {
		t.Fatalf("ChangedKeys = %v, want exactly the added identity", keys)
	}
	if keys[0] != diff.Added[0].ID {
		t.Errorf("ChangedKeys = %v, want [%s]", keys, diff.Added[0].ID)
	}
}

func names(entities []entity.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}
