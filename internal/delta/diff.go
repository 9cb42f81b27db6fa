// Package delta computes entity-level diffs between a stored snapshot and a
// fresh extraction. The diff is the single input for edge repair and cascade
// scheduling; it never touches storage itself.
package delta

import (
	"sort"

	"skg/internal/entity"
)

// EntityDiff partitions changed identities into three disjoint sets.
// An identity appears in at most one of the three slices.
type EntityDiff struct {
	Added   []entity.Entity `json:"added"`
	Updated []entity.Entity `json:"updated"` // same identity, different content hash
	Deleted []entity.Entity `json:"deleted"` // present before, absent now
}

// Empty reports whether the diff contains no changes.
func (d *EntityDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Deleted) == 0
}

// ChangedKeys returns the identities in Added and Updated, the set that
// seeds cascade scheduling. Deleted identities are excluded: there is
// nothing left to re-justify.
func (d *EntityDiff) ChangedKeys() []string {
	keys := make([]string, 0, len(d.Added)+len(d.Updated))
	for _, e := range d.Added {
		keys = append(keys, e.ID)
	}
	for _, e := range d.Updated {
		keys = append(keys, e.ID)
	}
	return keys
}

// Diff compares a previous snapshot against a fresh extraction and
// classifies every identity as added, updated, or deleted. Identities
// present on both sides with an identical content hash are omitted entirely.
//
// Pure function: no storage or network. Output ordering is sorted by
// identity key so results do not depend on map iteration order.
func Diff(previous, fresh []entity.Entity) *EntityDiff {
	prevByKey := make(map[string]entity.Entity, len(previous))
	for _, e := range previous {
		prevByKey[keyOf(e)] = e
	}
	freshByKey := make(map[string]entity.Entity, len(fresh))
	for _, e := range fresh {
		freshByKey[keyOf(e)] = e
	}

	diff := &EntityDiff{}

	for key, e := range freshByKey {
		prev, existed := prevByKey[key]
		if !existed {
			e.ID = key
			diff.Added = append(diff.Added, e)
			continue
		}
		if prev.ContentHash() != e.ContentHash() {
			e.ID = key
			diff.Updated = append(diff.Updated, e)
		}
	}

	for key, e := range prevByKey {
		if _, survives := freshByKey[key]; !survives {
			e.ID = key
			diff.Deleted = append(diff.Deleted, e)
		}
	}

	sortByID(diff.Added)
	sortByID(diff.Updated)
	sortByID(diff.Deleted)
	return diff
}

func keyOf(e entity.Entity) string {
	if e.ID != "" {
		return e.ID
	}
	return e.Key()
}

func sortByID(entities []entity.Entity) {
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })
}
