package entity

// EdgeKind represents the relation an edge encodes.
type EdgeKind string

const (
	EdgeCalls      EdgeKind = "calls"
	EdgeImports    EdgeKind = "imports"
	EdgeContains   EdgeKind = "contains"
	EdgeReferences EdgeKind = "references"
)

// Edge is a directed relation between two entity identities, scoped to an
// org/repo pair. Edges are derived artifacts: they exist only as long as both
// endpoints exist and the relation was observed in the most recent
// extraction. No edge may reference an identity absent from the current
// entity set; the repair pass restores that invariant after every diff.
type Edge struct {
	From   string   `json:"from"` // identity key of the source entity
	To     string   `json:"to"`   // identity key of the target entity
	Kind   EdgeKind `json:"kind"`
	OrgID  string   `json:"orgId"`
	RepoID string   `json:"repoId"`

	// Weight expresses coupling strength in [0,1]. Trivial relations
	// (re-exports, blanket imports) carry low weight and are filtered from
	// cascade growth by the significance threshold.
	Weight float64 `json:"weight,omitempty"`
}

// Touches reports whether the edge references the given identity in either
// direction.
func (e *Edge) Touches(id string) bool {
	return e.From == id || e.To == id
}
