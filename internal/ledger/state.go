// Package ledger records proposed and applied changes as an append-only,
// bi-temporally valid sequence of entries with a validated state machine.
// Entries are never mutated except for status and validated_at; the change
// payload is immutable once appended.
package ledger

import (
	"fmt"

	skgerrors "skg/internal/errors"
)

// Status is the lifecycle state of a ledger entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusWorking   Status = "working"
	StatusCommitted Status = "committed"
	StatusReverted  Status = "reverted"
)

// validTransitions encodes the state machine:
//
//	pending → working → {committed, reverted}
//	pending → reverted (abandoning before work starts is still a revert)
//
// committed and reverted are terminal.
var validTransitions = map[Status]map[Status]bool{
	StatusPending: {StatusWorking: true, StatusReverted: true},
	StatusWorking: {StatusCommitted: true, StatusReverted: true},
}

// ParseStatus maps a string to a known Status. The second result is
// false for unknown values.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusWorking, StatusCommitted, StatusReverted:
		return Status(s), true
	}
	return "", false
}

// CanTransition reports whether from → to is a legal transition.
func CanTransition(from, to Status) bool {
	return validTransitions[from][to]
}

// Terminal reports whether no transition leads out of s.
func Terminal(s Status) bool {
	return s == StatusCommitted || s == StatusReverted
}

// checkTransition returns a non-retryable invalid-transition error when
// from → to is illegal. Stored state must not be mutated on failure.
func checkTransition(id string, from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return skgerrors.New(skgerrors.InvalidTransition,
		fmt.Sprintf("ledger entry %s: invalid transition %s → %s", id, from, to))
}
