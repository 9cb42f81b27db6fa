// Package quarantine isolates per-unit faults so one malformed or oversized
// input never aborts a batch. Quarantine is containment, not retry: excluded
// units are simply absent from this run and picked up by a later one.
package quarantine

import (
	"context"
	"fmt"
	"time"
)

// Record notes that one input unit was excluded from a run.
type Record struct {
	UnitID string `json:"unitId"` // typically a file path
	Reason string `json:"reason"`
}

// Outcome is the structured result of guarded work: either a value or a
// quarantine record, never a propagated fault.
type Outcome[T any] struct {
	Value       T
	Quarantined *Record
}

// Ok reports whether the unit produced a usable value.
func (o Outcome[T]) Ok() bool {
	return o.Quarantined == nil
}

// Guard wraps per-unit processing with a size ceiling, a deadline, and
// fault capture.
type Guard struct {
	// SizeLimit is the maximum unit size in bytes. Zero disables the check.
	SizeLimit int64
	// Timeout is the maximum wall-clock time work may take before the unit
	// is quarantined. Zero disables the deadline.
	Timeout time.Duration
}

// Run executes work for one unit under g. Units over the size ceiling are
// quarantined without invoking work; errors and panics from work become
// quarantine records, as does exceeding the deadline (the guard's Timeout
// or an earlier deadline already on ctx). The zero value of T is returned
// for quarantined units.
func Run[T any](ctx context.Context, g Guard, unitID string, size int64, work func() (T, error)) Outcome[T] {
	if g.SizeLimit > 0 && size > g.SizeLimit {
		return Outcome[T]{Quarantined: &Record{
			UnitID: unitID,
			Reason: fmt.Sprintf("unit size %d exceeds limit %d", size, g.SizeLimit),
		}}
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	// work runs in its own goroutine so a stuck unit cannot stall the
	// batch. On timeout the goroutine is abandoned; its eventual result
	// is discarded.
	done := make(chan Outcome[T], 1)
	go func() {
		done <- runCaught(unitID, work)
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		return Outcome[T]{Quarantined: &Record{
			UnitID: unitID,
			Reason: "deadline exceeded: " + ctx.Err().Error(),
		}}
	}
}

func runCaught[T any](unitID string, work func() (T, error)) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome[T]{Quarantined: &Record{
				UnitID: unitID,
				Reason: fmt.Sprintf("panic: %v", r),
			}}
		}
	}()

	v, err := work()
	if err != nil {
		return Outcome[T]{Quarantined: &Record{UnitID: unitID, Reason: err.Error()}}
	}
	return Outcome[T]{Value: v}
}
