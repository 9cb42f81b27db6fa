package quarantine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunOk(t *testing.T) {
	out := Run(context.Background(), Guard{SizeLimit: 100}, "a.go", 50, func() ([]string, error) {
		return []string{"sym1", "sym2"}, nil
	})
	if !out.Ok() {
		t.Fatalf("expected ok, got quarantine: %+v", out.Quarantined)
	}
	if len(out.Value) != 2 {
		t.Errorf("value = %v", out.Value)
	}
}

func TestRunOversized(t *testing.T) {
	invoked := false
	out := Run(context.Background(), Guard{SizeLimit: 10}, "huge.go", 11, func() (int, error) {
		invoked = true
		return 1, nil
	})
	if out.Ok() {
		t.Fatal("oversized unit was not quarantined")
	}
	if invoked {
		t.Error("work ran despite size ceiling")
	}
	if out.Quarantined.UnitID != "huge.go" || !strings.Contains(out.Quarantined.Reason, "exceeds limit") {
		t.Errorf("record = %+v", out.Quarantined)
	}
}

func TestRunError(t *testing.T) {
	out := Run(context.Background(), Guard{}, "bad.go", 5, func() (int, error) {
		return 0, errors.New("parse failed at line 3")
	})
	if out.Ok() {
		t.Fatal("errored unit was not quarantined")
	}
	if out.Quarantined.Reason != "parse failed at line 3" {
		t.Errorf("reason = %q", out.Quarantined.Reason)
	}
}

func TestRunPanic(t *testing.T) {
	out := Run(context.Background(), Guard{}, "panic.go", 5, func() (int, error) {
		panic("index out of range")
	})
	if out.Ok() {
		t.Fatal("panicking unit was not quarantined")
	}
	if !strings.Contains(out.Quarantined.Reason, "index out of range") {
		t.Errorf("reason = %q", out.Quarantined.Reason)
	}
}

func TestRunDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	out := Run(context.Background(), Guard{Timeout: 10 * time.Millisecond}, "slow.go", 5, func() (int, error) {
		<-release
		return 1, nil
	})
	if out.Ok() {
		t.Fatal("stalled unit was not quarantined")
	}
	if out.Quarantined.UnitID != "slow.go" || !strings.Contains(out.Quarantined.Reason, "deadline exceeded") {
		t.Errorf("record = %+v", out.Quarantined)
	}
}

func TestRunInheritsCallerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	release := make(chan struct{})
	defer close(release)

	// No guard timeout of its own; the caller's deadline still applies.
	out := Run(ctx, Guard{}, "slow.go", 5, func() (int, error) {
		<-release
		return 1, nil
	})
	if out.Ok() {
		t.Fatal("caller deadline was ignored")
	}
}

func TestZeroSizeLimitDisablesCheck(t *testing.T) {
	out := Run(context.Background(), Guard{}, "a.go", 1<<40, func() (string, error) { return "ok", nil })
	if !out.Ok() {
		t.Errorf("zero limit should disable size check: %+v", out.Quarantined)
	}
}
