package ledger

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusWorking, true},
		{StatusPending, StatusReverted, true},
		{StatusPending, StatusCommitted, false},
		{StatusWorking, StatusCommitted, true},
		{StatusWorking, StatusReverted, true},
		{StatusWorking, StatusPending, false},
		{StatusCommitted, StatusWorking, false},
		{StatusCommitted, StatusReverted, false},
		{StatusReverted, StatusPending, false},
		{StatusReverted, StatusWorking, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !Terminal(StatusCommitted) || !Terminal(StatusReverted) {
		t.Error("committed and reverted are terminal")
	}
	if Terminal(StatusPending) || Terminal(StatusWorking) {
		t.Error("pending and working are not terminal")
	}
}
