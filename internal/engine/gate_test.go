package engine

import "testing"

// boolLocks builds one lock per desired outcome: true locks check a present
// property, false locks check a missing one.
func boolLocks(t *testing.T, outcomes []bool) []*Lock {
	t.Helper()
	locks := make([]*Lock, len(outcomes))
	for i, pass := range outcomes {
		property := "present"
		if !pass {
			property = "missing"
		}
		locks[i] = mustLock(t, lockName(i), LockExists, property, nil, false)
	}
	return locks
}

func lockName(i int) string {
	return string(rune('a' + i))
}

func TestGateFolding(t *testing.T) {
	el := NewElement(map[string]any{"present": 1})

	tests := []struct {
		logic    GateLogic
		outcomes []bool
		want     bool
	}{
		{LogicAnd, []bool{true, true}, true},
		{LogicAnd, []bool{true, false}, false},
		{LogicOr, []bool{false, true}, true},
		{LogicOr, []bool{false, false}, false},
		{LogicXor, []bool{true, false}, true},
		{LogicXor, []bool{true, true}, false},
		{LogicXor, []bool{false, false}, false},
		{LogicNand, []bool{true, true}, false},
		{LogicNand, []bool{true, false}, true},
		{LogicNor, []bool{false, false}, true},
		{LogicNor, []bool{false, true}, false},
	}

	for _, tt := range tests {
		g, err := NewGate("g", tt.logic, boolLocks(t, tt.outcomes), "")
		if err != nil {
			t.Fatalf("NewGate: %v", err)
		}
		got := g.Evaluate(el, nil)
		if got.Passed != tt.want {
			t.Errorf("%s over %v: passed = %v, want %v", tt.logic, tt.outcomes, got.Passed, tt.want)
		}
	}
}

func TestGateFailedLocksIndependentOfFold(t *testing.T) {
	el := NewElement(map[string]any{"present": 1})

	// Under OR the gate passes, but the failing lock is still reported for
	// diagnostics.
	g, err := NewGate("g", LogicOr, boolLocks(t, []bool{false, true}), "")
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	got := g.Evaluate(el, nil)
	if !got.Passed {
		t.Fatal("OR gate over [false, true] should pass")
	}
	if len(got.FailedLocks) != 1 || got.FailedLocks[0] != "a" {
		t.Errorf("failed locks = %v, want [a]", got.FailedLocks)
	}
	if len(got.LockOutcomes) != 2 {
		t.Errorf("lock outcomes = %d, want 2 (no short-circuiting)", len(got.LockOutcomes))
	}
}

func TestNewGateRejectsBadInput(t *testing.T) {
	locks := boolLocks(t, []bool{true})
	if _, err := NewGate("", LogicAnd, locks, ""); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := NewGate("g", "maybe", locks, ""); err == nil {
		t.Error("expected error for unknown logic")
	}
	if _, err := NewGate("g", LogicAnd, nil, ""); err == nil {
		t.Error("expected error for empty lock list")
	}
}
