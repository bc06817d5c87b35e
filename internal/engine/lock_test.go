package engine

import (
	"strings"
	"testing"
)

func mustLock(t *testing.T, name string, kind LockKind, property string, expected any, negate bool) *Lock {
	t.Helper()
	l, err := NewLock(name, kind, property, expected, negate)
	if err != nil {
		t.Fatalf("NewLock(%s): %v", name, err)
	}
	return l
}

func TestNewLockRequiresExpectedValue(t *testing.T) {
	needValue := []LockKind{
		LockEquals, LockNotEquals, LockGreaterThan, LockLessThan,
		LockGreaterEqual, LockLessEqual, LockRegexMatch, LockContains,
		LockMinLength, LockMaxLength, LockInList, LockNotInList, LockTypeIs,
	}
	for _, kind := range needValue {
		if _, err := NewLock("l", kind, "field", nil, false); err == nil {
			t.Errorf("kind %s: expected construction error without expected value", kind)
		}
	}

	// Presence kinds construct without a value.
	for _, kind := range []LockKind{LockExists, LockNotExists, LockIsNull, LockNotNull, LockIsEmpty, LockNotEmpty, LockIsNumeric, LockIsBoolean} {
		if _, err := NewLock("l", kind, "field", nil, false); err != nil {
			t.Errorf("kind %s: unexpected construction error: %v", kind, err)
		}
	}
}

func TestNewLockRejectsBadInput(t *testing.T) {
	if _, err := NewLock("", LockExists, "a", nil, false); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := NewLock("l", "bogus", "a", nil, false); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := NewLock("l", LockExists, "a..b", nil, false); err == nil {
		t.Error("expected error for malformed path")
	}
	if _, err := NewLock("l", LockRegexMatch, "a", "([", false); err == nil {
		t.Error("expected error for invalid regex pattern")
	}
	if _, err := NewLock("l", LockRegexMatch, "a", 5, false); err == nil {
		t.Error("expected error for non-string regex pattern")
	}
}

func TestLockAbsenceSemantics(t *testing.T) {
	empty := NewElement(map[string]any{})

	tests := []struct {
		kind     LockKind
		expected any
		want     bool
	}{
		{LockExists, nil, false},
		{LockNotExists, nil, true},
		{LockIsNull, nil, true},
		{LockNotNull, nil, false},
		{LockIsEmpty, nil, true},
		{LockNotEmpty, nil, false},
		{LockIsNumeric, nil, false},
		{LockIsBoolean, nil, false},
		{LockEquals, "x", false},
		{LockNotEquals, "x", false},
		{LockGreaterThan, 1, false},
		{LockLessThan, 1, false},
		{LockContains, "x", false},
		{LockRegexMatch, "^x$", false},
		{LockMinLength, 1, false},
		{LockInList, []any{"x"}, false},
		{LockTypeIs, "string", false},
	}

	for _, tt := range tests {
		l := mustLock(t, "l", tt.kind, "missing", tt.expected, false)
		got := l.Evaluate(empty, nil)
		if got.Passed != tt.want {
			t.Errorf("kind %s on missing property: passed = %v, want %v", tt.kind, got.Passed, tt.want)
		}
	}

	// Comparison kinds report why.
	l := mustLock(t, "l", LockEquals, "missing", "x", false)
	if got := l.Evaluate(empty, nil); got.Message != "property not found" {
		t.Errorf("message = %q, want %q", got.Message, "property not found")
	}
}

func TestLockComparisons(t *testing.T) {
	el := NewElement(map[string]any{
		"name":   "alpha",
		"count":  5,
		"ratio":  1.5,
		"tags":   []any{"a", "b"},
		"active": true,
		"note":   "",
	})

	tests := []struct {
		name     string
		kind     LockKind
		property string
		expected any
		want     bool
	}{
		{"eq string", LockEquals, "name", "alpha", true},
		{"eq mismatch", LockEquals, "name", "beta", false},
		{"eq int float", LockEquals, "count", 5.0, true},
		{"neq", LockNotEquals, "name", "beta", true},
		{"gt", LockGreaterThan, "count", 3, true},
		{"gt equal", LockGreaterThan, "count", 5, false},
		{"gt non numeric", LockGreaterThan, "name", 3, false},
		{"lt", LockLessThan, "ratio", 2, true},
		{"ge", LockGreaterEqual, "count", 5, true},
		{"le", LockLessEqual, "count", 5, true},
		{"contains substring", LockContains, "name", "lph", true},
		{"contains missing substring", LockContains, "name", "zzz", false},
		{"contains list element", LockContains, "tags", "b", true},
		{"regex", LockRegexMatch, "name", "^al", true},
		{"regex no match", LockRegexMatch, "name", "^zz", false},
		{"regex non string", LockRegexMatch, "count", ".*", false},
		{"min length", LockMinLength, "tags", 2, true},
		{"min length short", LockMinLength, "tags", 3, false},
		{"max length", LockMaxLength, "name", 10, true},
		{"in list", LockInList, "name", []any{"alpha", "beta"}, true},
		{"not in list", LockNotInList, "name", []any{"beta"}, true},
		{"type is", LockTypeIs, "count", "number", true},
		{"type is wrong", LockTypeIs, "count", "string", false},
		{"is empty", LockIsEmpty, "note", nil, true},
		{"not empty fails on empty", LockNotEmpty, "note", nil, false},
		{"is numeric", LockIsNumeric, "ratio", nil, true},
		{"is boolean", LockIsBoolean, "active", nil, true},
		{"not null", LockNotNull, "name", nil, true},
	}

	for _, tt := range tests {
		l := mustLock(t, tt.name, tt.kind, tt.property, tt.expected, false)
		got := l.Evaluate(el, nil)
		if got.Passed != tt.want {
			t.Errorf("%s: passed = %v, want %v (message: %s)", tt.name, got.Passed, tt.want, got.Message)
		}
		if !got.Passed && got.Message == "" {
			t.Errorf("%s: failed outcome should carry a message", tt.name)
		}
	}
}

func TestLockNegateInvertsBooleanOnly(t *testing.T) {
	el := NewElement(map[string]any{})

	l := mustLock(t, "l", LockEquals, "missing", "x", true)
	got := l.Evaluate(el, nil)
	if !got.Passed {
		t.Error("negated failing lock should pass")
	}
	if got.Message != "property not found" {
		t.Errorf("negate must not rewrite the message, got %q", got.Message)
	}

	l = mustLock(t, "l", LockExists, "missing", nil, true)
	if got := l.Evaluate(el, nil); !got.Passed {
		t.Error("negated exists on missing property should pass")
	}
}

func TestCustomLock(t *testing.T) {
	el := NewElement(map[string]any{"score": 80})

	preds := Predicates{
		"passing_score": func(value any, found bool, expected any) bool {
			if !found {
				return false
			}
			n, ok := asNumber(value)
			return ok && n >= 70
		},
	}

	l, err := NewCustomLock("score_ok", "score", "passing_score", nil, false)
	if err != nil {
		t.Fatalf("NewCustomLock: %v", err)
	}

	if got := l.Evaluate(el, preds); !got.Passed {
		t.Errorf("expected custom predicate to pass: %s", got.Message)
	}

	// Unresolved predicates fail closed.
	got := l.Evaluate(el, nil)
	if got.Passed {
		t.Error("unregistered predicate must fail closed")
	}
	if !strings.Contains(got.Message, "passing_score") {
		t.Errorf("message should name the missing predicate, got %q", got.Message)
	}

	if _, err := NewCustomLock("bad", "score", "", nil, false); err == nil {
		t.Error("expected error for custom lock without predicate name")
	}
}
