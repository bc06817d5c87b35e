package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// LockKind is the closed set of atomic predicate kinds.
type LockKind string

const (
	LockExists       LockKind = "exists"
	LockNotExists    LockKind = "not_exists"
	LockEquals       LockKind = "equals"
	LockNotEquals    LockKind = "not_equals"
	LockGreaterThan  LockKind = "greater_than"
	LockLessThan     LockKind = "less_than"
	LockGreaterEqual LockKind = "greater_equal"
	LockLessEqual    LockKind = "less_equal"
	LockContains     LockKind = "contains"
	LockRegexMatch   LockKind = "regex_match"
	LockMinLength    LockKind = "min_length"
	LockMaxLength    LockKind = "max_length"
	LockInList       LockKind = "in_list"
	LockNotInList    LockKind = "not_in_list"
	LockTypeIs       LockKind = "type_is"
	LockIsEmpty      LockKind = "is_empty"
	LockNotEmpty     LockKind = "not_empty"
	LockIsNull       LockKind = "is_null"
	LockNotNull      LockKind = "not_null"
	LockIsNumeric    LockKind = "is_numeric"
	LockIsBoolean    LockKind = "is_boolean"
	LockCustom       LockKind = "custom"
)

// lockKinds is the full valid set.
var lockKinds = map[LockKind]bool{
	LockExists: true, LockNotExists: true, LockEquals: true, LockNotEquals: true,
	LockGreaterThan: true, LockLessThan: true, LockGreaterEqual: true, LockLessEqual: true,
	LockContains: true, LockRegexMatch: true, LockMinLength: true, LockMaxLength: true,
	LockInList: true, LockNotInList: true, LockTypeIs: true, LockIsEmpty: true,
	LockNotEmpty: true, LockIsNull: true, LockNotNull: true, LockIsNumeric: true,
	LockIsBoolean: true, LockCustom: true,
}

// kindsRequiringValue lists kinds whose expected value must be present at
// construction.
var kindsRequiringValue = map[LockKind]bool{
	LockEquals: true, LockNotEquals: true, LockGreaterThan: true, LockLessThan: true,
	LockGreaterEqual: true, LockLessEqual: true, LockRegexMatch: true, LockContains: true,
	LockMinLength: true, LockMaxLength: true, LockInList: true, LockNotInList: true,
	LockTypeIs: true,
}

// Predicate is a caller-supplied check for Custom locks. found reports
// whether the property resolved; value is nil when it did not.
type Predicate func(value any, found bool, expected any) bool

// Predicates maps predicate names to implementations. Resolution happens at
// evaluation time; an unregistered name fails the lock closed.
type Predicates map[string]Predicate

// Lock is one atomic predicate evaluated against an Element property.
type Lock struct {
	Name      string
	Kind      LockKind
	Property  PropertyPath
	Expected  any
	Predicate string // Custom kind: registry name of the predicate
	Negate    bool

	regex *regexp.Regexp
}

// NewLock builds a lock, enforcing the kind/expected-value invariant and
// precompiling regex patterns so evaluation can never throw.
func NewLock(name string, kind LockKind, property string, expected any, negate bool) (*Lock, error) {
	if name == "" {
		return nil, fmt.Errorf("lock requires a name")
	}
	if !lockKinds[kind] {
		return nil, fmt.Errorf("lock %q: unknown kind %q", name, kind)
	}
	if kindsRequiringValue[kind] && expected == nil {
		return nil, fmt.Errorf("lock %q: kind %q requires an expected value", name, kind)
	}

	path, err := ParsePath(property)
	if err != nil {
		return nil, fmt.Errorf("lock %q: %w", name, err)
	}

	l := &Lock{Name: name, Kind: kind, Property: path, Expected: expected, Negate: negate}

	if kind == LockRegexMatch {
		pattern, ok := expected.(string)
		if !ok {
			return nil, fmt.Errorf("lock %q: regex_match expects a string pattern, got %s", name, TypeName(expected))
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("lock %q: invalid pattern: %w", name, err)
		}
		l.regex = re
	}

	return l, nil
}

// NewCustomLock builds a Custom lock delegating to a named predicate.
func NewCustomLock(name, property, predicate string, expected any, negate bool) (*Lock, error) {
	if predicate == "" {
		return nil, fmt.Errorf("lock %q: custom kind requires a predicate name", name)
	}
	l, err := NewLock(name, LockCustom, property, expected, negate)
	if err != nil {
		return nil, err
	}
	l.Predicate = predicate
	return l, nil
}

// LockOutcome is the result of evaluating one lock. Message is empty on
// pass and describes the unmet condition on failure.
type LockOutcome struct {
	Passed  bool
	Message string
}

// Evaluate checks the lock against an element. It never returns an error:
// absence and type mismatches degrade to defined boolean outcomes. Negate
// inverts the final boolean only, never the message.
func (l *Lock) Evaluate(el Element, preds Predicates) LockOutcome {
	out := l.check(el, preds)
	if l.Negate {
		out.Passed = !out.Passed
	}
	return out
}

func (l *Lock) check(el Element, preds Predicates) LockOutcome {
	value, found := el.GetProperty(l.Property.String())

	switch l.Kind {
	case LockExists:
		if !found {
			return fail("property not found")
		}
		return pass()

	case LockNotExists:
		if found {
			return fail("property exists")
		}
		return pass()

	case LockIsNull:
		// An absent property counts as null.
		if !found || value == nil {
			return pass()
		}
		return fail(fmt.Sprintf("expected null, got %s", formatValue(value)))

	case LockNotNull:
		if !found {
			return fail("property not found")
		}
		if value == nil {
			return fail("property is null")
		}
		return pass()

	case LockIsEmpty:
		// An absent property counts as empty.
		if !found || isEmptyValue(value) {
			return pass()
		}
		return fail("property is not empty")

	case LockNotEmpty:
		if !found {
			return fail("property not found")
		}
		if isEmptyValue(value) {
			return fail("property is empty")
		}
		return pass()

	case LockIsNumeric:
		if !found {
			return fail("property not found")
		}
		if _, ok := asNumber(value); !ok {
			return fail(fmt.Sprintf("expected a number, got %s", TypeName(value)))
		}
		return pass()

	case LockIsBoolean:
		if !found {
			return fail("property not found")
		}
		if _, ok := value.(bool); !ok {
			return fail(fmt.Sprintf("expected a boolean, got %s", TypeName(value)))
		}
		return pass()

	case LockCustom:
		fn := preds[l.Predicate]
		if fn == nil {
			// Fail closed when the predicate is not registered.
			return fail(fmt.Sprintf("custom predicate %q is not registered", l.Predicate))
		}
		if fn(value, found, l.Expected) {
			return pass()
		}
		return fail(fmt.Sprintf("custom predicate %q failed", l.Predicate))
	}

	// All remaining kinds are comparisons: a missing property is a plain
	// failure, never an error.
	if !found {
		return fail("property not found")
	}

	switch l.Kind {
	case LockEquals:
		if valuesEqual(value, l.Expected) {
			return pass()
		}
		return fail(fmt.Sprintf("expected %s, got %s", formatValue(l.Expected), formatValue(value)))

	case LockNotEquals:
		if !valuesEqual(value, l.Expected) {
			return pass()
		}
		return fail(fmt.Sprintf("value equals %s", formatValue(l.Expected)))

	case LockGreaterThan, LockLessThan, LockGreaterEqual, LockLessEqual:
		return l.compareNumbers(value)

	case LockContains:
		return l.contains(value)

	case LockRegexMatch:
		s, ok := value.(string)
		if !ok {
			return fail(fmt.Sprintf("expected a string for pattern match, got %s", TypeName(value)))
		}
		if l.regex.MatchString(s) {
			return pass()
		}
		return fail(fmt.Sprintf("%q does not match pattern %q", s, l.regex.String()))

	case LockMinLength, LockMaxLength:
		return l.compareLength(value)

	case LockInList:
		if listContains(l.Expected, value) {
			return pass()
		}
		return fail(fmt.Sprintf("%s is not in %s", formatValue(value), formatValue(l.Expected)))

	case LockNotInList:
		if !listContains(l.Expected, value) {
			return pass()
		}
		return fail(fmt.Sprintf("%s is in %s", formatValue(value), formatValue(l.Expected)))

	case LockTypeIs:
		want, _ := l.Expected.(string)
		if TypeName(value) == want {
			return pass()
		}
		return fail(fmt.Sprintf("expected type %s, got %s", want, TypeName(value)))
	}

	return fail(fmt.Sprintf("unhandled lock kind %q", l.Kind))
}

func (l *Lock) compareNumbers(value any) LockOutcome {
	got, ok := asNumber(value)
	if !ok {
		return fail(fmt.Sprintf("expected a number, got %s", TypeName(value)))
	}
	want, ok := asNumber(l.Expected)
	if !ok {
		return fail(fmt.Sprintf("expected value %s is not a number", formatValue(l.Expected)))
	}

	var passed bool
	var op string
	switch l.Kind {
	case LockGreaterThan:
		passed, op = got > want, ">"
	case LockLessThan:
		passed, op = got < want, "<"
	case LockGreaterEqual:
		passed, op = got >= want, ">="
	case LockLessEqual:
		passed, op = got <= want, "<="
	}
	if passed {
		return pass()
	}
	return fail(fmt.Sprintf("expected %s %v, got %v", op, want, got))
}

func (l *Lock) contains(value any) LockOutcome {
	switch v := value.(type) {
	case string:
		want, ok := l.Expected.(string)
		if !ok {
			return fail(fmt.Sprintf("expected a string to search for, got %s", TypeName(l.Expected)))
		}
		if strings.Contains(v, want) {
			return pass()
		}
		return fail(fmt.Sprintf("%q does not contain %q", v, want))
	case []any:
		for _, item := range v {
			if valuesEqual(item, l.Expected) {
				return pass()
			}
		}
		return fail(fmt.Sprintf("list does not contain %s", formatValue(l.Expected)))
	}
	return fail(fmt.Sprintf("expected a string or list, got %s", TypeName(value)))
}

func (l *Lock) compareLength(value any) LockOutcome {
	n, ok := valueLength(value)
	if !ok {
		return fail(fmt.Sprintf("expected a string, list, or map, got %s", TypeName(value)))
	}
	want, ok := asNumber(l.Expected)
	if !ok {
		return fail(fmt.Sprintf("expected length %s is not a number", formatValue(l.Expected)))
	}

	if l.Kind == LockMinLength {
		if float64(n) >= want {
			return pass()
		}
		return fail(fmt.Sprintf("length %d is below minimum %v", n, want))
	}
	if float64(n) <= want {
		return pass()
	}
	return fail(fmt.Sprintf("length %d exceeds maximum %v", n, want))
}

func listContains(list any, value any) bool {
	items, ok := list.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if valuesEqual(item, value) {
			return true
		}
	}
	return false
}

func pass() LockOutcome {
	return LockOutcome{Passed: true}
}

func fail(msg string) LockOutcome {
	return LockOutcome{Passed: false, Message: msg}
}
