package engine

import (
	"fmt"
	"reflect"
)

// TypeName classifies a decoded value for TypeIs locks and schema checks.
// Returns one of: string, number, bool, list, map, null.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any, map[any]any:
		return "map"
	default:
		return reflect.TypeOf(v).Kind().String()
	}
}

// asNumber coerces the numeric types produced by JSON and YAML decoders.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// valuesEqual compares decoded values, treating all numeric types as one
// domain so that an int 5 from YAML equals a float64 5 from JSON.
func valuesEqual(a, b any) bool {
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			return an == bn
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// valueLength returns the length of a string, list, or map.
func valueLength(v any) (int, bool) {
	switch x := v.(type) {
	case string:
		return len(x), true
	case []any:
		return len(x), true
	case map[string]any:
		return len(x), true
	case map[any]any:
		return len(x), true
	}
	return 0, false
}

// isEmptyValue reports whether a value is nil, an empty string, or an empty
// collection.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if n, ok := valueLength(v); ok {
		return n == 0
	}
	return false
}

// formatValue renders a value for lock failure messages.
func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
