package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one component of a property path: either a map key or a
// sequence index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool // disambiguates Index=0 from a key segment
}

// PropertyPath is a parsed dot/bracket path such as "contacts[0].email".
type PropertyPath struct {
	raw      string
	segments []Segment
}

// ParsePath parses textual path syntax like "a.b[2].c" into a PropertyPath.
// Malformed bracket syntax is a definition-time error; resolution against a
// document never errors.
func ParsePath(raw string) (PropertyPath, error) {
	if raw == "" {
		return PropertyPath{}, fmt.Errorf("empty property path")
	}

	var segments []Segment
	for _, part := range strings.Split(raw, ".") {
		if part == "" {
			return PropertyPath{}, fmt.Errorf("property path %q has an empty segment", raw)
		}

		key := part
		var brackets string
		if idx := strings.Index(part, "["); idx != -1 {
			key = part[:idx]
			brackets = part[idx:]
			if key == "" {
				return PropertyPath{}, fmt.Errorf("property path %q indexes without a key", raw)
			}
		}
		segments = append(segments, Segment{Key: key})

		for brackets != "" {
			if !strings.HasPrefix(brackets, "[") {
				return PropertyPath{}, fmt.Errorf("property path %q has malformed index syntax", raw)
			}
			close := strings.Index(brackets, "]")
			if close == -1 {
				return PropertyPath{}, fmt.Errorf("property path %q has an unclosed index", raw)
			}
			n, err := strconv.Atoi(brackets[1:close])
			if err != nil || n < 0 {
				return PropertyPath{}, fmt.Errorf("property path %q has invalid index %q", raw, brackets[1:close])
			}
			segments = append(segments, Segment{Index: n, IsIndex: true})
			brackets = brackets[close+1:]
		}
	}

	return PropertyPath{raw: raw, segments: segments}, nil
}

// MustParsePath is ParsePath for paths known valid at compile time.
// It panics on malformed input and is intended for tests and literals.
func MustParsePath(raw string) PropertyPath {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original textual form of the path.
func (p PropertyPath) String() string {
	return p.raw
}

// Segments returns the parsed segments.
func (p PropertyPath) Segments() []Segment {
	return p.segments
}

// Resolve walks the path segment by segment over a decoded document.
// It returns (value, true) when every segment resolves, and (nil, false)
// when any segment is absent or the current value has an incompatible type
// (e.g. indexing a non-sequence). It never returns an error.
func (p PropertyPath) Resolve(doc any) (any, bool) {
	if len(p.segments) == 0 {
		return nil, false
	}

	current := doc
	for _, seg := range p.segments {
		if seg.IsIndex {
			seq, ok := current.([]any)
			if !ok {
				return nil, false
			}
			if seg.Index >= len(seq) {
				return nil, false
			}
			current = seq[seg.Index]
			continue
		}

		switch m := current.(type) {
		case map[string]any:
			v, ok := m[seg.Key]
			if !ok {
				return nil, false
			}
			current = v
		case map[any]any:
			v, ok := m[seg.Key]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}
