package engine

import "testing"

func TestParsePath(t *testing.T) {
	tests := []struct {
		raw      string
		segments int
		wantErr  bool
	}{
		{"email", 1, false},
		{"user.email", 2, false},
		{"contacts[0]", 2, false},
		{"a.b[2].c", 4, false},
		{"a.b[0][1]", 4, false},
		{"", 0, true},
		{"a..b", 0, true},
		{"[0]", 0, true},
		{"a[x]", 0, true},
		{"a[1", 0, true},
		{"a[-1]", 0, true},
	}

	for _, tt := range tests {
		p, err := ParsePath(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePath(%q): expected error, got none", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePath(%q): unexpected error: %v", tt.raw, err)
			continue
		}
		if len(p.Segments()) != tt.segments {
			t.Errorf("ParsePath(%q): want %d segments, got %d", tt.raw, tt.segments, len(p.Segments()))
		}
		if p.String() != tt.raw {
			t.Errorf("ParsePath(%q).String() = %q", tt.raw, p.String())
		}
	}
}

func TestPathResolve(t *testing.T) {
	doc := map[string]any{
		"name": "alpha",
		"user": map[string]any{
			"email": "a@b.com",
			"age":   30,
		},
		"contacts": []any{
			map[string]any{"kind": "home"},
			map[string]any{"kind": "work"},
		},
		"empty": nil,
	}

	tests := []struct {
		path      string
		want      any
		wantFound bool
	}{
		{"name", "alpha", true},
		{"user.email", "a@b.com", true},
		{"user.age", 30, true},
		{"contacts[1].kind", "work", true},
		{"empty", nil, true},
		{"missing", nil, false},
		{"user.missing", nil, false},
		{"name.nested", nil, false},      // keying into a scalar
		{"user[0]", nil, false},          // indexing a map
		{"contacts[5].kind", nil, false}, // index out of range
		{"contacts[0].missing", nil, false},
	}

	for _, tt := range tests {
		p := MustParsePath(tt.path)
		got, found := p.Resolve(doc)
		if found != tt.wantFound {
			t.Errorf("Resolve(%q): found = %v, want %v", tt.path, found, tt.wantFound)
			continue
		}
		if found && !valuesEqual(got, tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestElementMalformedPathIsNotFound(t *testing.T) {
	el := NewElement(map[string]any{"a": 1})
	if el.HasProperty("a[") {
		t.Error("malformed path should resolve to not found")
	}
	if _, found := el.GetProperty(""); found {
		t.Error("empty path should resolve to not found")
	}
}
