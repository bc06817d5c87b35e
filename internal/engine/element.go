package engine

// Element is a read-only, path-addressable view over a structured record.
// Implementations resolve dot/bracket paths ("a.b[2].c") and report absence
// as "not found" rather than an error.
type Element interface {
	// HasProperty reports whether the path resolves to a value.
	HasProperty(path string) bool

	// GetProperty returns the value at the path, or (nil, false) when any
	// segment is absent or type-incompatible.
	GetProperty(path string) (any, bool)
}

// MapElement is an Element over a decoded document (nested maps, sequences,
// scalars), such as the result of unmarshaling JSON or YAML.
type MapElement struct {
	doc map[string]any
}

// NewElement wraps a decoded document as an Element.
func NewElement(doc map[string]any) MapElement {
	return MapElement{doc: doc}
}

// HasProperty implements Element.
func (e MapElement) HasProperty(path string) bool {
	_, ok := e.GetProperty(path)
	return ok
}

// GetProperty implements Element. A malformed path resolves to not found.
func (e MapElement) GetProperty(path string) (any, bool) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	return p.Resolve(e.doc)
}

// Doc returns the underlying document.
func (e MapElement) Doc() map[string]any {
	return e.doc
}
