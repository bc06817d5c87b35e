package engine

import (
	"fmt"
	"sort"
)

// FieldSpec declares the requirements for one property in a stage's
// expected schema.
type FieldSpec struct {
	Type     string `json:"type"` // TypeName classification: string, number, bool, list, map, null
	Required bool   `json:"required"`
	// RequiredSet records whether the definition set Required explicitly.
	// A later stage's explicit value overrides the OR-accumulation in
	// cumulative schemas.
	RequiredSet bool           `json:"-"`
	Default     any            `json:"default,omitempty"`
	Constraints map[string]any `json:"constraints,omitempty"`
}

// ExpectedSchema maps property paths to field requirements.
type ExpectedSchema map[string]FieldSpec

// SchemaViolation describes one field that failed schema validation.
type SchemaViolation struct {
	Property string `json:"property"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

// Validate checks each declared property against the element. A field
// violates the schema when it is required and missing, or present with a
// mismatched type. Optional missing fields are fine.
func (s ExpectedSchema) Validate(el Element) []SchemaViolation {
	var violations []SchemaViolation
	for _, prop := range sortedKeys(s) {
		spec := s[prop]
		value, found := el.GetProperty(prop)
		if !found {
			if spec.Required {
				violations = append(violations, SchemaViolation{
					Property: prop,
					Expected: fmt.Sprintf("required %s", spec.Type),
					Got:      "missing",
				})
			}
			continue
		}
		if spec.Type != "" && TypeName(value) != spec.Type {
			violations = append(violations, SchemaViolation{
				Property: prop,
				Expected: spec.Type,
				Got:      TypeName(value),
			})
		}
	}
	return violations
}

// StageSchema returns the stage's own expected schema, or an empty map when
// the stage declares none. The stage id must resolve.
func (p *Process) StageSchema(stageID string) (ExpectedSchema, error) {
	stage, ok := p.stages[stageID]
	if !ok {
		return nil, &UnknownStageError{StageID: stageID}
	}
	out := make(ExpectedSchema, len(stage.Schema))
	for prop, spec := range stage.Schema {
		out[prop] = spec
	}
	return out, nil
}

// CumulativeSchema merges the expected schemas of every stage in order from
// the first through the target inclusive. On collision the later stage's
// field spec wins, but required accumulates by OR across the walk unless a
// later stage explicitly marks the field optional.
func (p *Process) CumulativeSchema(stageID string) (ExpectedSchema, error) {
	if _, ok := p.stages[stageID]; !ok {
		return nil, &UnknownStageError{StageID: stageID}
	}

	acc := make(ExpectedSchema)
	for _, id := range p.StageOrder {
		stage := p.stages[id]
		for prop, spec := range stage.Schema {
			merged := spec
			if prev, seen := acc[prop]; seen && !spec.RequiredSet {
				merged.Required = prev.Required || spec.Required
			}
			acc[prop] = merged
		}
		if id == stageID {
			break
		}
	}
	return acc, nil
}

func sortedKeys(s ExpectedSchema) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
