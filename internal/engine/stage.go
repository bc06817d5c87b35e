package engine

// Status is the outcome classification of evaluating an element at a stage.
type Status string

const (
	// StatusReady means at least one gate passed; the element satisfies the
	// stage's transition rules.
	StatusReady Status = "ready"

	// StatusActionRequired means no gate passed; suggested actions describe
	// what is missing.
	StatusActionRequired Status = "action_required"

	// StatusInvalidSchema means the element failed the stage's expected
	// schema; gates were not evaluated.
	StatusInvalidSchema Status = "invalid_schema"
)

// StageAction is declarative guidance attached to a stage for a particular
// evaluation outcome.
type StageAction struct {
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	Instructions      []string `json:"instructions,omitempty"`
	RelatedProperties []string `json:"related_properties,omitempty"`
}

// Stage is a named node in the workflow graph: an expected schema, ordered
// gates, and guidance grouped by evaluation outcome.
type Stage struct {
	ID          string
	Name        string
	Description string
	Schema      ExpectedSchema // nil when the stage declares no schema
	Gates       []*Gate
	Actions     map[Status][]StageAction
	IsFinal     bool
}
