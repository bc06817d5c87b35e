package engine

import (
	"fmt"
	"strings"
)

// DefinitionError reports a structurally unresolvable process definition,
// raised only at construction. No partial Process is returned alongside it.
type DefinitionError struct {
	Process string
	Reason  string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("process %q: %s", e.Process, e.Reason)
}

// EvaluationError reports a stage-resolution failure during Evaluate.
// It always enumerates the valid stage ids so callers (and their users)
// can correct the input; resolution never silently falls back.
type EvaluationError struct {
	Reason      string
	ValidStages []string
}

func (e *EvaluationError) Error() string {
	if len(e.ValidStages) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s (valid stages: %s)", e.Reason, strings.Join(e.ValidStages, ", "))
}

// UnknownStageError reports a schema query against a stage id the process
// does not contain.
type UnknownStageError struct {
	StageID string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", e.StageID)
}
