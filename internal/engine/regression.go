package engine

import (
	"fmt"
	"sort"
	"time"
)

// StateTransition is one entry in an element's audit trail. History is
// owned and persisted by the caller; the engine only reads it during
// regression detection. Snapshot holds the element's document at the time
// of the transition so prior lock outcomes can be replayed.
type StateTransition struct {
	ID        string         `json:"id"`
	ElementID string         `json:"element_id"`
	Timestamp time.Time      `json:"timestamp"`
	FromState string         `json:"from_state"`
	ToState   string         `json:"to_state"`
	StageName string         `json:"stage_name"`
	Reason    string         `json:"reason"`
	Snapshot  map[string]any `json:"snapshot,omitempty"`
}

// RegressionInfo reports the three independent regression signals relative
// to the most recent prior transition for the same element.
type RegressionInfo struct {
	BackwardStageMovement bool     `json:"backward_stage_movement"`
	FromStage             string   `json:"from_stage"`
	ToStage               string   `json:"to_stage"`
	LostProperties        []string `json:"lost_properties,omitempty"`
	ChangedProperties     []string `json:"changed_properties,omitempty"`
	Reasons               []string `json:"reasons,omitempty"`
}

// Detected reports whether any regression signal fired.
func (r *RegressionInfo) Detected() bool {
	return r.BackwardStageMovement || len(r.LostProperties) > 0 || len(r.ChangedProperties) > 0
}

// applyRegression runs detection against the latest history entry and
// applies the process regression policy. A regression is never promoted to
// a hard error; at most it downgrades a ready status under the block policy.
func (p *Process) applyRegression(result *EvaluationResult, el Element, stageID string, history []StateTransition) {
	prev := history[len(history)-1]
	info := p.detectRegression(el, stageID, prev)
	result.Regression = info

	if p.Policy == PolicyBlock && info.Detected() && result.Status == StatusReady {
		result.Status = StatusActionRequired
		result.SuggestedActions = append(result.SuggestedActions, "Blocked by regression policy:")
		for _, reason := range info.Reasons {
			result.SuggestedActions = append(result.SuggestedActions, "  "+reason)
		}
	}
}

func (p *Process) detectRegression(el Element, stageID string, prev StateTransition) *RegressionInfo {
	info := &RegressionInfo{FromStage: prev.ToState, ToStage: stageID}

	prevIdx := p.StageIndex(prev.ToState)
	curIdx := p.StageIndex(stageID)
	if prevIdx >= 0 && curIdx >= 0 && curIdx < prevIdx {
		info.BackwardStageMovement = true
		info.Reasons = append(info.Reasons, fmt.Sprintf(
			"element moved backward from stage %q (position %d) to %q (position %d)",
			prev.ToState, prevIdx, stageID, curIdx))
	}

	prevStage, ok := p.stages[prev.ToState]
	if !ok || prev.Snapshot == nil {
		return info
	}
	prior := NewElement(prev.Snapshot)

	// Replay the prior stage's locks against both snapshots: a
	// previously-passing lock whose property vanished is a loss; one whose
	// property survived but now fails is a critical value change. A lock
	// that passed because its path was absent (not_exists and friends) has
	// nothing to lose; it only re-enters through the re-evaluation below.
	lost := make(map[string]bool)
	changed := make(map[string]bool)
	for _, gate := range prevStage.Gates {
		for _, lock := range gate.Locks {
			if !lock.Evaluate(prior, p.predicates).Passed {
				continue
			}
			path := lock.Property.String()
			if !el.HasProperty(path) && prior.HasProperty(path) {
				lost[path] = true
				continue
			}
			if !lock.Evaluate(el, p.predicates).Passed {
				changed[path] = true
			}
		}
	}

	info.LostProperties = sortedSet(lost)
	info.ChangedProperties = sortedSet(changed)
	for _, path := range info.LostProperties {
		info.Reasons = append(info.Reasons, fmt.Sprintf("property %q satisfied stage %q but is no longer present", path, prev.ToState))
	}
	for _, path := range info.ChangedProperties {
		info.Reasons = append(info.Reasons, fmt.Sprintf("property %q changed and no longer satisfies stage %q", path, prev.ToState))
	}
	return info
}

func sortedSet(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
