package engine

import (
	"fmt"
	"sort"
)

// RegressionPolicy controls how a detected regression affects the
// evaluation status.
type RegressionPolicy string

const (
	// PolicyBlock downgrades a would-be ready result to action_required
	// when any regression signal is detected.
	PolicyBlock RegressionPolicy = "block"
	// PolicyWarn always reports regression info but never alters status.
	PolicyWarn RegressionPolicy = "warn"
	// PolicyAllow computes regression info for observability only.
	PolicyAllow RegressionPolicy = "allow"
)

var regressionPolicies = map[RegressionPolicy]bool{
	PolicyBlock: true, PolicyWarn: true, PolicyAllow: true,
}

// ProcessConfig is the validated input to NewProcess. It is produced by the
// definition loader; the engine still enforces its own invariants and runs
// the consistency checker, since structural validity never implies
// graph-shape validity.
type ProcessConfig struct {
	Name         string
	Stages       []*Stage
	StageOrder   []string // defaults to declaration order when empty
	InitialStage string
	FinalStage   string
	StageProp    string // property path for stage auto-extraction; empty = unset
	Policy       RegressionPolicy
	Predicates   Predicates
}

// Process is a complete workflow definition: stages, their ordering, and
// global evaluation policy. A Process is immutable after construction and
// safe to share across concurrent evaluations.
type Process struct {
	Name         string
	StageOrder   []string
	InitialStage string
	FinalStage   string
	StageProp    string
	Policy       RegressionPolicy

	stages     map[string]*Stage
	predicates Predicates
	stageProp  PropertyPath
	report     *ConsistencyReport
}

// NewProcess builds a process and runs the consistency checker once,
// caching its report. It returns a DefinitionError when a reference is
// structurally unresolvable; soft graph-shape problems are reported via
// Consistency(), not as errors.
func NewProcess(cfg ProcessConfig) (*Process, error) {
	if cfg.Name == "" {
		return nil, &DefinitionError{Process: cfg.Name, Reason: "process requires a name"}
	}
	if len(cfg.Stages) == 0 {
		return nil, &DefinitionError{Process: cfg.Name, Reason: "process requires at least one stage"}
	}

	stages := make(map[string]*Stage, len(cfg.Stages))
	declared := make([]string, 0, len(cfg.Stages))
	for _, s := range cfg.Stages {
		if s.ID == "" {
			return nil, &DefinitionError{Process: cfg.Name, Reason: "stage requires an id"}
		}
		if _, dup := stages[s.ID]; dup {
			return nil, &DefinitionError{Process: cfg.Name, Reason: fmt.Sprintf("duplicate stage id %q", s.ID)}
		}
		stages[s.ID] = s
		declared = append(declared, s.ID)
	}

	order := cfg.StageOrder
	if len(order) == 0 {
		order = declared
	}
	if err := checkPermutation(cfg.Name, order, stages); err != nil {
		return nil, err
	}

	if _, ok := stages[cfg.InitialStage]; !ok {
		return nil, &DefinitionError{Process: cfg.Name, Reason: fmt.Sprintf("initial stage %q is not a defined stage", cfg.InitialStage)}
	}
	if _, ok := stages[cfg.FinalStage]; !ok {
		return nil, &DefinitionError{Process: cfg.Name, Reason: fmt.Sprintf("final stage %q is not a defined stage", cfg.FinalStage)}
	}

	policy := cfg.Policy
	if policy == "" {
		policy = PolicyWarn
	}
	if !regressionPolicies[policy] {
		return nil, &DefinitionError{Process: cfg.Name, Reason: fmt.Sprintf("unknown regression policy %q", policy)}
	}

	p := &Process{
		Name:         cfg.Name,
		StageOrder:   order,
		InitialStage: cfg.InitialStage,
		FinalStage:   cfg.FinalStage,
		StageProp:    cfg.StageProp,
		Policy:       policy,
		stages:       stages,
		predicates:   cfg.Predicates,
	}

	if cfg.StageProp != "" {
		path, err := ParsePath(cfg.StageProp)
		if err != nil {
			return nil, &DefinitionError{Process: cfg.Name, Reason: fmt.Sprintf("stage property: %v", err)}
		}
		p.stageProp = path
	}

	p.report = checkConsistency(p)
	return p, nil
}

func checkPermutation(name string, order []string, stages map[string]*Stage) error {
	if len(order) != len(stages) {
		return &DefinitionError{Process: name, Reason: fmt.Sprintf("stage order lists %d stages, process defines %d", len(order), len(stages))}
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if _, ok := stages[id]; !ok {
			return &DefinitionError{Process: name, Reason: fmt.Sprintf("stage order references unknown stage %q", id)}
		}
		if seen[id] {
			return &DefinitionError{Process: name, Reason: fmt.Sprintf("stage order repeats stage %q", id)}
		}
		seen[id] = true
	}
	return nil
}

// Stage returns the stage with the given id.
func (p *Process) Stage(id string) (*Stage, bool) {
	s, ok := p.stages[id]
	return s, ok
}

// Stages returns the stages in stage order.
func (p *Process) Stages() []*Stage {
	out := make([]*Stage, 0, len(p.StageOrder))
	for _, id := range p.StageOrder {
		out = append(out, p.stages[id])
	}
	return out
}

// StageIndex returns the position of a stage in the stage order, or -1.
func (p *Process) StageIndex(id string) int {
	for i, s := range p.StageOrder {
		if s == id {
			return i
		}
	}
	return -1
}

// Consistency returns the cached report computed at construction.
func (p *Process) Consistency() *ConsistencyReport {
	return p.report
}

func (p *Process) validStages() []string {
	ids := make([]string, 0, len(p.stages))
	for id := range p.stages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveStage determines the effective stage for an element. Precedence:
// explicit override, then auto-extraction via the configured stage
// property, then the initial stage. Auto-extraction fails loudly: a missing
// path, a non-string value, or an unknown stage id is an EvaluationError
// enumerating the valid stage ids, never a silent fallback.
func (p *Process) ResolveStage(el Element, override string) (string, error) {
	if override != "" {
		if _, ok := p.stages[override]; !ok {
			return "", &EvaluationError{
				Reason:      fmt.Sprintf("stage override %q is not a stage of process %q", override, p.Name),
				ValidStages: p.validStages(),
			}
		}
		return override, nil
	}

	if p.StageProp == "" {
		return p.InitialStage, nil
	}

	value, found := el.GetProperty(p.StageProp)
	if !found {
		return "", &EvaluationError{
			Reason:      fmt.Sprintf("stage property %q not found on element", p.StageProp),
			ValidStages: p.validStages(),
		}
	}
	stageID, ok := value.(string)
	if !ok {
		return "", &EvaluationError{
			Reason:      fmt.Sprintf("stage property %q must be a string, got %s", p.StageProp, TypeName(value)),
			ValidStages: p.validStages(),
		}
	}
	if _, ok := p.stages[stageID]; !ok {
		return "", &EvaluationError{
			Reason:      fmt.Sprintf("stage property %q names unknown stage %q", p.StageProp, stageID),
			ValidStages: p.validStages(),
		}
	}
	return stageID, nil
}

// GateResult is the per-gate slice of an evaluation result.
type GateResult struct {
	Passed      bool     `json:"passed"`
	FailedLocks []string `json:"failed_locks,omitempty"`
}

// EvaluationResult is the outcome of evaluating one element at one stage.
type EvaluationResult struct {
	Process          string                `json:"process"`
	StageID          string                `json:"stage_id"`
	Status           Status                `json:"status"`
	GateResults      map[string]GateResult `json:"gate_results"`
	PassedGates      []string              `json:"passed_gates,omitempty"`
	SuggestedActions []string              `json:"suggested_actions,omitempty"`
	ExpectedActions  []StageAction         `json:"expected_actions,omitempty"`
	SchemaViolations []SchemaViolation     `json:"schema_violations,omitempty"`
	Regression       *RegressionInfo       `json:"regression,omitempty"`
}

// EvalOptions carries the optional inputs to Evaluate.
type EvalOptions struct {
	// StageOverride forces evaluation at a specific stage, taking
	// precedence over stage auto-extraction.
	StageOverride string

	// History is the element's prior transitions, ordered oldest first and
	// owned by the caller. When non-empty, regression detection runs
	// against the most recent entry.
	History []StateTransition
}

// Evaluate resolves the effective stage, validates the element against the
// stage's expected schema, evaluates every gate, and assembles the result.
// It is a pure function of its inputs: no I/O, no internal mutation.
func (p *Process) Evaluate(el Element, opts EvalOptions) (*EvaluationResult, error) {
	stageID, err := p.ResolveStage(el, opts.StageOverride)
	if err != nil {
		return nil, err
	}
	stage := p.stages[stageID]

	result := &EvaluationResult{
		Process:     p.Name,
		StageID:     stageID,
		GateResults: make(map[string]GateResult, len(stage.Gates)),
	}

	// Schema failure short-circuits gate evaluation.
	if violations := stage.Schema.Validate(el); len(violations) > 0 {
		result.Status = StatusInvalidSchema
		result.SchemaViolations = violations
		for _, v := range violations {
			result.SuggestedActions = append(result.SuggestedActions,
				fmt.Sprintf("Provide %q as %s (got %s)", v.Property, v.Expected, v.Got))
		}
		if len(opts.History) > 0 {
			p.applyRegression(result, el, stageID, opts.History)
		}
		result.ExpectedActions = stage.Actions[result.Status]
		return result, nil
	}

	for _, gate := range stage.Gates {
		outcome := gate.Evaluate(el, p.predicates)
		result.GateResults[gate.Name] = GateResult{
			Passed:      outcome.Passed,
			FailedLocks: outcome.FailedLocks,
		}
		if outcome.Passed {
			result.PassedGates = append(result.PassedGates, gate.Name)
			continue
		}
		result.SuggestedActions = append(result.SuggestedActions,
			fmt.Sprintf("To transition via %q:", gate.Name))
		for _, lockName := range outcome.FailedLocks {
			lo := outcome.LockOutcomes[lockName]
			result.SuggestedActions = append(result.SuggestedActions,
				fmt.Sprintf("  %s: %s", lockName, lo.Message))
		}
	}

	if len(result.PassedGates) > 0 {
		result.Status = StatusReady
	} else {
		result.Status = StatusActionRequired
	}

	if len(opts.History) > 0 {
		p.applyRegression(result, el, stageID, opts.History)
	}

	result.ExpectedActions = stage.Actions[result.Status]
	return result, nil
}
