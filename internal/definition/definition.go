// Package definition loads process definitions from YAML or JSON documents
// and converts them into engine processes.
package definition

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stagegate/stagegate/internal/engine"
)

// ProcessDefinition is the serialized form of a workflow process.
type ProcessDefinition struct {
	Name             string            `yaml:"name" json:"name"`
	Description      string            `yaml:"description,omitempty" json:"description,omitempty"`
	InitialStage     string            `yaml:"initial_stage,omitempty" json:"initial_stage,omitempty"`
	FinalStage       string            `yaml:"final_stage,omitempty" json:"final_stage,omitempty"`
	StageOrder       []string          `yaml:"stage_order,omitempty" json:"stage_order,omitempty"`
	StageProperty    string            `yaml:"stage_property,omitempty" json:"stage_property,omitempty"`
	RegressionPolicy string            `yaml:"regression_policy,omitempty" json:"regression_policy,omitempty"`
	Stages           []StageDefinition `yaml:"stages" json:"stages"`
}

// StageDefinition is the serialized form of one stage.
type StageDefinition struct {
	ID          string                        `yaml:"id" json:"id"`
	Name        string                        `yaml:"name,omitempty" json:"name,omitempty"`
	Description string                        `yaml:"description,omitempty" json:"description,omitempty"`
	Final       bool                          `yaml:"final,omitempty" json:"final,omitempty"`
	Schema      map[string]FieldDefinition    `yaml:"schema,omitempty" json:"schema,omitempty"`
	Gates       []GateDefinition              `yaml:"gates,omitempty" json:"gates,omitempty"`
	Actions     map[string][]ActionDefinition `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// FieldDefinition describes one schema field. Required is a pointer so the
// loader can distinguish "explicitly optional" from "not specified", which
// changes how cumulative schemas merge the field.
type FieldDefinition struct {
	Type        string         `yaml:"type,omitempty" json:"type,omitempty"`
	Required    *bool          `yaml:"required,omitempty" json:"required,omitempty"`
	Default     any            `yaml:"default,omitempty" json:"default,omitempty"`
	Constraints map[string]any `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// GateDefinition is the serialized form of one gate.
type GateDefinition struct {
	Name   string           `yaml:"name" json:"name"`
	Logic  string           `yaml:"logic,omitempty" json:"logic,omitempty"` // defaults to "and"
	Target string           `yaml:"target,omitempty" json:"target,omitempty"` // empty proposes no transition
	Locks  []LockDefinition `yaml:"locks" json:"locks"`
}

// LockDefinition is the serialized form of one lock.
type LockDefinition struct {
	Name      string `yaml:"name" json:"name"`
	Kind      string `yaml:"kind" json:"kind"`
	Property  string `yaml:"property,omitempty" json:"property,omitempty"`
	Value     any    `yaml:"value,omitempty" json:"value,omitempty"`
	Predicate string `yaml:"predicate,omitempty" json:"predicate,omitempty"`
	Negate    bool   `yaml:"negate,omitempty" json:"negate,omitempty"`
}

// ActionDefinition is the serialized form of stage guidance.
type ActionDefinition struct {
	Name              string   `yaml:"name" json:"name"`
	Description       string   `yaml:"description,omitempty" json:"description,omitempty"`
	Instructions      []string `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	RelatedProperties []string `yaml:"related_properties,omitempty" json:"related_properties,omitempty"`
}

// Problem is one structural issue found while validating a definition.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Path, p.Message)
}

// Parse decodes a process definition from YAML or JSON bytes. JSON is a
// subset of YAML, so a single decoder covers both.
func Parse(data []byte) (*ProcessDefinition, error) {
	var def ProcessDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	return &def, nil
}

// Load reads and parses a definition file.
func Load(path string) (*ProcessDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return Parse(data)
}

var statusNames = map[string]engine.Status{
	string(engine.StatusReady):          engine.StatusReady,
	string(engine.StatusActionRequired): engine.StatusActionRequired,
	string(engine.StatusInvalidSchema):  engine.StatusInvalidSchema,
}

// Validate reports every structural problem in the definition at once so an
// author can fix a file in a single pass. A nil slice means the definition
// is structurally sound; Build may still fail on engine-level rules.
func (d *ProcessDefinition) Validate() []Problem {
	var problems []Problem
	add := func(path, format string, args ...any) {
		problems = append(problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if d.Name == "" {
		add("name", "process name is required")
	}
	if len(d.Stages) == 0 {
		add("stages", "at least one stage is required")
	}

	seen := make(map[string]bool, len(d.Stages))
	ids := make(map[string]bool, len(d.Stages))
	for _, s := range d.Stages {
		ids[s.ID] = true
	}

	for i, s := range d.Stages {
		path := fmt.Sprintf("stages[%d]", i)
		if s.ID == "" {
			add(path, "stage id is required")
			continue
		}
		path = fmt.Sprintf("stages[%s]", s.ID)
		if seen[s.ID] {
			add(path, "duplicate stage id")
		}
		seen[s.ID] = true

		for status := range s.Actions {
			if _, ok := statusNames[status]; !ok {
				add(path+".actions", "unknown status %q", status)
			}
		}

		for j, g := range s.Gates {
			gpath := fmt.Sprintf("%s.gates[%d]", path, j)
			if g.Name != "" {
				gpath = fmt.Sprintf("%s.gates[%s]", path, g.Name)
			} else {
				add(gpath, "gate name is required")
			}
			if g.Logic != "" && !validLogic(g.Logic) {
				add(gpath, "unknown logic %q", g.Logic)
			}
			if len(g.Locks) == 0 {
				add(gpath, "gate requires at least one lock")
			}
			for k, l := range g.Locks {
				lpath := fmt.Sprintf("%s.locks[%d]", gpath, k)
				if l.Name != "" {
					lpath = fmt.Sprintf("%s.locks[%s]", gpath, l.Name)
				} else {
					add(lpath, "lock name is required")
				}
				if l.Kind == "" {
					add(lpath, "lock kind is required")
				}
				if l.Kind == string(engine.LockCustom) && l.Predicate == "" {
					add(lpath, "custom lock requires a predicate name")
				}
				if l.Kind != string(engine.LockCustom) && l.Predicate != "" {
					add(lpath, "predicate is only valid for custom locks")
				}
			}
		}
	}

	if d.InitialStage != "" && !ids[d.InitialStage] {
		add("initial_stage", "unknown stage %q", d.InitialStage)
	}
	if d.FinalStage != "" && !ids[d.FinalStage] {
		add("final_stage", "unknown stage %q", d.FinalStage)
	}
	for i, id := range d.StageOrder {
		if !ids[id] {
			add(fmt.Sprintf("stage_order[%d]", i), "unknown stage %q", id)
		}
	}
	if d.RegressionPolicy != "" && !validPolicy(d.RegressionPolicy) {
		add("regression_policy", "unknown policy %q", d.RegressionPolicy)
	}

	return problems
}

func validLogic(logic string) bool {
	switch engine.GateLogic(logic) {
	case engine.LogicAnd, engine.LogicOr, engine.LogicXor, engine.LogicNand, engine.LogicNor:
		return true
	}
	return false
}

func validPolicy(policy string) bool {
	switch engine.RegressionPolicy(policy) {
	case engine.PolicyBlock, engine.PolicyWarn, engine.PolicyAllow:
		return true
	}
	return false
}

// BuildOptions supplies the runtime pieces a definition cannot carry, such
// as custom predicate implementations referenced by name.
type BuildOptions struct {
	Predicates engine.Predicates
}

// Build converts the definition into an engine process. It validates first
// and folds any structural problems into the returned error. An omitted
// initial or final stage defaults to the first or last stage in order.
func (d *ProcessDefinition) Build(opts BuildOptions) (*engine.Process, error) {
	if problems := d.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("definition %q has %d problem(s), first: %s",
			d.Name, len(problems), problems[0])
	}

	stages := make([]*engine.Stage, 0, len(d.Stages))
	for _, sd := range d.Stages {
		stage, err := buildStage(sd)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	order := d.StageOrder
	if len(order) == 0 {
		for _, sd := range d.Stages {
			order = append(order, sd.ID)
		}
	}
	initial := d.InitialStage
	if initial == "" {
		initial = order[0]
	}
	final := d.FinalStage
	if final == "" {
		final = order[len(order)-1]
	}

	return engine.NewProcess(engine.ProcessConfig{
		Name:         d.Name,
		Stages:       stages,
		StageOrder:   d.StageOrder,
		InitialStage: initial,
		FinalStage:   final,
		StageProp:    d.StageProperty,
		Policy:       engine.RegressionPolicy(d.RegressionPolicy),
		Predicates:   opts.Predicates,
	})
}

func buildStage(sd StageDefinition) (*engine.Stage, error) {
	var schema engine.ExpectedSchema
	if len(sd.Schema) > 0 {
		schema = make(engine.ExpectedSchema, len(sd.Schema))
		for prop, fd := range sd.Schema {
			spec := engine.FieldSpec{
				Type:        fd.Type,
				Default:     fd.Default,
				Constraints: fd.Constraints,
			}
			if fd.Required != nil {
				spec.Required = *fd.Required
				spec.RequiredSet = true
			}
			schema[prop] = spec
		}
	}

	gates := make([]*engine.Gate, 0, len(sd.Gates))
	for _, gd := range sd.Gates {
		gate, err := buildGate(sd.ID, gd)
		if err != nil {
			return nil, err
		}
		gates = append(gates, gate)
	}

	var actions map[engine.Status][]engine.StageAction
	if len(sd.Actions) > 0 {
		actions = make(map[engine.Status][]engine.StageAction, len(sd.Actions))
		for status, defs := range sd.Actions {
			list := make([]engine.StageAction, 0, len(defs))
			for _, ad := range defs {
				list = append(list, engine.StageAction{
					Name:              ad.Name,
					Description:       ad.Description,
					Instructions:      ad.Instructions,
					RelatedProperties: ad.RelatedProperties,
				})
			}
			actions[statusNames[status]] = list
		}
	}

	return &engine.Stage{
		ID:          sd.ID,
		Name:        sd.Name,
		Description: sd.Description,
		Schema:      schema,
		Gates:       gates,
		Actions:     actions,
		IsFinal:     sd.Final,
	}, nil
}

func buildGate(stageID string, gd GateDefinition) (*engine.Gate, error) {
	locks := make([]*engine.Lock, 0, len(gd.Locks))
	for _, ld := range gd.Locks {
		lock, err := buildLock(ld)
		if err != nil {
			return nil, fmt.Errorf("stage %q gate %q: %w", stageID, gd.Name, err)
		}
		locks = append(locks, lock)
	}

	logic := engine.GateLogic(gd.Logic)
	if gd.Logic == "" {
		logic = engine.LogicAnd
	}
	gate, err := engine.NewGate(gd.Name, logic, locks, gd.Target)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", stageID, err)
	}
	return gate, nil
}

func buildLock(ld LockDefinition) (*engine.Lock, error) {
	if engine.LockKind(ld.Kind) == engine.LockCustom {
		return engine.NewCustomLock(ld.Name, ld.Property, ld.Predicate, ld.Value, ld.Negate)
	}
	return engine.NewLock(ld.Name, engine.LockKind(ld.Kind), ld.Property, ld.Value, ld.Negate)
}
