package definition

import (
	"strings"
	"testing"

	"github.com/stagegate/stagegate/internal/engine"
)

const sampleYAML = `
name: onboarding
initial_stage: signup
final_stage: active
stage_property: status
regression_policy: block
stages:
  - id: signup
    name: Signup
    schema:
      email:
        type: string
        required: true
      nickname:
        type: string
    gates:
      - name: verified
        target: active
        locks:
          - name: email_verified
            kind: equals
            property: email_verified
            value: true
    actions:
      action_required:
        - name: send_verification
          description: Send the verification email
          related_properties: [email_verified]
  - id: active
    name: Active
    final: true
`

const sampleJSON = `{
  "name": "onboarding",
  "stages": [
    {
      "id": "only",
      "gates": [
        {
          "name": "g",
          "logic": "or",
          "target": "only",
          "locks": [{"name": "l", "kind": "exists", "property": "x"}]
        }
      ]
    }
  ]
}`

func TestParseYAML(t *testing.T) {
	def, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if def.Name != "onboarding" {
		t.Errorf("name = %q, want onboarding", def.Name)
	}
	if len(def.Stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(def.Stages))
	}
	email := def.Stages[0].Schema["email"]
	if email.Required == nil || !*email.Required {
		t.Error("email.required should be explicitly true")
	}
	if nick := def.Stages[0].Schema["nickname"]; nick.Required != nil {
		t.Error("nickname.required should be unset")
	}
}

func TestParseJSON(t *testing.T) {
	def, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := def.Stages[0].Gates[0].Logic; got != "or" {
		t.Errorf("logic = %q, want or", got)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("{not yaml: [")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	def := &ProcessDefinition{
		InitialStage:     "ghost",
		RegressionPolicy: "maybe",
		Stages: []StageDefinition{
			{ID: "a", Gates: []GateDefinition{
				{Name: "g", Target: "", Locks: nil},
			}},
			{ID: "a"},
		},
	}

	problems := def.Validate()
	want := []string{
		"process name is required",
		"gate requires at least one lock",
		"duplicate stage id",
		`unknown stage "ghost"`,
		`unknown policy "maybe"`,
	}
	for _, msg := range want {
		found := false
		for _, p := range problems {
			if strings.Contains(p.Message, msg) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing problem %q in %v", msg, problems)
		}
	}
}

func TestValidateCustomLockRules(t *testing.T) {
	tests := []struct {
		name string
		lock LockDefinition
		want string
	}{
		{
			"custom without predicate",
			LockDefinition{Name: "l", Kind: "custom"},
			"custom lock requires a predicate name",
		},
		{
			"predicate on plain kind",
			LockDefinition{Name: "l", Kind: "exists", Property: "x", Predicate: "p"},
			"predicate is only valid for custom locks",
		},
	}
	for _, tt := range tests {
		def := &ProcessDefinition{
			Name: "p",
			Stages: []StageDefinition{
				{ID: "a", Gates: []GateDefinition{
					{Name: "g", Target: "a", Locks: []LockDefinition{tt.lock}},
				}},
			},
		}
		problems := def.Validate()
		found := false
		for _, p := range problems {
			if strings.Contains(p.Message, tt.want) {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: missing problem %q in %v", tt.name, tt.want, problems)
		}
	}
}

func TestBuildProducesWorkingProcess(t *testing.T) {
	def, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	proc, err := def.Build(BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if proc.Policy != engine.PolicyBlock {
		t.Errorf("policy = %q, want block", proc.Policy)
	}
	if proc.StageProp != "status" {
		t.Errorf("stage property = %q, want status", proc.StageProp)
	}

	el := engine.NewElement(map[string]any{
		"status":         "signup",
		"email":          "a@b.c",
		"email_verified": true,
	})
	result, err := proc.Evaluate(el, engine.EvalOptions{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Status != engine.StatusReady {
		t.Errorf("status = %q, want ready", result.Status)
	}
}

func TestBuildMapsTriStateRequired(t *testing.T) {
	def, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	proc, err := def.Build(BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	schema, err := proc.StageSchema("signup")
	if err != nil {
		t.Fatalf("StageSchema: %v", err)
	}
	if spec := schema["email"]; !spec.Required || !spec.RequiredSet {
		t.Errorf("email = %+v, want required and explicitly set", spec)
	}
	if spec := schema["nickname"]; spec.Required || spec.RequiredSet {
		t.Errorf("nickname = %+v, want optional and unset", spec)
	}
}

func TestBuildWiresCustomPredicates(t *testing.T) {
	def := &ProcessDefinition{
		Name: "custom",
		Stages: []StageDefinition{
			{ID: "a", Gates: []GateDefinition{
				{Name: "g", Target: "b", Locks: []LockDefinition{
					{Name: "l", Kind: "custom", Property: "x", Predicate: "is_even"},
				}},
			}},
			{ID: "b", Final: true},
		},
		InitialStage: "a",
		FinalStage:   "b",
	}

	proc, err := def.Build(BuildOptions{Predicates: engine.Predicates{
		"is_even": func(value any, found bool, expected any) bool {
			n, ok := value.(int)
			return found && ok && n%2 == 0
		},
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	result, err := proc.Evaluate(engine.NewElement(map[string]any{"x": 4}), engine.EvalOptions{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Status != engine.StatusReady {
		t.Errorf("status = %q, want ready", result.Status)
	}
}

func TestTargetlessGateValidatesAndBuilds(t *testing.T) {
	def := &ProcessDefinition{
		Name: "readiness",
		Stages: []StageDefinition{
			{ID: "only", Gates: []GateDefinition{{
				Name:  "complete",
				Locks: []LockDefinition{{Name: "has_email", Kind: "exists", Property: "email"}},
			}}},
		},
	}

	if problems := def.Validate(); len(problems) != 0 {
		t.Fatalf("targetless gate should validate, got: %v", problems)
	}

	proc, err := def.Build(BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	result, err := proc.Evaluate(engine.NewElement(map[string]any{"email": "a@b.c"}), engine.EvalOptions{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Status != engine.StatusReady {
		t.Errorf("status = %q, want ready", result.Status)
	}
}

func TestBuildDefaultsInitialAndFinal(t *testing.T) {
	def, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	proc, err := def.Build(BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if proc.InitialStage != "only" || proc.FinalStage != "only" {
		t.Errorf("initial/final = %q/%q, want only/only", proc.InitialStage, proc.FinalStage)
	}
}

func TestBuildReportsDefinitionProblems(t *testing.T) {
	def := &ProcessDefinition{Stages: []StageDefinition{{ID: "a"}}}
	if _, err := def.Build(BuildOptions{}); err == nil {
		t.Error("expected an error for a nameless definition")
	}
}
