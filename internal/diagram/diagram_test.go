package diagram

import (
	"strings"
	"testing"

	"github.com/stagegate/stagegate/internal/engine"
)

func testProcess(t *testing.T) *engine.Process {
	t.Helper()

	lock, err := engine.NewLock("has_total", engine.LockExists, "total", nil, false)
	if err != nil {
		t.Fatalf("NewLock: %v", err)
	}
	approve, err := engine.NewGate("approve", engine.LogicAnd, []*engine.Lock{lock}, "done")
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	p, err := engine.NewProcess(engine.ProcessConfig{
		Name: "orders",
		Stages: []*engine.Stage{
			{ID: "draft", Name: "Draft", Gates: []*engine.Gate{approve}},
			{ID: "done", Name: "Done", IsFinal: true},
		},
		InitialStage: "draft",
		FinalStage:   "done",
	})
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}
	return p
}

func TestMermaid(t *testing.T) {
	out := Mermaid(testProcess(t))

	for _, want := range []string{
		"stateDiagram-v2",
		"[*] --> draft",
		"draft --> done: approve",
		"done --> [*]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("mermaid output missing %q:\n%s", want, out)
		}
	}
}

func TestDOT(t *testing.T) {
	out := DOT(testProcess(t))

	for _, want := range []string{
		`digraph "orders"`,
		`_start -> "draft"`,
		`"done" [label="Done", peripheries=2]`,
		`"draft" -> "done" [label="approve"]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output missing %q:\n%s", want, out)
		}
	}
}

func TestDiagramsAnnotateIssues(t *testing.T) {
	lock, err := engine.NewLock("l", engine.LockExists, "x", nil, false)
	if err != nil {
		t.Fatalf("NewLock: %v", err)
	}
	dangling, err := engine.NewGate("g", engine.LogicAnd, []*engine.Lock{lock}, "nowhere")
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	p, err := engine.NewProcess(engine.ProcessConfig{
		Name: "broken",
		Stages: []*engine.Stage{
			{ID: "a", Gates: []*engine.Gate{dangling}},
		},
		InitialStage: "a",
		FinalStage:   "a",
	})
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}

	if out := Mermaid(p); !strings.Contains(out, "invalid_target") {
		t.Errorf("mermaid output should mention the invalid target:\n%s", out)
	}
	if out := DOT(p); !strings.Contains(out, "invalid_target") {
		t.Errorf("dot output should mention the invalid target:\n%s", out)
	}
}
