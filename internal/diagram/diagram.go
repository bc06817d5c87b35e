// Package diagram renders a process stage graph as Mermaid or Graphviz DOT
// text. Rendering is pure string building; callers own all I/O.
package diagram

import (
	"fmt"
	"strings"

	"github.com/stagegate/stagegate/internal/engine"
)

// Mermaid renders the stage graph as a Mermaid state diagram. Stages appear
// in stage order; edges are gate transitions labeled by gate name. Final
// stages get a terminal edge. Consistency issues are appended as comments.
func Mermaid(p *engine.Process) string {
	var b strings.Builder
	b.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&b, "    [*] --> %s\n", p.InitialStage)

	for _, stage := range p.Stages() {
		if stage.Name != "" && stage.Name != stage.ID {
			fmt.Fprintf(&b, "    %s: %s\n", stage.ID, stage.Name)
		}
	}
	for _, stage := range p.Stages() {
		for _, gate := range stage.Gates {
			if gate.TargetStage == "" {
				continue
			}
			fmt.Fprintf(&b, "    %s --> %s: %s\n", stage.ID, gate.TargetStage, gate.Name)
		}
		if stage.IsFinal {
			fmt.Fprintf(&b, "    %s --> [*]\n", stage.ID)
		}
	}

	if report := p.Consistency(); !report.Valid {
		b.WriteString("\n")
		for _, issue := range report.Issues {
			fmt.Fprintf(&b, "    %%%% %s: %s\n", issue.Type, issue.Description)
		}
	}
	return b.String()
}

// DOT renders the stage graph in Graphviz DOT syntax. Final stages are drawn
// with a double circle, the initial stage is marked by an entry arrow.
func DOT(p *engine.Process) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", p.Name)
	b.WriteString("    rankdir=LR;\n")
	b.WriteString("    node [shape=box, style=rounded];\n")
	b.WriteString("    _start [shape=point];\n")
	fmt.Fprintf(&b, "    _start -> %q;\n", p.InitialStage)

	for _, stage := range p.Stages() {
		attrs := []string{fmt.Sprintf("label=%q", stageLabel(stage))}
		if stage.IsFinal {
			attrs = append(attrs, "peripheries=2")
		}
		fmt.Fprintf(&b, "    %q [%s];\n", stage.ID, strings.Join(attrs, ", "))
	}
	for _, stage := range p.Stages() {
		for _, gate := range stage.Gates {
			if gate.TargetStage == "" {
				continue
			}
			fmt.Fprintf(&b, "    %q -> %q [label=%q];\n", stage.ID, gate.TargetStage, gate.Name)
		}
	}

	if report := p.Consistency(); !report.Valid {
		for _, issue := range report.Issues {
			fmt.Fprintf(&b, "    // %s: %s\n", issue.Type, issue.Description)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func stageLabel(stage *engine.Stage) string {
	if stage.Name != "" {
		return stage.Name
	}
	return stage.ID
}
