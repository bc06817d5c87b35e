package engine

import (
	"fmt"
	"sort"
	"strings"
)

// IssueType classifies graph-shape problems in a process.
type IssueType string

const (
	// IssueInvalidTarget flags a gate whose target stage does not exist.
	IssueInvalidTarget IssueType = "invalid_target"
	// IssueUnreachableStage flags a stage with no path from the initial stage.
	IssueUnreachableStage IssueType = "unreachable_stage"
	// IssueCannotReachFinal flags a non-final stage with no path to the final stage.
	IssueCannotReachFinal IssueType = "cannot_reach_final"
	// IssueCircularTrap flags a cycle of stages with no exit toward the final stage.
	IssueCircularTrap IssueType = "circular_trap"
)

// ConsistencyIssue is one graph-shape problem. Issues never abort process
// construction; callers decide whether an invalid process is usable.
type ConsistencyIssue struct {
	Type        IssueType `json:"issue_type"`
	StageID     string    `json:"stage_id"`
	Description string    `json:"description"`
}

// ConsistencyReport is the cached result of the consistency checker.
type ConsistencyReport struct {
	Valid  bool               `json:"valid"`
	Issues []ConsistencyIssue `json:"issues,omitempty"`
}

// checkConsistency analyzes the directed graph implied by gate target
// transitions: nodes are stage ids, edges run from a stage to each of its
// gates' targets. All checks run and all issues accumulate; the checker
// never stops at the first problem. The report is recomputed from scratch
// after any structural change, never mutated incrementally.
func checkConsistency(p *Process) *ConsistencyReport {
	report := &ConsistencyReport{}

	edges := make(map[string][]string, len(p.stages))
	for _, id := range p.StageOrder {
		stage := p.stages[id]
		for _, gate := range stage.Gates {
			if gate.TargetStage == "" {
				continue
			}
			if _, ok := p.stages[gate.TargetStage]; !ok {
				report.Issues = append(report.Issues, ConsistencyIssue{
					Type:        IssueInvalidTarget,
					StageID:     id,
					Description: fmt.Sprintf("gate %q targets unknown stage %q", gate.Name, gate.TargetStage),
				})
				continue
			}
			edges[id] = append(edges[id], gate.TargetStage)
		}
	}

	forward := reachableFrom(p.InitialStage, edges)
	for _, id := range p.StageOrder {
		if !forward[id] {
			report.Issues = append(report.Issues, ConsistencyIssue{
				Type:        IssueUnreachableStage,
				StageID:     id,
				Description: fmt.Sprintf("stage %q cannot be reached from initial stage %q", id, p.InitialStage),
			})
		}
	}

	reverse := reachableFrom(p.FinalStage, reverseEdges(edges))
	for _, id := range p.StageOrder {
		if id == p.FinalStage || p.stages[id].IsFinal {
			continue
		}
		if !reverse[id] {
			report.Issues = append(report.Issues, ConsistencyIssue{
				Type:        IssueCannotReachFinal,
				StageID:     id,
				Description: fmt.Sprintf("stage %q has no path to final stage %q", id, p.FinalStage),
			})
		}
	}

	// Circular traps: strongly-connected components of size > 1 where no
	// member has a path out to the final stage. Cycles that can still
	// eventually reach the final stage are legitimate regression loops.
	for _, component := range stronglyConnected(p.StageOrder, edges) {
		if len(component) < 2 {
			continue
		}
		escapes := false
		for _, id := range component {
			if reverse[id] || id == p.FinalStage {
				escapes = true
				break
			}
		}
		if escapes {
			continue
		}
		sort.Strings(component)
		report.Issues = append(report.Issues, ConsistencyIssue{
			Type:        IssueCircularTrap,
			StageID:     component[0],
			Description: fmt.Sprintf("stages [%s] form a cycle with no exit toward final stage %q", strings.Join(component, ", "), p.FinalStage),
		})
	}

	report.Valid = len(report.Issues) == 0
	return report
}

// reachableFrom runs an iterative breadth-first search over the edge map.
func reachableFrom(start string, edges map[string][]string) map[string]bool {
	visited := map[string]bool{start: true}
	frontier := []string{start}
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		for _, next := range edges[node] {
			if !visited[next] {
				visited[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return visited
}

func reverseEdges(edges map[string][]string) map[string][]string {
	reversed := make(map[string][]string, len(edges))
	for from, targets := range edges {
		for _, to := range targets {
			reversed[to] = append(reversed[to], from)
		}
	}
	return reversed
}

// stronglyConnected computes SCCs with Tarjan's algorithm, iteratively to
// avoid recursion depth concerns on adversarial graphs.
func stronglyConnected(nodes []string, edges map[string][]string) [][]string {
	index := make(map[string]int, len(nodes))
	lowlink := make(map[string]int, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	var stack []string
	var components [][]string
	counter := 0

	type frame struct {
		node string
		next int
	}

	for _, root := range nodes {
		if _, seen := index[root]; seen {
			continue
		}

		work := []frame{{node: root}}
		for len(work) > 0 {
			f := &work[len(work)-1]
			node := f.node

			if f.next == 0 {
				index[node] = counter
				lowlink[node] = counter
				counter++
				stack = append(stack, node)
				onStack[node] = true
			}

			advanced := false
			for f.next < len(edges[node]) {
				next := edges[node][f.next]
				f.next++
				if _, seen := index[next]; !seen {
					work = append(work, frame{node: next})
					advanced = true
					break
				}
				if onStack[next] && index[next] < lowlink[node] {
					lowlink[node] = index[next]
				}
			}
			if advanced {
				continue
			}

			if lowlink[node] == index[node] {
				var component []string
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					component = append(component, top)
					if top == node {
						break
					}
				}
				components = append(components, component)
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].node
				if lowlink[node] < lowlink[parent] {
					lowlink[parent] = lowlink[node]
				}
			}
		}
	}

	return components
}
