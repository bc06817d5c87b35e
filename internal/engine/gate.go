package engine

import "fmt"

// GateLogic is the closed set of boolean folds over a gate's locks.
type GateLogic string

const (
	LogicAnd  GateLogic = "and"
	LogicOr   GateLogic = "or"
	LogicXor  GateLogic = "xor"
	LogicNand GateLogic = "nand"
	LogicNor  GateLogic = "nor"
)

var gateLogics = map[GateLogic]bool{
	LogicAnd: true, LogicOr: true, LogicXor: true, LogicNand: true, LogicNor: true,
}

// Gate is a named boolean combination of locks. A satisfied gate proposes a
// transition to TargetStage when one is set.
type Gate struct {
	Name        string
	Logic       GateLogic
	Locks       []*Lock
	TargetStage string // empty when the gate proposes no transition
}

// NewGate builds a gate over a non-empty ordered set of locks.
func NewGate(name string, logic GateLogic, locks []*Lock, targetStage string) (*Gate, error) {
	if name == "" {
		return nil, fmt.Errorf("gate requires a name")
	}
	if !gateLogics[logic] {
		return nil, fmt.Errorf("gate %q: unknown logic %q", name, logic)
	}
	if len(locks) == 0 {
		return nil, fmt.Errorf("gate %q: requires at least one lock", name)
	}
	return &Gate{Name: name, Logic: logic, Locks: locks, TargetStage: targetStage}, nil
}

// GateOutcome is the result of evaluating one gate. FailedLocks lists every
// lock whose individual outcome failed, independent of the fold, so
// diagnostics survive even when the gate as a whole passes (e.g. under OR).
type GateOutcome struct {
	Passed       bool
	FailedLocks  []string
	LockOutcomes map[string]LockOutcome
}

// Evaluate runs every lock (no short-circuiting, so all diagnostics are
// collected) and folds the individual outcomes by the gate's logic.
func (g *Gate) Evaluate(el Element, preds Predicates) GateOutcome {
	out := GateOutcome{LockOutcomes: make(map[string]LockOutcome, len(g.Locks))}

	passes := 0
	for _, lock := range g.Locks {
		lo := lock.Evaluate(el, preds)
		out.LockOutcomes[lock.Name] = lo
		if lo.Passed {
			passes++
		} else {
			out.FailedLocks = append(out.FailedLocks, lock.Name)
		}
	}

	switch g.Logic {
	case LogicAnd:
		out.Passed = passes == len(g.Locks)
	case LogicOr:
		out.Passed = passes > 0
	case LogicXor:
		out.Passed = passes == 1
	case LogicNand:
		out.Passed = passes != len(g.Locks)
	case LogicNor:
		out.Passed = passes == 0
	}
	return out
}
