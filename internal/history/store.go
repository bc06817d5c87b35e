// Package history persists element state transitions and recorded
// evaluation results. The engine reads history but never writes it; stores
// own durability and per-element ordering.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stagegate/stagegate/internal/engine"
)

// Store is the persistence contract for element state transitions. Append
// calls for the same element id are serialized by the store; List returns
// transitions ordered oldest first.
type Store interface {
	Append(ctx context.Context, tr engine.StateTransition) error
	Latest(ctx context.Context, elementID string) (engine.StateTransition, bool, error)
	List(ctx context.Context, elementID string) ([]engine.StateTransition, error)
}

// NewTransition builds a transition record for a completed evaluation,
// assigning an id and timestamp. The snapshot is the element document at
// evaluation time; regression detection replays locks against it later.
func NewTransition(elementID, fromState string, result *engine.EvaluationResult, snapshot map[string]any, reason string) engine.StateTransition {
	return engine.StateTransition{
		ID:        uuid.NewString(),
		ElementID: elementID,
		Timestamp: time.Now().UTC(),
		FromState: fromState,
		ToState:   result.StageID,
		StageName: result.StageID,
		Reason:    reason,
		Snapshot:  snapshot,
	}
}

// MemoryStore keeps transitions in memory, grouped by element id. It is safe
// for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	byElem map[string][]engine.StateTransition
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byElem: make(map[string][]engine.StateTransition)}
}

// Append adds a transition to the element's trail.
func (s *MemoryStore) Append(ctx context.Context, tr engine.StateTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byElem[tr.ElementID] = append(s.byElem[tr.ElementID], tr)
	return nil
}

// Latest returns the most recent transition for an element, if any.
func (s *MemoryStore) Latest(ctx context.Context, elementID string) (engine.StateTransition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trail := s.byElem[elementID]
	if len(trail) == 0 {
		return engine.StateTransition{}, false, nil
	}
	return trail[len(trail)-1], true, nil
}

// List returns the element's transitions oldest first. The caller owns the
// returned slice.
func (s *MemoryStore) List(ctx context.Context, elementID string) ([]engine.StateTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trail := s.byElem[elementID]
	if len(trail) == 0 {
		return nil, nil
	}
	out := make([]engine.StateTransition, len(trail))
	copy(out, trail)
	return out, nil
}
