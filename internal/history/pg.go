package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagegate/stagegate/internal/engine"
)

// PGStore persists transitions in PostgreSQL. Per-element ordering relies on
// the timestamp column; concurrent appenders for the same element should
// serialize at a higher level.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore wraps a connection pool.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Append inserts a transition row.
func (s *PGStore) Append(ctx context.Context, tr engine.StateTransition) error {
	snapshotJSON, err := json.Marshal(tr.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot for element %s: %w", tr.ElementID, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO state_transitions (id, element_id, created_at, from_state, to_state, stage_name, reason, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tr.ID, tr.ElementID, tr.Timestamp, tr.FromState, tr.ToState, tr.StageName, tr.Reason, snapshotJSON)
	if err != nil {
		return fmt.Errorf("append transition for element %s: %w", tr.ElementID, err)
	}
	return nil
}

// Latest returns the most recent transition for an element.
func (s *PGStore) Latest(ctx context.Context, elementID string) (engine.StateTransition, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, element_id, created_at, from_state, to_state, stage_name, reason, snapshot
		FROM state_transitions
		WHERE element_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, elementID)

	tr, err := scanTransition(row)
	if err == pgx.ErrNoRows {
		return engine.StateTransition{}, false, nil
	}
	if err != nil {
		return engine.StateTransition{}, false, fmt.Errorf("fetch latest transition for element %s: %w", elementID, err)
	}
	return tr, true, nil
}

// List returns the element's transitions oldest first.
func (s *PGStore) List(ctx context.Context, elementID string) ([]engine.StateTransition, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, element_id, created_at, from_state, to_state, stage_name, reason, snapshot
		FROM state_transitions
		WHERE element_id = $1
		ORDER BY created_at ASC
	`, elementID)
	if err != nil {
		return nil, fmt.Errorf("list transitions for element %s: %w", elementID, err)
	}
	defer rows.Close()

	var trail []engine.StateTransition
	for rows.Next() {
		tr, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transition for element %s: %w", elementID, err)
		}
		trail = append(trail, tr)
	}
	return trail, rows.Err()
}

func scanTransition(row pgx.Row) (engine.StateTransition, error) {
	var tr engine.StateTransition
	var snapshotJSON []byte
	err := row.Scan(&tr.ID, &tr.ElementID, &tr.Timestamp, &tr.FromState,
		&tr.ToState, &tr.StageName, &tr.Reason, &snapshotJSON)
	if err != nil {
		return tr, err
	}
	if len(snapshotJSON) > 0 {
		if err := json.Unmarshal(snapshotJSON, &tr.Snapshot); err != nil {
			return tr, fmt.Errorf("unmarshal snapshot: %w", err)
		}
	}
	return tr, nil
}

// RecordEvaluation writes an evaluation result to the audit table.
func (s *PGStore) RecordEvaluation(ctx context.Context, elementID string, result *engine.EvaluationResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal evaluation for element %s: %w", elementID, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO evaluations (element_id, process, stage_id, status, result)
		VALUES ($1, $2, $3, $4, $5)
	`, elementID, result.Process, result.StageID, string(result.Status), resultJSON)
	if err != nil {
		return fmt.Errorf("record evaluation for element %s: %w", elementID, err)
	}
	return nil
}
