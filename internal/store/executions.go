// ABOUTME: Execution audit trail store methods
// ABOUTME: Records every SML operation call with actor, trace id, outcome, and duration

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordExecution appends an entry to the audit trail.
// ID and Timestamp are filled in when empty.
func (s *SQLiteStore) RecordExecution(ctx context.Context, e *Execution) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO executions (id, path, actor_id, trace_id, outcome, error_code, duration_ms, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Path,
		nullString(e.ActorID),
		e.TraceID,
		e.Outcome,
		nullString(e.ErrorCode),
		e.Duration.Milliseconds(),
		e.Timestamp.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// ListExecutions returns the most recent executions first.
func (s *SQLiteStore) ListExecutions(ctx context.Context, limit int) ([]*Execution, error) {
	query := `
		SELECT id, path, actor_id, trace_id, outcome, error_code, duration_ms, ts
		FROM executions ORDER BY ts DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var out []*Execution
	for rows.Next() {
		var e Execution
		var actorID, errorCode sql.NullString
		var durationMS int64
		var ts string
		if err := rows.Scan(&e.ID, &e.Path, &actorID, &e.TraceID, &e.Outcome, &errorCode, &durationMS, &ts); err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		e.ActorID = actorID.String
		e.ErrorCode = errorCode.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if e.Timestamp, err = parseTime("ts", ts); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
