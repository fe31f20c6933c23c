package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"toolbroker/internal/domain"
)

// ErrNotFound is returned by ByCallID when no record matches.
var ErrNotFound = errors.New("call record not found")

// Store keeps CallRecords in a tool_calls table. It implements domain.CallRecorder.
type Store struct {
	db *sql.DB
}

var _ domain.CallRecorder = (*Store)(nil)

// NewStore wraps db. Call Migrate before first use.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db must not be nil")
	}
	return &Store{db: db}, nil
}

// Migrate creates the tool_calls table and its index if they don't exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tool_calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			call_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			arguments TEXT,
			output TEXT NOT NULL,
			is_error INTEGER NOT NULL DEFAULT 0,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("records migrate: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tool_calls_call_id ON tool_calls(call_id)`)
	if err != nil {
		return fmt.Errorf("records migrate index: %w", err)
	}
	return nil
}

// Record inserts rec.
func (s *Store) Record(ctx context.Context, rec domain.CallRecord) error {
	var args sql.NullString
	if len(rec.Arguments) > 0 {
		args = sql.NullString{String: string(rec.Arguments), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (call_id, tool_name, arguments, output, is_error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CallID, rec.ToolName, args, string(rec.Output), boolToInt(rec.IsError),
		rec.StartedAt.UnixMilli(), rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("record call %q: %w", rec.CallID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.CallRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_id, tool_name, arguments, output, is_error, started_at, duration_ms
		 FROM tool_calls ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CallRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ByCallID returns the most recent record for callID, or ErrNotFound.
func (s *Store) ByCallID(ctx context.Context, callID string) (domain.CallRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT call_id, tool_name, arguments, output, is_error, started_at, duration_ms
		 FROM tool_calls WHERE call_id = ? ORDER BY id DESC LIMIT 1`, callID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CallRecord{}, fmt.Errorf("%w: %s", ErrNotFound, callID)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (domain.CallRecord, error) {
	var (
		rec       domain.CallRecord
		args      sql.NullString
		output    string
		isError   int64
		startedMs int64
	)
	if err := sc.Scan(&rec.CallID, &rec.ToolName, &args, &output, &isError, &startedMs, &rec.DurationMs); err != nil {
		return domain.CallRecord{}, err
	}
	if args.Valid {
		rec.Arguments = json.RawMessage(args.String)
	}
	rec.Output = json.RawMessage(output)
	rec.IsError = isError != 0
	rec.StartedAt = time.UnixMilli(startedMs).UTC()
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
