package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a run or share does not exist.
var ErrNotFound = errors.New("not found")

// RunMeta is the listing view of a persisted run.
type RunMeta struct {
	ID        string `json:"id"`
	TS        int64  `json:"ts"`
	Question  string `json:"question"`
	HasAnswer bool   `json:"has_answer"`
}

// RunRecord is a fully materialized run.
type RunRecord struct {
	ID       string          `json:"id"`
	TS       int64           `json:"ts"`
	Question string          `json:"question"`
	Result   json.RawMessage `json:"result"`
}

// LogEntry is one persisted pipeline log line.
type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (db *PostgresDB) SaveRun(ctx context.Context, sessionID, runID, question string, result json.RawMessage) error {
	_, err := db.Pool.Exec(ctx,
		"INSERT INTO runs (id, session_id, ts, question, result) VALUES ($1, $2, $3, $4, $5)",
		runID, sessionID, time.Now().Unix(), question, result)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (db *PostgresDB) ListRuns(ctx context.Context, sessionID string) ([]RunMeta, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, ts, question, COALESCE(result->>'final_answer', '') <> ''
		FROM runs
		WHERE session_id = $1
		ORDER BY ts DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var metas []RunMeta
	for rows.Next() {
		var m RunMeta
		if err := rows.Scan(&m.ID, &m.TS, &m.Question, &m.HasAnswer); err != nil {
			continue
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

func (db *PostgresDB) GetRun(ctx context.Context, sessionID, runID string) (*RunRecord, error) {
	r := &RunRecord{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, ts, question, result FROM runs WHERE session_id = $1 AND id = $2",
		sessionID, runID).Scan(&r.ID, &r.TS, &r.Question, &r.Result)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

func (db *PostgresDB) ClearRuns(ctx context.Context, sessionID string) error {
	if _, err := db.Pool.Exec(ctx, "DELETE FROM runs WHERE session_id = $1", sessionID); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	return nil
}

func (db *PostgresDB) CreateShare(ctx context.Context, runID, shareID string) error {
	_, err := db.Pool.Exec(ctx,
		"INSERT INTO shares (share_id, run_id, created_at) VALUES ($1, $2, $3)",
		shareID, runID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetShared(ctx context.Context, shareID string) (*RunRecord, error) {
	r := &RunRecord{}
	err := db.Pool.QueryRow(ctx, `
		SELECT r.id, r.ts, r.question, r.result
		FROM shares s JOIN runs r ON s.run_id = r.id
		WHERE s.share_id = $1
	`, shareID).Scan(&r.ID, &r.TS, &r.Question, &r.Result)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shared run: %w", err)
	}
	return r, nil
}

func (db *PostgresDB) SaveRunLog(ctx context.Context, runID string, ts time.Time, level, message string, metadata json.RawMessage) error {
	_, err := db.Pool.Exec(ctx,
		"INSERT INTO run_logs (run_id, timestamp, level, message, metadata) VALUES ($1, $2, $3, $4, $5)",
		runID, ts, level, message, metadata)
	return err
}

func (db *PostgresDB) GetRunLogs(ctx context.Context, runID string) ([]LogEntry, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, timestamp, level, message, metadata FROM run_logs WHERE run_id = $1 ORDER BY id ASC",
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
