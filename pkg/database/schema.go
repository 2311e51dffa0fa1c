package database

import (
	"context"
	"fmt"
)

func (db *PostgresDB) InitSchema(ctx context.Context) error {
	// 1. Research runs, keyed by run id and bound to a session.
	runsQuery := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			ts BIGINT NOT NULL,
			question TEXT NOT NULL,
			result JSONB NOT NULL
		);
	`
	if _, err := db.Pool.Exec(ctx, runsQuery); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	// 2. Per-run pipeline logs. No FK: log lines arrive while the run is
	// still in flight, before the run row exists.
	logsQuery := `
		CREATE TABLE IF NOT EXISTS run_logs (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB
		);
	`
	if _, err := db.Pool.Exec(ctx, logsQuery); err != nil {
		return fmt.Errorf("failed to create run_logs table: %w", err)
	}

	// 3. Share links exposing a run without session binding.
	sharesQuery := `
		CREATE TABLE IF NOT EXISTS shares (
			share_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			created_at BIGINT NOT NULL
		);
	`
	if _, err := db.Pool.Exec(ctx, sharesQuery); err != nil {
		return fmt.Errorf("failed to create shares table: %w", err)
	}

	// Indexes for faster querying
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_runs_session_ts ON runs(session_id, ts DESC)"); err != nil {
		return fmt.Errorf("failed to create index on runs: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_run_logs_run_id ON run_logs(run_id)"); err != nil {
		return fmt.Errorf("failed to create index on run_logs: %w", err)
	}

	return nil
}
