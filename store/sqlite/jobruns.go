package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// JOB RUNS (generic.JobRunStore interface)
// =============================================================================

// SaveJobRun saves a job run, replacing an earlier save of the same ID.
func (s *Store) SaveJobRun(ctx context.Context, run generic.JobRun) error {
	query := `
		INSERT INTO job_runs (id, job, trigger_kind, status, processed, skipped, failed, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			processed = excluded.processed,
			skipped = excluded.skipped,
			failed = excluded.failed,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Job, run.Trigger, run.Status,
		run.Processed, run.Skipped, run.Failed, run.Error,
		formatTime(run.StartedAt), formatTimePtr(run.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save job run: %w", err)
	}
	return nil
}

// ListJobRuns returns job runs, most recent first.
func (s *Store) ListJobRuns(ctx context.Context, job string, limit int) ([]generic.JobRun, error) {
	var query string
	var args []any

	if job != "" {
		query = `
			SELECT id, job, trigger_kind, status, processed, skipped, failed, error, started_at, completed_at
			FROM job_runs
			WHERE job = ?
			ORDER BY started_at DESC
		`
		args = []any{job}
	} else {
		query = `
			SELECT id, job, trigger_kind, status, processed, skipped, failed, error, started_at, completed_at
			FROM job_runs
			ORDER BY started_at DESC
		`
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job runs: %w", err)
	}
	defer rows.Close()

	var runs []generic.JobRun
	for rows.Next() {
		var r generic.JobRun
		var startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Job, &r.Trigger, &r.Status,
			&r.Processed, &r.Skipped, &r.Failed, &r.Error,
			&startedAt, &completedAt,
		); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		r.CompletedAt = parseTimePtr(completedAt)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
