package schedule

import (
	"context"
	"database/sql"
	"time"

	"github.com/heraldai/herald/errors"
)

// RunStore handles persistence of dispatch run history.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new run store.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts a new run record.
func (s *RunStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO job_runs (
			id, job_id, owner_id, status, attempts, scheduled_for,
			started_at, finished_at, duration_ms, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var finishedAt, errorMessage, durationMs interface{}
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}
	if run.DurationMs != nil {
		durationMs = *run.DurationMs
	}
	if run.ErrorMessage != nil {
		errorMessage = *run.ErrorMessage
	}

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.JobID,
		run.OwnerID,
		run.Status,
		run.Attempts,
		run.ScheduledFor,
		run.StartedAt,
		finishedAt,
		durationMs,
		errorMessage,
		run.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create run for job %s", run.JobID)
	}
	return nil
}

// UpdateRun finalizes an existing run record.
func (s *RunStore) UpdateRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE job_runs
		SET status = ?,
		    attempts = ?,
		    finished_at = ?,
		    duration_ms = ?,
		    error_message = ?
		WHERE id = ?
	`

	var finishedAt, errorMessage, durationMs interface{}
	if run.FinishedAt != nil {
		finishedAt = *run.FinishedAt
	}
	if run.DurationMs != nil {
		durationMs = *run.DurationMs
	}
	if run.ErrorMessage != nil {
		errorMessage = *run.ErrorMessage
	}

	result, err := s.db.ExecContext(ctx, query,
		run.Status,
		run.Attempts,
		finishedAt,
		durationMs,
		errorMessage,
		run.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update run")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check rows affected")
	}
	if rowsAffected == 0 {
		return errors.Newf("run not found: %s", run.ID)
	}
	return nil
}

// GetRun retrieves a run by ID within the owner's scope.
func (s *RunStore) GetRun(ctx context.Context, ownerID, id string) (*Run, error) {
	query := `
		SELECT id, job_id, owner_id, status, attempts, scheduled_for,
		       started_at, finished_at, duration_ms, error_message, created_at
		FROM job_runs
		WHERE id = ? AND owner_id = ?
	`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Newf("run not found: %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get run %s", id)
	}
	return run, nil
}

// ListRuns retrieves runs for a job with pagination and an optional
// status filter, newest first. The second return value is the total
// matching count before pagination.
func (s *RunStore) ListRuns(ctx context.Context, ownerID, jobID string, limit, offset int, statusFilter string) ([]*Run, int, error) {
	baseQuery := `
		FROM job_runs
		WHERE job_id = ? AND owner_id = ?
	`
	args := []interface{}{jobID, ownerID}

	if statusFilter != "" {
		baseQuery += " AND status = ?"
		args = append(args, statusFilter)
	}

	countQuery := "SELECT COUNT(*)" + baseQuery
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count runs")
	}

	query := `
		SELECT id, job_id, owner_id, status, attempts, scheduled_for,
		       started_at, finished_at, duration_ms, error_message, created_at
	` + baseQuery + `
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "error iterating runs")
	}
	return runs, total, nil
}

// ListRecentFinished retrieves runs across all of the owner's jobs
// that finished after the given time, newest first. Lets clients poll
// for outcomes without walking every job.
func (s *RunStore) ListRecentFinished(ctx context.Context, ownerID string, since time.Time, limit int) ([]*Run, error) {
	query := `
		SELECT id, job_id, owner_id, status, attempts, scheduled_for,
		       started_at, finished_at, duration_ms, error_message, created_at
		FROM job_runs
		WHERE owner_id = ? AND finished_at IS NOT NULL AND finished_at > ?
		ORDER BY finished_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, since.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating runs")
	}
	return runs, nil
}

// CleanupOldRuns deletes run records older than the retention period
// and returns how many were removed. Keeps job_runs from growing
// without bound; jobs themselves are never deleted.
func (s *RunStore) CleanupOldRuns(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx, `DELETE FROM job_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old runs")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(deleted), nil
}

func scanRun(sc rowScanner) (*Run, error) {
	var run Run
	var finishedAt, errorMessage sql.NullString
	var durationMs sql.NullInt64

	err := sc.Scan(
		&run.ID,
		&run.JobID,
		&run.OwnerID,
		&run.Status,
		&run.Attempts,
		&run.ScheduledFor,
		&run.StartedAt,
		&finishedAt,
		&durationMs,
		&errorMessage,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.String
	}
	if durationMs.Valid {
		duration := int(durationMs.Int64)
		run.DurationMs = &duration
	}
	if errorMessage.Valid {
		run.ErrorMessage = &errorMessage.String
	}
	return &run, nil
}
