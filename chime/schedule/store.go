package schedule

import (
	"context"
	"database/sql"
	"time"

	"github.com/heraldai/herald/errors"
)

var (
	// ErrNotFound is returned for lookups that miss within the owner's
	// scope. Another owner's job ID is indistinguishable from a job
	// that does not exist.
	ErrNotFound = errors.New("scheduled job not found")

	// ErrInvalidTransition is returned for status changes the job's
	// current status does not admit, such as resuming a cancelled job.
	ErrInvalidTransition = errors.New("invalid status transition")
)

const jobColumns = `id, owner_id, job_kind, schedule_type, run_at, cron_expression, timezone,
       next_run_at, action_type, action_payload, status, title, description,
       task_id, project_id, conversation_id, claimed_until, failure_count,
       last_error, last_run_at, created_at, updated_at`

// Store handles persistence of scheduled jobs.
type Store struct {
	db *sql.DB
}

// NewStore creates a new job store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateJob validates and inserts a new scheduled job. The job must
// arrive with ID, OwnerID, kind, schedule, action, and NextRunAt
// already populated; Status defaults to active.
func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	if job.Status == "" {
		job.Status = StatusActive
	}
	if err := validateJob(job); err != nil {
		return err
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.UpdatedAt = job.CreatedAt

	query := `
		INSERT INTO scheduled_jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.OwnerID,
		job.Kind,
		job.ScheduleType,
		fmtNullTime(job.RunAt),
		nullString(job.CronExpression),
		nullString(job.Timezone),
		fmtNullTime(job.NextRunAt),
		job.ActionType,
		string(job.ActionPayload),
		job.Status,
		job.Title,
		job.Description,
		nullString(job.TaskID),
		nullString(job.ProjectID),
		nullString(job.ConversationID),
		fmtNullTime(job.ClaimedUntil),
		job.FailureCount,
		nullString(job.LastError),
		fmtNullTime(job.LastRunAt),
		fmtTime(job.CreatedAt),
		fmtTime(job.UpdatedAt),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create scheduled job %s", job.ID)
	}
	return nil
}

// GetJob retrieves a job by ID within the owner's scope.
func (s *Store) GetJob(ctx context.Context, ownerID, id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs WHERE id = ? AND owner_id = ?`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "job %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get scheduled job %s", id)
	}
	return job, nil
}

// ListFilter narrows ListJobs results. Zero values mean no filtering;
// Limit defaults to 200 and is capped at 1000.
type ListFilter struct {
	Status string
	Kind   string
	Limit  int
	Offset int
}

// ListJobs returns the owner's jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, ownerID string, filter ListFilter) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs WHERE owner_id = ?`
	args := []interface{}{ownerID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Kind != "" {
		query += ` AND job_kind = ?`
		args = append(args, filter.Kind)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list scheduled jobs")
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan scheduled job")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListByTask returns the owner's jobs linked to a task, newest first.
func (s *Store) ListByTask(ctx context.Context, ownerID, taskID string) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs
		WHERE owner_id = ? AND task_id = ?
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerID, taskID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list jobs for task %s", taskID)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan scheduled job")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimDue atomically claims up to limit due jobs for dispatch, oldest
// due first. A job is due when it is active, its next_run_at is at or
// before now, and no live lease covers it. Each claim is a conditional
// update keyed on the exact next_run_at the candidate was read with,
// so two dispatchers polling the same window can never both win the
// same occurrence. Leases left behind by a crashed dispatcher expire
// on their own and the job becomes claimable again.
func (s *Store) ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs
		WHERE status = ? AND next_run_at IS NOT NULL AND next_run_at <= ?
		  AND (claimed_until IS NULL OR claimed_until <= ?)
		ORDER BY next_run_at ASC
		LIMIT ?`

	nowStr := fmtTime(now)
	rows, err := s.db.QueryContext(ctx, query, StatusActive, nowStr, nowStr, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list due jobs")
	}

	var candidates []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan due job")
		}
		candidates = append(candidates, job)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	leaseStr := fmtTime(leaseUntil)
	claimed := make([]*Job, 0, len(candidates))
	for _, job := range candidates {
		res, err := s.db.ExecContext(ctx, `
			UPDATE scheduled_jobs
			SET claimed_until = ?, updated_at = ?
			WHERE id = ? AND status = ? AND next_run_at = ?
			  AND (claimed_until IS NULL OR claimed_until <= ?)
		`, leaseStr, nowStr, job.ID, StatusActive, fmtNullTime(job.NextRunAt), nowStr)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to claim job %s", job.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to check claim of job %s", job.ID)
		}
		if n == 1 {
			until := leaseUntil.UTC()
			job.ClaimedUntil = &until
			claimed = append(claimed, job)
		}
		// n == 0: another dispatcher won this occurrence, or the job
		// changed underneath us. Either way it is not ours.
	}
	return claimed, nil
}

// FinishRecurringRun records the outcome of a recurring dispatch and
// advances the job to nextRun. The update is conditional on the lease
// still being ours; false means the job was reclaimed, rescheduled, or
// cancelled mid-flight and nothing was written. An empty runErr resets
// the failure streak, otherwise it is recorded and the job advances
// anyway: recurring occurrences are never retried.
func (s *Store) FinishRecurringRun(ctx context.Context, id string, lease, ranAt, nextRun time.Time, runErr string) (bool, error) {
	var query string
	args := []interface{}{fmtTime(ranAt), fmtTime(nextRun)}
	if runErr == "" {
		query = `
			UPDATE scheduled_jobs
			SET last_run_at = ?, next_run_at = ?, failure_count = 0, last_error = NULL,
			    claimed_until = NULL, updated_at = ?
			WHERE id = ? AND claimed_until = ?`
	} else {
		query = `
			UPDATE scheduled_jobs
			SET last_run_at = ?, next_run_at = ?, failure_count = failure_count + 1, last_error = ?,
			    claimed_until = NULL, updated_at = ?
			WHERE id = ? AND claimed_until = ?`
		args = append(args, runErr)
	}
	args = append(args, fmtTime(time.Now()), id, fmtTime(lease))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrapf(err, "failed to finish recurring run for job %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "failed to check finish of job %s", id)
	}
	return n == 1, nil
}

// CompleteOneShot finalizes a one-shot job after its dispatch cycle,
// recording how many attempts failed and the last error if the final
// attempt did not succeed. The job completes either way; a failed
// one-shot is a completed job with a failure on record, not a job that
// stays due. Conditional on the lease, like FinishRecurringRun.
func (s *Store) CompleteOneShot(ctx context.Context, id string, lease, ranAt time.Time, failures int, runErr string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET status = ?, next_run_at = NULL, claimed_until = NULL,
		    last_run_at = ?, failure_count = ?, last_error = ?, updated_at = ?
		WHERE id = ? AND claimed_until = ?
	`, StatusCompleted, fmtTime(ranAt), failures, nullString(runErr), fmtTime(time.Now()), id, fmtTime(lease))
	if err != nil {
		return false, errors.Wrapf(err, "failed to complete job %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "failed to check completion of job %s", id)
	}
	return n == 1, nil
}

// ReleaseClaim gives a lease back without recording an outcome, for
// dispatches aborted before the handler ran, such as during shutdown.
func (s *Store) ReleaseClaim(ctx context.Context, id string, lease time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET claimed_until = NULL, updated_at = ?
		WHERE id = ? AND claimed_until = ?
	`, fmtTime(time.Now()), id, fmtTime(lease))
	if err != nil {
		return false, errors.Wrapf(err, "failed to release claim on job %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "failed to check release of job %s", id)
	}
	return n == 1, nil
}

// AdvanceSkipped moves a recurring job past an occurrence that was
// never executed, such as one older than the catch-up window. Unlike
// FinishRecurringRun it leaves last_run_at and failure_count alone:
// nothing ran. Conditional on the lease, like the finalizers.
func (s *Store) AdvanceSkipped(ctx context.Context, id string, lease, nextRun time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET next_run_at = ?, claimed_until = NULL, updated_at = ?
		WHERE id = ? AND claimed_until = ?
	`, fmtTime(nextRun), fmtTime(time.Now()), id, fmtTime(lease))
	if err != nil {
		return false, errors.Wrapf(err, "failed to advance job %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "failed to check advance of job %s", id)
	}
	return n == 1, nil
}

// CancelWithReason cancels a claimed job from inside the dispatcher,
// recording why in last_error. Used when a recurring job's schedule
// stops producing occurrences and rescheduling would leave it stuck
// due forever. Conditional on the lease, like the finalizers.
func (s *Store) CancelWithReason(ctx context.Context, id string, lease time.Time, reason string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET status = ?, next_run_at = NULL, claimed_until = NULL, last_error = ?, updated_at = ?
		WHERE id = ? AND claimed_until = ?
	`, StatusCancelled, reason, fmtTime(time.Now()), id, fmtTime(lease))
	if err != nil {
		return false, errors.Wrapf(err, "failed to cancel job %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "failed to check cancellation of job %s", id)
	}
	return n == 1, nil
}

// UpdateStatus applies an owner-requested status change. Active and
// paused jobs can move between those two statuses or be cancelled;
// terminal jobs admit nothing. Completion is not reachable here, it
// only happens through CompleteOneShot.
func (s *Store) UpdateStatus(ctx context.Context, ownerID, id, target string) error {
	now := fmtTime(time.Now())

	var res sql.Result
	var err error
	switch target {
	case StatusActive, StatusPaused:
		res, err = s.db.ExecContext(ctx, `
			UPDATE scheduled_jobs
			SET status = ?, updated_at = ?
			WHERE id = ? AND owner_id = ? AND status IN (?, ?)
		`, target, now, id, ownerID, StatusActive, StatusPaused)
	case StatusCancelled:
		res, err = s.db.ExecContext(ctx, `
			UPDATE scheduled_jobs
			SET status = ?, next_run_at = NULL, claimed_until = NULL, updated_at = ?
			WHERE id = ? AND owner_id = ? AND status IN (?, ?)
		`, target, now, id, ownerID, StatusActive, StatusPaused)
	default:
		return errors.Wrapf(ErrInvalidTransition, "status %q cannot be requested", target)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to update status of job %s", id)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to check status update of job %s", id)
	}
	if n == 0 {
		job, getErr := s.GetJob(ctx, ownerID, id)
		if getErr != nil {
			return getErr
		}
		return errors.Wrapf(ErrInvalidTransition, "job %s is %s", id, job.Status)
	}
	return nil
}

// ResumeJob reactivates a paused job. A non-nil nextRun replaces
// next_run_at, for cron jobs whose next occurrence moved while the job
// was paused; nil keeps the preserved one, which is how one-shot jobs
// come back with their original run_at. Resuming an already active job
// is a no-op.
func (s *Store) ResumeJob(ctx context.Context, ownerID, id string, nextRun *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET status = ?, next_run_at = COALESCE(?, next_run_at), updated_at = ?
		WHERE id = ? AND owner_id = ? AND status = ?
	`, StatusActive, fmtNullTime(nextRun), fmtTime(time.Now()), id, ownerID, StatusPaused)
	if err != nil {
		return errors.Wrapf(err, "failed to resume job %s", id)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to check resume of job %s", id)
	}
	if n == 0 {
		job, getErr := s.GetJob(ctx, ownerID, id)
		if getErr != nil {
			return getErr
		}
		if job.Status == StatusActive {
			return nil
		}
		return errors.Wrapf(ErrInvalidTransition, "job %s is %s", id, job.Status)
	}
	return nil
}

// ScheduleChange replaces a job's schedule. NextRunAt must already be
// computed for the new schedule.
type ScheduleChange struct {
	ScheduleType   string
	RunAt          *time.Time
	CronExpression string
	Timezone       string
	NextRunAt      time.Time
}

// UpdateSchedule rewrites the schedule of a non-terminal job. A lease
// held by an in-flight dispatch is cleared, which also voids that
// dispatch's conditional finish so it cannot overwrite the new
// schedule's next_run_at.
func (s *Store) UpdateSchedule(ctx context.Context, ownerID, id string, change ScheduleChange) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET schedule_type = ?, run_at = ?, cron_expression = ?, timezone = ?,
		    next_run_at = ?, claimed_until = NULL, updated_at = ?
		WHERE id = ? AND owner_id = ? AND status IN (?, ?)
	`, change.ScheduleType,
		fmtNullTime(change.RunAt),
		nullString(change.CronExpression),
		nullString(change.Timezone),
		fmtTime(change.NextRunAt),
		fmtTime(time.Now()),
		id, ownerID, StatusActive, StatusPaused)
	if err != nil {
		return errors.Wrapf(err, "failed to update schedule of job %s", id)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to check schedule update of job %s", id)
	}
	if n == 0 {
		job, getErr := s.GetJob(ctx, ownerID, id)
		if getErr != nil {
			return getErr
		}
		return errors.Wrapf(ErrInvalidTransition, "job %s is %s", id, job.Status)
	}
	return nil
}

// UpdateDetails renames a non-terminal job. Terminal rows stay as the
// audit record of what ran.
func (s *Store) UpdateDetails(ctx context.Context, ownerID, id, title, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs
		SET title = ?, description = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND status IN (?, ?)
	`, title, description, fmtTime(time.Now()), id, ownerID, StatusActive, StatusPaused)
	if err != nil {
		return errors.Wrapf(err, "failed to update details of job %s", id)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to check details update of job %s", id)
	}
	if n == 0 {
		job, getErr := s.GetJob(ctx, ownerID, id)
		if getErr != nil {
			return getErr
		}
		return errors.Wrapf(ErrInvalidTransition, "job %s is %s", id, job.Status)
	}
	return nil
}

// NextScheduled returns the soonest active job across all owners, or
// nil when nothing is scheduled. Used for idle-tick display.
func (s *Store) NextScheduled(ctx context.Context) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM scheduled_jobs
		WHERE status = ? AND next_run_at IS NOT NULL
		ORDER BY next_run_at ASC
		LIMIT 1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, StatusActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get next scheduled job")
	}
	return job, nil
}

// CountByStatus returns job counts across all owners, for metrics.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM scheduled_jobs GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count jobs")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan job count")
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// validateJob enforces the payload and field invariants at the store
// boundary so no malformed job can become due.
func validateJob(job *Job) error {
	if job.ID == "" {
		return errors.New("job ID is required")
	}
	if job.OwnerID == "" {
		return errors.New("job owner is required")
	}
	if !ValidKind(job.Kind) {
		return errors.Newf("unknown job kind %q", job.Kind)
	}
	if !ValidStatus(job.Status) {
		return errors.Newf("unknown job status %q", job.Status)
	}

	switch job.ScheduleType {
	case ScheduleOnce:
		if job.RunAt == nil {
			return errors.New("once schedule requires run_at")
		}
		if job.CronExpression != "" {
			return errors.New("once schedule cannot carry a cron expression")
		}
	case ScheduleCron:
		if job.CronExpression == "" {
			return errors.New("cron schedule requires an expression")
		}
		if job.Timezone == "" {
			return errors.New("cron schedule requires a timezone")
		}
		if job.RunAt != nil {
			return errors.New("cron schedule cannot carry run_at")
		}
	default:
		return errors.Newf("unknown schedule type %q", job.ScheduleType)
	}

	switch job.Kind {
	case KindReminder:
		if job.ActionType != ActionNotify {
			return errors.Newf("reminder jobs notify, got action %q", job.ActionType)
		}
	case KindOneTime, KindFollowUp:
		if job.ActionType != ActionAgentTask {
			return errors.Newf("%s jobs run agent tasks, got action %q", job.Kind, job.ActionType)
		}
		if job.ScheduleType != ScheduleOnce {
			return errors.Newf("%s jobs are one-shot, got schedule %q", job.Kind, job.ScheduleType)
		}
		if job.Kind == KindFollowUp && job.TaskID == "" {
			return errors.New("follow_up jobs require a task")
		}
	case KindRecurring:
		if job.ActionType != ActionAgentTask {
			return errors.Newf("recurring jobs run agent tasks, got action %q", job.ActionType)
		}
		if job.ScheduleType != ScheduleCron {
			return errors.New("recurring jobs require a cron schedule")
		}
	}

	if err := ValidatePayload(job.ActionType, job.ActionPayload); err != nil {
		return err
	}

	if !IsTerminal(job.Status) && job.NextRunAt == nil {
		return errors.New("non-terminal jobs require next_run_at")
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(sc rowScanner) (*Job, error) {
	var job Job
	var payload string
	var runAt, cronExpr, timezone, nextRunAt sql.NullString
	var taskID, projectID, conversationID sql.NullString
	var claimedUntil, lastError, lastRunAt sql.NullString
	var createdAt, updatedAt string

	err := sc.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Kind,
		&job.ScheduleType,
		&runAt,
		&cronExpr,
		&timezone,
		&nextRunAt,
		&job.ActionType,
		&payload,
		&job.Status,
		&job.Title,
		&job.Description,
		&taskID,
		&projectID,
		&conversationID,
		&claimedUntil,
		&job.FailureCount,
		&lastError,
		&lastRunAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.ActionPayload = []byte(payload)
	job.CronExpression = cronExpr.String
	job.Timezone = timezone.String
	job.TaskID = taskID.String
	job.ProjectID = projectID.String
	job.ConversationID = conversationID.String
	job.LastError = lastError.String

	if job.RunAt, err = parseNullTime(runAt, "run_at", job.ID); err != nil {
		return nil, err
	}
	if job.NextRunAt, err = parseNullTime(nextRunAt, "next_run_at", job.ID); err != nil {
		return nil, err
	}
	if job.ClaimedUntil, err = parseNullTime(claimedUntil, "claimed_until", job.ID); err != nil {
		return nil, err
	}
	if job.LastRunAt, err = parseNullTime(lastRunAt, "last_run_at", job.ID); err != nil {
		return nil, err
	}
	if job.CreatedAt, err = parseTime(createdAt, "created_at", job.ID); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(updatedAt, "updated_at", job.ID); err != nil {
		return nil, err
	}
	return &job, nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fmtNullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func parseTime(s, col, jobID string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse %s for job %s", col, jobID)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString, col, jobID string) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String, col, jobID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
