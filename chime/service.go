// Package chime is Herald's scheduled job engine. Jobs are authored
// here, persisted by chime/schedule, their occurrences computed by
// chime/recurrence, and fired by chime/dispatch. The HTTP API, the MCP
// tools, and the CLI all author through the same Service so validation
// happens exactly once.
package chime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/heraldai/herald/chime/recurrence"
	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/config/geotime"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/internal/id"
	"github.com/heraldai/herald/task"
)

var (
	// ErrConflictingScheduleFields is returned when a request carries
	// both run_at and cron_expression. A job is one-shot or recurring,
	// never both.
	ErrConflictingScheduleFields = errors.New("run_at and cron_expression are mutually exclusive")

	// ErrPastRunTime is returned when a one-shot run_at is not strictly
	// in the future at authoring time.
	ErrPastRunTime = errors.New("run_at must be in the future")
)

// ScheduleSpec is the user-facing half of a schedule: exactly one of
// RunAt or CronExpression. Timezone only applies to cron schedules and
// accepts loose input ("PST", "new york"), normalized via geotime; an
// empty timezone falls back to the host timezone, then UTC.
type ScheduleSpec struct {
	RunAt          *time.Time `json:"run_at,omitempty"`
	CronExpression string     `json:"cron_expression,omitempty"`
	Timezone       string     `json:"timezone,omitempty"`
}

// ReminderParams describes a notify job. Message is what gets
// delivered; Channel picks the transport and may be left empty for the
// configured default.
type ReminderParams struct {
	Title          string       `json:"title,omitempty"`
	Description    string       `json:"description,omitempty"`
	Message        string       `json:"message"`
	Channel        string       `json:"channel,omitempty"`
	Schedule       ScheduleSpec `json:"schedule"`
	TaskID         string       `json:"task_id,omitempty"`
	ProjectID      string       `json:"project_id,omitempty"`
	ConversationID string       `json:"conversation_id,omitempty"`
}

// AgentTaskParams describes a job that hands an instruction to the
// agent runner when it fires.
type AgentTaskParams struct {
	Title          string       `json:"title,omitempty"`
	Description    string       `json:"description,omitempty"`
	Instruction    string       `json:"instruction"`
	Schedule       ScheduleSpec `json:"schedule"`
	TaskID         string       `json:"task_id,omitempty"`
	ProjectID      string       `json:"project_id,omitempty"`
	ConversationID string       `json:"conversation_id,omitempty"`
}

// Service is the authoring surface for scheduled jobs. All operations
// are owner-scoped; the dispatcher only ever reads what this layer
// wrote.
type Service struct {
	jobs    *schedule.Store
	runs    *schedule.RunStore
	tasks   *task.Store
	sink    EventSink
	logger  *zap.SugaredLogger
	timeNow func() time.Time
}

// NewService creates the authoring service. The sink may be nil for
// headless use; events are then dropped.
func NewService(jobs *schedule.Store, runs *schedule.RunStore, tasks *task.Store, sink EventSink, log *zap.SugaredLogger) *Service {
	return &Service{
		jobs:    jobs,
		runs:    runs,
		tasks:   tasks,
		sink:    sink,
		logger:  log,
		timeNow: time.Now,
	}
}

// WithClock replaces the service clock. Tests use this to pin "now"
// for the strictly-future check and occurrence computation.
func (s *Service) WithClock(fn func() time.Time) *Service {
	s.timeNow = fn
	return s
}

// CreateReminder schedules a notify job. Reminders may be one-shot or
// recurring; when the schedule fires, the message is delivered on the
// preferred channel.
func (s *Service) CreateReminder(ctx context.Context, ownerID string, p ReminderParams) (*schedule.Job, error) {
	now := s.timeNow()
	resolved, err := s.resolveSchedule(p.Schedule, now)
	if err != nil {
		return nil, err
	}
	if err := s.verifyTaskLink(ctx, ownerID, p.TaskID); err != nil {
		return nil, err
	}

	// A title-only reminder notifies with the title as the message, so
	// "remind me: call mom" needs no separate body.
	message := strings.TrimSpace(p.Message)
	if message == "" {
		message = strings.TrimSpace(p.Title)
	}

	payload, err := json.Marshal(schedule.NotifyPayload{
		Message: message,
		Channel: p.Channel,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode notify payload")
	}

	job := s.newJob(ownerID, schedule.KindReminder, schedule.ActionNotify, payload, resolved, now)
	job.Title = strings.TrimSpace(p.Title)
	job.Description = p.Description
	job.TaskID = p.TaskID
	job.ProjectID = p.ProjectID
	job.ConversationID = p.ConversationID

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Infow("Reminder created",
		"job_id", short(job.ID),
		"owner_id", ownerID,
		"schedule_type", job.ScheduleType,
		"next_run_at", resolved.next)
	Publish(s.sink, JobEvent{
		Type:      EventJobCreated,
		OwnerID:   ownerID,
		JobID:     job.ID,
		Title:     job.Title,
		NextRunAt: job.NextRunAt,
	})
	return job, nil
}

// CreateAgentTask schedules a job that hands an instruction to the
// agent runner. A one-shot schedule makes a one_time job, a cron
// schedule makes a recurring one.
func (s *Service) CreateAgentTask(ctx context.Context, ownerID string, p AgentTaskParams) (*schedule.Job, error) {
	now := s.timeNow()
	resolved, err := s.resolveSchedule(p.Schedule, now)
	if err != nil {
		return nil, err
	}
	if err := s.verifyTaskLink(ctx, ownerID, p.TaskID); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(schedule.AgentTaskPayload{
		Instruction: p.Instruction,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode agent_task payload")
	}

	kind := schedule.KindOneTime
	if resolved.scheduleType == schedule.ScheduleCron {
		kind = schedule.KindRecurring
	}

	job := s.newJob(ownerID, kind, schedule.ActionAgentTask, payload, resolved, now)
	job.Title = strings.TrimSpace(p.Title)
	job.Description = p.Description
	job.TaskID = p.TaskID
	job.ProjectID = p.ProjectID
	job.ConversationID = p.ConversationID

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Infow("Agent task scheduled",
		"job_id", short(job.ID),
		"owner_id", ownerID,
		"kind", kind,
		"next_run_at", resolved.next)
	Publish(s.sink, JobEvent{
		Type:      EventJobCreated,
		OwnerID:   ownerID,
		JobID:     job.ID,
		Title:     job.Title,
		NextRunAt: job.NextRunAt,
	})
	return job, nil
}

// Get returns one of the owner's jobs.
func (s *Service) Get(ctx context.Context, ownerID, jobID string) (*schedule.Job, error) {
	return s.jobs.GetJob(ctx, ownerID, jobID)
}

// List returns the owner's jobs, newest first.
func (s *Service) List(ctx context.Context, ownerID string, filter schedule.ListFilter) ([]*schedule.Job, error) {
	if filter.Status != "" && !schedule.ValidStatus(filter.Status) {
		return nil, errors.NewInvalidRequestError("unknown status %q", filter.Status)
	}
	if filter.Kind != "" && !schedule.ValidKind(filter.Kind) {
		return nil, errors.NewInvalidRequestError("unknown job kind %q", filter.Kind)
	}
	return s.jobs.ListJobs(ctx, ownerID, filter)
}

// Runs returns a job's dispatch history, newest first, with the total
// count for pagination.
func (s *Service) Runs(ctx context.Context, ownerID, jobID string, limit, offset int) ([]*schedule.Run, int, error) {
	if _, err := s.jobs.GetJob(ctx, ownerID, jobID); err != nil {
		return nil, 0, err
	}
	return s.runs.ListRuns(ctx, ownerID, jobID, limit, offset, "")
}

// Cancel cancels a job. Cancelling a job that already reached a
// terminal status is a no-op and returns the job unchanged.
func (s *Service) Cancel(ctx context.Context, ownerID, jobID string) (*schedule.Job, error) {
	job, err := s.jobs.GetJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if schedule.IsTerminal(job.Status) {
		return job, nil
	}

	if err := s.jobs.UpdateStatus(ctx, ownerID, jobID, schedule.StatusCancelled); err != nil {
		return nil, err
	}
	job, err = s.jobs.GetJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Job cancelled", "job_id", short(jobID), "owner_id", ownerID)
	Publish(s.sink, JobEvent{
		Type:    EventJobCancelled,
		OwnerID: ownerID,
		JobID:   jobID,
		Title:   job.Title,
	})
	return job, nil
}

// Pause suspends dispatch of a job. The schedule fields and
// next_run_at stay in place so Resume can pick the job back up.
func (s *Service) Pause(ctx context.Context, ownerID, jobID string) (*schedule.Job, error) {
	if err := s.jobs.UpdateStatus(ctx, ownerID, jobID, schedule.StatusPaused); err != nil {
		return nil, err
	}
	job, err := s.jobs.GetJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Job paused", "job_id", short(jobID), "owner_id", ownerID)
	Publish(s.sink, JobEvent{
		Type:    EventJobPaused,
		OwnerID: ownerID,
		JobID:   jobID,
		Title:   job.Title,
	})
	return job, nil
}

// Resume reactivates a paused job. A cron job's next occurrence is
// recomputed from now, so occurrences that came due while paused are
// not replayed. A one-shot job keeps its original run_at; if that
// instant has already passed, the next dispatch cycle deals with it.
func (s *Service) Resume(ctx context.Context, ownerID, jobID string) (*schedule.Job, error) {
	job, err := s.jobs.GetJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == schedule.StatusActive {
		return job, nil
	}
	if schedule.IsTerminal(job.Status) {
		return nil, errors.Wrapf(schedule.ErrInvalidTransition, "job %s is %s", jobID, job.Status)
	}

	var nextRun *time.Time
	if job.IsRecurring() {
		next, err := recurrence.NextRun(job.CronExpression, job.Timezone, s.timeNow())
		if err != nil {
			return nil, err
		}
		nextRun = &next
	}

	if err := s.jobs.ResumeJob(ctx, ownerID, jobID, nextRun); err != nil {
		return nil, err
	}
	job, err = s.jobs.GetJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Job resumed",
		"job_id", short(jobID),
		"owner_id", ownerID,
		"next_run_at", job.NextRunAt)
	Publish(s.sink, JobEvent{
		Type:      EventJobResumed,
		OwnerID:   ownerID,
		JobID:     jobID,
		Title:     job.Title,
		NextRunAt: job.NextRunAt,
	})
	return job, nil
}

// UpdateSchedule replaces a job's schedule and recomputes next_run_at
// in the same write. The job keeps its kind: agent tasks stay one-shot
// or recurring, only reminders may move between the two shapes. An
// in-flight dispatch of the old schedule is voided by the store.
func (s *Service) UpdateSchedule(ctx context.Context, ownerID, jobID string, spec ScheduleSpec) (*schedule.Job, error) {
	job, err := s.jobs.GetJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolveSchedule(spec, s.timeNow())
	if err != nil {
		return nil, err
	}
	if resolved.scheduleType != job.ScheduleType && job.Kind != schedule.KindReminder {
		return nil, errors.Wrapf(recurrence.ErrInvalidSchedule,
			"%s jobs cannot change from a %s schedule to %s", job.Kind, job.ScheduleType, resolved.scheduleType)
	}

	change := schedule.ScheduleChange{
		ScheduleType:   resolved.scheduleType,
		RunAt:          resolved.runAt,
		CronExpression: resolved.cronExpr,
		Timezone:       resolved.timezone,
		NextRunAt:      resolved.next,
	}
	if err := s.jobs.UpdateSchedule(ctx, ownerID, jobID, change); err != nil {
		return nil, err
	}
	job, err = s.jobs.GetJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Job rescheduled",
		"job_id", short(jobID),
		"owner_id", ownerID,
		"next_run_at", resolved.next)
	Publish(s.sink, JobEvent{
		Type:      EventJobUpdated,
		OwnerID:   ownerID,
		JobID:     jobID,
		Title:     job.Title,
		NextRunAt: job.NextRunAt,
	})
	return job, nil
}

// UpdateDetails renames a job.
func (s *Service) UpdateDetails(ctx context.Context, ownerID, jobID, title, description string) (*schedule.Job, error) {
	if err := s.jobs.UpdateDetails(ctx, ownerID, jobID, strings.TrimSpace(title), description); err != nil {
		return nil, err
	}
	job, err := s.jobs.GetJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	Publish(s.sink, JobEvent{
		Type:    EventJobUpdated,
		OwnerID: ownerID,
		JobID:   jobID,
		Title:   job.Title,
	})
	return job, nil
}

// resolvedSchedule is a ScheduleSpec after validation, ready for a
// store write.
type resolvedSchedule struct {
	scheduleType string
	runAt        *time.Time
	cronExpr     string
	timezone     string
	next         time.Time
}

func (s *Service) resolveSchedule(spec ScheduleSpec, now time.Time) (*resolvedSchedule, error) {
	expr := strings.TrimSpace(spec.CronExpression)
	hasRunAt := spec.RunAt != nil && !spec.RunAt.IsZero()

	switch {
	case hasRunAt && expr != "":
		return nil, errors.WithStack(ErrConflictingScheduleFields)

	case !hasRunAt && expr == "":
		return nil, errors.Wrap(recurrence.ErrInvalidSchedule, "either run_at or cron_expression is required")

	case hasRunAt:
		runAt := spec.RunAt.UTC().Truncate(time.Second)
		if !runAt.After(now) {
			return nil, errors.Wrapf(ErrPastRunTime, "run_at %s is not after %s",
				runAt.Format(time.RFC3339), now.UTC().Format(time.RFC3339))
		}
		return &resolvedSchedule{
			scheduleType: schedule.ScheduleOnce,
			runAt:        &runAt,
			next:         runAt,
		}, nil

	default:
		tz, err := s.resolveTimezone(spec.Timezone)
		if err != nil {
			return nil, err
		}
		next, err := recurrence.NextRun(expr, tz, now)
		if err != nil {
			return nil, err
		}
		return &resolvedSchedule{
			scheduleType: schedule.ScheduleCron,
			cronExpr:     expr,
			timezone:     tz,
			next:         next,
		}, nil
	}
}

// resolveTimezone normalizes loose timezone input. An empty value
// falls back to the host timezone, then UTC, so "remind me at 9" from
// a laptop does the expected thing.
func (s *Service) resolveTimezone(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		if tz, err := geotime.DetectLocalTimezone(); err == nil {
			return tz, nil
		}
		return "UTC", nil
	}
	tz, err := geotime.NormalizeTimezone(input)
	if err != nil {
		return "", errors.Wrapf(recurrence.ErrInvalidSchedule, "%v", err)
	}
	return tz, nil
}

func (s *Service) verifyTaskLink(ctx context.Context, ownerID, taskID string) error {
	if taskID == "" {
		return nil
	}
	_, err := s.tasks.GetTask(ctx, ownerID, taskID)
	return err
}

func (s *Service) newJob(ownerID, kind, actionType string, payload json.RawMessage, resolved *resolvedSchedule, now time.Time) *schedule.Job {
	return &schedule.Job{
		ID:             id.NewJobID(),
		OwnerID:        ownerID,
		Kind:           kind,
		ScheduleType:   resolved.scheduleType,
		RunAt:          resolved.runAt,
		CronExpression: resolved.cronExpr,
		Timezone:       resolved.timezone,
		NextRunAt:      &resolved.next,
		ActionType:     actionType,
		ActionPayload:  payload,
		Status:         schedule.StatusActive,
		CreatedAt:      now.UTC(),
	}
}

// short trims an id for log lines.
func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
