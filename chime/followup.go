package chime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/internal/id"
	"github.com/heraldai/herald/task"
)

// FollowUpParams schedules a follow-up check on an existing task.
// Reason is optional color for the agent ("waiting on vendor reply");
// RunAt is when the check happens.
type FollowUpParams struct {
	TaskID string    `json:"task_id"`
	Reason string    `json:"reason,omitempty"`
	RunAt  time.Time `json:"run_at"`
}

// CreateFollowUp schedules a one-shot agent job that revisits a task
// at RunAt. The task must exist under the caller's owner scope. A note
// is also appended to the task's comment thread so the follow-up is
// visible where the work lives, but the job is the durable artifact: a
// failure to comment is logged, not returned.
func (s *Service) CreateFollowUp(ctx context.Context, ownerID string, p FollowUpParams) (*schedule.Job, error) {
	tk, err := s.tasks.GetTask(ctx, ownerID, p.TaskID)
	if err != nil {
		return nil, err
	}

	now := s.timeNow()
	runAt := p.RunAt
	resolved, err := s.resolveSchedule(ScheduleSpec{RunAt: &runAt}, now)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(p.Reason)
	payload, err := json.Marshal(schedule.AgentTaskPayload{
		Instruction: followUpInstruction(tk, reason),
		TaskID:      tk.ID,
		ProjectID:   tk.ProjectID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode follow-up payload")
	}

	job := s.newJob(ownerID, schedule.KindFollowUp, schedule.ActionAgentTask, payload, resolved, now)
	job.Title = "Follow up: " + tk.Title
	job.Description = reason
	job.TaskID = tk.ID
	job.ProjectID = tk.ProjectID

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	comment := &task.Comment{
		ID:     id.NewCommentID(),
		TaskID: tk.ID,
		Author: task.SystemAuthor,
		Body:   followUpNote(resolved.next, reason),
	}
	if err := s.tasks.AppendComment(ctx, ownerID, comment); err != nil {
		s.logger.Warnw("Failed to append follow-up note",
			"task_id", tk.ID,
			"job_id", short(job.ID),
			"error", err)
	}

	s.logger.Infow("Follow-up scheduled",
		"job_id", short(job.ID),
		"owner_id", ownerID,
		"task_id", tk.ID,
		"run_at", resolved.next)
	Publish(s.sink, JobEvent{
		Type:      EventJobCreated,
		OwnerID:   ownerID,
		JobID:     job.ID,
		Title:     job.Title,
		NextRunAt: job.NextRunAt,
	})
	return job, nil
}

// followUpInstruction builds what the agent is told when the follow-up
// fires.
func followUpInstruction(tk *task.Task, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Follow up on task %q (%s).", tk.Title, tk.ID)
	if reason != "" {
		fmt.Fprintf(&b, " Reason for the follow-up: %s.", reason)
	}
	b.WriteString(" Review the task's current state and comment thread, take any next step that is yours to take, and summarize where things stand.")
	return b.String()
}

// followUpNote is the comment left on the task at scheduling time.
func followUpNote(runAt time.Time, reason string) string {
	note := "Follow-up scheduled for " + runAt.UTC().Format(time.RFC3339)
	if reason != "" {
		note += ": " + reason
	}
	return note
}
