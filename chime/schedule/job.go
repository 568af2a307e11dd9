// Package schedule persists Herald's scheduled jobs and their run
// history, and provides the atomic claim that keeps concurrent
// dispatchers from firing the same job twice.
package schedule

import (
	"encoding/json"
	"time"
)

// Job is a scheduled unit of work owned by a single user. One-shot
// jobs carry RunAt, recurring jobs carry CronExpression plus Timezone.
// NextRunAt is the precomputed due instant in UTC and is cleared when
// the job reaches a terminal status. Terminal rows are kept for
// history, never deleted.
type Job struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Kind           string          `json:"kind"`
	ScheduleType   string          `json:"schedule_type"`
	RunAt          *time.Time      `json:"run_at,omitempty"`
	CronExpression string          `json:"cron_expression,omitempty"`
	Timezone       string          `json:"timezone,omitempty"`
	NextRunAt      *time.Time      `json:"next_run_at,omitempty"`
	ActionType     string          `json:"action_type"`
	ActionPayload  json.RawMessage `json:"action_payload"`
	Status         string          `json:"status"`
	Title          string          `json:"title,omitempty"`
	Description    string          `json:"description,omitempty"`
	TaskID         string          `json:"task_id,omitempty"`
	ProjectID      string          `json:"project_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	ClaimedUntil   *time.Time      `json:"claimed_until,omitempty"`
	FailureCount   int             `json:"failure_count"`
	LastError      string          `json:"last_error,omitempty"`
	LastRunAt      *time.Time      `json:"last_run_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Status constants for scheduled jobs
const (
	StatusActive    = "active"    // Eligible for dispatch
	StatusPaused    = "paused"    // Temporarily suspended by the owner
	StatusCompleted = "completed" // One-shot that fired (terminal)
	StatusCancelled = "cancelled" // Cancelled by the owner (terminal)
)

// Kind constants describe what the owner asked for. Reminders notify,
// one-time and recurring jobs hand an instruction to the agent runner, and
// follow-ups are one-shot agent jobs pre-linked to a task.
const (
	KindReminder  = "reminder"
	KindOneTime   = "one_time"
	KindRecurring = "recurring"
	KindFollowUp  = "follow_up"
)

// Schedule type constants
const (
	ScheduleOnce = "once"
	ScheduleCron = "cron"
)

// Action type constants
const (
	ActionNotify    = "notify"
	ActionAgentTask = "agent_task"
)

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// IsRecurring reports whether the job advances to a new occurrence
// after each dispatch instead of completing.
func (j *Job) IsRecurring() bool {
	return j.ScheduleType == ScheduleCron
}

// ValidStatus reports whether s is one of the four job statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidKind reports whether k is one of the four job kinds.
func ValidKind(k string) bool {
	switch k {
	case KindReminder, KindOneTime, KindRecurring, KindFollowUp:
		return true
	}
	return false
}
