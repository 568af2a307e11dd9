// Package task persists Herald's lightweight task list and the comment
// threads attached to each task. Follow-up jobs are anchored here: a
// follow-up can only be scheduled against a task that exists for the
// requesting owner.
package task

import "time"

// Task is a unit of tracked work owned by a single user.
type Task struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is an entry in a task's thread. Herald itself comments on
// tasks when follow-ups are scheduled or fire.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Status constants for tasks
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// SystemAuthor is the comment author used for entries Herald writes on
// its own behalf, such as follow-up scheduling notes.
const SystemAuthor = "herald"

// ValidStatus reports whether s is one of the three task statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	}
	return false
}
