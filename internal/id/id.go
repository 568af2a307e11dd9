// Package id generates prefixed identifiers for Herald records. The
// prefix makes IDs self-describing in logs and API payloads.
package id

import (
	"strings"

	"github.com/google/uuid"
)

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewJobID returns an identifier for a scheduled job.
func NewJobID() string { return newID("job") }

// NewRunID returns an identifier for a dispatch run record.
func NewRunID() string { return newID("run") }

// NewTaskID returns an identifier for a task.
func NewTaskID() string { return newID("task") }

// NewCommentID returns an identifier for a task comment.
func NewCommentID() string { return newID("cmt") }

// NewNotificationID returns an identifier for an inbox notification.
func NewNotificationID() string { return newID("ntf") }

// NewRequestID returns an identifier correlating the log lines of one
// API request.
func NewRequestID() string { return newID("req") }

// NewExecutionID returns an identifier for a locally fabricated agent
// execution. Real runners mint their own.
func NewExecutionID() string { return newID("exec") }
