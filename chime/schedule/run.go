package schedule

// Run records a single dispatch of a scheduled job: which occurrence
// it served, how many attempts it took, and how it ended. Runs are the
// audit trail behind "did my reminder fire", so they are written when
// dispatch starts and finalized when it ends.
type Run struct {
	ID      string `json:"id"`
	JobID   string `json:"job_id"`
	OwnerID string `json:"owner_id"`

	Status   string `json:"status"` // "running", "succeeded", "failed", "missed"
	Attempts int    `json:"attempts"`

	// ScheduledFor is the occurrence this run served, which can trail
	// StartedAt by up to a poll interval.
	ScheduledFor string  `json:"scheduled_for"`          // RFC3339 timestamp
	StartedAt    string  `json:"started_at"`             // RFC3339 timestamp
	FinishedAt   *string `json:"finished_at,omitempty"`  // RFC3339 timestamp (null while running)
	DurationMs   *int    `json:"duration_ms,omitempty"`  // Milliseconds (null while running)
	ErrorMessage *string `json:"error_message,omitempty"`

	CreatedAt string `json:"created_at"` // RFC3339 timestamp
}

// Run status constants
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	// RunStatusMissed marks occurrences that were already older than
	// the catch-up window when the dispatcher saw them, typically after
	// downtime. Nothing was executed.
	RunStatusMissed = "missed"
)
