package chime

import "time"

// Job event types streamed to WebSocket clients.
const (
	EventJobCreated     = "job.created"
	EventJobUpdated     = "job.updated"
	EventJobPaused      = "job.paused"
	EventJobResumed     = "job.resumed"
	EventJobCancelled   = "job.cancelled"
	EventJobDispatched  = "job.dispatched"
	EventJobCompleted   = "job.completed"
	EventJobFailed      = "job.failed"
	EventJobRescheduled = "job.rescheduled"
	EventJobMissed      = "job.missed"

	EventNotificationCreated = "notification.created"
)

// JobEvent describes a lifecycle moment of a scheduled job. Events
// are advisory: the store rows are the durable truth, the stream only
// keeps connected UIs current.
type JobEvent struct {
	Type      string     `json:"type"`
	OwnerID   string     `json:"owner_id"`
	JobID     string     `json:"job_id,omitempty"`
	RunID     string     `json:"run_id,omitempty"`
	Title     string     `json:"title,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	At        time.Time  `json:"at"`
}

// EventSink receives job events. Implementations must not block; the
// dispatcher and service publish from hot paths.
type EventSink interface {
	PublishJobEvent(event JobEvent)
}

// Publish sends an event when a sink is configured. A nil sink drops
// everything, which is the headless-daemon case.
func Publish(sink EventSink, event JobEvent) {
	if sink != nil {
		if event.At.IsZero() {
			event.At = time.Now().UTC()
		}
		sink.PublishJobEvent(event)
	}
}
