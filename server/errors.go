package server

import (
	"net/http"

	"github.com/heraldai/herald/chime"
	"github.com/heraldai/herald/chime/recurrence"
	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/notify"
	"github.com/heraldai/herald/task"
)

// statusForError maps domain sentinels onto HTTP status codes. The
// chain position matters only for readability; sentinels never overlap.
func statusForError(err error) int {
	switch {
	case errors.Is(err, schedule.ErrNotFound),
		errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, notify.ErrNotificationNotFound),
		errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, chime.ErrConflictingScheduleFields),
		errors.Is(err, schedule.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, recurrence.ErrUnsatisfiableSchedule):
		return http.StatusUnprocessableEntity
	case errors.Is(err, recurrence.ErrInvalidSchedule),
		errors.Is(err, chime.ErrPastRunTime),
		errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs server faults and translates every error
// into the JSON error shape clients expect.
func (s *HeraldServer) writeServiceError(w http.ResponseWriter, err error, operation string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Errorw("Request failed",
			"operation", operation,
			"error", err,
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
