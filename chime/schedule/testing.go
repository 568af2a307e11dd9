package schedule

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	heraldtest "github.com/heraldai/herald/internal/testing"
	"github.com/heraldai/herald/internal/util"
)

// createTestDB creates a migrated test database.
func createTestDB(t *testing.T) *sql.DB {
	return heraldtest.CreateTestDB(t)
}

// testReminder builds a valid one-shot notify job due at runAt.
func testReminder(id, ownerID string, runAt time.Time) *Job {
	return &Job{
		ID:            id,
		OwnerID:       ownerID,
		Kind:          KindReminder,
		ScheduleType:  ScheduleOnce,
		RunAt:         util.Ptr(runAt.UTC()),
		NextRunAt:     util.Ptr(runAt.UTC()),
		ActionType:    ActionNotify,
		ActionPayload: json.RawMessage(`{"message":"drink water"}`),
		Title:         "hydration",
	}
}

// testRecurring builds a valid recurring agent job due at next.
func testRecurring(id, ownerID string, next time.Time) *Job {
	return &Job{
		ID:             id,
		OwnerID:        ownerID,
		Kind:           KindRecurring,
		ScheduleType:   ScheduleCron,
		CronExpression: "0 9 * * *",
		Timezone:       "UTC",
		NextRunAt:      util.Ptr(next.UTC()),
		ActionType:     ActionAgentTask,
		ActionPayload:  json.RawMessage(`{"instruction":"summarize my inbox"}`),
		Title:          "inbox digest",
	}
}
