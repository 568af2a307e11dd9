package schedule

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/internal/util"
)

func TestCreateJob(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	t.Run("one-shot reminder roundtrips", func(t *testing.T) {
		runAt := time.Now().Add(1 * time.Hour).UTC().Truncate(time.Second)
		job := testReminder("job_reminder1", "local", runAt)
		job.Description = "every afternoon slump"

		require.NoError(t, store.CreateJob(ctx, job))

		retrieved, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, retrieved.ID)
		assert.Equal(t, KindReminder, retrieved.Kind)
		assert.Equal(t, ScheduleOnce, retrieved.ScheduleType)
		assert.Equal(t, StatusActive, retrieved.Status)
		assert.Equal(t, "hydration", retrieved.Title)
		assert.Equal(t, "every afternoon slump", retrieved.Description)
		require.NotNil(t, retrieved.RunAt)
		assert.True(t, retrieved.RunAt.Equal(runAt))
		require.NotNil(t, retrieved.NextRunAt)
		assert.True(t, retrieved.NextRunAt.Equal(runAt))
		assert.JSONEq(t, `{"message":"drink water"}`, string(retrieved.ActionPayload))
		assert.Nil(t, retrieved.ClaimedUntil)
		assert.Zero(t, retrieved.FailureCount)
	})

	t.Run("recurring agent job roundtrips", func(t *testing.T) {
		next := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Second)
		job := testRecurring("job_recurring1", "local", next)
		job.ProjectID = "proj_abc"

		require.NoError(t, store.CreateJob(ctx, job))

		retrieved, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, KindRecurring, retrieved.Kind)
		assert.Equal(t, "0 9 * * *", retrieved.CronExpression)
		assert.Equal(t, "UTC", retrieved.Timezone)
		assert.Equal(t, "proj_abc", retrieved.ProjectID)
		assert.Nil(t, retrieved.RunAt)
		assert.True(t, retrieved.IsRecurring())
	})
}

func TestCreateJob_Validation(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	runAt := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr string
	}{
		{
			name:    "missing owner",
			mutate:  func(j *Job) { j.OwnerID = "" },
			wantErr: "owner",
		},
		{
			name:    "unknown kind",
			mutate:  func(j *Job) { j.Kind = "countdown" },
			wantErr: "unknown job kind",
		},
		{
			name:    "once without run_at",
			mutate:  func(j *Job) { j.RunAt = nil },
			wantErr: "requires run_at",
		},
		{
			name: "once with cron expression",
			mutate: func(j *Job) {
				j.CronExpression = "0 9 * * *"
			},
			wantErr: "cannot carry a cron expression",
		},
		{
			name: "cron without timezone",
			mutate: func(j *Job) {
				j.Kind = KindRecurring
				j.ScheduleType = ScheduleCron
				j.CronExpression = "0 9 * * *"
				j.RunAt = nil
				j.ActionType = ActionAgentTask
				j.ActionPayload = json.RawMessage(`{"instruction":"p"}`)
			},
			wantErr: "requires a timezone",
		},
		{
			name: "reminder with agent action",
			mutate: func(j *Job) {
				j.ActionType = ActionAgentTask
				j.ActionPayload = json.RawMessage(`{"instruction":"p"}`)
			},
			wantErr: "reminder jobs notify",
		},
		{
			name: "follow_up without task",
			mutate: func(j *Job) {
				j.Kind = KindFollowUp
				j.ActionType = ActionAgentTask
				j.ActionPayload = json.RawMessage(`{"instruction":"p"}`)
			},
			wantErr: "require a task",
		},
		{
			name: "recurring with once schedule",
			mutate: func(j *Job) {
				j.Kind = KindRecurring
				j.ActionType = ActionAgentTask
				j.ActionPayload = json.RawMessage(`{"instruction":"p"}`)
			},
			wantErr: "require a cron schedule",
		},
		{
			name:    "payload missing message",
			mutate:  func(j *Job) { j.ActionPayload = json.RawMessage(`{"channel":"inapp"}`) },
			wantErr: "requires a message",
		},
		{
			name:    "active without next_run_at",
			mutate:  func(j *Job) { j.NextRunAt = nil },
			wantErr: "require next_run_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := testReminder("job_invalid", "local", runAt)
			tt.mutate(job)
			err := store.CreateJob(ctx, job)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetJob_OwnerScoped(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	job := testReminder("job_mine", "alice", time.Now().Add(time.Hour))
	require.NoError(t, store.CreateJob(ctx, job))

	_, err := store.GetJob(ctx, "alice", "job_mine")
	require.NoError(t, err)

	// Another owner sees the same ID as missing, not forbidden.
	_, err = store.GetJob(ctx, "bob", "job_mine")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.GetJob(ctx, "alice", "job_nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListJobs(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now()

	jobs := []*Job{
		testReminder("job_a", "local", now.Add(1*time.Hour)),
		testRecurring("job_b", "local", now.Add(2*time.Hour)),
		testReminder("job_c", "local", now.Add(3*time.Hour)),
		testReminder("job_other", "someone-else", now.Add(1*time.Hour)),
	}
	for i, job := range jobs {
		// Spread created_at so the newest-first ordering is deterministic.
		job.CreatedAt = now.Add(time.Duration(i) * time.Second).UTC()
		require.NoError(t, store.CreateJob(ctx, job))
	}
	require.NoError(t, store.UpdateStatus(ctx, "local", "job_c", StatusPaused))

	t.Run("returns only the owner's jobs newest first", func(t *testing.T) {
		got, err := store.ListJobs(ctx, "local", ListFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "job_c", got[0].ID)
		assert.Equal(t, "job_b", got[1].ID)
		assert.Equal(t, "job_a", got[2].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		got, err := store.ListJobs(ctx, "local", ListFilter{Status: StatusPaused})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "job_c", got[0].ID)
	})

	t.Run("kind filter", func(t *testing.T) {
		got, err := store.ListJobs(ctx, "local", ListFilter{Kind: KindRecurring})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "job_b", got[0].ID)
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := store.ListJobs(ctx, "local", ListFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "job_b", got[0].ID)
	})
}

func TestClaimDue(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	lease := now.Add(2 * time.Minute)

	due := testReminder("job_due", "local", now.Add(-5*time.Minute))
	future := testReminder("job_future", "local", now.Add(10*time.Minute))
	paused := testReminder("job_paused", "local", now.Add(-5*time.Minute))
	require.NoError(t, store.CreateJob(ctx, due))
	require.NoError(t, store.CreateJob(ctx, future))
	require.NoError(t, store.CreateJob(ctx, paused))
	require.NoError(t, store.UpdateStatus(ctx, "local", "job_paused", StatusPaused))

	t.Run("claims only due active jobs", func(t *testing.T) {
		claimed, err := store.ClaimDue(ctx, now, lease, 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, "job_due", claimed[0].ID)
		require.NotNil(t, claimed[0].ClaimedUntil)
		assert.True(t, claimed[0].ClaimedUntil.Equal(lease))
	})

	t.Run("live lease blocks a second claim", func(t *testing.T) {
		claimed, err := store.ClaimDue(ctx, now, lease, 10)
		require.NoError(t, err)
		assert.Empty(t, claimed)
	})

	t.Run("expired lease makes the job claimable again", func(t *testing.T) {
		later := lease.Add(time.Second)
		claimed, err := store.ClaimDue(ctx, later, later.Add(2*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, "job_due", claimed[0].ID)
	})
}

// Two dispatchers polling the same due window must never both win the
// same occurrence.
func TestClaimDue_Concurrent(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	const jobCount = 20
	for i := 0; i < jobCount; i++ {
		job := testReminder("job_conc_"+string(rune('a'+i)), "local", now.Add(-time.Minute))
		require.NoError(t, store.CreateJob(ctx, job))
	}

	const dispatchers = 4
	var wg sync.WaitGroup
	results := make([][]*Job, dispatchers)
	errs := make([]error, dispatchers)

	for d := 0; d < dispatchers; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			results[d], errs[d] = store.ClaimDue(ctx, now, now.Add(2*time.Minute), jobCount)
		}(d)
	}
	wg.Wait()

	seen := make(map[string]int)
	total := 0
	for d := 0; d < dispatchers; d++ {
		require.NoError(t, errs[d])
		for _, job := range results[d] {
			seen[job.ID]++
			total++
		}
	}

	assert.Equal(t, jobCount, total, "every due job claimed exactly once")
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s claimed %d times", id, n)
	}
}

func TestFinishRecurringRun(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	job := testRecurring("job_rec", "local", now.Add(-time.Minute))
	require.NoError(t, store.CreateJob(ctx, job))

	claimed, err := store.ClaimDue(ctx, now, now.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	lease := *claimed[0].ClaimedUntil

	t.Run("success advances and clears the failure streak", func(t *testing.T) {
		nextRun := now.Add(24 * time.Hour)
		ok, err := store.FinishRecurringRun(ctx, job.ID, lease, now, nextRun, "")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, got.Status)
		require.NotNil(t, got.NextRunAt)
		assert.True(t, got.NextRunAt.Equal(nextRun))
		require.NotNil(t, got.LastRunAt)
		assert.True(t, got.LastRunAt.Equal(now))
		assert.Nil(t, got.ClaimedUntil)
		assert.Zero(t, got.FailureCount)
		assert.Empty(t, got.LastError)
	})

	t.Run("failure records the error and advances anyway", func(t *testing.T) {
		claimed, err := store.ClaimDue(ctx, now.Add(25*time.Hour), now.Add(25*time.Hour+2*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		nextRun := now.Add(48 * time.Hour)
		ok, err := store.FinishRecurringRun(ctx, job.ID, *claimed[0].ClaimedUntil, now.Add(25*time.Hour), nextRun, "runner unreachable")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.FailureCount)
		assert.Equal(t, "runner unreachable", got.LastError)
		require.NotNil(t, got.NextRunAt)
		assert.True(t, got.NextRunAt.Equal(nextRun))
	})

	t.Run("stale lease writes nothing", func(t *testing.T) {
		before, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)

		ok, err := store.FinishRecurringRun(ctx, job.ID, now.Add(-time.Hour), now, now.Add(72*time.Hour), "")
		require.NoError(t, err)
		assert.False(t, ok)

		after, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.True(t, after.NextRunAt.Equal(*before.NextRunAt))
		assert.Equal(t, before.FailureCount, after.FailureCount)
	})
}

func TestCompleteOneShot(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("success completes the job", func(t *testing.T) {
		job := testReminder("job_once_ok", "local", now.Add(-time.Minute))
		require.NoError(t, store.CreateJob(ctx, job))

		claimed, err := store.ClaimDue(ctx, now, now.Add(2*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		ok, err := store.CompleteOneShot(ctx, job.ID, *claimed[0].ClaimedUntil, now, 0, "")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
		assert.Nil(t, got.NextRunAt)
		assert.Nil(t, got.ClaimedUntil)
		assert.Zero(t, got.FailureCount)
		assert.Empty(t, got.LastError)
	})

	t.Run("exhausted retries complete with the failure on record", func(t *testing.T) {
		job := testReminder("job_once_fail", "local", now.Add(-time.Minute))
		require.NoError(t, store.CreateJob(ctx, job))

		claimed, err := store.ClaimDue(ctx, now, now.Add(2*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		ok, err := store.CompleteOneShot(ctx, job.ID, *claimed[0].ClaimedUntil, now, 3, "webhook refused")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
		assert.Equal(t, 3, got.FailureCount)
		assert.Equal(t, "webhook refused", got.LastError)
		assert.Nil(t, got.NextRunAt)
	})
}

func TestUpdateStatus(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now()

	job := testReminder("job_status", "local", now.Add(time.Hour))
	require.NoError(t, store.CreateJob(ctx, job))

	t.Run("pause and resume", func(t *testing.T) {
		require.NoError(t, store.UpdateStatus(ctx, "local", job.ID, StatusPaused))
		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaused, got.Status)
		// Pausing does not forget the schedule.
		assert.NotNil(t, got.NextRunAt)

		require.NoError(t, store.UpdateStatus(ctx, "local", job.ID, StatusActive))
		got, err = store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, got.Status)
	})

	t.Run("same-status request is a no-op", func(t *testing.T) {
		require.NoError(t, store.UpdateStatus(ctx, "local", job.ID, StatusActive))
	})

	t.Run("cancel clears the due instant", func(t *testing.T) {
		require.NoError(t, store.UpdateStatus(ctx, "local", job.ID, StatusCancelled))
		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
		assert.Nil(t, got.NextRunAt)
		assert.Nil(t, got.ClaimedUntil)
	})

	t.Run("terminal jobs admit no transitions", func(t *testing.T) {
		for _, target := range []string{StatusActive, StatusPaused, StatusCancelled} {
			err := store.UpdateStatus(ctx, "local", job.ID, target)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTransition), "target %s", target)
		}
	})

	t.Run("completed is not requestable", func(t *testing.T) {
		other := testReminder("job_status2", "local", now.Add(time.Hour))
		require.NoError(t, store.CreateJob(ctx, other))
		err := store.UpdateStatus(ctx, "local", other.ID, StatusCompleted)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("missing job", func(t *testing.T) {
		err := store.UpdateStatus(ctx, "local", "job_ghost", StatusPaused)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("other owner cannot touch the job", func(t *testing.T) {
		other := testReminder("job_status3", "local", now.Add(time.Hour))
		require.NoError(t, store.CreateJob(ctx, other))
		err := store.UpdateStatus(ctx, "mallory", other.ID, StatusCancelled)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestUpdateSchedule(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("rewrites the schedule", func(t *testing.T) {
		job := testReminder("job_resched", "local", now.Add(time.Hour))
		require.NoError(t, store.CreateJob(ctx, job))

		next := now.Add(9 * time.Hour)
		err := store.UpdateSchedule(ctx, "local", job.ID, ScheduleChange{
			ScheduleType:   ScheduleCron,
			CronExpression: "0 9 * * *",
			Timezone:       "Europe/Amsterdam",
			NextRunAt:      next,
		})
		require.NoError(t, err)

		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, ScheduleCron, got.ScheduleType)
		assert.Equal(t, "0 9 * * *", got.CronExpression)
		assert.Equal(t, "Europe/Amsterdam", got.Timezone)
		assert.Nil(t, got.RunAt)
		require.NotNil(t, got.NextRunAt)
		assert.True(t, got.NextRunAt.Equal(next))
	})

	t.Run("voids an in-flight dispatch", func(t *testing.T) {
		job := testReminder("job_resched_race", "local", now.Add(-time.Minute))
		require.NoError(t, store.CreateJob(ctx, job))

		claimed, err := store.ClaimDue(ctx, now, now.Add(2*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		lease := *claimed[0].ClaimedUntil

		next := now.Add(6 * time.Hour)
		err = store.UpdateSchedule(ctx, "local", job.ID, ScheduleChange{
			ScheduleType: ScheduleOnce,
			RunAt:        util.Ptr(next),
			NextRunAt:    next,
		})
		require.NoError(t, err)

		// The dispatch that held the old lease can no longer finalize.
		ok, err := store.CompleteOneShot(ctx, job.ID, lease, now, 0, "")
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, got.Status)
		assert.True(t, got.NextRunAt.Equal(next))
	})

	t.Run("terminal jobs cannot be rescheduled", func(t *testing.T) {
		job := testReminder("job_resched_done", "local", now.Add(time.Hour))
		require.NoError(t, store.CreateJob(ctx, job))
		require.NoError(t, store.UpdateStatus(ctx, "local", job.ID, StatusCancelled))

		err := store.UpdateSchedule(ctx, "local", job.ID, ScheduleChange{
			ScheduleType: ScheduleOnce,
			RunAt:        util.Ptr(now.Add(time.Hour)),
			NextRunAt:    now.Add(time.Hour),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})
}

func TestNextScheduled(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("empty store", func(t *testing.T) {
		job, err := store.NextScheduled(ctx)
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("soonest active wins", func(t *testing.T) {
		require.NoError(t, store.CreateJob(ctx, testReminder("job_later", "local", now.Add(2*time.Hour))))
		require.NoError(t, store.CreateJob(ctx, testReminder("job_soon", "local", now.Add(30*time.Minute))))
		paused := testReminder("job_soonest_paused", "local", now.Add(1*time.Minute))
		require.NoError(t, store.CreateJob(ctx, paused))
		require.NoError(t, store.UpdateStatus(ctx, "local", paused.ID, StatusPaused))

		job, err := store.NextScheduled(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, "job_soon", job.ID)
	})
}

func TestCountByStatus(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.CreateJob(ctx, testReminder("job_c1", "local", now.Add(time.Hour))))
	require.NoError(t, store.CreateJob(ctx, testReminder("job_c2", "local", now.Add(time.Hour))))
	require.NoError(t, store.CreateJob(ctx, testReminder("job_c3", "local", now.Add(time.Hour))))
	require.NoError(t, store.UpdateStatus(ctx, "local", "job_c2", StatusPaused))
	require.NoError(t, store.UpdateStatus(ctx, "local", "job_c3", StatusCancelled))

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[StatusActive])
	assert.Equal(t, 1, counts[StatusPaused])
	assert.Equal(t, 1, counts[StatusCancelled])
}

func TestListByTask(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now()

	followUp := &Job{
		ID:            "job_fu1",
		OwnerID:       "local",
		Kind:          KindFollowUp,
		ScheduleType:  ScheduleOnce,
		RunAt:         util.Ptr(now.Add(time.Hour).UTC()),
		NextRunAt:     util.Ptr(now.Add(time.Hour).UTC()),
		ActionType:    ActionAgentTask,
		ActionPayload: json.RawMessage(`{"instruction":"check on the deploy","task_id":"task_42"}`),
		TaskID:        "task_42",
	}
	require.NoError(t, store.CreateJob(ctx, followUp))
	require.NoError(t, store.CreateJob(ctx, testReminder("job_fu_other", "local", now.Add(time.Hour))))

	got, err := store.ListByTask(ctx, "local", "task_42")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "job_fu1", got[0].ID)

	got, err = store.ListByTask(ctx, "someone-else", "task_42")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCancelWithReason(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	job := testRecurring("job_sick", "local", now.Add(-time.Minute))
	require.NoError(t, store.CreateJob(ctx, job))

	claimed, err := store.ClaimDue(ctx, now, now.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	lease := *claimed[0].ClaimedUntil

	ok, err := store.CancelWithReason(ctx, "job_sick", lease, "schedule has no future occurrence")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetJob(ctx, "local", "job_sick")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Nil(t, got.NextRunAt)
	assert.Nil(t, got.ClaimedUntil)
	assert.Equal(t, "schedule has no future occurrence", got.LastError)

	// A stale lease writes nothing.
	ok, err = store.CancelWithReason(ctx, "job_sick", lease.Add(time.Minute), "again")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateDetails(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now()

	job := testReminder("job_d1", "local", now.Add(time.Hour))
	require.NoError(t, store.CreateJob(ctx, job))

	require.NoError(t, store.UpdateDetails(ctx, "local", "job_d1", "morning water", "before coffee"))

	got, err := store.GetJob(ctx, "local", "job_d1")
	require.NoError(t, err)
	assert.Equal(t, "morning water", got.Title)
	assert.Equal(t, "before coffee", got.Description)

	// Terminal jobs are immutable.
	require.NoError(t, store.UpdateStatus(ctx, "local", "job_d1", StatusCancelled))
	err = store.UpdateDetails(ctx, "local", "job_d1", "x", "y")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	// Unknown job surfaces as a miss.
	err = store.UpdateDetails(ctx, "local", "job_missing", "x", "y")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAdvanceSkipped(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	job := testRecurring("job_skip", "local", now.Add(-48*time.Hour))
	require.NoError(t, store.CreateJob(ctx, job))

	claimed, err := store.ClaimDue(ctx, now, now.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	lease := *claimed[0].ClaimedUntil

	next := now.Add(time.Hour).Truncate(time.Second)
	ok, err := store.AdvanceSkipped(ctx, "job_skip", lease, next)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetJob(ctx, "local", "job_skip")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	require.NotNil(t, got.NextRunAt)
	assert.Equal(t, next, got.NextRunAt.UTC())
	// The skipped occurrence never ran, so the run bookkeeping is untouched.
	assert.Nil(t, got.LastRunAt)
	assert.Equal(t, 0, got.FailureCount)
	assert.Nil(t, got.ClaimedUntil)
}

func TestResumeJob(t *testing.T) {
	db := createTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("one-shot keeps its preserved run_at", func(t *testing.T) {
		runAt := now.Add(2 * time.Hour)
		job := testReminder("job_resume1", "local", runAt)
		require.NoError(t, store.CreateJob(ctx, job))
		require.NoError(t, store.UpdateStatus(ctx, "local", job.ID, StatusPaused))

		require.NoError(t, store.ResumeJob(ctx, "local", job.ID, nil))

		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, got.Status)
		require.NotNil(t, got.NextRunAt)
		assert.True(t, got.NextRunAt.Equal(runAt))
	})

	t.Run("recurring takes the recomputed occurrence", func(t *testing.T) {
		job := testRecurring("job_resume2", "local", now.Add(time.Hour))
		require.NoError(t, store.CreateJob(ctx, job))
		require.NoError(t, store.UpdateStatus(ctx, "local", job.ID, StatusPaused))

		recomputed := now.Add(26 * time.Hour)
		require.NoError(t, store.ResumeJob(ctx, "local", job.ID, &recomputed))

		got, err := store.GetJob(ctx, "local", job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, got.Status)
		require.NotNil(t, got.NextRunAt)
		assert.True(t, got.NextRunAt.Equal(recomputed))
	})

	t.Run("resuming an active job is a no-op", func(t *testing.T) {
		job := testReminder("job_resume3", "local", now.Add(time.Hour))
		require.NoError(t, store.CreateJob(ctx, job))

		require.NoError(t, store.ResumeJob(ctx, "local", job.ID, nil))
	})

	t.Run("terminal jobs cannot resume", func(t *testing.T) {
		job := testReminder("job_resume4", "local", now.Add(time.Hour))
		require.NoError(t, store.CreateJob(ctx, job))
		require.NoError(t, store.UpdateStatus(ctx, "local", job.ID, StatusCancelled))

		err := store.ResumeJob(ctx, "local", job.ID, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("missing job", func(t *testing.T) {
		err := store.ResumeJob(ctx, "local", "job_ghost", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}
