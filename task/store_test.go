package task

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldai/herald/errors"
	heraldtest "github.com/heraldai/herald/internal/testing"
)

func TestCreateAndGetTask(t *testing.T) {
	db := heraldtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	task := &Task{
		ID:        "task_1",
		OwnerID:   "local",
		ProjectID: "proj_herald",
		Title:     "ship the release notes",
		Body:      "cover the scheduler changes",
	}
	require.NoError(t, store.CreateTask(ctx, task))

	got, err := store.GetTask(ctx, "local", "task_1")
	require.NoError(t, err)
	assert.Equal(t, "ship the release notes", got.Title)
	assert.Equal(t, "proj_herald", got.ProjectID)
	assert.Equal(t, StatusOpen, got.Status)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateTask_Validation(t *testing.T) {
	db := heraldtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	err := store.CreateTask(ctx, &Task{ID: "task_x", OwnerID: "local", Title: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is required")

	err = store.CreateTask(ctx, &Task{ID: "task_x", OwnerID: "local", Title: "t", Status: "someday"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task status")
}

func TestGetTask_OwnerScoped(t *testing.T) {
	db := heraldtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.CreateTask(ctx, &Task{ID: "task_mine", OwnerID: "alice", Title: "water plants"}))

	_, err := store.GetTask(ctx, "bob", "task_mine")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}

func TestListTasks(t *testing.T) {
	db := heraldtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, title := range []string{"first", "second", "third"} {
		task := &Task{
			ID:        "task_list_" + title,
			OwnerID:   "local",
			Title:     title,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.CreateTask(ctx, task))
	}
	require.NoError(t, store.UpdateTaskStatus(ctx, "local", "task_list_second", StatusDone))

	got, err := store.ListTasks(ctx, "local", "", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "task_list_third", got[0].ID)

	done, err := store.ListTasks(ctx, "local", StatusDone, 0)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "task_list_second", done[0].ID)
}

func TestUpdateTaskStatus(t *testing.T) {
	db := heraldtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.CreateTask(ctx, &Task{ID: "task_st", OwnerID: "local", Title: "t"}))
	require.NoError(t, store.UpdateTaskStatus(ctx, "local", "task_st", StatusInProgress))

	got, err := store.GetTask(ctx, "local", "task_st")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)

	err = store.UpdateTaskStatus(ctx, "local", "task_ghost", StatusDone)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}

func TestComments(t *testing.T) {
	db := heraldtest.CreateTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.CreateTask(ctx, &Task{ID: "task_thread", OwnerID: "local", Title: "deploy"}))

	t.Run("append and list in order", func(t *testing.T) {
		base := time.Now().UTC()
		first := &Comment{ID: "cmt_1", TaskID: "task_thread", Author: "local", Body: "started", CreatedAt: base}
		second := &Comment{ID: "cmt_2", TaskID: "task_thread", Body: "follow-up scheduled for tomorrow", CreatedAt: base.Add(time.Second)}
		require.NoError(t, store.AppendComment(ctx, "local", first))
		require.NoError(t, store.AppendComment(ctx, "local", second))

		got, err := store.ListComments(ctx, "local", "task_thread")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "cmt_1", got[0].ID)
		assert.Equal(t, "local", got[0].Author)
		// Omitted author defaults to the system identity.
		assert.Equal(t, SystemAuthor, got[1].Author)
	})

	t.Run("foreign task rejects the comment before writing", func(t *testing.T) {
		err := store.AppendComment(ctx, "mallory", &Comment{ID: "cmt_evil", TaskID: "task_thread", Body: "hi"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTaskNotFound))

		got, err := store.ListComments(ctx, "local", "task_thread")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("missing task", func(t *testing.T) {
		err := store.AppendComment(ctx, "local", &Comment{ID: "cmt_3", TaskID: "task_ghost", Body: "hi"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTaskNotFound))
	})
}
