package task

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/heraldai/herald/errors"
)

// ErrTaskNotFound is returned for lookups that miss within the owner's
// scope, including follow-up verification against a foreign task ID.
var ErrTaskNotFound = errors.New("task not found")

// Store handles persistence of tasks and their comments.
type Store struct {
	db *sql.DB
}

// NewStore creates a new task store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateTask validates and inserts a new task. Status defaults to open.
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		return errors.New("task ID is required")
	}
	if t.OwnerID == "" {
		return errors.New("task owner is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("task title is required")
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if !ValidStatus(t.Status) {
		return errors.Newf("unknown task status %q", t.Status)
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner_id, project_id, title, body, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OwnerID, nullString(t.ProjectID), t.Title, t.Body, t.Status,
		fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return errors.Wrapf(err, "failed to create task %s", t.ID)
	}
	return nil
}

// GetTask retrieves a task by ID within the owner's scope.
func (s *Store) GetTask(ctx context.Context, ownerID, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, project_id, title, body, status, created_at, updated_at
		FROM tasks
		WHERE id = ? AND owner_id = ?
	`, id, ownerID)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrTaskNotFound, "task %s", id)
		}
		return nil, errors.Wrapf(err, "failed to get task %s", id)
	}
	return t, nil
}

// ListTasks returns the owner's tasks, newest first, optionally
// filtered by status.
func (s *Store) ListTasks(ctx context.Context, ownerID, statusFilter string, limit int) ([]*Task, error) {
	query := `
		SELECT id, owner_id, project_id, title, body, status, created_at, updated_at
		FROM tasks
		WHERE owner_id = ?`
	args := []interface{}{ownerID}

	if statusFilter != "" {
		query += ` AND status = ?`
		args = append(args, statusFilter)
	}

	if limit <= 0 {
		limit = 200
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus moves a task to a new status.
func (s *Store) UpdateTaskStatus(ctx context.Context, ownerID, id, status string) error {
	if !ValidStatus(status) {
		return errors.Newf("unknown task status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND owner_id = ?
	`, status, fmtTime(time.Now()), id, ownerID)
	if err != nil {
		return errors.Wrapf(err, "failed to update task %s", id)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to check update of task %s", id)
	}
	if n == 0 {
		return errors.Wrapf(ErrTaskNotFound, "task %s", id)
	}
	return nil
}

// AppendComment verifies the task belongs to the owner and adds a
// comment to its thread. Returns ErrTaskNotFound for foreign or
// missing tasks before anything is written.
func (s *Store) AppendComment(ctx context.Context, ownerID string, c *Comment) error {
	if c.ID == "" {
		return errors.New("comment ID is required")
	}
	if strings.TrimSpace(c.Body) == "" {
		return errors.New("comment body is required")
	}
	if c.Author == "" {
		c.Author = SystemAuthor
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	if _, err := s.GetTask(ctx, ownerID, c.TaskID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_comments (id, task_id, author, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.TaskID, c.Author, c.Body, fmtTime(c.CreatedAt))
	if err != nil {
		return errors.Wrapf(err, "failed to comment on task %s", c.TaskID)
	}
	return nil
}

// ListComments returns a task's thread oldest first, verifying the
// task belongs to the owner.
func (s *Store) ListComments(ctx context.Context, ownerID, taskID string) ([]*Comment, error) {
	if _, err := s.GetTask(ctx, ownerID, taskID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, author, body, created_at
		FROM task_comments
		WHERE task_id = ?
		ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list comments for task %s", taskID)
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		var c Comment
		var createdAt string
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Author, &c.Body, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan comment")
		}
		c.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse created_at for comment %s", c.ID)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

func scanTask(sc interface{ Scan(...interface{}) error }) (*Task, error) {
	var t Task
	var projectID sql.NullString
	var createdAt, updatedAt string

	err := sc.Scan(&t.ID, &t.OwnerID, &projectID, &t.Title, &t.Body, &t.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.ProjectID = projectID.String

	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse created_at for task %s", t.ID)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for task %s", t.ID)
	}
	return &t, nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
