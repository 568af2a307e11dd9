package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/heraldai/herald/errors"
)

// ErrNotificationNotFound is returned when a notification does not
// exist or belongs to another owner.
var ErrNotificationNotFound = errors.New("notification not found")

// Store persists the in-app notification inbox.
type Store struct {
	db *sql.DB
}

// NewStore creates a notification store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const notificationColumns = `id, owner_id, job_id, title, body, channel, read_at, created_at`

// Insert writes a notification row. CreatedAt defaults to the current
// time and Channel to inapp when unset.
func (s *Store) Insert(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		return errors.New("notification ID is required")
	}
	if n.OwnerID == "" {
		return errors.New("notification owner is required")
	}
	if n.Title == "" {
		return errors.New("notification title is required")
	}
	if n.Channel == "" {
		n.Channel = "inapp"
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	var jobID interface{}
	if n.JobID != "" {
		jobID = n.JobID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?)
	`, n.ID, n.OwnerID, jobID, n.Title, n.Body, n.Channel, fmtTime(n.CreatedAt))
	if err != nil {
		return errors.Wrap(err, "failed to insert notification")
	}
	return nil
}

// List returns the owner's notifications, newest first. With
// unreadOnly set, read entries are skipped.
func (s *Store) List(ctx context.Context, ownerID string, unreadOnly bool, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE owner_id = ?`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread returns how many of the owner's notifications are
// unread.
func (s *Store) CountUnread(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE owner_id = ? AND read_at IS NULL
	`, ownerID).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count unread notifications")
	}
	return count, nil
}

// MarkRead stamps a single notification as read. Marking an already
// read notification is a no-op.
func (s *Store) MarkRead(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = ? WHERE id = ? AND owner_id = ? AND read_at IS NULL
	`, fmtTime(time.Now()), id, ownerID)
	if err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check mark-read result")
	}
	if affected == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM notifications WHERE id = ? AND owner_id = ?
		`, id, ownerID).Scan(&exists)
		if err != nil {
			return errors.Wrap(err, "failed to check notification existence")
		}
		if exists == 0 {
			return errors.Wrapf(ErrNotificationNotFound, "notification %s", id)
		}
	}
	return nil
}

// MarkAllRead stamps every unread notification of the owner as read
// and returns how many were updated.
func (s *Store) MarkAllRead(ctx context.Context, ownerID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = ? WHERE owner_id = ? AND read_at IS NULL
	`, fmtTime(time.Now()), ownerID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to mark notifications read")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to check mark-all-read result")
	}
	return int(affected), nil
}

func scanNotification(rows *sql.Rows) (*Notification, error) {
	var (
		n         Notification
		jobID     sql.NullString
		readAt    sql.NullString
		createdAt string
	)
	if err := rows.Scan(&n.ID, &n.OwnerID, &jobID, &n.Title, &n.Body, &n.Channel, &readAt, &createdAt); err != nil {
		return nil, errors.Wrap(err, "failed to scan notification")
	}
	if jobID.Valid {
		n.JobID = jobID.String
	}
	if readAt.Valid {
		t, err := time.Parse(time.RFC3339, readAt.String)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid read_at on notification %s", n.ID)
		}
		n.ReadAt = &t
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid created_at on notification %s", n.ID)
	}
	n.CreatedAt = t
	return &n, nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
