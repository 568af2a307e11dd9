package db

import (
	"strings"

	"github.com/heraldai/herald/errors"
)

// ErrDatabaseClosed marks operations attempted after Close. The
// dispatcher and the HTTP handlers can both outlive the connection for
// a moment during shutdown, and their failures should read as an
// orderly stop rather than data loss.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err means the connection is gone.
// Wrapped ErrDatabaseClosed matches directly; raw driver errors only
// surface as message text, so those are matched by substring.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "sql: database is closed") ||
		strings.Contains(msg, "database is closed")
}
