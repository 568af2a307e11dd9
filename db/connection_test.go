package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/heraldai/herald/errors"
)

func openTempDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// The DSN carries the pragmas so every pooled connection gets them, not
// just the one that ran an initial setup statement.
func TestOpenAppliesPragmas(t *testing.T) {
	db := openTempDB(t)

	pragmas := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": strconv.Itoa(SQLiteBusyTimeoutMS),
	}
	for pragma, want := range pragmas {
		var got string
		require.NoError(t, db.QueryRow("PRAGMA "+pragma).Scan(&got))
		assert.Equal(t, want, got, pragma)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	db, err := Open(path, nil)
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

// sql.Open is lazy; Open must surface a bad path immediately rather
// than on the first query.
func TestOpenFailsEagerly(t *testing.T) {
	db, err := Open("/does/not/exist/herald.db", nil)
	require.Error(t, err)
	assert.Nil(t, db)
	assert.NotNil(t, errors.GetStack(err), "failure should carry a stack")
}

func TestOpenReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	db, err := Open(path, nil)
	require.NoError(t, err)
	db.Close()

	// WAL needs to create sidecar files next to the database
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	_, err = Open(path, nil)
	require.Error(t, err)
}

func TestOpenWithLogger(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	require.NotNil(t, db)
	db.Close()
}

func TestClosedConnectionDetection(t *testing.T) {
	db := openTempDB(t)
	require.NoError(t, db.Close())

	_, err := db.Exec("SELECT 1")
	require.Error(t, err)
	assert.True(t, IsDatabaseClosed(err), "driver close error should classify: %v", err)

	assert.False(t, IsDatabaseClosed(nil))
	assert.True(t, IsDatabaseClosed(ErrDatabaseClosed))
	assert.True(t, IsDatabaseClosed(errors.Wrap(ErrDatabaseClosed, "list jobs")))
	assert.False(t, IsDatabaseClosed(errors.New("no such table: herald_jobs")))
}
