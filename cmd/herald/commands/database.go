package commands

import (
	"database/sql"

	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/db"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/logger"
)

// openDatabase opens the SQLite database and brings its schema up to
// date. An empty dbPath falls back to the configured database.path,
// then to herald.db in the working directory.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		configured, err := config.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve database path")
		}
		dbPath = configured
	}
	if dbPath == "" {
		dbPath = "herald.db"
	}

	dbLog := logger.AddDBSymbol(logger.Logger)
	database, err := db.Open(dbPath, dbLog)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}

	if err := db.Migrate(database, dbLog); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", dbPath)
	}
	return database, nil
}
