package commands

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/db"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage Herald database",
	Long: sym.DB + ` db — Manage Herald database operations

Manage database operations including migrations and statistics.

Examples:
  herald db migrate               # Apply pending schema migrations
  herald db stats                 # Show job, run, and inbox statistics`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long:  "Open the database and apply any schema migrations that have not run yet",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long:  "Display scheduled job counts by status, run outcomes, notification inbox totals, and task counts",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	// openDatabase migrates as part of opening
	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	versions, err := db.AppliedVersions(database)
	if err != nil {
		return errors.Wrap(err, "failed to read applied migrations")
	}

	fmt.Printf("%s Schema up to date (%d migrations applied)\n", sym.DB, len(versions))
	for _, v := range versions {
		fmt.Printf("  %s\n", v)
	}
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Open and migrate database
	database, err := openDatabase("")
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	dbPath := cfg.GetDatabasePath()

	// Print database info
	fmt.Printf("%s Database Statistics\n", sym.DB)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:      %s\n", dbPath)
	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("Database Size:      %.1f KiB\n", float64(info.Size())/1024)
	}
	fmt.Println()

	// Scheduled jobs by status
	jobCounts, total, err := countsByColumn(database, `SELECT status, COUNT(*) FROM scheduled_jobs GROUP BY status`)
	if err != nil {
		return fmt.Errorf("failed to query job counts: %w", err)
	}
	fmt.Printf("Scheduled Jobs:     %d\n", total)
	for _, c := range jobCounts {
		fmt.Printf("  %-12s %d\n", c.key, c.count)
	}

	// Next due job
	var nextID, nextRunAt sql.NullString
	err = database.QueryRow(`
		SELECT id, next_run_at FROM scheduled_jobs
		WHERE status = 'active' AND next_run_at IS NOT NULL
		ORDER BY next_run_at ASC LIMIT 1
	`).Scan(&nextID, &nextRunAt)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to query next due job: %w", err)
	}
	if nextID.Valid {
		fmt.Printf("  next due:    %s at %s\n", nextID.String, nextRunAt.String)
	}
	fmt.Println()

	// Run outcomes
	runCounts, total, err := countsByColumn(database, `SELECT status, COUNT(*) FROM job_runs GROUP BY status`)
	if err != nil {
		return fmt.Errorf("failed to query run counts: %w", err)
	}
	fmt.Printf("Job Runs:           %d\n", total)
	for _, c := range runCounts {
		fmt.Printf("  %-12s %d\n", c.key, c.count)
	}
	fmt.Println()

	// Notification inbox
	var totalNotifs, unreadNotifs int
	err = database.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN read_at IS NULL THEN 1 ELSE 0 END), 0)
		FROM notifications
	`).Scan(&totalNotifs, &unreadNotifs)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to query notification counts: %w", err)
	}
	fmt.Printf("Notifications:      %d (%d unread)\n", totalNotifs, unreadNotifs)

	// Tasks
	taskCounts, total, err := countsByColumn(database, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return fmt.Errorf("failed to query task counts: %w", err)
	}
	fmt.Printf("Tasks:              %d\n", total)
	for _, c := range taskCounts {
		fmt.Printf("  %-12s %d\n", c.key, c.count)
	}

	return nil
}

type statusCount struct {
	key   string
	count int
}

// countsByColumn runs a "SELECT key, COUNT(*) ... GROUP BY key" query
// and returns per-key counts plus the total.
func countsByColumn(database *sql.DB, query string) ([]statusCount, int, error) {
	rows, err := database.Query(query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var counts []statusCount
	total := 0
	for rows.Next() {
		var c statusCount
		if err := rows.Scan(&c.key, &c.count); err != nil {
			return nil, 0, err
		}
		counts = append(counts, c)
		total += c.count
	}
	return counts, total, rows.Err()
}
