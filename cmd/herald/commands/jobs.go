package commands

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/heraldai/herald/chime"
	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/display"
	"github.com/heraldai/herald/logger"
	"github.com/heraldai/herald/sym"
)

// JobsCmd manages scheduled jobs from the command line
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: sym.Chime + " Manage scheduled jobs",
	Long: sym.Chime + ` Manage scheduled jobs.

Operates directly on the Herald database; the server does not need to
be running. A dispatcher that is running picks up status changes on
its next poll.

Examples:
  herald jobs ls                        # List jobs for the configured owner
  herald jobs ls --status active        # Only active jobs
  herald jobs ls -o json                # Machine-readable output
  herald jobs show job_abc123           # Job detail with recent runs
  herald jobs pause job_abc123          # Suspend dispatch
  herald jobs resume job_abc123         # Reactivate with a fresh due time
  herald jobs cancel job_abc123         # Cancel permanently`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// JobsLsCmd lists scheduled jobs
var JobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsLs(cmd)
	},
}

// JobsShowCmd displays one job with its recent runs
var JobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show job detail and recent runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsShow(cmd, args[0])
	},
}

// JobsCancelCmd cancels a job
var JobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsCancel(cmd, args[0])
	},
}

// JobsPauseCmd pauses an active job
var JobsPauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Pause an active job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsPause(cmd, args[0])
	},
}

// JobsResumeCmd resumes a paused job
var JobsResumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Resume a paused job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsResume(cmd, args[0])
	},
}

var (
	jobsStatusFilter string
	jobsKindFilter   string
	jobsLimit        int
	jobsRunLimit     int
)

func init() {
	JobsCmd.PersistentFlags().String("owner", "", "Owner ID (defaults to configured owner)")
	JobsCmd.PersistentFlags().StringP("output", "o", "text", "Output format: text, json, yaml")

	JobsLsCmd.Flags().StringVar(&jobsStatusFilter, "status", "", "Filter by status (active, paused, completed, cancelled)")
	JobsLsCmd.Flags().StringVar(&jobsKindFilter, "kind", "", "Filter by kind (reminder, one_time, recurring, follow_up)")
	JobsLsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "Maximum jobs to list")

	JobsShowCmd.Flags().IntVar(&jobsRunLimit, "runs", 5, "Recent runs to include")

	JobsCmd.AddCommand(JobsLsCmd)
	JobsCmd.AddCommand(JobsShowCmd)
	JobsCmd.AddCommand(JobsCancelCmd)
	JobsCmd.AddCommand(JobsPauseCmd)
	JobsCmd.AddCommand(JobsResumeCmd)
}

// openService opens the database and builds the authoring service for
// CLI operations. No event sink: there is no stream to feed here.
func openService() (*chime.Service, *sql.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	database, err := openDatabase("")
	if err != nil {
		return nil, nil, nil, err
	}

	st := newStores(database)
	svc := chime.NewService(st.jobs, st.runs, st.tasks, nil, logger.Logger)
	return svc, database, cfg, nil
}

// cmdOwner resolves the acting owner: --owner flag, else config default.
func cmdOwner(cmd *cobra.Command, cfg *config.Config) string {
	if owner, _ := cmd.Flags().GetString("owner"); owner != "" {
		return owner
	}
	return cfg.GetOwnerID()
}

func runJobsLs(cmd *cobra.Command) error {
	svc, database, cfg, err := openService()
	if err != nil {
		return err
	}
	defer database.Close()

	owner := cmdOwner(cmd, cfg)
	jobs, err := svc.List(cmd.Context(), owner, schedule.ListFilter{
		Status: jobsStatusFilter,
		Kind:   jobsKindFilter,
		Limit:  jobsLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	format := display.OutputFormat(cmd)
	if display.Structured(format) {
		return display.Render(format, jobs)
	}

	if len(jobs) == 0 {
		fmt.Printf("%s No jobs found\n", sym.Chime)
		return nil
	}

	// Print table header
	fmt.Printf("%-16s %-10s %-10s %-10s %-17s %s\n", "JOB ID", "STATUS", "KIND", "ACTION", "NEXT RUN", "TITLE")
	fmt.Printf("%-16s %-10s %-10s %-10s %-17s %s\n", "------", "------", "----", "------", "--------", "-----")

	// Print jobs
	for _, job := range jobs {
		fmt.Printf("%-16s %-10s %-10s %-10s %-17s %s\n",
			truncate(job.ID, 16),
			job.Status,
			job.Kind,
			job.ActionType,
			formatDueTime(job.NextRunAt),
			truncate(job.Title, 40))
	}

	fmt.Printf("\nTotal: %d job(s)\n", len(jobs))
	return nil
}

func runJobsShow(cmd *cobra.Command, jobID string) error {
	svc, database, cfg, err := openService()
	if err != nil {
		return err
	}
	defer database.Close()

	owner := cmdOwner(cmd, cfg)
	job, err := svc.Get(cmd.Context(), owner, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}

	runs, total, err := svc.Runs(cmd.Context(), owner, jobID, jobsRunLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	format := display.OutputFormat(cmd)
	if display.Structured(format) {
		return display.Render(format, map[string]interface{}{
			"job":        job,
			"runs":       runs,
			"total_runs": total,
		})
	}

	// Print job details
	fmt.Printf("%s Job ID: %s\n", sym.Chime, job.ID)
	if job.Title != "" {
		fmt.Printf("  Title: %s\n", job.Title)
	}
	if job.Description != "" {
		fmt.Printf("  Description: %s\n", job.Description)
	}
	fmt.Printf("  Kind: %s\n", job.Kind)
	fmt.Printf("  Action: %s\n", job.ActionType)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("\n")

	// Schedule
	fmt.Printf("Schedule: %s\n", scheduleSummary(job))
	fmt.Printf("Next run: %s\n", formatDueTime(job.NextRunAt))
	if job.LastRunAt != nil {
		fmt.Printf("Last run: %s\n", formatDueTime(job.LastRunAt))
	}
	if job.FailureCount > 0 {
		fmt.Printf("Failures: %d\n", job.FailureCount)
	}
	if job.LastError != "" {
		fmt.Printf("Last error: %s\n", job.LastError)
	}
	fmt.Printf("\n")

	// Links
	if job.TaskID != "" {
		fmt.Printf("Task: %s\n", job.TaskID)
	}
	if job.ProjectID != "" {
		fmt.Printf("Project: %s\n", job.ProjectID)
	}
	if job.ConversationID != "" {
		fmt.Printf("Conversation: %s\n", job.ConversationID)
	}

	// Timestamps
	fmt.Printf("Created: %s\n", job.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated: %s\n", job.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	// Recent runs
	if len(runs) > 0 {
		fmt.Printf("\nRecent runs (%d of %d):\n", len(runs), total)
		for _, run := range runs {
			line := fmt.Sprintf("  %-14s %-10s attempts=%d scheduled_for=%s",
				truncate(run.ID, 14), run.Status, run.Attempts, run.ScheduledFor)
			if run.ErrorMessage != nil && *run.ErrorMessage != "" {
				line += fmt.Sprintf(" error=%q", truncate(*run.ErrorMessage, 60))
			}
			fmt.Println(line)
		}
	}

	return nil
}

func runJobsCancel(cmd *cobra.Command, jobID string) error {
	svc, database, cfg, err := openService()
	if err != nil {
		return err
	}
	defer database.Close()

	job, err := svc.Cancel(cmd.Context(), cmdOwner(cmd, cfg), jobID)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}

	fmt.Printf("%s Job %s cancelled\n", sym.Chime, job.ID)
	return nil
}

func runJobsPause(cmd *cobra.Command, jobID string) error {
	svc, database, cfg, err := openService()
	if err != nil {
		return err
	}
	defer database.Close()

	job, err := svc.Pause(cmd.Context(), cmdOwner(cmd, cfg), jobID)
	if err != nil {
		return fmt.Errorf("failed to pause job: %w", err)
	}

	fmt.Printf("%s Job %s paused\n", sym.Chime, job.ID)
	return nil
}

func runJobsResume(cmd *cobra.Command, jobID string) error {
	svc, database, cfg, err := openService()
	if err != nil {
		return err
	}
	defer database.Close()

	job, err := svc.Resume(cmd.Context(), cmdOwner(cmd, cfg), jobID)
	if err != nil {
		return fmt.Errorf("failed to resume job: %w", err)
	}

	fmt.Printf("%s Job %s resumed (next run %s)\n", sym.Chime, job.ID, formatDueTime(job.NextRunAt))
	return nil
}

// scheduleSummary renders the schedule the way the owner wrote it.
func scheduleSummary(job *schedule.Job) string {
	if job.IsRecurring() {
		if job.Timezone != "" {
			return fmt.Sprintf("cron %q (%s)", job.CronExpression, job.Timezone)
		}
		return fmt.Sprintf("cron %q", job.CronExpression)
	}
	if job.RunAt != nil {
		return "once at " + job.RunAt.Local().Format("2006-01-02 15:04")
	}
	return "once"
}

// formatDueTime renders an optional instant in local time.
func formatDueTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// truncate shortens s to max characters for column display.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
