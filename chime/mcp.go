package chime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/version"
)

// MCPServer exposes the job engine to MCP clients over stdio, which is
// how the assistant itself authors reminders and scheduled tasks. All
// tools operate within a single owner scope fixed at construction.
type MCPServer struct {
	service *Service
	ownerID string
	server  *server.MCPServer
}

// NewMCPServer wraps the service in an MCP tool surface for ownerID.
func NewMCPServer(service *Service, ownerID string) *MCPServer {
	s := &MCPServer{
		service: service,
		ownerID: ownerID,
	}

	s.server = server.NewMCPServer(
		"herald-chime",
		version.Version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// registerTools registers the job authoring and management tools.
func (s *MCPServer) registerTools() {
	createReminderTool := mcp.NewTool("herald_create_reminder",
		mcp.WithDescription("Schedule a reminder that notifies the user. Provide exactly one of run_at or cron_expression."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The reminder text delivered to the user"),
		),
		mcp.WithString("run_at",
			mcp.Description("One-shot fire time, RFC3339 (e.g. 2026-09-01T15:00:00Z)"),
		),
		mcp.WithString("cron_expression",
			mcp.Description("Recurring schedule in cron syntax (e.g. '0 9 * * MON-FRI')"),
		),
		mcp.WithString("timezone",
			mcp.Description("Timezone for cron schedules; accepts IANA names or loose input like 'PST' or 'Berlin'. Defaults to the host timezone."),
		),
		mcp.WithString("title",
			mcp.Description("Short title shown in lists and notifications"),
		),
		mcp.WithString("channel",
			mcp.Description("Delivery channel: inapp, webhook, or command. Defaults to the configured channel."),
		),
	)
	s.server.AddTool(createReminderTool, s.handleCreateReminder)

	createAgentTaskTool := mcp.NewTool("herald_create_agent_task",
		mcp.WithDescription("Schedule an instruction for the agent to execute later, once or on a recurring schedule. Provide exactly one of run_at or cron_expression."),
		mcp.WithString("instruction",
			mcp.Required(),
			mcp.Description("What the agent should do when the job fires"),
		),
		mcp.WithString("run_at",
			mcp.Description("One-shot fire time, RFC3339"),
		),
		mcp.WithString("cron_expression",
			mcp.Description("Recurring schedule in cron syntax"),
		),
		mcp.WithString("timezone",
			mcp.Description("Timezone for cron schedules; defaults to the host timezone"),
		),
		mcp.WithString("title",
			mcp.Description("Short title shown in lists"),
		),
	)
	s.server.AddTool(createAgentTaskTool, s.handleCreateAgentTask)

	createFollowUpTool := mcp.NewTool("herald_create_follow_up",
		mcp.WithDescription("Schedule a follow-up check on an existing task. The agent revisits the task at run_at."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("The task to follow up on"),
		),
		mcp.WithString("run_at",
			mcp.Required(),
			mcp.Description("When to follow up, RFC3339"),
		),
		mcp.WithString("reason",
			mcp.Description("Why the follow-up matters (e.g. 'waiting on vendor reply')"),
		),
	)
	s.server.AddTool(createFollowUpTool, s.handleCreateFollowUp)

	listJobsTool := mcp.NewTool("herald_list_jobs",
		mcp.WithDescription("List scheduled jobs, newest first"),
		mcp.WithString("status",
			mcp.Description("Filter by status: active, paused, completed, cancelled"),
		),
		mcp.WithString("kind",
			mcp.Description("Filter by kind: reminder, one_time, recurring, follow_up"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of jobs to return (default 200)"),
		),
	)
	s.server.AddTool(listJobsTool, s.handleListJobs)

	getJobTool := mcp.NewTool("herald_get_job",
		mcp.WithDescription("Get one scheduled job with its recent run history"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID"),
		),
	)
	s.server.AddTool(getJobTool, s.handleGetJob)

	cancelJobTool := mcp.NewTool("herald_cancel_job",
		mcp.WithDescription("Cancel a scheduled job. Cancelling an already finished job is a no-op."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID"),
		),
	)
	s.server.AddTool(cancelJobTool, s.handleCancelJob)

	pauseJobTool := mcp.NewTool("herald_pause_job",
		mcp.WithDescription("Pause a scheduled job without losing its schedule"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID"),
		),
	)
	s.server.AddTool(pauseJobTool, s.handlePauseJob)

	resumeJobTool := mcp.NewTool("herald_resume_job",
		mcp.WithDescription("Resume a paused job. Recurring jobs pick up at their next future occurrence; paused occurrences are not replayed."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID"),
		),
	)
	s.server.AddTool(resumeJobTool, s.handleResumeJob)

	updateScheduleTool := mcp.NewTool("herald_update_schedule",
		mcp.WithDescription("Replace a job's schedule. Provide exactly one of run_at or cron_expression; next run is recomputed."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID"),
		),
		mcp.WithString("run_at",
			mcp.Description("New one-shot fire time, RFC3339"),
		),
		mcp.WithString("cron_expression",
			mcp.Description("New recurring schedule in cron syntax"),
		),
		mcp.WithString("timezone",
			mcp.Description("Timezone for the cron schedule"),
		),
	)
	s.server.AddTool(updateScheduleTool, s.handleUpdateSchedule)
}

// handleCreateReminder handles herald_create_reminder tool calls
func (s *MCPServer) handleCreateReminder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	spec, err := scheduleSpecFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job, err := s.service.CreateReminder(ctx, s.ownerID, ReminderParams{
		Title:    request.GetString("title", ""),
		Message:  message,
		Channel:  request.GetString("channel", ""),
		Schedule: spec,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create reminder: %v", err)), nil
	}

	return mcp.NewToolResultText("Reminder created\n" + jobSummary(job)), nil
}

// handleCreateAgentTask handles herald_create_agent_task tool calls
func (s *MCPServer) handleCreateAgentTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instruction, err := request.RequireString("instruction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	spec, err := scheduleSpecFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job, err := s.service.CreateAgentTask(ctx, s.ownerID, AgentTaskParams{
		Title:       request.GetString("title", ""),
		Instruction: instruction,
		Schedule:    spec,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create agent task: %v", err)), nil
	}

	return mcp.NewToolResultText("Agent task scheduled\n" + jobSummary(job)), nil
}

// handleCreateFollowUp handles herald_create_follow_up tool calls
func (s *MCPServer) handleCreateFollowUp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	runAtRaw, err := request.RequireString("run_at")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	runAt, err := time.Parse(time.RFC3339, runAtRaw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run_at must be RFC3339, got %q", runAtRaw)), nil
	}

	job, err := s.service.CreateFollowUp(ctx, s.ownerID, FollowUpParams{
		TaskID: taskID,
		Reason: request.GetString("reason", ""),
		RunAt:  runAt,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create follow-up: %v", err)), nil
	}

	return mcp.NewToolResultText("Follow-up scheduled\n" + jobSummary(job)), nil
}

// handleListJobs handles herald_list_jobs tool calls
func (s *MCPServer) handleListJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := schedule.ListFilter{
		Status: request.GetString("status", ""),
		Kind:   request.GetString("kind", ""),
		Limit:  request.GetInt("limit", 0),
	}

	jobs, err := s.service.List(ctx, s.ownerID, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list jobs: %v", err)), nil
	}

	if len(jobs) == 0 {
		return mcp.NewToolResultText("No jobs found"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d job(s):\n", len(jobs))
	for _, job := range jobs {
		b.WriteString(jobLine(job))
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleGetJob handles herald_get_job tool calls
func (s *MCPServer) handleGetJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job, err := s.service.Get(ctx, s.ownerID, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get job: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString(jobSummary(job))

	runs, total, err := s.service.Runs(ctx, s.ownerID, jobID, 5, 0)
	if err == nil && total > 0 {
		fmt.Fprintf(&b, "Runs (%d total, newest first):\n", total)
		for _, run := range runs {
			b.WriteString("  " + runLine(run) + "\n")
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleCancelJob handles herald_cancel_job tool calls
func (s *MCPServer) handleCancelJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job, err := s.service.Cancel(ctx, s.ownerID, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to cancel job: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Job %s is %s", job.ID, job.Status)), nil
}

// handlePauseJob handles herald_pause_job tool calls
func (s *MCPServer) handlePauseJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job, err := s.service.Pause(ctx, s.ownerID, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to pause job: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Job %s paused", job.ID)), nil
}

// handleResumeJob handles herald_resume_job tool calls
func (s *MCPServer) handleResumeJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job, err := s.service.Resume(ctx, s.ownerID, jobID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resume job: %v", err)), nil
	}

	next := "unscheduled"
	if job.NextRunAt != nil {
		next = job.NextRunAt.UTC().Format(time.RFC3339)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Job %s resumed, next run %s", job.ID, next)), nil
}

// handleUpdateSchedule handles herald_update_schedule tool calls
func (s *MCPServer) handleUpdateSchedule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	spec, err := scheduleSpecFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	job, err := s.service.UpdateSchedule(ctx, s.ownerID, jobID, spec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update schedule: %v", err)), nil
	}
	return mcp.NewToolResultText("Schedule updated\n" + jobSummary(job)), nil
}

// scheduleSpecFromRequest reads the shared run_at/cron_expression/
// timezone parameters. The either-or validation happens in the
// service.
func scheduleSpecFromRequest(request mcp.CallToolRequest) (ScheduleSpec, error) {
	spec := ScheduleSpec{
		CronExpression: request.GetString("cron_expression", ""),
		Timezone:       request.GetString("timezone", ""),
	}
	if raw := request.GetString("run_at", ""); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return spec, fmt.Errorf("run_at must be RFC3339, got %q", raw)
		}
		spec.RunAt = &t
	}
	return spec, nil
}

// jobSummary renders one job as a text block for tool results.
func jobSummary(job *schedule.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID: %s\nKind: %s\nStatus: %s\n", job.ID, job.Kind, job.Status)
	if job.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", job.Title)
	}
	if job.ScheduleType == schedule.ScheduleCron {
		fmt.Fprintf(&b, "Schedule: %s (%s)\n", job.CronExpression, job.Timezone)
	} else if job.RunAt != nil {
		fmt.Fprintf(&b, "Runs at: %s\n", job.RunAt.UTC().Format(time.RFC3339))
	}
	if job.NextRunAt != nil {
		fmt.Fprintf(&b, "Next run: %s\n", job.NextRunAt.UTC().Format(time.RFC3339))
	}
	if job.LastRunAt != nil {
		fmt.Fprintf(&b, "Last run: %s\n", job.LastRunAt.UTC().Format(time.RFC3339))
	}
	if job.FailureCount > 0 {
		fmt.Fprintf(&b, "Failures: %d\n", job.FailureCount)
	}
	if job.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", job.LastError)
	}
	return b.String()
}

// jobLine renders one job as a single list row.
func jobLine(job *schedule.Job) string {
	next := "-"
	if job.NextRunAt != nil {
		next = job.NextRunAt.UTC().Format(time.RFC3339)
	}
	title := job.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s  %-10s %-9s next=%s  %s", job.ID, job.Kind, job.Status, next, title)
}

// runLine renders one run as a single list row.
func runLine(run *schedule.Run) string {
	line := fmt.Sprintf("%s %s (attempt %d)", run.StartedAt, run.Status, run.Attempts)
	if run.ErrorMessage != nil && *run.ErrorMessage != "" {
		line += ": " + *run.ErrorMessage
	}
	return line
}

// Serve starts the MCP server using stdio transport.
func (s *MCPServer) Serve() error {
	return server.ServeStdio(s.server)
}
