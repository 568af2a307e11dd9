package server

import (
	"net/http"
	"strconv"

	"github.com/heraldai/herald/chime"
	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/logger"
)

// jobListResponse is the envelope for job collections.
type jobListResponse struct {
	Jobs  []*schedule.Job `json:"jobs"`
	Count int             `json:"count"`
}

// runListResponse is the envelope for run history pages.
type runListResponse struct {
	Runs   []*schedule.Run `json:"runs"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// HandleJobs handles requests to /api/jobs
// GET: List jobs, optionally filtered by status and kind
func (s *HeraldServer) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	owner := s.ownerFromRequest(r)
	filter := schedule.ListFilter{
		Status: r.URL.Query().Get("status"),
		Kind:   r.URL.Query().Get("kind"),
		Limit:  queryInt(r, "limit", 100),
		Offset: queryInt(r, "offset", 0),
	}

	jobs, err := s.service.List(r.Context(), owner, filter)
	if err != nil {
		s.writeServiceError(w, err, "list jobs")
		return
	}

	writeJSON(w, http.StatusOK, jobListResponse{Jobs: jobs, Count: len(jobs)})
}

// HandleCreateReminder handles POST /api/jobs/reminder
func (s *HeraldServer) HandleCreateReminder(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var params chime.ReminderParams
	if err := readJSON(w, r, &params); err != nil {
		return
	}
	if logger.ShouldOutput(int(s.verbosity.Load()), logger.OutputRequestBody) {
		s.logger.Debugw("Reminder request payload", "params", params)
	}

	owner := s.ownerFromRequest(r)
	job, err := s.service.CreateReminder(r.Context(), owner, params)
	if err != nil {
		s.writeServiceError(w, err, "create reminder")
		return
	}

	logger.AddChimeSymbol(s.logger).Infow("Reminder created via API",
		"job_id", shortID(job.ID),
		"owner_id", owner,
	)
	writeJSON(w, http.StatusCreated, job)
}

// HandleCreateAgentTask handles POST /api/jobs/agent-task
func (s *HeraldServer) HandleCreateAgentTask(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var params chime.AgentTaskParams
	if err := readJSON(w, r, &params); err != nil {
		return
	}
	if logger.ShouldOutput(int(s.verbosity.Load()), logger.OutputRequestBody) {
		s.logger.Debugw("Agent task request payload", "params", params)
	}

	owner := s.ownerFromRequest(r)
	job, err := s.service.CreateAgentTask(r.Context(), owner, params)
	if err != nil {
		s.writeServiceError(w, err, "create agent task")
		return
	}

	logger.AddChimeSymbol(s.logger).Infow("Agent task created via API",
		"job_id", shortID(job.ID),
		"owner_id", owner,
	)
	writeJSON(w, http.StatusCreated, job)
}

// HandleCreateFollowUp handles POST /api/jobs/follow-up
func (s *HeraldServer) HandleCreateFollowUp(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var params chime.FollowUpParams
	if err := readJSON(w, r, &params); err != nil {
		return
	}

	owner := s.ownerFromRequest(r)
	job, err := s.service.CreateFollowUp(r.Context(), owner, params)
	if err != nil {
		s.writeServiceError(w, err, "create follow-up")
		return
	}

	logger.AddChimeSymbol(s.logger).Infow("Follow-up created via API",
		"job_id", shortID(job.ID),
		"task_id", job.TaskID,
		"owner_id", owner,
	)
	writeJSON(w, http.StatusCreated, job)
}

// jobPatchRequest mutates one job. Op selects the mutation; the
// schedule and detail fields only apply to the matching op.
type jobPatchRequest struct {
	Op          string              `json:"op"` // pause | resume | schedule | details
	Schedule    *chime.ScheduleSpec `json:"schedule,omitempty"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
}

// HandleJob handles requests to /api/jobs/{id} and /api/jobs/{id}/runs
// GET: Job detail, or run history for the runs sub-resource
// PATCH: pause / resume / schedule / details
// DELETE: Cancel the job (rows are kept, never deleted)
func (s *HeraldServer) HandleJob(w http.ResponseWriter, r *http.Request) {
	pathParts := extractPathParts(r.URL.Path, "/api/jobs/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing job ID")
		return
	}
	jobID := pathParts[0]
	owner := s.ownerFromRequest(r)

	if len(pathParts) > 1 && pathParts[1] == "runs" {
		s.handleJobRuns(w, r, owner, jobID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		job, err := s.service.Get(r.Context(), owner, jobID)
		if err != nil {
			s.writeServiceError(w, err, "get job")
			return
		}
		writeJSON(w, http.StatusOK, job)

	case http.MethodPatch:
		s.handleJobPatch(w, r, owner, jobID)

	case http.MethodDelete:
		job, err := s.service.Cancel(r.Context(), owner, jobID)
		if err != nil {
			s.writeServiceError(w, err, "cancel job")
			return
		}
		logger.AddChimeSymbol(s.logger).Infow("Job cancelled via API",
			"job_id", shortID(jobID),
			"owner_id", owner,
		)
		writeJSON(w, http.StatusOK, job)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleJobPatch applies one mutation op to a job.
func (s *HeraldServer) handleJobPatch(w http.ResponseWriter, r *http.Request, owner, jobID string) {
	var req jobPatchRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	var (
		job *schedule.Job
		err error
	)
	switch req.Op {
	case "pause":
		job, err = s.service.Pause(r.Context(), owner, jobID)
	case "resume":
		job, err = s.service.Resume(r.Context(), owner, jobID)
	case "schedule":
		if req.Schedule == nil {
			writeError(w, http.StatusBadRequest, "schedule op requires a schedule object")
			return
		}
		job, err = s.service.UpdateSchedule(r.Context(), owner, jobID, *req.Schedule)
	case "details":
		job, err = s.service.UpdateDetails(r.Context(), owner, jobID, req.Title, req.Description)
	default:
		writeError(w, http.StatusBadRequest, "op must be one of pause, resume, schedule, details")
		return
	}
	if err != nil {
		s.writeServiceError(w, err, "patch job "+req.Op)
		return
	}

	logger.AddChimeSymbol(s.logger).Infow("Job updated via API",
		"job_id", shortID(jobID),
		"op", req.Op,
		"owner_id", owner,
	)
	writeJSON(w, http.StatusOK, job)
}

// handleJobRuns serves the run history page for one job.
func (s *HeraldServer) handleJobRuns(w http.ResponseWriter, r *http.Request, owner, jobID string) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	runs, total, err := s.service.Runs(r.Context(), owner, jobID, limit, offset)
	if err != nil {
		s.writeServiceError(w, err, "list runs")
		return
	}

	writeJSON(w, http.StatusOK, runListResponse{
		Runs:   runs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// queryInt parses an integer query parameter, falling back on absence
// or garbage.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
