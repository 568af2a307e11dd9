package server

import (
	"net/http"
	"strings"

	"github.com/heraldai/herald/internal/id"
	"github.com/heraldai/herald/logger"
	"github.com/heraldai/herald/task"
)

// taskListResponse is the envelope for task collections.
type taskListResponse struct {
	Tasks []*task.Task `json:"tasks"`
	Count int          `json:"count"`
}

// createTaskRequest is the POST /api/tasks body.
type createTaskRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

// createCommentRequest is the POST /api/tasks/{id}/comments body.
type createCommentRequest struct {
	Author string `json:"author,omitempty"`
	Body   string `json:"body"`
}

// HandleTasks handles requests to /api/tasks
// GET: List tasks, optionally filtered by status
// POST: Create a task
func (s *HeraldServer) HandleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTasks(w, r)
	case http.MethodPost:
		s.handleCreateTask(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *HeraldServer) handleListTasks(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerFromRequest(r)
	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 100)

	tasks, err := s.taskStore.ListTasks(r.Context(), owner, status, limit)
	if err != nil {
		s.writeServiceError(w, err, "list tasks")
		return
	}

	writeJSON(w, http.StatusOK, taskListResponse{Tasks: tasks, Count: len(tasks)})
}

func (s *HeraldServer) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	owner := s.ownerFromRequest(r)
	t := &task.Task{
		ID:        id.NewTaskID(),
		OwnerID:   owner,
		ProjectID: req.ProjectID,
		Title:     strings.TrimSpace(req.Title),
		Body:      req.Body,
		Status:    task.StatusOpen,
	}
	if err := s.taskStore.CreateTask(r.Context(), t); err != nil {
		s.writeServiceError(w, err, "create task")
		return
	}

	logger.AddTaskSymbol(s.logger).Infow("Task created via API",
		"task_id", shortID(t.ID),
		"owner_id", owner,
	)
	writeJSON(w, http.StatusCreated, t)
}

// HandleTask handles requests to /api/tasks/{id} and
// /api/tasks/{id}/comments
// GET: Task detail, or the comment thread for the comments sub-resource
// POST: Append a comment to the thread
func (s *HeraldServer) HandleTask(w http.ResponseWriter, r *http.Request) {
	pathParts := extractPathParts(r.URL.Path, "/api/tasks/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing task ID")
		return
	}
	taskID := pathParts[0]
	owner := s.ownerFromRequest(r)

	if len(pathParts) > 1 && pathParts[1] == "comments" {
		s.handleTaskComments(w, r, owner, taskID)
		return
	}

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	t, err := s.taskStore.GetTask(r.Context(), owner, taskID)
	if err != nil {
		s.writeServiceError(w, err, "get task")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleTaskComments serves and extends one task's comment thread.
func (s *HeraldServer) handleTaskComments(w http.ResponseWriter, r *http.Request, owner, taskID string) {
	switch r.Method {
	case http.MethodGet:
		comments, err := s.taskStore.ListComments(r.Context(), owner, taskID)
		if err != nil {
			s.writeServiceError(w, err, "list comments")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"comments": comments,
			"count":    len(comments),
		})

	case http.MethodPost:
		var req createCommentRequest
		if err := readJSON(w, r, &req); err != nil {
			return
		}
		if strings.TrimSpace(req.Body) == "" {
			writeError(w, http.StatusBadRequest, "body is required")
			return
		}

		// API comments default to the owner, not the system author
		author := req.Author
		if author == "" {
			author = owner
		}
		comment := &task.Comment{
			ID:     id.NewCommentID(),
			TaskID: taskID,
			Author: author,
			Body:   req.Body,
		}
		if err := s.taskStore.AppendComment(r.Context(), owner, comment); err != nil {
			s.writeServiceError(w, err, "append comment")
			return
		}
		writeJSON(w, http.StatusCreated, comment)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
