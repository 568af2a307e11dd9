// Package agent starts background agent executions on an external
// runner. Starting is the whole contract: a task counts as dispatched
// the moment the runner accepts it, and its eventual outcome is the
// runner's business, not the scheduler's.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/heraldai/herald/internal/id"
)

// StartTaskRequest carries everything the runner needs to spawn an
// execution.
type StartTaskRequest struct {
	OwnerID        string `json:"owner_id"`
	JobID          string `json:"job_id"`
	Title          string `json:"title,omitempty"`
	Instruction    string `json:"instruction"`
	TaskID         string `json:"task_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// StartTaskResult reports an accepted execution.
type StartTaskResult struct {
	ExecutionID string `json:"execution_id"`
}

// Runner spawns agent executions.
type Runner interface {
	// StartTask asks the runner to begin an execution. A nil error
	// means the execution started; nothing here waits for it to
	// finish.
	StartTask(ctx context.Context, req *StartTaskRequest) (*StartTaskResult, error)
}

// NopRunner accepts every task without running anything. It stands in
// for a real runner in development and tests.
type NopRunner struct {
	logger *zap.SugaredLogger
}

// NewNopRunner creates a runner that only logs.
func NewNopRunner(log *zap.SugaredLogger) *NopRunner {
	return &NopRunner{logger: log}
}

// StartTask logs the request and fabricates an execution ID.
func (r *NopRunner) StartTask(_ context.Context, req *StartTaskRequest) (*StartTaskResult, error) {
	result := &StartTaskResult{ExecutionID: id.NewExecutionID()}
	r.logger.Infow("Nop runner accepted agent task",
		"job_id", req.JobID,
		"execution_id", result.ExecutionID,
		"instruction_chars", len(req.Instruction))
	return result, nil
}
