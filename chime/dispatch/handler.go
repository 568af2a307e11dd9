package dispatch

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/heraldai/herald/agent"
	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/internal/id"
	"github.com/heraldai/herald/logger"
	"github.com/heraldai/herald/notify"
)

// ActionHandler executes one action type of a claimed job.
type ActionHandler interface {
	// Name is the action type this handler serves.
	Name() string
	// Execute performs the action. The context carries the per-job
	// dispatch timeout and the job's log identity.
	Execute(ctx context.Context, job *schedule.Job) error
}

// HandlerRegistry maps action types to handlers. Registration happens
// once at wiring time; a duplicate registration is a programming
// error and panics.
type HandlerRegistry struct {
	handlers map[string]ActionHandler
}

// NewHandlerRegistry creates an empty handler registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]ActionHandler)}
}

// Register adds a handler for its action type.
func (r *HandlerRegistry) Register(h ActionHandler) {
	if _, exists := r.handlers[h.Name()]; exists {
		panic(fmt.Sprintf("dispatch: handler for action %q registered twice", h.Name()))
	}
	r.handlers[h.Name()] = h
}

// Get returns the handler for an action type.
func (r *HandlerRegistry) Get(name string) (ActionHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// NotifyHandler delivers notify jobs through the sender registry.
// Delivery succeeds when the transport accepts; there is no tracking
// beyond that.
type NotifyHandler struct {
	registry       *notify.Registry
	defaultChannel string
	logger         *zap.SugaredLogger
}

// NewNotifyHandler creates the handler for notify actions.
func NewNotifyHandler(registry *notify.Registry, defaultChannel string, log *zap.SugaredLogger) *NotifyHandler {
	if defaultChannel == "" {
		defaultChannel = "inapp"
	}
	return &NotifyHandler{registry: registry, defaultChannel: defaultChannel, logger: log}
}

// Name returns the action type this handler serves.
func (h *NotifyHandler) Name() string { return schedule.ActionNotify }

// Execute decodes the payload and hands the message to the channel it
// prefers, or the configured default.
func (h *NotifyHandler) Execute(ctx context.Context, job *schedule.Job) error {
	payload, err := schedule.DecodeNotifyPayload(job.ActionPayload)
	if err != nil {
		return errors.Wrapf(err, "notify payload of job %s", job.ID)
	}

	channel := payload.Channel
	if channel == "" {
		channel = h.defaultChannel
	}

	title := job.Title
	if title == "" {
		title = headline(payload.Message)
	}

	return h.registry.Deliver(ctx, channel, &notify.Notification{
		ID:      id.NewNotificationID(),
		OwnerID: job.OwnerID,
		JobID:   job.ID,
		Title:   title,
		Body:    payload.Message,
		Channel: channel,
	})
}

// headline shortens a message into an inbox title.
func headline(message string) string {
	const max = 80
	if utf8.RuneCountInString(message) <= max {
		return message
	}
	runes := []rune(message)
	return string(runes[:max-1]) + "…"
}

// AgentTaskHandler starts agent executions for agent_task jobs. Success
// means the runner accepted the task; the work itself runs outside the
// scheduler's sight.
type AgentTaskHandler struct {
	runner agent.Runner
	logger *zap.SugaredLogger
}

// NewAgentTaskHandler creates the handler for agent_task actions.
func NewAgentTaskHandler(runner agent.Runner, log *zap.SugaredLogger) *AgentTaskHandler {
	return &AgentTaskHandler{runner: runner, logger: log}
}

// Name returns the action type this handler serves.
func (h *AgentTaskHandler) Name() string { return schedule.ActionAgentTask }

// Execute decodes the payload and asks the runner to start exactly one
// execution. A started execution is never retried or awaited here.
func (h *AgentTaskHandler) Execute(ctx context.Context, job *schedule.Job) error {
	payload, err := schedule.DecodeAgentTaskPayload(job.ActionPayload)
	if err != nil {
		return errors.Wrapf(err, "agent_task payload of job %s", job.ID)
	}

	req := &agent.StartTaskRequest{
		OwnerID:        job.OwnerID,
		JobID:          job.ID,
		Title:          job.Title,
		Instruction:    payload.Instruction,
		TaskID:         payload.TaskID,
		ProjectID:      payload.ProjectID,
		ConversationID: payload.ConversationID,
	}
	if req.TaskID == "" {
		req.TaskID = job.TaskID
	}
	if req.ProjectID == "" {
		req.ProjectID = job.ProjectID
	}
	if req.ConversationID == "" {
		req.ConversationID = job.ConversationID
	}

	result, err := h.runner.StartTask(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "failed to start agent task for job %s", job.ID)
	}

	logger.ChildLogger(h.logger, logger.FieldsFromContext(ctx)...).Infow("Agent task started",
		"execution_id", result.ExecutionID)
	return nil
}
