package logger

import (
	"context"

	"go.uber.org/zap"
)

// Canonical field names. Passing these instead of raw strings keeps
// log lines greppable across the engine, the transports, and the API.
const (
	// Job identity, stamped on every dispatch log line.
	FieldJobID   = "job_id"
	FieldRunID   = "run_id"
	FieldTaskID  = "task_id"
	FieldOwnerID = "owner_id"

	// Request identity on API log lines.
	FieldRequestID = "request_id"

	// Dispatch detail.
	FieldAction     = "action"
	FieldAttempt    = "attempt"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"

	// Notification transport.
	FieldChannel = "channel"

	// FieldSymbol carries the subsystem glyph. The console encoder
	// renders it ahead of the message, never as key=value.
	FieldSymbol = "symbol"
)

// Identity slots carried through context, so code deep under a
// dispatch or an API request logs with the right job, run, and owner
// attached without threading them as parameters.
type ctxKey int

const (
	ctxJobID ctxKey = iota
	ctxRunID
	ctxOwnerID
	ctxRequestID
)

// ctxFields fixes the emission order of stamped identity fields.
var ctxFields = [...]struct {
	key  ctxKey
	name string
}{
	{ctxJobID, FieldJobID},
	{ctxRunID, FieldRunID},
	{ctxOwnerID, FieldOwnerID},
	{ctxRequestID, FieldRequestID},
}

// WithJobRun stamps dispatch identity on the context. The dispatcher
// calls this before handing a claimed job to its action handler.
func WithJobRun(ctx context.Context, jobID, runID string) context.Context {
	ctx = context.WithValue(ctx, ctxJobID, jobID)
	return context.WithValue(ctx, ctxRunID, runID)
}

// WithOwnerID stamps the owning user on the context.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ctxOwnerID, ownerID)
}

// WithRequestID stamps an API request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestID, requestID)
}

// FieldsFromContext returns the stamped identity as Infow-style
// key-value pairs. Unstamped slots are skipped.
func FieldsFromContext(ctx context.Context) []interface{} {
	var kv []interface{}
	for _, f := range ctxFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			kv = append(kv, f.name, v)
		}
	}
	return kv
}

// ChildLogger attaches identity pairs to a logger, keeping whatever
// symbol and fields it already carries.
//
//	log := logger.ChildLogger(h.logger, logger.FieldsFromContext(ctx)...)
//	log.Infow("Agent task started", "execution_id", result.ExecutionID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	if len(keysAndValues) == 0 {
		return parent
	}
	return parent.With(keysAndValues...)
}

// LoggerFromContext returns the global logger with any stamped
// identity attached.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	return ChildLogger(log(), FieldsFromContext(ctx)...)
}
