package logger

import (
	"github.com/heraldai/herald/sym"
	"go.uber.org/zap"
)

// Symbol-aware logging helpers.
// Each helper attaches its glyph as a structured field instead of
// prefixing the message:
//
//	// Instead of:
//	logger.Infow(sym.Chime + " Job claimed", "job_id", id)
//
//	// Use:
//	logger.ChimeInfow("Job claimed", "job_id", id)
//
// JSON output stays queryable by symbol, and the console encoder
// renders the glyph ahead of the message.

// withSymbol prepends the symbol field to a key/value list.
func withSymbol(symbol string, keysAndValues []interface{}) []interface{} {
	return append([]interface{}{FieldSymbol, symbol}, keysAndValues...)
}

// ChimeInfow logs an info message with the Chime symbol (◷)
func ChimeInfow(msg string, keysAndValues ...interface{}) {
	log().Infow(msg, withSymbol(sym.Chime, keysAndValues)...)
}

// ChimeDebugw logs a debug message with the Chime symbol (◷)
func ChimeDebugw(msg string, keysAndValues ...interface{}) {
	log().Debugw(msg, withSymbol(sym.Chime, keysAndValues)...)
}

// ChimeWarnw logs a warning message with the Chime symbol (◷)
func ChimeWarnw(msg string, keysAndValues ...interface{}) {
	log().Warnw(msg, withSymbol(sym.Chime, keysAndValues)...)
}

// ChimeErrorw logs an error message with the Chime symbol (◷)
func ChimeErrorw(msg string, keysAndValues ...interface{}) {
	log().Errorw(msg, withSymbol(sym.Chime, keysAndValues)...)
}

// ChimeOpenInfow logs an info message with the ChimeOpen symbol (❉),
// used for startup milestones.
func ChimeOpenInfow(msg string, keysAndValues ...interface{}) {
	log().Infow(msg, withSymbol(sym.ChimeOpen, keysAndValues)...)
}

// ChimeCloseInfow logs an info message with the ChimeClose symbol (❆),
// used for shutdown milestones.
func ChimeCloseInfow(msg string, keysAndValues ...interface{}) {
	log().Infow(msg, withSymbol(sym.ChimeClose, keysAndValues)...)
}

// NotifyInfow logs an info message with the Notify symbol (✉),
// used for notification delivery.
func NotifyInfow(msg string, keysAndValues ...interface{}) {
	log().Infow(msg, withSymbol(sym.Notify, keysAndValues)...)
}

// NotifyDebugw logs a debug message with the Notify symbol (✉)
func NotifyDebugw(msg string, keysAndValues ...interface{}) {
	log().Debugw(msg, withSymbol(sym.Notify, keysAndValues)...)
}

// DBInfow logs an info message with the DB symbol (⊔),
// used for database and storage operations.
func DBInfow(msg string, keysAndValues ...interface{}) {
	log().Infow(msg, withSymbol(sym.DB, keysAndValues)...)
}

// DBDebugw logs a debug message with the DB symbol (⊔)
func DBDebugw(msg string, keysAndValues ...interface{}) {
	log().Debugw(msg, withSymbol(sym.DB, keysAndValues)...)
}

// SymbolInfow logs with any symbol, for symbols chosen at runtime.
func SymbolInfow(symbol, msg string, keysAndValues ...interface{}) {
	log().Infow(msg, withSymbol(symbol, keysAndValues)...)
}

// WithSymbol returns a logger stamping every entry with the given
// symbol. Prefer the Add*Symbol wrappers when the symbol is fixed.
//
// Example:
//
//	symbolLogger := logger.WithSymbol(sym.Agent)
//	symbolLogger.Infow("Spawning agent run", "job_id", id)
func WithSymbol(symbol string) *zap.SugaredLogger {
	return log().With(FieldSymbol, symbol)
}

// ============================================================================
// Instance logger wrappers
// ============================================================================
// These wrap an instance logger (s.logger, d.chimeLog) with a symbol field.
//
// Usage:
//
//	// At initialization:
//	d.chimeLog = logger.AddChimeSymbol(baseLogger)
//
//	// Or inline at the call site:
//	logger.AddDBSymbol(s.logger).Infow("Migration applied", "version", v)

// AddChimeSymbol wraps a logger with the Chime symbol (◷)
func AddChimeSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Chime)
}

// AddChimeOpenSymbol wraps a logger with the ChimeOpen symbol (❉)
func AddChimeOpenSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.ChimeOpen)
}

// AddChimeCloseSymbol wraps a logger with the ChimeClose symbol (❆)
func AddChimeCloseSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.ChimeClose)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.DB)
}

// AddNotifySymbol wraps a logger with the Notify symbol (✉)
func AddNotifySymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Notify)
}

// AddTaskSymbol wraps a logger with the Task symbol (⊞)
func AddTaskSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Task)
}

// AddAgentSymbol wraps a logger with the Agent symbol (⌬)
func AddAgentSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Agent)
}

// AddCfgSymbol wraps a logger with the Cfg symbol (≡)
func AddCfgSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Cfg)
}
