package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global instance. Commands swap it during startup;
	// everything else reaches it through the package-level forwarders.
	Logger *zap.SugaredLogger

	// JSONOutput records whether Initialize chose machine-readable output.
	JSONOutput bool

	nopLogger = zap.NewNop().Sugar()
)

func init() {
	// A silent logger from the first instant, so nothing that logs
	// before Initialize can panic.
	Logger = nopLogger
}

// log returns the active logger, falling back to a silent one when the
// global has been torn down. Shutdown paths may log after Cleanup.
func log() *zap.SugaredLogger {
	if Logger != nil {
		return Logger
	}
	return nopLogger
}

// Initialize sets up the global logger at Info level.
func Initialize(jsonOutput bool) error {
	return InitializeWithLevel(jsonOutput, zap.InfoLevel)
}

// InitializeWithLevel sets up the global logger with an explicit minimum
// level. CLI verbosity flags map to levels via VerbosityToLevel.
func InitializeWithLevel(jsonOutput bool, level zapcore.Level) error {
	JSONOutput = jsonOutput
	loadThemeFromEnv()

	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		built, err := cfg.Build()
		if err != nil {
			return err
		}
		Logger = built.Sugar()
		return nil
	}

	Logger = consoleLogger(os.Stdout, level).Sugar()
	return nil
}

// InitializeStderr routes human-readable logs to stderr. Stdio
// transports (MCP) own stdout for protocol frames, so everything else
// has to stay off it.
func InitializeStderr(level zapcore.Level) error {
	JSONOutput = false
	loadThemeFromEnv()

	Logger = consoleLogger(os.Stderr, level).Sugar()
	return nil
}

// consoleLogger builds the calm single-line console core.
func consoleLogger(w *os.File, level zapcore.Level) *zap.Logger {
	return zap.New(zapcore.NewCore(newMinimalEncoder(), zapcore.AddSync(w), level))
}

// loadThemeFromEnv picks up the log color theme before config is parsed.
// Config loading happens after logger init in main(), so the env var is the
// only channel available this early.
func loadThemeFromEnv() {
	if theme := os.Getenv("HERALD_LOG_THEME"); theme != "" {
		SetTheme(theme)
	}
}

// ApplyConfigTheme applies the configured theme once config is loaded,
// unless HERALD_LOG_THEME already chose one. The env var outranks
// config files, same as every other setting.
func ApplyConfigTheme(theme string) {
	if os.Getenv("HERALD_LOG_THEME") == "" {
		SetTheme(theme)
	}
}

// Cleanup flushes any buffered log entries.
func Cleanup() {
	if Logger != nil {
		Logger.Sync()
	}
}

// Package-level forwarders, nil-safe through log().

func Info(args ...interface{})  { log().Info(args...) }
func Error(args ...interface{}) { log().Error(args...) }
func Warn(args ...interface{})  { log().Warn(args...) }
func Debug(args ...interface{}) { log().Debug(args...) }

func Infof(format string, args ...interface{})  { log().Infof(format, args...) }
func Errorf(format string, args ...interface{}) { log().Errorf(format, args...) }
func Warnf(format string, args ...interface{})  { log().Warnf(format, args...) }
func Debugf(format string, args ...interface{}) { log().Debugf(format, args...) }

func Infow(msg string, keysAndValues ...interface{})  { log().Infow(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...interface{}) { log().Errorw(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...interface{})  { log().Warnw(msg, keysAndValues...) }
func Debugw(msg string, keysAndValues ...interface{}) { log().Debugw(msg, keysAndValues...) }
