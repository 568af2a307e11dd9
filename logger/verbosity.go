package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
//
// These levels control WHAT categories of output are shown, not just log severity.
// See output.go for the full category system.
//
// Example usage:
//
//	if logger.ShouldOutput(verbosity, logger.OutputClaimCycles) {
//	    fmt.Printf("[claim] %s lease until %s\n", jobID, leaseUntil)
//	}
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + progress, startup, dispatch summaries
	VerbosityDebug = 2 // -vv: + schedule math, timing, config details
	VerbosityTrace = 3 // -vvv: + claim cycles, SQL queries, internal flow
	VerbosityAll   = 4 // -vvvv: + full request/response bodies
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log
// levels. Zap has nothing finer than Debug, so -vvv and beyond map to
// Debug and the category gates in output.go take over from there.
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
