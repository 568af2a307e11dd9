package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: results, errors with hints, final status
//	1 (-v)      - + Progress, startup info, dispatch summaries, operation summaries
//	2 (-vv)     - + Schedule evaluation details, timing, config loaded, HTTP requests
//	3 (-vvv)    - + Claim cycle details, SQL queries, internal flow
//	4 (-vvvv)   - + Full request/response bodies, data structure dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Command output, job listings
	OutputErrors                           // Errors with hints and resolution steps
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputProgress       // Progress indicators (e.g., "Dispatching 3/5 jobs")
	OutputStartup        // Startup banners, config summary
	OutputDispatchStatus // Per-cycle dispatch summaries (claimed, completed, failed)
	OutputOperationInfo  // High-level operation summaries

	// Level 2 (-vv) - Detailed
	OutputSchedule  // Recurrence evaluation details (next run computation)
	OutputTiming    // Operation timing (e.g., "dispatch took 42ms")
	OutputConfig    // Config values loaded/applied
	OutputHTTPCalls // External HTTP requests made
	OutputDBStats   // Database statistics and connection info

	// Level 3 (-vvv) - Debug
	OutputClaimCycles // Individual claim attempts and lease state
	OutputSQLQueries  // Individual SQL queries executed
	OutputInternalOp  // Internal operation flow (function entry/exit)

	// Level 4 (-vvvv) - Full dump
	OutputRequestBody  // Full HTTP request bodies
	OutputResponseBody // Full HTTP response bodies
	OutputDataDump     // Full data structure contents
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	// Level 0 - Always shown
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	// Level 1 - Informational
	OutputProgress:       VerbosityInfo,
	OutputStartup:        VerbosityInfo,
	OutputDispatchStatus: VerbosityInfo,
	OutputOperationInfo:  VerbosityInfo,

	// Level 2 - Detailed
	OutputSchedule:  VerbosityDebug,
	OutputTiming:    VerbosityDebug,
	OutputConfig:    VerbosityDebug,
	OutputHTTPCalls: VerbosityDebug,
	OutputDBStats:   VerbosityDebug,

	// Level 3 - Debug
	OutputClaimCycles: VerbosityTrace,
	OutputSQLQueries:  VerbosityTrace,
	OutputInternalOp:  VerbosityTrace,

	// Level 4 - Full dump
	OutputRequestBody:  VerbosityAll,
	OutputResponseBody: VerbosityAll,
	OutputDataDump:     VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		// Unknown category, default to highest verbosity required
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:        "results",
	OutputErrors:         "errors",
	OutputUserStatus:     "status",
	OutputProgress:       "progress",
	OutputStartup:        "startup",
	OutputDispatchStatus: "dispatch-status",
	OutputOperationInfo:  "operation-info",
	OutputSchedule:       "schedule",
	OutputTiming:         "timing",
	OutputConfig:         "config",
	OutputHTTPCalls:      "http",
	OutputDBStats:        "db-stats",
	OutputClaimCycles:    "claim-cycles",
	OutputSQLQueries:     "sql",
	OutputInternalOp:     "internal",
	OutputRequestBody:    "request-body",
	OutputResponseBody:   "response-body",
	OutputDataDump:       "data-dump",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "results, errors, progress, and status"
	case VerbosityDebug:
		return "above + schedule math, timing, config details"
	case VerbosityTrace:
		return "above + claim cycles, SQL queries, internal flow"
	case VerbosityAll:
		return "full output including request/response bodies"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}
