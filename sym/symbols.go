// Package sym defines canonical symbols for Herald subsystems and system markers.
// These symbols are stable across CLI output, logs, and documentation.
package sym

// Subsystem glyphs. Each Herald subsystem logs under its glyph so interleaved
// daemon output stays scannable.
const (
	Chime  = "◷" // chime — scheduled job engine (recurrence, dispatch)
	Notify = "✉" // notify — notification delivery and inbox
	Task   = "⊞" // task — task board entities and comments
	Agent  = "⌬" // agent — external agent run spawning
)

// Daemon lifecycle markers.
const (
	ChimeOpen  = "❉" // daemon startup with expired-claim recovery
	ChimeClose = "❆" // daemon shutdown with in-flight drain
)

// Infrastructure symbols.
const (
	DB  = "⊔" // database/storage layer
	Cfg = "≡" // configuration load/reload
)

// Commands lists the CLI subcommand names that map to a subsystem glyph,
// in canonical display order.
var Commands = []string{"chime", "notify", "task", "agent", "db", "config"}

// CommandToSymbol maps CLI subcommand names to their canonical glyphs.
var CommandToSymbol = map[string]string{
	"chime":  Chime,
	"notify": Notify,
	"task":   Task,
	"agent":  Agent,
	"db":     DB,
	"config": Cfg,
}

// SymbolToCommand maps glyphs back to their subcommand names.
var SymbolToCommand = map[string]string{
	Chime:  "chime",
	Notify: "notify",
	Task:   "task",
	Agent:  "agent",
	DB:     "db",
	Cfg:    "config",
}

// CommandDescriptions provides human-readable explanations for help text.
var CommandDescriptions = map[string]string{
	"chime":  "Chime — scheduled reminders, agent tasks, and follow-ups",
	"notify": "Notify — notification delivery and inbox",
	"task":   "Task — task board entities and comments",
	"agent":  "Agent — external agent run spawning",
	"db":     "DB — database and storage layer",
	"config": "Config — configuration load and reload",
}
