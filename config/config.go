package config

// Config represents the core Herald configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Chime    ChimeConfig    `mapstructure:"chime"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Owner    OwnerConfig    `mapstructure:"owner"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the Herald web server
type ServerConfig struct {
	Port           *int     `mapstructure:"port"` // Server port: nil = default 8787, 0 is invalid (omit for default)
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogTheme       string   `mapstructure:"log_theme"` // Color theme: gruvbox, everforest
}

// Server port constants
const (
	DefaultServerPort  = 8787 // Development port (above privileged range)
	FallbackServerPort = 8788 // Fallback when the default is taken
)

// ChimeConfig configures the scheduled job engine
type ChimeConfig struct {
	// Dispatcher polling cadence. How often due jobs are claimed and executed.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"` // default: 30

	// Claim batch and lease behavior
	ClaimBatchSize    int `mapstructure:"claim_batch_size"`    // jobs claimed per cycle (default: 25)
	ClaimLeaseSeconds int `mapstructure:"claim_lease_seconds"` // claim lease duration (default: 120)

	// Per-job execution limits
	DispatchTimeoutSeconds  int `mapstructure:"dispatch_timeout_seconds"`  // per-job handler timeout (default: 60)
	OneShotMaxAttempts      int `mapstructure:"oneshot_max_attempts"`      // in-cycle attempts for one-shot jobs (default: 3)
	MaxConcurrentDispatches int `mapstructure:"max_concurrent_dispatches"` // parallel job executions per cycle (default: 8)

	// Overdue handling. Jobs due longer ago than this window are not executed:
	// one-shots finalize with a missed run, recurring jobs advance silently.
	CatchupWindowSeconds int `mapstructure:"catchup_window_seconds"` // default: 86400 (24h)

	// Run audit retention
	RunRetentionDays int `mapstructure:"run_retention_days"` // default: 30, 0 = keep forever
}

// NotifyConfig configures notification delivery
type NotifyConfig struct {
	MaxPerMinute          int    `mapstructure:"max_per_minute"`          // per-owner delivery rate limit (default: 30, 0 = unlimited)
	DefaultChannel        string `mapstructure:"default_channel"`         // channel used when a payload names none (default: "inapp")
	WebhookURL            string `mapstructure:"webhook_url"`             // optional webhook delivery target
	WebhookTimeoutSeconds int    `mapstructure:"webhook_timeout_seconds"` // webhook POST timeout (default: 10)
	Command               string `mapstructure:"command"`                 // optional local command delivery (e.g., notify-send)
}

// RunnerConfig configures the external agent runner service
type RunnerConfig struct {
	BaseURL        string `mapstructure:"base_url"`        // e.g., "http://localhost:8317"
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // spawn request timeout (default: 30)
	Token          string `mapstructure:"token"`           // bearer token for the runner API
}

// OwnerConfig configures owner identity defaults
type OwnerConfig struct {
	DefaultID string `mapstructure:"default_id"` // owner used when requests carry no identity (default: "local")
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
