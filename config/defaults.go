package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "herald.db")

	// Chime (scheduled job engine) defaults
	v.SetDefault("chime.poll_interval_seconds", 30)    // Dispatcher tick cadence
	v.SetDefault("chime.claim_batch_size", 25)         // Jobs claimed per cycle
	v.SetDefault("chime.claim_lease_seconds", 120)     // Claim lease before a crashed claim expires
	v.SetDefault("chime.dispatch_timeout_seconds", 60) // Per-job handler timeout
	v.SetDefault("chime.oneshot_max_attempts", 3)      // In-cycle attempts for one-shot jobs
	v.SetDefault("chime.max_concurrent_dispatches", 8) // Parallel executions per cycle
	v.SetDefault("chime.catchup_window_seconds", 86400) // Jobs older than 24h are missed, not fired
	v.SetDefault("chime.run_retention_days", 30)       // Run audit retention

	// Notification delivery defaults
	v.SetDefault("notify.max_per_minute", 30)          // Per-owner delivery rate limit
	v.SetDefault("notify.default_channel", "inapp")    // Channel when a payload names none
	v.SetDefault("notify.webhook_timeout_seconds", 10) // Webhook POST timeout

	// Agent runner defaults
	v.SetDefault("runner.base_url", "http://localhost:8317")
	v.SetDefault("runner.timeout_seconds", 30) // Spawn request timeout

	// Owner identity defaults
	v.SetDefault("owner.default_id", "local")

	// Server configuration defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
		"tauri://localhost", // Allow Tauri desktop app
	})
	v.SetDefault("server.log_theme", "everforest")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// Agent runner credentials
	v.BindEnv("runner.token", "HERALD_RUNNER_TOKEN")

	// Database path
	v.BindEnv("database.path", "HERALD_DATABASE_PATH")

	// Notification webhook target
	v.BindEnv("notify.webhook_url", "HERALD_NOTIFY_WEBHOOK_URL")
}

// GetServerPort returns the configured Herald server port
// Returns server.port from config, or DefaultServerPort (8787) if not configured
func GetServerPort() int {
	cfg, err := Load()
	if err != nil || cfg.Server.Port == nil {
		return DefaultServerPort
	}
	return *cfg.Server.Port
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "herald.db" // Fallback default
	}
	return c.Database.Path
}

// GetServerAllowedOrigins returns the allowed CORS origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return []string{
			"http://localhost",
			"https://localhost",
			"http://127.0.0.1",
			"https://127.0.0.1",
			"tauri://localhost", // Allow Tauri desktop app
		}
	}
	return c.Server.AllowedOrigins
}

// GetServerLogTheme returns the log theme (default: everforest)
func (c *Config) GetServerLogTheme() string {
	if c.Server.LogTheme == "" {
		return "everforest"
	}
	return c.Server.LogTheme
}

// GetOwnerID returns the default owner identity for unauthenticated requests
func (c *Config) GetOwnerID() string {
	if c.Owner.DefaultID == "" {
		return "local"
	}
	return c.Owner.DefaultID
}

// GetChimeConfig returns the chime configuration with defaults applied.
// RunRetentionDays is left as-is: zero means keep run records forever.
func (c *Config) GetChimeConfig() ChimeConfig {
	cfg := c.Chime

	// Apply defaults for zero values
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = 30
	}
	if cfg.ClaimBatchSize == 0 {
		cfg.ClaimBatchSize = 25
	}
	if cfg.ClaimLeaseSeconds == 0 {
		cfg.ClaimLeaseSeconds = 120
	}
	if cfg.DispatchTimeoutSeconds == 0 {
		cfg.DispatchTimeoutSeconds = 60
	}
	if cfg.OneShotMaxAttempts == 0 {
		cfg.OneShotMaxAttempts = 3
	}
	if cfg.MaxConcurrentDispatches == 0 {
		cfg.MaxConcurrentDispatches = 8
	}
	if cfg.CatchupWindowSeconds == 0 {
		cfg.CatchupWindowSeconds = 86400
	}

	return cfg
}

// GetNotifyConfig returns the notification configuration with defaults applied.
// MaxPerMinute is left as-is: zero means unlimited.
func (c *Config) GetNotifyConfig() NotifyConfig {
	cfg := c.Notify

	if cfg.DefaultChannel == "" {
		cfg.DefaultChannel = "inapp"
	}
	if cfg.WebhookTimeoutSeconds == 0 {
		cfg.WebhookTimeoutSeconds = 10
	}

	return cfg
}

// GetRunnerConfig returns the agent runner configuration with defaults applied
func (c *Config) GetRunnerConfig() RunnerConfig {
	cfg := c.Runner

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8317"
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 30
	}

	return cfg
}

// PollInterval returns the dispatcher tick interval as a duration
func (c ChimeConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ClaimLease returns the claim lease duration
func (c ChimeConfig) ClaimLease() time.Duration {
	return time.Duration(c.ClaimLeaseSeconds) * time.Second
}

// DispatchTimeout returns the per-job handler timeout
func (c ChimeConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSeconds) * time.Second
}

// CatchupWindow returns how far in the past a due job is still executed
func (c ChimeConfig) CatchupWindow() time.Duration {
	return time.Duration(c.CatchupWindowSeconds) * time.Second
}

// WebhookTimeout returns the webhook POST timeout
func (c NotifyConfig) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}

// Timeout returns the runner spawn request timeout
func (c RunnerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Server: {LogTheme: %s}, Chime: {PollIntervalSeconds: %d}}",
		c.Database.Path, c.Server.LogTheme, c.Chime.PollIntervalSeconds)
}
