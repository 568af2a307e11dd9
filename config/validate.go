package config

import (
	"net/url"

	"github.com/heraldai/herald/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to "herald.db" per defaults.go
	// No validation needed here

	// Server port: 0 is invalid (omit for default), negative is invalid
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.New("server.port cannot be 0 (omit for default port 8787)")
	}
	if c.Server.Port != nil && *c.Server.Port < 0 {
		return errors.Newf("server.port must be positive, got %d", *c.Server.Port)
	}

	// Chime poll interval: 0 = default applied later, negative = invalid
	if c.Chime.PollIntervalSeconds < 0 {
		return errors.Newf("chime.poll_interval_seconds must be >= 0, got %d", c.Chime.PollIntervalSeconds)
	}
	if c.Chime.ClaimBatchSize < 0 {
		return errors.Newf("chime.claim_batch_size must be >= 0, got %d", c.Chime.ClaimBatchSize)
	}
	if c.Chime.ClaimLeaseSeconds < 0 {
		return errors.Newf("chime.claim_lease_seconds must be >= 0, got %d", c.Chime.ClaimLeaseSeconds)
	}
	if c.Chime.DispatchTimeoutSeconds < 0 {
		return errors.Newf("chime.dispatch_timeout_seconds must be >= 0, got %d", c.Chime.DispatchTimeoutSeconds)
	}
	if c.Chime.OneShotMaxAttempts < 0 {
		return errors.Newf("chime.oneshot_max_attempts must be >= 0, got %d", c.Chime.OneShotMaxAttempts)
	}
	if c.Chime.MaxConcurrentDispatches < 0 {
		return errors.Newf("chime.max_concurrent_dispatches must be >= 0, got %d", c.Chime.MaxConcurrentDispatches)
	}
	if c.Chime.CatchupWindowSeconds < 0 {
		return errors.Newf("chime.catchup_window_seconds must be >= 0, got %d", c.Chime.CatchupWindowSeconds)
	}

	// Run retention: 0 = keep forever (valid per "zero means zero"), negative = invalid
	if c.Chime.RunRetentionDays < 0 {
		return errors.Newf("chime.run_retention_days must be >= 0, got %d", c.Chime.RunRetentionDays)
	}

	// Notify rate limit: 0 = unlimited (valid per "zero means zero"), negative = invalid
	if c.Notify.MaxPerMinute < 0 {
		return errors.Newf("notify.max_per_minute must be >= 0, got %d", c.Notify.MaxPerMinute)
	}
	if c.Notify.WebhookTimeoutSeconds < 0 {
		return errors.Newf("notify.webhook_timeout_seconds must be >= 0, got %d", c.Notify.WebhookTimeoutSeconds)
	}

	// Validate webhook URL only when configured
	if c.Notify.WebhookURL != "" {
		u, err := url.Parse(c.Notify.WebhookURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Newf("notify.webhook_url must be an absolute URL, got %q", c.Notify.WebhookURL)
		}
	}

	// Validate runner configuration only when a base URL is set
	if c.Runner.BaseURL != "" {
		u, err := url.Parse(c.Runner.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Newf("runner.base_url must be an absolute URL, got %q", c.Runner.BaseURL)
		}
	}
	if c.Runner.TimeoutSeconds < 0 {
		return errors.Newf("runner.timeout_seconds must be >= 0, got %d", c.Runner.TimeoutSeconds)
	}

	return nil
}
