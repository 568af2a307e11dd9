package server

import (
	"fmt"
	"math"
	"net/http"
	"net/url"

	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/logger"
)

// settingUpdate binds one dotted config key to its typed persist
// function. Exactly one of the two fields is set per entry.
type settingUpdate struct {
	updateInt    func(int) error
	updateString func(string) error
}

// settingsRegistry lists the keys the API may change. Each entry
// validates and then writes through to the UI overlay file; everything
// not listed here stays hand-edited in the main config.
var settingsRegistry = map[string]settingUpdate{
	"chime.poll_interval_seconds": {updateInt: func(v int) error {
		if v < 1 {
			return errors.NewInvalidRequestError("chime.poll_interval_seconds must be >= 1, got %d", v)
		}
		return config.UpdateChimePollInterval(v)
	}},
	"chime.max_concurrent_dispatches": {updateInt: func(v int) error {
		if v < 1 {
			return errors.NewInvalidRequestError("chime.max_concurrent_dispatches must be >= 1, got %d", v)
		}
		return config.UpdateChimeMaxConcurrentDispatches(v)
	}},
	"notify.max_per_minute": {updateInt: func(v int) error {
		if v < 0 {
			return errors.NewInvalidRequestError("notify.max_per_minute must be >= 0, got %d", v)
		}
		return config.UpdateNotifyMaxPerMinute(v)
	}},
	"notify.webhook_url": {updateString: func(v string) error {
		if err := checkAbsoluteURL("notify.webhook_url", v); err != nil {
			return err
		}
		return config.UpdateNotifyWebhookURL(v)
	}},
	"runner.base_url": {updateString: func(v string) error {
		if err := checkAbsoluteURL("runner.base_url", v); err != nil {
			return err
		}
		return config.UpdateRunnerBaseURL(v)
	}},
	"server.log_theme": {updateString: func(v string) error {
		if v != "gruvbox" && v != "everforest" {
			return errors.NewInvalidRequestError("server.log_theme must be gruvbox or everforest, got %q", v)
		}
		return config.UpdateServerLogTheme(v)
	}},
}

// checkAbsoluteURL accepts empty (clears the setting) or an absolute URL.
func checkAbsoluteURL(key, value string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewInvalidRequestError("%s must be an absolute URL, got %q", key, value)
	}
	return nil
}

// HandleConfig handles /api/config: GET returns the effective merged
// configuration, POST/PATCH updates settings through the UI overlay.
func (s *HeraldServer) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetConfig(w, r)
	case http.MethodPost, http.MethodPatch:
		s.handleUpdateConfig(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleGetConfig returns the effective configuration after merging and
// defaults. ?introspection=true adds per-key source attribution. The
// runner token is reported as present or absent, never echoed.
func (s *HeraldServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("introspection") == "true" {
		introspection, err := config.GetConfigIntrospection()
		if err != nil {
			s.writeServiceError(w, err, "config introspection")
			return
		}
		writeJSON(w, http.StatusOK, introspection)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		s.writeServiceError(w, err, "load config")
		return
	}
	chimeCfg := cfg.GetChimeConfig()
	notifyCfg := cfg.GetNotifyConfig()
	runnerCfg := cfg.GetRunnerConfig()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"config_files": config.MergedFiles(),
		"chime": map[string]interface{}{
			"poll_interval_seconds":     chimeCfg.PollIntervalSeconds,
			"claim_batch_size":          chimeCfg.ClaimBatchSize,
			"claim_lease_seconds":       chimeCfg.ClaimLeaseSeconds,
			"dispatch_timeout_seconds":  chimeCfg.DispatchTimeoutSeconds,
			"oneshot_max_attempts":      chimeCfg.OneShotMaxAttempts,
			"max_concurrent_dispatches": chimeCfg.MaxConcurrentDispatches,
			"catchup_window_seconds":    chimeCfg.CatchupWindowSeconds,
			"run_retention_days":        chimeCfg.RunRetentionDays,
		},
		"notify": map[string]interface{}{
			"max_per_minute":          notifyCfg.MaxPerMinute,
			"default_channel":         notifyCfg.DefaultChannel,
			"webhook_url":             notifyCfg.WebhookURL,
			"webhook_timeout_seconds": notifyCfg.WebhookTimeoutSeconds,
		},
		"runner": map[string]interface{}{
			"base_url":        runnerCfg.BaseURL,
			"timeout_seconds": runnerCfg.TimeoutSeconds,
			"token_set":       runnerCfg.Token != "",
		},
		"server": map[string]interface{}{
			"log_theme": cfg.GetServerLogTheme(),
		},
	})
}

// handleUpdateConfig applies a batch of settings updates. Keys apply in
// map order and the first failure stops the batch, so earlier keys may
// already be persisted when an error is returned.
func (s *HeraldServer) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Updates map[string]interface{} `json:"updates"`
	}
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if len(req.Updates) == 0 {
		writeError(w, http.StatusBadRequest, "no updates provided")
		return
	}

	for key, value := range req.Updates {
		if !s.applySettingUpdate(w, r, key, value) {
			return
		}
	}

	s.refreshRuntimeConfig()
	s.handleGetConfig(w, r)
}

// applySettingUpdate validates and persists a single key. Returns false
// when a response has already been written.
func (s *HeraldServer) applySettingUpdate(w http.ResponseWriter, r *http.Request, key string, value interface{}) bool {
	entry, ok := settingsRegistry[key]
	if !ok {
		s.logger.Warnw("Unsupported settings key", "key", key, "client", r.RemoteAddr)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported settings key: %s", key))
		return false
	}

	var err error
	switch {
	case entry.updateInt != nil:
		f, isNum := value.(float64) // JSON numbers decode as float64
		if !isNum || f != math.Trunc(f) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid value for %s: expected integer", key))
			return false
		}
		err = entry.updateInt(int(f))
	case entry.updateString != nil:
		v, isStr := value.(string)
		if !isStr {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid value for %s: expected string", key))
			return false
		}
		err = entry.updateString(v)
	}
	if err != nil {
		s.writeServiceError(w, err, "update setting "+key)
		return false
	}

	log := logger.ChildLogger(logger.AddCfgSymbol(s.logger), logger.FieldsFromContext(r.Context())...)
	log.Infow("Setting updated via API",
		"key", key,
		"client", r.RemoteAddr,
	)
	return true
}

// refreshRuntimeConfig reloads the merged config and pushes new
// tunables into the running subsystems. The watcher ignores the
// server's own overlay write, so API updates take effect here rather
// than through a reload event. CORS origins and owner identity stay at
// their boot values until restart.
func (s *HeraldServer) refreshRuntimeConfig() {
	config.Reset()
	fresh, err := config.Load()
	if err != nil {
		s.logger.Errorw("Config refresh after settings update failed", "error", err)
		return
	}

	if s.dispatcher != nil {
		s.dispatcher.ApplyConfig(fresh.GetChimeConfig())
	}
	logger.ApplyConfigTheme(fresh.GetServerLogTheme())
}
