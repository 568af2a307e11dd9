package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/logger"
)

// settingsTestHome redirects config loading into a temp home so overlay
// writes never touch the real one, and clears cached config state on
// both sides of the test.
func settingsTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	config.Reset()
	t.Cleanup(config.Reset)
	return home
}

// configPayload mirrors the GET /api/config response shape.
type configPayload struct {
	ConfigFiles []string `json:"config_files"`
	Chime       struct {
		PollIntervalSeconds     int `json:"poll_interval_seconds"`
		MaxConcurrentDispatches int `json:"max_concurrent_dispatches"`
	} `json:"chime"`
	Notify struct {
		MaxPerMinute   int    `json:"max_per_minute"`
		DefaultChannel string `json:"default_channel"`
		WebhookURL     string `json:"webhook_url"`
	} `json:"notify"`
	Runner struct {
		BaseURL  string `json:"base_url"`
		TokenSet bool   `json:"token_set"`
	} `json:"runner"`
	Server struct {
		LogTheme string `json:"log_theme"`
	} `json:"server"`
}

func TestConfigAPI_GetEffective(t *testing.T) {
	settingsTestHome(t)
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var got configPayload
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/config", "", nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 30, got.Chime.PollIntervalSeconds)
	assert.Equal(t, 8, got.Chime.MaxConcurrentDispatches)
	assert.Equal(t, "inapp", got.Notify.DefaultChannel)
	assert.Equal(t, "http://localhost:8317", got.Runner.BaseURL)
	assert.False(t, got.Runner.TokenSet, "token must never be echoed, only its presence")
	assert.Equal(t, "everforest", got.Server.LogTheme)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/config", "", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestConfigAPI_UpdatePersistsAndApplies(t *testing.T) {
	home := settingsTestHome(t)
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	t.Cleanup(func() { logger.SetTheme("everforest") })

	var got configPayload
	resp := doJSON(t, http.MethodPatch, ts.URL+"/api/config", "", map[string]interface{}{
		"updates": map[string]interface{}{
			"chime.poll_interval_seconds": 10,
			"server.log_theme":            "gruvbox",
		},
	}, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, got.Chime.PollIntervalSeconds)
	assert.Equal(t, "gruvbox", got.Server.LogTheme)

	// The overlay file in the redirected home carries the new values
	raw, err := os.ReadFile(filepath.Join(home, ".herald", config.UIConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[chime]")
	assert.Contains(t, string(raw), "poll_interval_seconds = 10")

	// The refresh made the new value globally visible
	assert.Equal(t, 10, config.GetInt("chime.poll_interval_seconds"))

	// A later write to a different section preserves earlier keys
	var after configPayload
	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/config", "", map[string]interface{}{
		"updates": map[string]interface{}{"notify.max_per_minute": 5},
	}, &after)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, after.Chime.PollIntervalSeconds, "earlier overlay keys survive later writes")
	assert.Equal(t, 5, after.Notify.MaxPerMinute)
}

func TestConfigAPI_RejectsBadUpdates(t *testing.T) {
	home := settingsTestHome(t)
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cases := []struct {
		name    string
		updates map[string]interface{}
	}{
		{"unregistered key", map[string]interface{}{"chime.claim_batch_size": 50}},
		{"string for int", map[string]interface{}{"chime.poll_interval_seconds": "10"}},
		{"fractional int", map[string]interface{}{"chime.poll_interval_seconds": 2.5}},
		{"zero poll interval", map[string]interface{}{"chime.poll_interval_seconds": 0}},
		{"unknown theme", map[string]interface{}{"server.log_theme": "dracula"}},
		{"relative webhook url", map[string]interface{}{"notify.webhook_url": "hooks/ping"}},
		{"int for string", map[string]interface{}{"runner.base_url": 8317}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPatch, ts.URL+"/api/config", "",
				map[string]interface{}{"updates": tc.updates}, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp := doJSON(t, http.MethodPatch, ts.URL+"/api/config", "",
		map[string]interface{}{"updates": map[string]interface{}{}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "empty batch is rejected")

	// None of the rejected updates may have been persisted
	_, err := os.Stat(filepath.Join(home, ".herald", config.UIConfigFileName))
	assert.True(t, os.IsNotExist(err), "rejected updates must not create the overlay file")
}

func TestConfigAPI_Introspection(t *testing.T) {
	settingsTestHome(t)
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var intro config.ConfigIntrospection
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/config?introspection=true", "", nil, &intro)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, intro.Settings)

	var poll *config.SettingInfo
	for i := range intro.Settings {
		if intro.Settings[i].Key == "chime.poll_interval_seconds" {
			poll = &intro.Settings[i]
			break
		}
	}
	require.NotNil(t, poll, "poll interval missing from introspection")
	assert.EqualValues(t, 30, poll.Value)
	assert.Equal(t, config.SourceDefault, poll.Source)
}
