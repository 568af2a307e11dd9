package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// introspect flattens a settings tree with the given provenance and
// indexes the result by dotted key.
func introspect(settings map[string]interface{}, sources map[string]SourceInfo) map[string]SettingInfo {
	intro := &ConfigIntrospection{Settings: make([]SettingInfo, 0)}
	flattenSettingsWithSources(settings, "", intro, sources)

	byKey := make(map[string]SettingInfo, len(intro.Settings))
	for _, setting := range intro.Settings {
		byKey[setting.Key] = setting
	}
	return byKey
}

func TestFlattenNestedKeys(t *testing.T) {
	settings := map[string]interface{}{
		"database": map[string]interface{}{"path": "herald.db"},
		"chime":    map[string]interface{}{"poll_interval_seconds": 30},
		"server": map[string]interface{}{
			"tls": map[string]interface{}{"cert_file": "/etc/herald/cert.pem"},
		},
		"owner": map[string]interface{}{"default_id": "local"},
	}

	intro := &ConfigIntrospection{Settings: make([]SettingInfo, 0)}
	flattenSettingsWithSources(settings, "", intro, nil)

	keys := make([]string, 0, len(intro.Settings))
	for _, setting := range intro.Settings {
		keys = append(keys, setting.Key)
	}
	assert.Equal(t, []string{
		"chime.poll_interval_seconds",
		"database.path",
		"owner.default_id",
		"server.tls.cert_file",
	}, keys, "nested sections flatten to sorted dotted keys")
}

func TestFlattenProvenance(t *testing.T) {
	settings := map[string]interface{}{
		"chime": map[string]interface{}{
			"poll_interval_seconds": 15,
			"claim_batch_size":      25,
			"claim_lease_seconds":   120,
		},
	}
	sources := map[string]SourceInfo{
		"chime.poll_interval_seconds": {Source: SourceUser, Path: "/home/u/.herald/herald.toml"},
		"chime.claim_batch_size":      {Source: SourceUserUI, Path: "/home/u/.herald/" + UIConfigFileName},
	}

	byKey := introspect(settings, sources)

	poll := byKey["chime.poll_interval_seconds"]
	assert.Equal(t, SourceUser, poll.Source)
	assert.Equal(t, "/home/u/.herald/herald.toml", poll.SourcePath)
	assert.Equal(t, 15, poll.Value)

	assert.Equal(t, SourceUserUI, byKey["chime.claim_batch_size"].Source)

	// Keys no file contributed fall back to the built-in default
	lease := byKey["chime.claim_lease_seconds"]
	assert.Equal(t, SourceDefault, lease.Source)
	assert.Equal(t, "built-in default", lease.SourcePath)
}

func TestFlattenEnvShadowsFiles(t *testing.T) {
	t.Setenv("HERALD_CHIME_POLL_INTERVAL_SECONDS", "5")

	settings := map[string]interface{}{
		"chime": map[string]interface{}{"poll_interval_seconds": 30},
	}
	sources := map[string]SourceInfo{
		"chime.poll_interval_seconds": {Source: SourceProject, Path: "/work/herald.toml"},
	}

	poll := introspect(settings, sources)["chime.poll_interval_seconds"]
	assert.Equal(t, SourceEnvironment, poll.Source)
	assert.Equal(t, "HERALD_CHIME_POLL_INTERVAL_SECONDS", poll.SourcePath)
}

func TestEnvOverrideKeyMapping(t *testing.T) {
	t.Setenv("HERALD_NOTIFY_WEBHOOK_URL", "https://hub.lan/hook")

	info, ok := envOverride("notify.webhook_url")
	require.True(t, ok)
	assert.Equal(t, SourceEnvironment, info.Source)
	assert.Equal(t, "HERALD_NOTIFY_WEBHOOK_URL", info.Path)

	_, ok = envOverride("notify.max_per_minute")
	assert.False(t, ok, "unset variables must not claim the key")
}

// The introspection payload is served verbatim by the config API, so
// its field names are part of the wire format.
func TestIntrospectionJSONShape(t *testing.T) {
	intro := &ConfigIntrospection{
		ConfigFiles: []string{"/etc/herald/config.toml"},
		Settings: []SettingInfo{
			{Key: "server.port", Value: 8787, Source: SourceDefault, SourcePath: "built-in default"},
			{Key: "owner.default_id", Value: "local", Source: SourceSystem, SourcePath: "/etc/herald/config.toml"},
		},
	}

	data, err := json.Marshal(intro)
	require.NoError(t, err)

	want := `{
		"config_files": ["/etc/herald/config.toml"],
		"settings": [
			{"key": "server.port", "value": 8787, "source": "default", "source_path": "built-in default"},
			{"key": "owner.default_id", "value": "local", "source": "system", "source_path": "/etc/herald/config.toml"}
		]
	}`
	assert.JSONEq(t, want, string(data))
}

func TestGetConfigIntrospection(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("HERALD_CHIME_CLAIM_BATCH_SIZE", "99")
	Reset()
	t.Cleanup(Reset)

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(oldWd) })
	require.NoError(t, os.Chdir(home))

	heraldDir := filepath.Join(home, ".herald")
	require.NoError(t, os.MkdirAll(heraldDir, DefaultDirPermissions))
	configPath := filepath.Join(heraldDir, "herald.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[owner]\ndefault_id = \"kit\"\n"), DefaultFilePermissions))

	intro, err := GetConfigIntrospection()
	require.NoError(t, err)
	assert.Contains(t, intro.ConfigFiles, configPath)

	byKey := make(map[string]SettingInfo)
	for _, setting := range intro.Settings {
		byKey[setting.Key] = setting
	}

	owner := byKey["owner.default_id"]
	assert.Equal(t, "kit", owner.Value)
	assert.Equal(t, SourceUser, owner.Source)
	assert.Equal(t, configPath, owner.SourcePath)

	batch := byKey["chime.claim_batch_size"]
	assert.Equal(t, SourceEnvironment, batch.Source)
	assert.Equal(t, "HERALD_CHIME_CLAIM_BATCH_SIZE", batch.SourcePath)

	assert.Equal(t, SourceDefault, byKey["server.port"].Source)

	assert.True(t, sort.SliceIsSorted(intro.Settings, func(i, j int) bool {
		return intro.Settings[i].Key < intro.Settings[j].Key
	}), "settings are emitted in key order")
}
