package config

import (
	"os"
	"sort"
	"strings"

	"github.com/heraldai/herald/errors"
)

// ConfigSource identifies which layer of the cascade a value came from.
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/herald/config.toml
	SourceUser        ConfigSource = "user"        // ~/.herald/herald.toml
	SourceUserUI      ConfigSource = "user_ui"     // ~/.herald/herald_from_ui.toml
	SourceProject     ConfigSource = "project"     // project herald.toml
	SourceEnvironment ConfigSource = "environment" // HERALD_* env vars
)

// SourceInfo records the provenance of a single merged key: which
// cascade layer won, and the file or variable it was read from.
type SourceInfo struct {
	Source ConfigSource
	Path   string
}

// SettingInfo is one effective setting with its provenance, as shown
// by `herald config where`.
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

// ConfigIntrospection is the full picture of the active configuration:
// every effective key with its value and origin, plus the files that
// were merged to produce it.
type ConfigIntrospection struct {
	ConfigFiles []string      `json:"config_files"`
	Settings    []SettingInfo `json:"settings"`
}

// GetConfigIntrospection reports every effective setting with its
// provenance, based on the sources recorded while the cascade was
// merged. Triggers a Load if nothing has been loaded yet.
func GetConfigIntrospection() (*ConfigIntrospection, error) {
	if len(ConfigSources) == 0 {
		if _, err := Load(); err != nil {
			return nil, errors.Wrap(err, "failed to load config for introspection")
		}
	}

	intro := &ConfigIntrospection{
		ConfigFiles: MergedFiles(),
		Settings:    make([]SettingInfo, 0),
	}
	flattenSettingsWithSources(GetViper().AllSettings(), "", intro, ConfigSources)
	return intro, nil
}

// flattenSettingsWithSources walks the merged settings tree, turning
// nested maps into dotted keys and attaching provenance from sourceMap.
// Keys absent from sourceMap are defaults; a set HERALD_* variable
// overrides whatever the files said.
func flattenSettingsWithSources(settings map[string]interface{}, prefix string, introspection *ConfigIntrospection, sourceMap map[string]SourceInfo) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := settings[key].(map[string]interface{}); ok {
			flattenSettingsWithSources(nested, fullKey, introspection, sourceMap)
			continue
		}

		provenance, tracked := sourceMap[fullKey]
		if !tracked {
			provenance = SourceInfo{Source: SourceDefault, Path: "built-in default"}
		}
		if env, ok := envOverride(fullKey); ok {
			provenance = env
		}

		introspection.Settings = append(introspection.Settings, SettingInfo{
			Key:        fullKey,
			Value:      settings[key],
			Source:     provenance.Source,
			SourcePath: provenance.Path,
		})
	}
}

// envOverride reports whether a HERALD_* variable shadows the dotted
// key (chime.claim_batch_size -> HERALD_CHIME_CLAIM_BATCH_SIZE).
func envOverride(fullKey string) (SourceInfo, bool) {
	envKey := "HERALD_" + strings.ToUpper(strings.ReplaceAll(fullKey, ".", "_"))
	if os.Getenv(envKey) == "" {
		return SourceInfo{}, false
	}
	return SourceInfo{Source: SourceEnvironment, Path: envKey}, true
}
