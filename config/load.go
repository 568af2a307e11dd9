package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/heraldai/herald/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// ConfigSources records where each configuration key came from, keyed by
// dotted setting name. Populated during mergeConfigFiles and consumed by
// the introspection API so displayed sources match what was actually loaded.
var ConfigSources = make(map[string]SourceInfo)

// mergedFiles lists the config files actually read during the last
// merge, lowest precedence first. Feeds MergedFiles and WatchTargets.
var mergedFiles []string

// Load reads the Herald configuration cascade and caches the result
// until Reset.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	var config Config
	if err := initViper().Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper loads configuration from a provided Viper instance,
// bypassing the cascade. Used by tests that build their own settings.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a single file with defaults but
// without the cascade or environment overrides. Backs
// `herald config validate <file>` so a candidate config can be checked
// before it is installed.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}
	return &config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
	ConfigSources = make(map[string]SourceInfo)
	mergedFiles = nil
}

// initViper builds the merged Viper instance on first use: defaults,
// then the file cascade, with HERALD_* environment variables above all.
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("HERALD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)

	SetDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig walks up from the working directory looking for a
// project config. herald.toml wins over config.toml in the same
// directory; the nearest directory wins overall.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range []string{"herald.toml", "config.toml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles merges configuration files in the correct precedence order.
// Precedence (lowest to highest): system < user < user UI < project < env vars.
// Each merged key is recorded in ConfigSources for introspection.
func mergeConfigFiles(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()

	// Ensure ~/.herald directory exists
	heraldDir := filepath.Join(homeDir, ".herald")
	os.MkdirAll(heraldDir, DefaultDirPermissions)

	// Build config paths, with project config found via upward search
	projectConfig := findProjectConfig()
	configPaths := []struct {
		path   string
		source ConfigSource
	}{
		{"/etc/herald/config.toml", SourceSystem},
		{filepath.Join(heraldDir, "config.toml"), SourceUser},
		{filepath.Join(heraldDir, "herald.toml"), SourceUser}, // Merged after config.toml so herald.toml wins
		{filepath.Join(heraldDir, UIConfigFileName), SourceUserUI},
	}

	// Add project config if found (highest file precedence, below env vars)
	if projectConfig != "" {
		configPaths = append(configPaths, struct {
			path   string
			source ConfigSource
		}{projectConfig, SourceProject})
	}

	for _, entry := range configPaths {
		if _, err := os.Stat(entry.path); err != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(entry.path)
		tempViper.SetConfigType("toml")

		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		// MergeConfigMap keeps file values below env vars, unlike Set
		// which would shadow environment overrides.
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
		mergedFiles = append(mergedFiles, entry.path)

		// Later files overwrite earlier entries, matching merge order
		for _, key := range tempViper.AllKeys() {
			ConfigSources[key] = SourceInfo{Source: entry.source, Path: entry.path}
		}
	}
}

// MergedFiles returns the config files read during the last load,
// lowest precedence first. Empty when running on pure defaults.
func MergedFiles() []string {
	initViper()
	out := make([]string, len(mergedFiles))
	copy(out, mergedFiles)
	return out
}

// WatchTargets returns the filesystem paths a config watcher should
// observe: the user config directory, which always exists after a load,
// plus any merged file outside it (system or project config). Watching
// the directory rather than individual files survives editors that save
// by rename and catches overlay files created after startup.
func WatchTargets() []string {
	initViper()

	home, err := os.UserHomeDir()
	if err != nil {
		return MergedFiles()
	}
	heraldDir := filepath.Join(home, ".herald")

	targets := []string{heraldDir}
	for _, file := range mergedFiles {
		if filepath.Dir(file) != heraldDir {
			targets = append(targets, file)
		}
	}
	return targets
}

// Dotted-key accessors against the live merged configuration.

func Get(key string) interface{}    { return initViper().Get(key) }
func GetString(key string) string   { return initViper().GetString(key) }
func GetBool(key string) bool       { return initViper().GetBool(key) }
func GetInt(key string) int         { return initViper().GetInt(key) }
func GetFloat64(key string) float64 { return initViper().GetFloat64(key) }

// GetDatabasePath returns the configured database path. HERALD_DB_PATH
// overrides the config for dev-mode runs against a scratch database.
func GetDatabasePath() (string, error) {
	if dbPath := os.Getenv("HERALD_DB_PATH"); dbPath != "" {
		return dbPath, nil
	}

	config, err := Load()
	if err != nil {
		return "", err
	}
	return config.Database.Path, nil
}
