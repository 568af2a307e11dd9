package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/logger"
)

// UIConfigFileName is the settings file owned by the web UI, kept separate
// from hand-edited config so UI writes never clobber user edits.
const UIConfigFileName = "herald_from_ui.toml"

// backupGenerations is how many rotating .backN copies are kept beside
// the overlay file.
const backupGenerations = 3

// GetUIConfigPath returns the path to the UI-managed config file in ~/.herald
func GetUIConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".herald", UIConfigFileName)
}

// createBackup rotates the .backN copies and snapshots the current file
// into .back1. Called before every overlay write; a missing overlay
// means there is nothing to back up.
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	oldest := fmt.Sprintf("%s.back%d", configPath, backupGenerations)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		// A stuck oldest backup must not block the config save
		logger.Warnw("Failed to remove oldest config backup",
			"path", oldest,
			"error", err)
	}

	for gen := backupGenerations - 1; gen >= 1; gen-- {
		from := fmt.Sprintf("%s.back%d", configPath, gen)
		to := fmt.Sprintf("%s.back%d", configPath, gen+1)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if err := os.Rename(from, to); err != nil {
			return errors.Wrapf(err, "failed to rotate backup %s", filepath.Base(from))
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(configPath+".back1", content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write .back1")
	}
	return nil
}

// loadOrInitializeUIConfig reads the overlay into a generic map, or
// starts an empty one when the file does not exist yet. An unreadable
// or unparseable overlay is an error rather than a silent reset, so a
// later save cannot clobber settings that were still on disk.
func loadOrInitializeUIConfig() (map[string]interface{}, string, error) {
	configPath := GetUIConfigPath()
	if configPath == "" {
		return nil, "", errors.New("could not determine home directory")
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return nil, "", errors.Wrap(err, "failed to create .herald directory")
	}

	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, configPath, nil
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read UI config")
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, "", errors.Wrap(err, "failed to parse UI config")
	}
	return config, configPath, nil
}

// saveUIConfig snapshots a backup and writes the overlay. Our own write
// is flagged to the watcher first so the save does not bounce back as a
// reload.
func saveUIConfig(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write UI config")
	}
	return nil
}

// UpdateUISetting writes a single section.key value to the UI config file,
// creating the section if needed. Other settings in the file are preserved.
func UpdateUISetting(section, key string, value interface{}) error {
	config, configPath, err := loadOrInitializeUIConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load UI config")
	}

	sectionMap, ok := config[section].(map[string]interface{})
	if !ok {
		sectionMap = make(map[string]interface{})
	}
	sectionMap[key] = value
	config[section] = sectionMap

	return saveUIConfig(config, configPath)
}

// UpdateChimePollInterval updates the dispatcher poll interval in UI config
func UpdateChimePollInterval(seconds int) error {
	return UpdateUISetting("chime", "poll_interval_seconds", seconds)
}

// UpdateChimeMaxConcurrentDispatches updates the dispatch concurrency limit in UI config
func UpdateChimeMaxConcurrentDispatches(limit int) error {
	return UpdateUISetting("chime", "max_concurrent_dispatches", limit)
}

// UpdateNotifyMaxPerMinute updates the notification rate limit in UI config
func UpdateNotifyMaxPerMinute(maxPerMinute int) error {
	return UpdateUISetting("notify", "max_per_minute", maxPerMinute)
}

// UpdateNotifyWebhookURL updates the notification webhook target in UI config
func UpdateNotifyWebhookURL(url string) error {
	return UpdateUISetting("notify", "webhook_url", url)
}

// UpdateRunnerBaseURL updates the agent runner endpoint in UI config
func UpdateRunnerBaseURL(url string) error {
	return UpdateUISetting("runner", "base_url", url)
}

// UpdateServerLogTheme updates the log color theme in UI config
func UpdateServerLogTheme(theme string) error {
	return UpdateUISetting("server", "log_theme", theme)
}
