package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// watcherHome isolates HOME, moves the working directory away from any
// project config, and returns the ~/.herald directory, created.
func watcherHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(oldWd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	heraldDir := filepath.Join(home, ".herald")
	require.NoError(t, os.MkdirAll(heraldDir, DefaultDirPermissions))

	Reset()
	t.Cleanup(Reset)
	return heraldDir
}

// startWatcher builds a watcher over ~/.herald and funnels reloads into
// the returned channel.
func startWatcher(t *testing.T, heraldDir string) (*ConfigWatcher, <-chan *Config) {
	t.Helper()

	watcher, err := NewConfigWatcher(heraldDir)
	require.NoError(t, err)
	t.Cleanup(func() { watcher.Stop() })

	reloaded := make(chan *Config, 8)
	watcher.OnReload(func(cfg *Config) error {
		reloaded <- cfg
		return nil
	})
	watcher.Start()
	return watcher, reloaded
}

func waitForReload(t *testing.T, reloaded <-chan *Config) *Config {
	t.Helper()
	select {
	case cfg := <-reloaded:
		return cfg
	case <-time.After(5 * time.Second):
		t.Fatal("config reload did not fire")
		return nil
	}
}

func assertNoReload(t *testing.T, reloaded <-chan *Config) {
	t.Helper()
	select {
	case <-reloaded:
		t.Fatal("unexpected config reload")
	case <-time.After(3 * debouncePeriod):
	}
}

func TestNewConfigWatcherValidation(t *testing.T) {
	_, err := NewConfigWatcher()
	require.Error(t, err)

	_, err = NewConfigWatcher(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}

func TestWatchedConfigName(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/home/u/.herald/herald.toml", true},
		{"/home/u/.herald/config.toml", true},
		{"/home/u/.herald/" + UIConfigFileName, true},
		{"/etc/herald/config.toml", true},
		{"/home/u/.herald/herald.db", false},
		{"/home/u/.herald/" + UIConfigFileName + ".back2", false},
		{"/home/u/.herald/notes.toml", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, watchedConfigName(tt.path), tt.path)
	}
}

func TestWatchTargets(t *testing.T) {
	heraldDir := watcherHome(t)
	configPath := filepath.Join(heraldDir, "herald.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[server]\nport = 9000\n"), DefaultFilePermissions))
	Reset()

	targets := WatchTargets()
	require.NotEmpty(t, targets)
	assert.Equal(t, heraldDir, targets[0])
	// Files inside ~/.herald are covered by the directory watch
	assert.NotContains(t, targets, configPath)

	assert.Contains(t, MergedFiles(), configPath)
}

func TestWatcherReloadsOnUserConfigWrite(t *testing.T) {
	heraldDir := watcherHome(t)
	_, reloaded := startWatcher(t, heraldDir)

	configPath := filepath.Join(heraldDir, "herald.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[chime]\npoll_interval_seconds = 45\n"), DefaultFilePermissions))

	cfg := waitForReload(t, reloaded)
	assert.Equal(t, 45, cfg.Chime.PollIntervalSeconds)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	heraldDir := watcherHome(t)
	_, reloaded := startWatcher(t, heraldDir)

	configPath := filepath.Join(heraldDir, "herald.toml")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(configPath, []byte("[chime]\nclaim_batch_size = 40\n"), DefaultFilePermissions))
		time.Sleep(20 * time.Millisecond)
	}

	cfg := waitForReload(t, reloaded)
	assert.Equal(t, 40, cfg.Chime.ClaimBatchSize)

	// Five writes inside one debounce window collapse to one reload
	assertNoReload(t, reloaded)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	heraldDir := watcherHome(t)
	_, reloaded := startWatcher(t, heraldDir)

	// Databases and backup rotations live in the same directory
	require.NoError(t, os.WriteFile(filepath.Join(heraldDir, "herald.db"), []byte("x"), DefaultFilePermissions))
	require.NoError(t, os.WriteFile(filepath.Join(heraldDir, UIConfigFileName+".back1"), []byte("[chime]\n"), DefaultFilePermissions))

	assertNoReload(t, reloaded)
}

func TestWatcherSkipsOwnOverlayWrite(t *testing.T) {
	heraldDir := watcherHome(t)
	watcher, reloaded := startWatcher(t, heraldDir)

	watcher.MarkOwnWrite()
	overlay := filepath.Join(heraldDir, UIConfigFileName)
	require.NoError(t, os.WriteFile(overlay, []byte("[notify]\nmax_per_minute = 3\n"), DefaultFilePermissions))
	assertNoReload(t, reloaded)

	// Only the overlay is suppressed; a hand edit to another config file
	// inside the same window still reloads, and picks the overlay up.
	configPath := filepath.Join(heraldDir, "herald.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[chime]\npoll_interval_seconds = 9\n"), DefaultFilePermissions))

	cfg := waitForReload(t, reloaded)
	assert.Equal(t, 9, cfg.Chime.PollIntervalSeconds)
	assert.Equal(t, 3, cfg.Notify.MaxPerMinute)
}

func TestWatcherSeesOverlayFromOtherProcess(t *testing.T) {
	heraldDir := watcherHome(t)
	_, reloaded := startWatcher(t, heraldDir)

	// herald config set in another process writes the overlay without
	// marking it here, so the running server must pick it up.
	overlay := filepath.Join(heraldDir, UIConfigFileName)
	require.NoError(t, os.WriteFile(overlay, []byte("[chime]\nmax_concurrent_dispatches = 2\n"), DefaultFilePermissions))

	cfg := waitForReload(t, reloaded)
	assert.Equal(t, 2, cfg.Chime.MaxConcurrentDispatches)
}
