package config

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/logger"
)

// ReloadCallback receives the freshly loaded config after a watched
// file changes on disk.
type ReloadCallback func(*Config) error

// ConfigWatcher reloads the global config when a watched file changes.
// Targets may be files or directories; directory events are filtered to
// the config basenames Herald reads. Overlay writes Herald makes itself
// are marked beforehand and skipped, otherwise every save through the
// settings API would trigger a reload of the state that produced it.
type ConfigWatcher struct {
	targets []string
	fsw     *fsnotify.Watcher

	mu        sync.Mutex
	callbacks []ReloadCallback
	timer     *time.Timer

	ownWriteUntil atomic.Int64 // unix nanos
}

// debouncePeriod absorbs editor save bursts (write, chmod, rename
// chains) into a single reload.
const debouncePeriod = 500 * time.Millisecond

// ownWriteWindow covers all filesystem events of a single overlay save.
// A directory watch can see a create and several writes for one save,
// so a one-shot flag is not enough.
const ownWriteWindow = 2 * time.Second

var (
	globalWatcher   *ConfigWatcher
	globalWatcherMu sync.Mutex
)

// NewConfigWatcher creates a watcher over the given files and
// directories. Every target must exist.
func NewConfigWatcher(targets ...string) (*ConfigWatcher, error) {
	if len(targets) == 0 {
		return nil, errors.New("config watcher needs at least one target")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	for _, target := range targets {
		if err := fsw.Add(target); err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", target)
		}
	}
	return &ConfigWatcher{targets: targets, fsw: fsw}, nil
}

// OnReload registers a callback invoked after each successful reload.
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// MarkOwnWrite flags the overlay save Herald is about to make so the
// resulting file events do not bounce back as a reload.
func (cw *ConfigWatcher) MarkOwnWrite() {
	cw.ownWriteUntil.Store(time.Now().Add(ownWriteWindow).UnixNano())
}

// Start begins watching in a background goroutine.
func (cw *ConfigWatcher) Start() {
	go cw.run()
}

// Stop closes the underlying watcher; the run loop drains and exits.
func (cw *ConfigWatcher) Stop() error {
	return cw.fsw.Close()
}

func (cw *ConfigWatcher) run() {
	for {
		select {
		case event, ok := <-cw.fsw.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !watchedConfigName(event.Name) {
				continue
			}
			if cw.isOwnWrite(event.Name) {
				logger.Debugw("Config watcher ignoring own overlay write",
					"file", event.Name)
				continue
			}
			logger.Infow("Config watcher detected change",
				"file", event.Name,
				"op", event.Op.String())
			cw.scheduleReload()

		case err, ok := <-cw.fsw.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error",
				"error", err)
		}
	}
}

// watchedConfigName reports whether a changed path is one of the config
// files Herald reads. Directory targets deliver events for everything
// in ~/.herald, including databases and backup rotations, which must
// not trigger reloads.
func watchedConfigName(path string) bool {
	switch filepath.Base(path) {
	case "config.toml", "herald.toml", UIConfigFileName:
		return true
	}
	return false
}

// isOwnWrite reports whether an event is part of an overlay save Herald
// made itself. Only the overlay file is ever written by Herald; edits
// to any other config file always reload.
func (cw *ConfigWatcher) isOwnWrite(path string) bool {
	if filepath.Base(path) != UIConfigFileName {
		return false
	}
	return time.Now().UnixNano() < cw.ownWriteUntil.Load()
}

// scheduleReload resets the debounce timer; the reload fires once the
// files have been quiet for debouncePeriod.
func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(debouncePeriod, func() {
		if err := cw.reload(); err != nil {
			logger.Errorw("Config reload failed",
				"error", err)
		}
	})
}

func (cw *ConfigWatcher) reload() error {
	Reset()
	newConfig, err := Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	logger.Infow("Config reloaded successfully",
		"targets", cw.targets)

	cw.mu.Lock()
	callbacks := make([]ReloadCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	for _, callback := range callbacks {
		if err := callback(newConfig); err != nil {
			// Continue calling other callbacks even if one fails
			logger.Warnw("Config reload callback error",
				"error", err)
		}
	}
	return nil
}

// SetGlobalWatcher installs the process-wide watcher that saveUIConfig
// marks before writing the overlay file.
func SetGlobalWatcher(watcher *ConfigWatcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = watcher
}
