package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/pkg/logging"
)

// DefaultDebounce groups the burst of events editors emit for one save.
const DefaultDebounce = 250 * time.Millisecond

// OptionsWatcher re-registers an options file on a toolbar whenever the file
// is written. Files that fail to parse are logged and leave the toolbar
// untouched.
type OptionsWatcher struct {
	path     string
	toolbar  *overrides.Toolbar
	logger   logging.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu       sync.Mutex
	reloads  int
	onReload func(OptionSet, error)
}

// WatcherOption configures an OptionsWatcher.
type WatcherOption func(*OptionsWatcher)

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(logger logging.Logger) WatcherOption {
	return func(w *OptionsWatcher) {
		w.logger = logging.OrNop(logger)
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(delay time.Duration) WatcherOption {
	return func(w *OptionsWatcher) {
		if delay > 0 {
			w.debounce = delay
		}
	}
}

// WithReloadHook is called after every reload attempt.
func WithReloadHook(fn func(OptionSet, error)) WatcherOption {
	return func(w *OptionsWatcher) {
		w.onReload = fn
	}
}

// NewOptionsWatcher watches the directory holding path, so editors that
// replace the file through a rename are still seen.
func NewOptionsWatcher(path string, toolbar *overrides.Toolbar, opts ...WatcherOption) (*OptionsWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w := &OptionsWatcher{
		path:     abs,
		toolbar:  toolbar,
		logger:   logging.Nop(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w.watcher = fsw
	return w, nil
}

// Run blocks until ctx is done, reloading after each burst of changes.
func (w *OptionsWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("options file changed", "path", w.path, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.Reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("options watcher error", "path", w.path, "error", err)
		}
	}
}

// Reload reads the file and registers it on the toolbar.
func (w *OptionsWatcher) Reload() {
	set, err := LoadOptions(w.path)
	if err == nil {
		err = set.Register(w.toolbar)
	}

	w.mu.Lock()
	w.reloads++
	hook := w.onReload
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("options reload failed", "path", w.path, "error", err)
	} else {
		w.logger.Info("options reloaded", "path", w.path)
	}
	if hook != nil {
		hook(set, err)
	}
}

// Reloads reports how many reloads have run.
func (w *OptionsWatcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}
