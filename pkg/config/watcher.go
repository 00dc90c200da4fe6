package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the watcher waits after the last
// file event before invoking the reload callback.
const DefaultDebounceInterval = 200 * time.Millisecond

// Watcher watches a config file and triggers reloads on change. Editors
// commonly save via write-rename-chmod bursts; the watcher debounces those
// into a single reload and re-arms the watch when the file is replaced.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the config file at path.
// A non-positive debounce means DefaultDebounceInterval.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the parent directory: atomic-save editors replace the file,
	// and a watch on the old inode would go silent.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		path:     path,
		debounce: debounce,
		logger:   slog.Default().With("component", "config.watcher", "path", path),
		watcher:  fw,
	}, nil
}

// Watch blocks until ctx is cancelled, invoking onReload after each
// debounced burst of changes to the watched file. Reload errors are logged
// and do not stop the watcher; the previous configuration stays active.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	w.logger.Info("config watcher started", "debounce", w.debounce)

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	arm := func() {
		if timer == nil {
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
			return
		}
		timer.Reset(w.debounce)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("config file event", "op", event.Op.String())
			arm()

		case <-pending:
			if err := onReload(); err != nil {
				w.logger.Error("config reload failed, keeping previous configuration", "error", err)
			} else {
				w.logger.Info("configuration reloaded")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
