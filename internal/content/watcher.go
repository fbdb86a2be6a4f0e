package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a reload.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a Store when documents in its directory change.
type Watcher struct {
	store    *Store
	logger   *slog.Logger
	debounce *debouncer
}

// NewWatcher returns a Watcher for store. A non-positive interval selects
// DefaultDebounce.
func NewWatcher(store *Store, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:    store,
		logger:   logger,
		debounce: newDebouncer(interval),
	}
}

// Run blocks until ctx is cancelled. A missing content directory is not an
// error: Run logs it and waits for ctx.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debounce.stop()

	dir := w.store.Dir()
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.logger.Info("content_watch_disabled", slog.String("dir", dir), slog.String("reason", "directory missing"))
			<-ctx.Done()
			return nil
		}
		return fmt.Errorf("content: stat %s: %w", dir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("content: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("content: watch %s: %w", dir, err)
	}
	w.logger.Info("content_watch_started", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("content: watcher events channel closed")
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("content_changed", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			w.debounce.trigger(func() {
				if err := w.store.Load(); err != nil {
					w.logger.Error("content_reload_failed", slog.String("error", err.Error()))
				}
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("content: watcher errors channel closed")
			}
			w.logger.Error("content_watch_error", slog.String("error", err.Error()))
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	_, ok := slugOf(filepath.Base(ev.Name))
	return ok
}

// debouncer runs the latest callback once no trigger arrived for interval.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
