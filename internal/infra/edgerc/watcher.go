package edgerc

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Watcher reloads the store when the .edgerc file changes on disk. Editors
// tend to emit bursts of write/rename events, so reloads are debounced. The
// parent directory is watched rather than the file itself because atomic
// saves replace the inode.
type Watcher struct {
	logger   *zap.Logger
	store    *Store
	debounce time.Duration
	onRemove func(sections []string)
}

type WatcherOptions struct {
	// Debounce delays the reload after the last observed event.
	Debounce time.Duration
	// OnRemove is called with the section names dropped by a reload.
	OnRemove func(sections []string)
	Logger   *zap.Logger
}

func NewWatcher(store *Store, opts WatcherOptions) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultReloadDebounce
	}
	return &Watcher{
		logger:   logger.Named("edgerc_watcher"),
		store:    store,
		debounce: debounce,
		onRemove: opts.OnRemove,
	}
}

// Run blocks until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(w.store.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching edgerc", zap.String("path", w.store.Path()))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("edgerc watch error", zap.Error(err))
		case <-timerChan(timer):
			timer = nil
			w.reload()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.store.Path()
}

func (w *Watcher) reload() {
	removed, err := w.store.Reload()
	if err != nil {
		return
	}
	if len(removed) > 0 && w.onRemove != nil {
		w.onRemove(removed)
	}
}

// timerChan returns a nil channel when the timer is not armed, which blocks
// that select case forever.
func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
