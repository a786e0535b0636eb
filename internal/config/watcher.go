package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 500 * time.Millisecond

// Watch reloads the store whenever its backing file changes, until ctx is
// canceled. Reload failures are logged and swallowed; the previous inventory
// stays authoritative. The parent directory is watched rather than the file
// itself so rename-based saves (vim, atomic writers) keep working.
func Watch(ctx context.Context, store *Store, log *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(store.Path())
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		target := filepath.Clean(store.Path())
		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
					timerC = timer.C
				} else {
					timer.Reset(watchDebounce)
				}
			case <-timerC:
				timer = nil
				timerC = nil
				if err := store.Reload(); err != nil {
					// Already logged by the store; nothing else to do.
					continue
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("inventory watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
