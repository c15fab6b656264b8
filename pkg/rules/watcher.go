package rules

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates a Store when its rule file changes on disk, so edits
// are picked up without waiting for the recheck interval.
//
// The parent directory is watched rather than the file itself: editors
// commonly replace files by rename, which would drop a watch on the file.
type Watcher struct {
	store *Store
	fsw   *fsnotify.Watcher
	file  string
	log   *slog.Logger
}

// NewWatcher starts watching the directory containing store's rule file.
// Call Run to process events and Close to release the watch.
func NewWatcher(store *Store, log *slog.Logger) (*Watcher, error) {
	file, err := filepath.Abs(store.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rule file path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(file)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(file), err)
	}

	return &Watcher{store: store, fsw: fsw, file: file, log: log}, nil
}

// Run processes file system events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.fsw.Events:
			if !ok {
				w.log.Debug("rule watcher closed")
				return
			}
			if filepath.Clean(evt.Name) != w.file {
				continue
			}
			if evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) ||
				evt.Has(fsnotify.Rename) || evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Chmod) {
				w.log.Debug("rule file changed", "path", w.file, "op", evt.Op.String())
				w.store.Invalidate()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("rule watcher error", "error", err)
		}
	}
}

// Close stops the watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
