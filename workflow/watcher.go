package workflow

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// catalogDebounceDelay is how long to wait for further writes before
// reloading a changed catalog file. Editors often emit several events per
// save.
const catalogDebounceDelay = 500 * time.Millisecond

// CatalogWatcher watches a role catalog file and hot-reloads the selector's
// keyword table when the file changes. A reload that fails to parse keeps
// the previous table.
type CatalogWatcher struct {
	path     string
	selector *RoleSelector
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// NewCatalogWatcher creates a watcher for the given catalog path. The
// initial load happens immediately; Start begins watching for changes.
func NewCatalogWatcher(path string, selector *RoleSelector, logger *slog.Logger) (*CatalogWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := selector.LoadCatalog(path); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: many editors replace the file on
	// save, which drops a file-level watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	return &CatalogWatcher{
		path:     path,
		selector: selector,
		watcher:  fw,
		logger:   logger,
	}, nil
}

// Start runs the watch loop until the context is cancelled.
func (w *CatalogWatcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
}

// Close stops the underlying filesystem watcher.
func (w *CatalogWatcher) Close() error {
	return w.watcher.Close()
}

func (w *CatalogWatcher) watchLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(catalogDebounceDelay)
				timerC = timer.C
			} else {
				timer.Reset(catalogDebounceDelay)
			}

		case <-timerC:
			if err := w.selector.LoadCatalog(w.path); err != nil {
				w.logger.Warn("Role catalog reload failed, keeping previous catalog",
					"path", w.path, "error", err)
			} else {
				w.logger.Info("Role catalog reloaded", "path", w.path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Role catalog watch error", "error", err)
		}
	}
}
