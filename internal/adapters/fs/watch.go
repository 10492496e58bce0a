package fs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/sessionguard/internal/ports"
	"github.com/bft-labs/sessionguard/pkg/log"
)

// fileWatcher reports changes to a single file. The parent directory is
// watched so atomic replaces (temp file, then rename) are seen.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	name    string
	logger  ports.Logger
}

func newFileWatcher(path string, logger ports.Logger) (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &fileWatcher{
		watcher: watcher,
		name:    filepath.Base(path),
		logger:  logger,
	}, nil
}

// changed blocks until the file is written, created or replaced.
// It returns false when ctx ends or the watcher fails.
func (w *fileWatcher) changed(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case event, ok := <-w.watcher.Events:
			if !ok {
				return false
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			return true

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return false
			}
			w.logger.Warn("file watcher error", log.String("file", w.name), log.Err(err))
		}
	}
}

func (w *fileWatcher) Close() error {
	return w.watcher.Close()
}
