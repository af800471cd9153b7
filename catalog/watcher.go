package catalog

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates the cache whenever a catalog file in the data directory
// changes, so edits land without waiting for the TTL. It blocks until ctx is
// cancelled.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if name != promptsFile && name != soundsFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			c.logger.Info().Str("file", name).Str("op", event.Op.String()).Msg("catalog changed on disk, invalidating cache")
			c.Invalidate()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn().Err(err).Msg("catalog watcher error")
		}
	}
}
