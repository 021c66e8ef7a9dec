package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reports changes to the token file at path, such as a logout or login
// from another terminal. The parent directory is watched so atomic replaces
// and removals are seen. The channel closes when ctx is done.
func Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("session.Watch: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("session.Watch: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, fmt.Errorf("session.Watch: %w", err)
	}

	name := filepath.Clean(path)
	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer watcher.Close() //nolint:errcheck
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				// Coalesce bursts; the reader re-reads the store anyway.
				select {
				case changes <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return changes, nil
}
