package artifacts

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Watcher implements domain.ArtifactWatcher interface.
var _ domain.ArtifactWatcher = (*Watcher)(nil)

// Watcher waits for changes with fsnotify. Directories are watched non-recursively.
type Watcher struct{}

// NewWatcher creates a watcher.
func NewWatcher() *Watcher {
	return &Watcher{}
}

// Wait returns on the first create, write or rename under dirs, or after timeout.
// With no dirs it only waits for the timeout.
func (w *Watcher) Wait(ctx context.Context, dirs []string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if len(dirs) == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch artifacts: %w", err)
		}
	}
}
