// Package marker provides a cross-process recursion guard built on lock files.
package marker

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Guard implements domain.RecursionGuard interface.
var _ domain.RecursionGuard = (*Guard)(nil)

// Guard holds one marker file per key. Creation with O_EXCL is the test-and-set.
// A marker older than ttl belongs to a crashed holder and may be taken over.
type Guard struct {
	now func() time.Time
	dir string
	ttl time.Duration
}

// NewGuard creates a guard storing markers in dir.
func NewGuard(dir string, ttl time.Duration) *Guard {
	return &Guard{now: time.Now, dir: dir, ttl: ttl}
}

// TryAcquire creates the marker for key. Returns false if a live marker exists.
func (g *Guard) TryAcquire(key string) (bool, error) {
	if err := os.MkdirAll(g.dir, 0o750); err != nil {
		return false, fmt.Errorf("create lock dir: %w", err)
	}
	path := g.path(key)

	ok, err := g.create(path)
	if ok || err != nil {
		return ok, err
	}

	return g.takeOver(path)
}

// takeOver replaces a stale marker. Takeovers of one key are serialized by a flock
// on a sibling file, and the marker is re-checked under it, so a marker created by
// a concurrent takeover is never removed.
func (g *Guard) takeOver(path string) (bool, error) {
	lock, err := os.OpenFile(path+".takeover", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return false, fmt.Errorf("open takeover lock: %w", err)
	}
	defer func() { _ = lock.Close() }()
	if err := syscall.Flock(int(lock.Fd()), syscall.LOCK_EX); err != nil {
		return false, fmt.Errorf("acquire takeover lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN) }()

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		// Released between our attempt and the stat.
		return g.create(path)
	}
	if err != nil {
		return false, fmt.Errorf("stat lock: %w", err)
	}
	if g.ttl <= 0 || g.now().Sub(info.ModTime()) < g.ttl {
		return false, nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("remove stale lock: %w", err)
	}
	return g.create(path)
}

// Release removes the marker for key.
func (g *Guard) Release(key string) error {
	if err := os.Remove(g.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

func (g *Guard) create(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create lock: %w", err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close lock: %w", err)
	}
	return true, nil
}

// path maps key to a file name. Escaping is injective, so distinct keys never share a marker.
func (g *Guard) path(key string) string {
	return filepath.Join(g.dir, url.PathEscape(key)+".lock")
}

// Ensure TaskLocks implements domain.TaskLocker interface.
var _ domain.TaskLocker = (*TaskLocks)(nil)

// TaskLocks serializes transitions of a task across processes with a marker per task.
type TaskLocks struct {
	guard *Guard
}

// NewTaskLocks creates task locks stored in dir.
func NewTaskLocks(dir string, ttl time.Duration) *TaskLocks {
	return &TaskLocks{guard: NewGuard(dir, ttl)}
}

// TryLock takes the task's marker without waiting.
// A marker that cannot be created counts as held.
func (l *TaskLocks) TryLock(taskID int) (func(), bool) {
	key := "task-" + strconv.Itoa(taskID)
	ok, err := l.guard.TryAcquire(key)
	if err != nil || !ok {
		return nil, false
	}
	var released bool
	return func() {
		if !released {
			released = true
			_ = l.guard.Release(key)
		}
	}, true
}
