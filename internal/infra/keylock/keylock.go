// Package keylock provides in-process keyed locks.
package keylock

import (
	"sync"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure the locks implement the domain ports.
var (
	_ domain.TaskLocker     = (*TaskLocks)(nil)
	_ domain.RecursionGuard = (*Guard)(nil)
)

// TaskLocks serializes transitions per task ID within one process.
type TaskLocks struct {
	held map[int]struct{}
	mu   sync.Mutex
}

// NewTaskLocks creates an empty lock set.
func NewTaskLocks() *TaskLocks {
	return &TaskLocks{held: make(map[int]struct{})}
}

// TryLock takes the lock for taskID without waiting.
// The returned unlock func is safe to call more than once.
func (l *TaskLocks) TryLock(taskID int) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[taskID]; ok {
		return nil, false
	}
	l.held[taskID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, taskID)
			l.mu.Unlock()
		})
	}, true
}

// Guard is a test-and-set recursion guard whose entries expire after a TTL.
// Fields are ordered to minimize memory padding.
type Guard struct {
	now     func() time.Time
	expires map[string]time.Time
	ttl     time.Duration
	mu      sync.Mutex
}

// NewGuard creates a guard. A zero ttl means entries never expire.
func NewGuard(ttl time.Duration) *Guard {
	return &Guard{
		now:     time.Now,
		expires: make(map[string]time.Time),
		ttl:     ttl,
	}
}

// TryAcquire takes key unless it is held and not yet expired.
func (g *Guard) TryAcquire(key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, ok := g.expires[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}
	var exp time.Time
	if g.ttl > 0 {
		exp = now.Add(g.ttl)
	}
	g.expires[key] = exp
	return true, nil
}

// Release frees key. Releasing a free key is a no-op.
func (g *Guard) Release(key string) error {
	g.mu.Lock()
	delete(g.expires, key)
	g.mu.Unlock()
	return nil
}
