package marker

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_AcquireRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	guard := NewGuard(dir, time.Minute)

	ok, err := guard.TryAcquire("web.fmt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, "web.fmt.lock"))

	ok, err = guard.TryAcquire("web.fmt")
	require.NoError(t, err)
	assert.False(t, ok)

	// A second guard on the same dir sees the marker too
	ok, err = NewGuard(dir, time.Minute).TryAcquire("web.fmt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, guard.Release("web.fmt"))
	require.NoError(t, guard.Release("web.fmt"))

	ok, err = guard.TryAcquire("web.fmt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuard_StaleMarker(t *testing.T) {
	dir := t.TempDir()
	guard := NewGuard(dir, time.Minute)

	ok, err := guard.TryAcquire("web.fmt")
	require.NoError(t, err)
	require.True(t, ok)

	old := time.Now().Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "web.fmt.lock"), old, old))

	ok, err = guard.TryAcquire("web.fmt")
	require.NoError(t, err)
	assert.True(t, ok, "marker older than ttl is taken over")
}

func TestGuard_KeyWithSlash(t *testing.T) {
	dir := t.TempDir()
	guard := NewGuard(dir, time.Minute)

	ok, err := guard.TryAcquire("team/web.fmt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, "team%2Fweb.fmt.lock"))

	// Keys that differ only by separator get their own markers
	ok, err = guard.TryAcquire("team_web.fmt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuard_Concurrent(t *testing.T) {
	guard := NewGuard(t.TempDir(), time.Minute)

	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := guard.TryAcquire("web.fmt")
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestGuard_ConcurrentStaleTakeover(t *testing.T) {
	dir := t.TempDir()
	guard := NewGuard(dir, time.Minute)

	ok, err := guard.TryAcquire("web.fmt")
	require.NoError(t, err)
	require.True(t, ok)
	old := time.Now().Add(-2 * time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "web.fmt.lock"), old, old))

	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := NewGuard(dir, time.Minute).TryAcquire("web.fmt")
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load(), "exactly one caller takes over a stale marker")
}

func TestTaskLocks_TryLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	locks := NewTaskLocks(dir, time.Minute)

	unlock, ok := locks.TryLock(7)
	require.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, "task-7.lock"))

	_, ok = NewTaskLocks(dir, time.Minute).TryLock(7)
	assert.False(t, ok, "another process sees the lock")

	other, ok := locks.TryLock(8)
	require.True(t, ok)
	other()

	unlock()
	unlock()
	assert.NoFileExists(t, filepath.Join(dir, "task-7.lock"))

	unlock, ok = locks.TryLock(7)
	require.True(t, ok)
	unlock()
}
