// Package procs records background processes started for tasks.
package procs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Tracker implements domain.ProcessTracker interface.
var _ domain.ProcessTracker = (*Tracker)(nil)

// Tracker stores a JSON list of processes per task under <dataDir>/procs.
type Tracker struct {
	dataDir string
	mu      sync.Mutex
}

// NewTracker creates a process tracker.
func NewTracker(dataDir string) *Tracker {
	return &Tracker{dataDir: dataDir}
}

// Track records a process for a task.
func (t *Tracker) Track(taskID int, proc domain.TrackedProcess) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	procs, err := t.read(taskID)
	if err != nil {
		return err
	}
	return t.write(taskID, append(procs, proc))
}

// List returns the recorded processes of a task in start order.
func (t *Tracker) List(taskID int) ([]domain.TrackedProcess, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.read(taskID)
}

// Terminate sends SIGTERM to the process group led by pid, falling back to pid alone.
// A process that already exited is not an error.
func (t *Tracker) Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	err := syscall.Kill(-pid, syscall.SIGTERM)
	if err == nil {
		return nil
	}
	err = syscall.Kill(pid, syscall.SIGTERM)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return fmt.Errorf("terminate %d: %w", pid, err)
}

// Clear forgets the processes of a task.
func (t *Tracker) Clear(taskID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := os.Remove(domain.ProcsPath(t.dataDir, taskID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear processes: %w", err)
	}
	return nil
}

func (t *Tracker) read(taskID int) ([]domain.TrackedProcess, error) {
	data, err := os.ReadFile(domain.ProcsPath(t.dataDir, taskID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read processes: %w", err)
	}
	var procs []domain.TrackedProcess
	if err := json.Unmarshal(data, &procs); err != nil {
		return nil, fmt.Errorf("parse processes: %w", err)
	}
	return procs, nil
}

func (t *Tracker) write(taskID int, procs []domain.TrackedProcess) error {
	path := domain.ProcsPath(t.dataDir, taskID)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create procs dir: %w", err)
	}
	data, err := json.MarshalIndent(procs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal processes: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write processes: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename processes: %w", err)
	}
	return nil
}
