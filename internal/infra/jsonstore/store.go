// Package jsonstore provides a JSON file-based implementation of the taskflow repositories.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"syscall"

	"github.com/runoshun/taskflow/internal/domain"
)

// storeData represents the JSON file structure.
// Fields are ordered to minimize memory padding.
type storeData struct {
	Tasks    map[string]*domain.Task            `json:"tasks"`
	Projects map[string]*domain.ProjectSettings `json:"projects"`
	Hooks    map[string]*domain.HookDefinition  `json:"hooks"`
	Bindings map[string][]domain.HookBinding    `json:"bindings"` // Keyed by project ID
	Sessions map[string]*domain.Session         `json:"sessions"`
	Meta     meta                               `json:"meta"`
}

// meta contains store metadata.
type meta struct {
	NextTaskID     int `json:"nextTaskID"`
	NextBindingSeq int `json:"nextBindingSeq"`
}

func newStoreData() *storeData {
	return &storeData{
		Tasks:    make(map[string]*domain.Task),
		Projects: make(map[string]*domain.ProjectSettings),
		Hooks:    make(map[string]*domain.HookDefinition),
		Bindings: make(map[string][]domain.HookBinding),
		Sessions: make(map[string]*domain.Session),
		Meta:     meta{NextTaskID: 1, NextBindingSeq: 1},
	}
}

// Store implements the taskflow repositories using a single JSON file
// guarded by an flock on a sibling lock file.
type Store struct {
	clock    domain.Clock
	path     string
	lockPath string
}

// Ensure Store implements the repositories.
var (
	_ domain.TaskRepository    = (*Store)(nil)
	_ domain.ProjectRepository = (*Store)(nil)
	_ domain.HookRepository    = (*Store)(nil)
	_ domain.SessionRepository = (*Store)(nil)
	_ domain.StoreInitializer  = (*Store)(nil)
)

// New creates a new Store for the given file path.
// The file must be created with Initialize before use.
func New(path string) *Store {
	return &Store{
		clock:    domain.RealClock{},
		path:     path,
		lockPath: path + ".lock",
	}
}

// WithClock sets the clock used to stamp new records.
func (s *Store) WithClock(clock domain.Clock) *Store {
	s.clock = clock
	return s
}

// Get retrieves a task by ID.
func (s *Store) Get(id int) (*domain.Task, error) {
	var task *domain.Task
	err := s.withLock(func(data *storeData) error {
		if t, ok := data.Tasks[strconv.Itoa(id)]; ok {
			task = t
			task.ID = id
		}
		return nil
	})
	return task, err
}

// List retrieves tasks matching the filter, ordered by ID.
func (s *Store) List(filter domain.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := s.withLock(func(data *storeData) error {
		for key, t := range data.Tasks {
			id, _ := strconv.Atoi(key)
			t.ID = id
			if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
				continue
			}
			if filter.Status != "" && t.Status != filter.Status {
				continue
			}
			tasks = append(tasks, t)
		}
		return nil
	})

	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		return a.ID - b.ID
	})
	return tasks, err
}

// Save creates or updates a task.
func (s *Store) Save(task *domain.Task) error {
	return s.withLockWrite(func(data *storeData) error {
		data.Tasks[strconv.Itoa(task.ID)] = task
		return nil
	})
}

// NextID returns the next available task ID.
func (s *Store) NextID() (int, error) {
	var id int
	err := s.withLockWrite(func(data *storeData) error {
		id = data.Meta.NextTaskID
		data.Meta.NextTaskID++
		return nil
	})
	return id, err
}

// IsInitialized checks if the store file exists.
func (s *Store) IsInitialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Initialize creates an empty store file if it doesn't exist.
func (s *Store) Initialize() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if s.IsInitialized() {
		return nil
	}
	return s.write(newStoreData())
}

// withLock executes fn with a shared (read) lock.
func (s *Store) withLock(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_SH)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}
	return fn(data)
}

// withLockWrite executes fn with an exclusive (write) lock and writes the result.
func (s *Store) withLockWrite(fn func(*storeData) error) error {
	lock, err := s.acquireLock(syscall.LOCK_EX)
	if err != nil {
		return err
	}
	defer s.releaseLock(lock)

	data, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return s.write(data)
}

func (s *Store) acquireLock(lockType int) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o750); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(lock.Fd()), lockType); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return lock, nil
}

func (s *Store) releaseLock(lock *os.File) {
	_ = syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
	_ = lock.Close()
}

func (s *Store) read() (*storeData, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotInitialized
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	data := newStoreData()
	if err := json.Unmarshal(content, data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}

	// Files written by older versions may lack some maps
	if data.Tasks == nil {
		data.Tasks = make(map[string]*domain.Task)
	}
	if data.Projects == nil {
		data.Projects = make(map[string]*domain.ProjectSettings)
	}
	if data.Hooks == nil {
		data.Hooks = make(map[string]*domain.HookDefinition)
	}
	if data.Bindings == nil {
		data.Bindings = make(map[string][]domain.HookBinding)
	}
	if data.Sessions == nil {
		data.Sessions = make(map[string]*domain.Session)
	}
	if data.Meta.NextBindingSeq == 0 {
		data.Meta.NextBindingSeq = 1
	}
	return data, nil
}

func (s *Store) write(data *storeData) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
