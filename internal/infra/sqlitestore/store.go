// Package sqlitestore provides a SQLite implementation of the taskflow repositories.
// Entities are stored as JSON documents next to the columns queries filter on.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
	_ "modernc.org/sqlite"
)

// Ensure Store implements the repositories.
var (
	_ domain.TaskRepository    = (*Store)(nil)
	_ domain.ProjectRepository = (*Store)(nil)
	_ domain.HookRepository    = (*Store)(nil)
	_ domain.SessionRepository = (*Store)(nil)
	_ domain.StoreInitializer  = (*Store)(nil)
)

const (
	metaNextTaskID     = "next_task_id"
	metaNextBindingSeq = "next_binding_seq"
)

// Store implements the repositories on a SQLite database file.
type Store struct {
	clock domain.Clock
	db    *sql.DB
	path  string
}

// Open opens (but does not migrate) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create sqlite parent dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single connection per process; busy_timeout covers writers in other processes.
	db.SetMaxOpenConns(1)
	return &Store{clock: domain.RealClock{}, db: db, path: path}, nil
}

// WithClock sets the clock used to stamp new records.
func (s *Store) WithClock(clock domain.Clock) *Store {
	s.clock = clock
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsInitialized reports whether the schema exists.
func (s *Store) IsInitialized() bool {
	if _, err := os.Stat(s.path); err != nil {
		return false
	}
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'meta'`).Scan(&n)
	return err == nil && n == 1
}

// Initialize creates the schema if it doesn't exist.
func (s *Store) Initialize() error {
	ctx := context.Background()
	statements := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY,
			project TEXT NOT NULL,
			status TEXT NOT NULL,
			body TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS tasks_project_status ON tasks(project, status);`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			body TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS hooks (
			name TEXT PRIMARY KEY,
			body TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS bindings (
			project TEXT NOT NULL,
			hook TEXT NOT NULL,
			seq INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (project, hook)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			body TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key, value) VALUES ('` + metaNextTaskID + `', 1), ('` + metaNextBindingSeq + `', 1);`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	return nil
}

// check maps a missing schema to ErrNotInitialized.
func (s *Store) check() error {
	if !s.IsInitialized() {
		return domain.ErrNotInitialized
	}
	return nil
}

// nextCounter increments a meta counter inside tx and returns its previous value.
func nextCounter(ctx context.Context, tx *sql.Tx, key string) (int, error) {
	var value int
	if err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value); err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE meta SET value = ? WHERE key = ?`, value+1, key); err != nil {
		return 0, fmt.Errorf("update %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) withTx(fn func(ctx context.Context, tx *sql.Tx) error) error {
	if err := s.check(); err != nil {
		return err
	}
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Get retrieves a task by ID.
func (s *Store) Get(id int) (*domain.Task, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	var body string
	err := s.db.QueryRow(`SELECT body FROM tasks WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}
	return decodeTask(id, body)
}

// List retrieves tasks matching the filter, ordered by ID.
func (s *Store) List(filter domain.TaskFilter) ([]*domain.Task, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, body FROM tasks
		 WHERE (? = '' OR project = ?) AND (? = '' OR status = ?)
		 ORDER BY id`,
		filter.ProjectID, filter.ProjectID, string(filter.Status), string(filter.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		var id int
		var body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task, err := decodeTask(id, body)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Save creates or updates a task.
func (s *Store) Save(task *domain.Task) error {
	if err := s.check(); err != nil {
		return err
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO tasks(id, project, status, body) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET project = excluded.project, status = excluded.status, body = excluded.body`,
		task.ID, task.ProjectID, string(task.Status), string(body),
	)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// NextID returns the next available task ID.
func (s *Store) NextID() (int, error) {
	var id int
	err := s.withTx(func(ctx context.Context, tx *sql.Tx) error {
		var err error
		id, err = nextCounter(ctx, tx, metaNextTaskID)
		return err
	})
	return id, err
}

func decodeTask(id int, body string) (*domain.Task, error) {
	var task domain.Task
	if err := json.Unmarshal([]byte(body), &task); err != nil {
		return nil, fmt.Errorf("decode task %d: %w", id, err)
	}
	task.ID = id
	return &task, nil
}

// timeLayout has a fixed width so stored timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}
