package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// getDoc loads one JSON document by key. found is false when the row is missing.
func (s *Store) getDoc(query string, key any, dst any) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	var body string
	err := s.db.QueryRow(query, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return false, fmt.Errorf("decode %v: %w", key, err)
	}
	return true, nil
}

// GetProject retrieves project settings by ID.
func (s *Store) GetProject(id string) (*domain.ProjectSettings, error) {
	var p domain.ProjectSettings
	found, err := s.getDoc(`SELECT body FROM projects WHERE id = ?`, id, &p)
	if err != nil || !found {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

// SaveProject creates or updates project settings.
func (s *Store) SaveProject(p *domain.ProjectSettings) error {
	if err := s.check(); err != nil {
		return err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO projects(id, body) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET body = excluded.body`,
		p.ID, string(body),
	)
	return err
}

// ListProjects returns all projects ordered by ID.
func (s *Store) ListProjects() ([]*domain.ProjectSettings, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT id, body FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*domain.ProjectSettings
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		var p domain.ProjectSettings
		if err := json.Unmarshal([]byte(body), &p); err != nil {
			return nil, fmt.Errorf("decode project %s: %w", id, err)
		}
		p.ID = id
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// GetHook retrieves a custom definition by name.
func (s *Store) GetHook(name string) (*domain.HookDefinition, error) {
	var def domain.HookDefinition
	found, err := s.getDoc(`SELECT body FROM hooks WHERE name = ?`, name, &def)
	if err != nil || !found {
		return nil, err
	}
	return &def, nil
}

// ListHooks returns custom definitions ordered by name.
func (s *Store) ListHooks() ([]*domain.HookDefinition, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT body FROM hooks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list hooks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []*domain.HookDefinition
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var def domain.HookDefinition
		if err := json.Unmarshal([]byte(body), &def); err != nil {
			return nil, fmt.Errorf("decode hook: %w", err)
		}
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}

// SaveHook creates or replaces a custom definition.
func (s *Store) SaveHook(def *domain.HookDefinition) error {
	if err := s.check(); err != nil {
		return err
	}
	body, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal hook: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO hooks(name, body) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET body = excluded.body`,
		def.Name, string(body),
	)
	return err
}

// DeleteHook removes a custom definition.
func (s *Store) DeleteHook(name string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM hooks WHERE name = ?`, name)
	return err
}

// ListBindings returns a project's bindings ordered by (Seq, HookName).
func (s *Store) ListBindings(projectID string) ([]domain.HookBinding, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT hook, seq, created_at FROM bindings WHERE project = ? ORDER BY seq, hook`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bindings []domain.HookBinding
	for rows.Next() {
		b := domain.HookBinding{ProjectID: projectID}
		var created string
		if err := rows.Scan(&b.HookName, &b.Seq, &created); err != nil {
			return nil, err
		}
		if b.Created, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse binding time: %w", err)
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

// AddBinding enables a hook for a project. Existing bindings are returned unchanged.
func (s *Store) AddBinding(projectID, hookName string) (domain.HookBinding, bool, error) {
	binding := domain.HookBinding{ProjectID: projectID, HookName: hookName}
	var created bool
	err := s.withTx(func(ctx context.Context, tx *sql.Tx) error {
		var createdAt string
		err := tx.QueryRowContext(ctx,
			`SELECT seq, created_at FROM bindings WHERE project = ? AND hook = ?`,
			projectID, hookName,
		).Scan(&binding.Seq, &createdAt)
		if err == nil {
			binding.Created, err = parseTime(createdAt)
			return err
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		seq, err := nextCounter(ctx, tx, metaNextBindingSeq)
		if err != nil {
			return err
		}
		binding.Seq = seq
		binding.Created = s.clock.Now()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bindings(project, hook, seq, created_at) VALUES (?, ?, ?, ?)`,
			projectID, hookName, seq, formatTime(binding.Created),
		); err != nil {
			return fmt.Errorf("insert binding: %w", err)
		}
		created = true
		return nil
	})
	return binding, created, err
}

// RemoveBinding disables a hook for a project.
func (s *Store) RemoveBinding(projectID, hookName string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	res, err := s.db.Exec(`DELETE FROM bindings WHERE project = ? AND hook = ?`, projectID, hookName)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetSession retrieves a session record by ID.
func (s *Store) GetSession(id string) (*domain.Session, error) {
	var sess domain.Session
	found, err := s.getDoc(`SELECT body FROM sessions WHERE id = ?`, id, &sess)
	if err != nil || !found {
		return nil, err
	}
	sess.ID = id
	return &sess, nil
}

// ListSessions returns session records ordered by creation time.
func (s *Store) ListSessions() ([]*domain.Session, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT id, body FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*domain.Session
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		var sess domain.Session
		if err := json.Unmarshal([]byte(body), &sess); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", id, err)
		}
		sess.ID = id
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// SaveSession creates or updates a session record.
func (s *Store) SaveSession(sess *domain.Session) error {
	if err := s.check(); err != nil {
		return err
	}
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions(id, created_at, body) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body`,
		sess.ID, formatTime(sess.Created), string(body),
	)
	return err
}
