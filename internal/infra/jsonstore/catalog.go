package jsonstore

import (
	"cmp"
	"slices"

	"github.com/runoshun/taskflow/internal/domain"
)

// GetProject retrieves project settings by ID.
func (s *Store) GetProject(id string) (*domain.ProjectSettings, error) {
	var project *domain.ProjectSettings
	err := s.withLock(func(data *storeData) error {
		if p, ok := data.Projects[id]; ok {
			project = p
			project.ID = id
		}
		return nil
	})
	return project, err
}

// SaveProject creates or updates project settings.
func (s *Store) SaveProject(p *domain.ProjectSettings) error {
	return s.withLockWrite(func(data *storeData) error {
		data.Projects[p.ID] = p
		return nil
	})
}

// ListProjects returns all projects ordered by ID.
func (s *Store) ListProjects() ([]*domain.ProjectSettings, error) {
	var projects []*domain.ProjectSettings
	err := s.withLock(func(data *storeData) error {
		for id, p := range data.Projects {
			p.ID = id
			projects = append(projects, p)
		}
		return nil
	})
	slices.SortFunc(projects, func(a, b *domain.ProjectSettings) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return projects, err
}

// GetHook retrieves a custom hook definition by name.
func (s *Store) GetHook(name string) (*domain.HookDefinition, error) {
	var def *domain.HookDefinition
	err := s.withLock(func(data *storeData) error {
		def = data.Hooks[name]
		return nil
	})
	return def, err
}

// ListHooks returns custom definitions ordered by name.
func (s *Store) ListHooks() ([]*domain.HookDefinition, error) {
	var defs []*domain.HookDefinition
	err := s.withLock(func(data *storeData) error {
		for _, d := range data.Hooks {
			defs = append(defs, d)
		}
		return nil
	})
	slices.SortFunc(defs, func(a, b *domain.HookDefinition) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return defs, err
}

// SaveHook creates or replaces a custom definition.
func (s *Store) SaveHook(def *domain.HookDefinition) error {
	return s.withLockWrite(func(data *storeData) error {
		data.Hooks[def.Name] = def
		return nil
	})
}

// DeleteHook removes a custom definition.
func (s *Store) DeleteHook(name string) error {
	return s.withLockWrite(func(data *storeData) error {
		delete(data.Hooks, name)
		return nil
	})
}

// ListBindings returns a project's bindings ordered by (Seq, HookName).
func (s *Store) ListBindings(projectID string) ([]domain.HookBinding, error) {
	var bindings []domain.HookBinding
	err := s.withLock(func(data *storeData) error {
		bindings = slices.Clone(data.Bindings[projectID])
		return nil
	})
	SortBindings(bindings)
	return bindings, err
}

// AddBinding enables a hook for a project. Existing bindings are returned unchanged.
func (s *Store) AddBinding(projectID, hookName string) (domain.HookBinding, bool, error) {
	var binding domain.HookBinding
	var created bool
	err := s.withLockWrite(func(data *storeData) error {
		for _, b := range data.Bindings[projectID] {
			if b.HookName == hookName {
				binding = b
				return nil
			}
		}
		binding = domain.HookBinding{
			Created:   s.clock.Now(),
			ProjectID: projectID,
			HookName:  hookName,
			Seq:       data.Meta.NextBindingSeq,
		}
		data.Meta.NextBindingSeq++
		data.Bindings[projectID] = append(data.Bindings[projectID], binding)
		created = true
		return nil
	})
	return binding, created, err
}

// RemoveBinding disables a hook for a project.
func (s *Store) RemoveBinding(projectID, hookName string) (bool, error) {
	var removed bool
	err := s.withLockWrite(func(data *storeData) error {
		before := len(data.Bindings[projectID])
		data.Bindings[projectID] = slices.DeleteFunc(data.Bindings[projectID], func(b domain.HookBinding) bool {
			return b.HookName == hookName
		})
		removed = len(data.Bindings[projectID]) < before
		if len(data.Bindings[projectID]) == 0 {
			delete(data.Bindings, projectID)
		}
		return nil
	})
	return removed, err
}

// SortBindings orders bindings by (Seq, HookName).
func SortBindings(bindings []domain.HookBinding) {
	slices.SortFunc(bindings, func(a, b domain.HookBinding) int {
		if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
			return c
		}
		return cmp.Compare(a.HookName, b.HookName)
	})
}

// GetSession retrieves a session record by ID.
func (s *Store) GetSession(id string) (*domain.Session, error) {
	var session *domain.Session
	err := s.withLock(func(data *storeData) error {
		if sess, ok := data.Sessions[id]; ok {
			session = sess
			session.ID = id
		}
		return nil
	})
	return session, err
}

// ListSessions returns session records ordered by creation time.
func (s *Store) ListSessions() ([]*domain.Session, error) {
	var sessions []*domain.Session
	err := s.withLock(func(data *storeData) error {
		for id, sess := range data.Sessions {
			sess.ID = id
			sessions = append(sessions, sess)
		}
		return nil
	})
	slices.SortFunc(sessions, func(a, b *domain.Session) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sessions, err
}

// SaveSession creates or updates a session record.
func (s *Store) SaveSession(sess *domain.Session) error {
	return s.withLockWrite(func(data *storeData) error {
		data.Sessions[sess.ID] = sess
		return nil
	})
}
