// Package pending persists failed hook actions as JSON marker files.
package pending

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Store implements domain.PendingStore interface.
var _ domain.PendingStore = (*Store)(nil)

// Store keeps one file per (project, hook) under <dataDir>/pending/<project>/.
type Store struct {
	dataDir string
}

// NewStore creates a pending marker store.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// Put writes a marker, replacing any previous one for the hook.
func (s *Store) Put(p domain.PendingHook) error {
	dir := domain.PendingDir(s.dataDir, p.ProjectID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create pending dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pending marker: %w", err)
	}

	path := filepath.Join(dir, p.HookName+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write pending marker: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename pending marker: %w", err)
	}
	return nil
}

// List returns the markers of a project ordered by hook name.
func (s *Store) List(projectID string) ([]domain.PendingHook, error) {
	dir := domain.PendingDir(s.dataDir, projectID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending dir: %w", err)
	}

	var markers []domain.PendingHook
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read pending marker: %w", err)
		}
		var p domain.PendingHook
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse pending marker %s: %w", entry.Name(), err)
		}
		markers = append(markers, p)
	}
	slices.SortFunc(markers, func(a, b domain.PendingHook) int {
		return cmp.Compare(a.HookName, b.HookName)
	})
	return markers, nil
}

// Clear removes one marker, or all markers of the project when hookName is empty.
// Returns the number of markers removed.
func (s *Store) Clear(projectID, hookName string) (int, error) {
	if hookName != "" {
		err := os.Remove(filepath.Join(domain.PendingDir(s.dataDir, projectID), hookName+".json"))
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("remove pending marker: %w", err)
		}
		return 1, nil
	}

	markers, err := s.List(projectID)
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(domain.PendingDir(s.dataDir, projectID)); err != nil {
		return 0, fmt.Errorf("remove pending dir: %w", err)
	}
	return len(markers), nil
}
