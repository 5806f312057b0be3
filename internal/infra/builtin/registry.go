package builtin

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Registry implements domain.HookRegistry interface.
var _ domain.HookRegistry = (*Registry)(nil)

// Registry resolves framework hooks first, then custom definitions from the store.
type Registry struct {
	custom domain.HookRepository
}

// NewRegistry creates a registry over the custom hook repository.
func NewRegistry(custom domain.HookRepository) *Registry {
	return &Registry{custom: custom}
}

// Get returns a definition by name, or nil if unknown.
func (r *Registry) Get(name string) (*domain.HookDefinition, error) {
	for _, def := range FrameworkHooks() {
		if def.Name == name {
			return def, nil
		}
	}
	def, err := r.custom.GetHook(name)
	if err != nil {
		return nil, fmt.Errorf("get custom hook: %w", err)
	}
	return def, nil
}

// List returns every definition ordered by name.
func (r *Registry) List() ([]*domain.HookDefinition, error) {
	custom, err := r.custom.ListHooks()
	if err != nil {
		return nil, fmt.Errorf("list custom hooks: %w", err)
	}
	defs := FrameworkHooks()
	for _, def := range custom {
		if !IsFrameworkHook(def.Name) {
			defs = append(defs, def)
		}
	}
	slices.SortFunc(defs, func(a, b *domain.HookDefinition) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return defs, nil
}
