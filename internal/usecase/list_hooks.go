package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// ListHooksInput contains the parameters for listing hooks.
type ListHooksInput struct {
	ProjectID string // When set, bindings of this project are reported
}

// HookListing is one definition with its binding in the requested project.
type HookListing struct {
	Definition *domain.HookDefinition
	Binding    *domain.HookBinding // nil when not enabled
}

// ListHooksOutput contains every known hook ordered by name.
type ListHooksOutput struct {
	Hooks []HookListing
}

// ListHooks lists framework and custom hooks.
type ListHooks struct {
	projects domain.ProjectRepository
	hooks    domain.HookRepository
	registry domain.HookRegistry
}

// NewListHooks creates a new ListHooks use case.
func NewListHooks(projects domain.ProjectRepository, hooks domain.HookRepository, registry domain.HookRegistry) *ListHooks {
	return &ListHooks{
		projects: projects,
		hooks:    hooks,
		registry: registry,
	}
}

// Execute returns the hooks, marking those enabled in the project.
func (uc *ListHooks) Execute(_ context.Context, in ListHooksInput) (*ListHooksOutput, error) {
	defs, err := uc.registry.List()
	if err != nil {
		return nil, fmt.Errorf("list hooks: %w", err)
	}

	bound := make(map[string]domain.HookBinding)
	if in.ProjectID != "" {
		if _, err := requireProject(uc.projects, in.ProjectID); err != nil {
			return nil, err
		}
		bindings, err := uc.hooks.ListBindings(in.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("list bindings: %w", err)
		}
		for _, b := range bindings {
			bound[b.HookName] = b
		}
	}

	out := &ListHooksOutput{Hooks: make([]HookListing, 0, len(defs))}
	for _, def := range defs {
		listing := HookListing{Definition: def}
		if b, ok := bound[def.Name]; ok {
			listing.Binding = &b
		}
		out.Hooks = append(out.Hooks, listing)
	}
	return out, nil
}
