package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// AddHookInput contains custom hook definitions to register.
type AddHookInput struct {
	Definitions []*domain.HookDefinition
	Replace     bool // Overwrite existing custom definitions with the same name
}

// AddHookOutput contains the result of registering hooks.
type AddHookOutput struct {
	Added      []string
	Replaced   []string
	Recompiled []string // Projects whose settings were rebuilt because a bound hook changed
}

// AddHook registers project-custom hook definitions.
type AddHook struct {
	projects domain.ProjectRepository
	hooks    domain.HookRepository
	registry domain.HookRegistry
	compile  *CompileSettings
	logger   domain.Logger
}

// NewAddHook creates a new AddHook use case.
func NewAddHook(
	projects domain.ProjectRepository,
	hooks domain.HookRepository,
	registry domain.HookRegistry,
	compile *CompileSettings,
	logger domain.Logger,
) *AddHook {
	return &AddHook{
		projects: projects,
		hooks:    hooks,
		registry: registry,
		compile:  compile,
		logger:   logger,
	}
}

// Execute validates every definition before saving any of them.
func (uc *AddHook) Execute(ctx context.Context, in AddHookInput) (*AddHookOutput, error) {
	if len(in.Definitions) == 0 {
		return nil, fmt.Errorf("%w: no hooks given", domain.ErrInvalidHook)
	}

	out := &AddHookOutput{}
	seen := make(map[string]bool, len(in.Definitions))
	replaced := make(map[string]bool)
	for _, def := range in.Definitions {
		def.Origin = domain.OriginCustom
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: %s defined twice", domain.ErrInvalidHook, def.Name)
		}
		seen[def.Name] = true

		known, err := uc.registry.Get(def.Name)
		if err != nil {
			return nil, fmt.Errorf("get hook: %w", err)
		}
		if known != nil && known.Origin == domain.OriginFramework {
			return nil, fmt.Errorf("%w: %s", domain.ErrFrameworkHook, def.Name)
		}
		existing, err := uc.hooks.GetHook(def.Name)
		if err != nil {
			return nil, fmt.Errorf("get hook: %w", err)
		}
		if existing != nil {
			if !in.Replace {
				return nil, fmt.Errorf("%w: %s", domain.ErrHookExists, def.Name)
			}
			replaced[def.Name] = true
		}
	}

	for _, def := range in.Definitions {
		if err := uc.hooks.SaveHook(def); err != nil {
			return nil, fmt.Errorf("save hook %s: %w", def.Name, err)
		}
		if replaced[def.Name] {
			out.Replaced = append(out.Replaced, def.Name)
		} else {
			out.Added = append(out.Added, def.Name)
		}
		uc.logger.Info(0, "hook", fmt.Sprintf("registered %s (%s)", def.Name, def.Event))
	}

	if len(replaced) > 0 {
		projects, err := boundProjects(uc.projects, uc.hooks, replaced)
		if err != nil {
			return nil, err
		}
		for _, id := range projects {
			if _, err := uc.compile.Execute(ctx, CompileSettingsInput{ProjectID: id}); err != nil {
				return nil, fmt.Errorf("compile settings for %s: %w", id, err)
			}
			out.Recompiled = append(out.Recompiled, id)
		}
	}
	return out, nil
}

// RemoveHookInput contains the custom hook to delete.
type RemoveHookInput struct {
	Name string
}

// RemoveHookOutput contains the result of deleting a hook.
type RemoveHookOutput struct {
	Unbound []string // Projects the hook was enabled in, now recompiled
}

// RemoveHook deletes a custom definition after disabling it everywhere.
type RemoveHook struct {
	projects domain.ProjectRepository
	hooks    domain.HookRepository
	registry domain.HookRegistry
	compile  *CompileSettings
	logger   domain.Logger
}

// NewRemoveHook creates a new RemoveHook use case.
func NewRemoveHook(
	projects domain.ProjectRepository,
	hooks domain.HookRepository,
	registry domain.HookRegistry,
	compile *CompileSettings,
	logger domain.Logger,
) *RemoveHook {
	return &RemoveHook{
		projects: projects,
		hooks:    hooks,
		registry: registry,
		compile:  compile,
		logger:   logger,
	}
}

// Execute removes the hook's bindings, recompiles those projects and deletes the definition.
func (uc *RemoveHook) Execute(ctx context.Context, in RemoveHookInput) (*RemoveHookOutput, error) {
	known, err := uc.registry.Get(in.Name)
	if err != nil {
		return nil, fmt.Errorf("get hook: %w", err)
	}
	if known != nil && known.Origin == domain.OriginFramework {
		return nil, fmt.Errorf("%w: %s", domain.ErrFrameworkHook, in.Name)
	}
	def, err := uc.hooks.GetHook(in.Name)
	if err != nil {
		return nil, fmt.Errorf("get hook: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrHookNotFound, in.Name)
	}

	projects, err := uc.projects.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := &RemoveHookOutput{}
	for _, p := range projects {
		removed, err := uc.hooks.RemoveBinding(p.ID, in.Name)
		if err != nil {
			return nil, fmt.Errorf("remove binding: %w", err)
		}
		if !removed {
			continue
		}
		if _, err := uc.compile.Execute(ctx, CompileSettingsInput{ProjectID: p.ID}); err != nil {
			return nil, fmt.Errorf("compile settings for %s: %w", p.ID, err)
		}
		out.Unbound = append(out.Unbound, p.ID)
	}

	if err := uc.hooks.DeleteHook(in.Name); err != nil {
		return nil, fmt.Errorf("delete hook: %w", err)
	}
	uc.logger.Info(0, "hook", "removed "+in.Name)
	return out, nil
}

// boundProjects returns the projects that enable any of names, ordered by ID.
func boundProjects(projects domain.ProjectRepository, hooks domain.HookRepository, names map[string]bool) ([]string, error) {
	all, err := projects.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var ids []string
	for _, p := range all {
		bindings, err := hooks.ListBindings(p.ID)
		if err != nil {
			return nil, fmt.Errorf("list bindings: %w", err)
		}
		for _, b := range bindings {
			if names[b.HookName] {
				ids = append(ids, p.ID)
				break
			}
		}
	}
	return ids, nil
}
