package usecase

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/runoshun/taskflow/internal/domain"
)

// EnableHookInput contains the parameters for enabling a hook in a project.
type EnableHookInput struct {
	ProjectID string
	HookName  string
}

// EnableHookOutput contains the result of enabling a hook.
type EnableHookOutput struct {
	Compiled            *CompileSettingsOutput
	MissingDependencies []string
	Binding             domain.HookBinding
	Created             bool
}

// EnableHook binds a hook to a project and recompiles the project's settings.
type EnableHook struct {
	projects domain.ProjectRepository
	hooks    domain.HookRepository
	registry domain.HookRegistry
	compile  *CompileSettings
	lookPath func(file string) (string, error)
	logger   domain.Logger
}

// NewEnableHook creates a new EnableHook use case.
func NewEnableHook(
	projects domain.ProjectRepository,
	hooks domain.HookRepository,
	registry domain.HookRegistry,
	compile *CompileSettings,
	logger domain.Logger,
) *EnableHook {
	return &EnableHook{
		projects: projects,
		hooks:    hooks,
		registry: registry,
		compile:  compile,
		lookPath: exec.LookPath,
		logger:   logger,
	}
}

// SetLookPath replaces the dependency lookup for testing.
func (uc *EnableHook) SetLookPath(fn func(file string) (string, error)) {
	uc.lookPath = fn
}

// Execute enables the hook. Enabling an enabled hook adds no binding but still
// recompiles, so a retry after a failed compile brings the settings up to date.
// Missing dependencies are reported but do not block enabling.
func (uc *EnableHook) Execute(ctx context.Context, in EnableHookInput) (*EnableHookOutput, error) {
	if _, err := requireProject(uc.projects, in.ProjectID); err != nil {
		return nil, err
	}
	def, err := uc.registry.Get(in.HookName)
	if err != nil {
		return nil, fmt.Errorf("get hook: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrHookNotFound, in.HookName)
	}

	out := &EnableHookOutput{}
	for _, dep := range def.Dependencies {
		if _, err := uc.lookPath(dep); err != nil {
			out.MissingDependencies = append(out.MissingDependencies, dep)
		}
	}
	if len(out.MissingDependencies) > 0 {
		uc.logger.Warn(0, "hook", fmt.Sprintf("%s: missing dependencies %v", def.Name, out.MissingDependencies))
	}

	out.Binding, out.Created, err = uc.hooks.AddBinding(in.ProjectID, def.Name)
	if err != nil {
		return nil, fmt.Errorf("add binding: %w", err)
	}
	if out.Created {
		uc.logger.Info(0, "hook", fmt.Sprintf("enabled %s in %s", def.Name, in.ProjectID))
	}

	out.Compiled, err = uc.compile.Execute(ctx, CompileSettingsInput{ProjectID: in.ProjectID})
	if err != nil {
		return nil, fmt.Errorf("compile settings: %w", err)
	}
	return out, nil
}

// DisableHookInput contains the parameters for disabling a hook in a project.
type DisableHookInput struct {
	ProjectID string
	HookName  string
}

// DisableHookOutput contains the result of disabling a hook.
type DisableHookOutput struct {
	Compiled *CompileSettingsOutput
	Removed  bool
}

// DisableHook removes a project's binding and recompiles. The definition is kept.
type DisableHook struct {
	projects domain.ProjectRepository
	hooks    domain.HookRepository
	compile  *CompileSettings
	logger   domain.Logger
}

// NewDisableHook creates a new DisableHook use case.
func NewDisableHook(
	projects domain.ProjectRepository,
	hooks domain.HookRepository,
	compile *CompileSettings,
	logger domain.Logger,
) *DisableHook {
	return &DisableHook{
		projects: projects,
		hooks:    hooks,
		compile:  compile,
		logger:   logger,
	}
}

// Execute disables the hook. Settings are recompiled even when nothing was removed.
func (uc *DisableHook) Execute(ctx context.Context, in DisableHookInput) (*DisableHookOutput, error) {
	if _, err := requireProject(uc.projects, in.ProjectID); err != nil {
		return nil, err
	}
	removed, err := uc.hooks.RemoveBinding(in.ProjectID, in.HookName)
	if err != nil {
		return nil, fmt.Errorf("remove binding: %w", err)
	}
	out := &DisableHookOutput{Removed: removed}
	if removed {
		uc.logger.Info(0, "hook", fmt.Sprintf("disabled %s in %s", in.HookName, in.ProjectID))
	}

	out.Compiled, err = uc.compile.Execute(ctx, CompileSettingsInput{ProjectID: in.ProjectID})
	if err != nil {
		return nil, fmt.Errorf("compile settings: %w", err)
	}
	return out, nil
}

func requireProject(projects domain.ProjectRepository, id string) (*domain.ProjectSettings, error) {
	p, err := projects.GetProject(id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, id)
	}
	return p, nil
}
