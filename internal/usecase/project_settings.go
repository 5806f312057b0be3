package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// GetProjectSettingsInput contains the parameters for reading project settings.
type GetProjectSettingsInput struct {
	ProjectID string
}

// GetProjectSettingsOutput contains the project settings.
type GetProjectSettingsOutput struct {
	Project *domain.ProjectSettings
}

// GetProjectSettings reads a project's workflow flags.
type GetProjectSettings struct {
	projects domain.ProjectRepository
}

// NewGetProjectSettings creates a new GetProjectSettings use case.
func NewGetProjectSettings(projects domain.ProjectRepository) *GetProjectSettings {
	return &GetProjectSettings{projects: projects}
}

// Execute returns the project settings or domain.ErrProjectNotFound.
func (uc *GetProjectSettings) Execute(_ context.Context, in GetProjectSettingsInput) (*GetProjectSettingsOutput, error) {
	p, err := requireProject(uc.projects, in.ProjectID)
	if err != nil {
		return nil, err
	}
	return &GetProjectSettingsOutput{Project: p}, nil
}

// UpdateProjectSettingsInput contains the changes to apply.
type UpdateProjectSettingsInput struct {
	ProjectID string
	Update    domain.ProjectSettingsUpdate
}

// UpdateProjectSettingsOutput contains the settings after the update.
type UpdateProjectSettingsOutput struct {
	Project *domain.ProjectSettings
	Changed bool
}

// UpdateProjectSettings changes a project's workflow flags.
// Existing tasks keep the mode and worktree flag they were created with.
type UpdateProjectSettings struct {
	projects domain.ProjectRepository
	logger   domain.Logger
}

// NewUpdateProjectSettings creates a new UpdateProjectSettings use case.
func NewUpdateProjectSettings(projects domain.ProjectRepository, logger domain.Logger) *UpdateProjectSettings {
	return &UpdateProjectSettings{
		projects: projects,
		logger:   logger,
	}
}

// Execute applies the update. An empty update is a no-op.
func (uc *UpdateProjectSettings) Execute(_ context.Context, in UpdateProjectSettingsInput) (*UpdateProjectSettingsOutput, error) {
	if in.Update.Mode != nil && !in.Update.Mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMode, *in.Update.Mode)
	}

	p, err := requireProject(uc.projects, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if in.Update.IsEmpty() {
		return &UpdateProjectSettingsOutput{Project: p}, nil
	}

	before := *p
	in.Update.Apply(p)
	if *p == before {
		return &UpdateProjectSettingsOutput{Project: p}, nil
	}

	if err := uc.projects.SaveProject(p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	uc.logger.Info(0, "project", fmt.Sprintf("%s: mode=%s worktree=%t manual_testing=%t manual_review=%t",
		p.ID, p.Mode, p.WorktreeEnabled, p.ManualTestingMode, p.ManualReviewMode))
	return &UpdateProjectSettingsOutput{Project: p, Changed: true}, nil
}
