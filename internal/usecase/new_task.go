// Package usecase contains application use cases.
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/runoshun/taskflow/internal/domain"
)

// NewTaskInput contains the parameters for creating a new task.
type NewTaskInput struct {
	ProjectID   string // Project the task belongs to (required)
	Title       string // Task title (required)
	Description string // Task description (optional)
}

// NewTaskOutput contains the result of creating a new task.
type NewTaskOutput struct {
	Task *domain.Task
}

// NewTask is the use case for creating a new task.
type NewTask struct {
	tasks    domain.TaskRepository
	projects domain.ProjectRepository
	clock    domain.Clock
	logger   domain.Logger
}

// NewNewTask creates a new NewTask use case.
func NewNewTask(tasks domain.TaskRepository, projects domain.ProjectRepository, clock domain.Clock, logger domain.Logger) *NewTask {
	return &NewTask{
		tasks:    tasks,
		projects: projects,
		clock:    clock,
		logger:   logger,
	}
}

// Execute creates a task in backlog.
// The project's mode and worktree flag are copied onto the task and never change afterwards.
func (uc *NewTask) Execute(_ context.Context, in NewTaskInput) (*NewTaskOutput, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}

	project, err := requireProject(uc.projects, in.ProjectID)
	if err != nil {
		return nil, err
	}

	id, err := uc.tasks.NextID()
	if err != nil {
		return nil, fmt.Errorf("generate task ID: %w", err)
	}

	now := uc.clock.Now()
	task := &domain.Task{
		ID:              id,
		ProjectID:       project.ID,
		Title:           title,
		Description:     in.Description,
		Status:          domain.StatusBacklog,
		Mode:            project.Mode,
		WorktreeEnabled: project.Mode == domain.ModeDevelopment && project.WorktreeEnabled,
		Created:         now,
		Updated:         now,
	}

	if err := uc.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	uc.logger.Info(id, "task", fmt.Sprintf("created: %q (%s)", title, task.Mode))
	return &NewTaskOutput{Task: task}, nil
}
