package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// ShowTaskInput contains the parameters for showing a task.
type ShowTaskInput struct {
	TaskID int // Task ID (required)
}

// ShowTaskOutput contains the result of showing a task.
type ShowTaskOutput struct {
	Task      *domain.Task
	Project   *domain.ProjectSettings // nil if the project was deleted
	Sessions  []*domain.Session       // Open sessions bound to the task
	Processes []domain.TrackedProcess // Background processes started by hooks
	Next      []domain.Edge           // Edges leaving the current status
}

// ShowTask is the use case for displaying task details.
type ShowTask struct {
	tasks    domain.TaskRepository
	projects domain.ProjectRepository
	sessions domain.SessionRepository
	procs    domain.ProcessTracker
	table    *domain.TransitionTable
}

// NewShowTask creates a new ShowTask use case.
func NewShowTask(
	tasks domain.TaskRepository,
	projects domain.ProjectRepository,
	sessions domain.SessionRepository,
	procs domain.ProcessTracker,
	table *domain.TransitionTable,
) *ShowTask {
	return &ShowTask{
		tasks:    tasks,
		projects: projects,
		sessions: sessions,
		procs:    procs,
		table:    table,
	}
}

// Execute retrieves and returns the task details.
func (uc *ShowTask) Execute(_ context.Context, in ShowTaskInput) (*ShowTaskOutput, error) {
	task, err := uc.tasks.Get(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	project, err := uc.projects.GetProject(task.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	all, err := uc.sessions.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var sessions []*domain.Session
	for _, s := range all {
		if s.TaskID == task.ID && s.IsOpen() {
			sessions = append(sessions, s)
		}
	}

	procs, err := uc.procs.List(task.ID)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	return &ShowTaskOutput{
		Task:      task,
		Project:   project,
		Sessions:  sessions,
		Processes: procs,
		Next:      uc.table.From(task.Mode, task.Status),
	}, nil
}
