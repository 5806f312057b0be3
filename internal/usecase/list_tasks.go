package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// ListTasksInput contains the parameters for listing tasks.
type ListTasksInput struct {
	ProjectID       string        // Empty = all projects
	Status          domain.Status // Empty = all statuses
	IncludeTerminal bool          // Include done tasks
	IncludeSessions bool          // Check whether each task's session is running
}

// TaskWithSession contains a task with its session state.
type TaskWithSession struct {
	Task        *domain.Task
	SessionName string
	IsRunning   bool
}

// ListTasksOutput contains the result of listing tasks.
type ListTasksOutput struct {
	Tasks         []*domain.Task    // Tasks matching the filter (if sessions not requested)
	TasksWithInfo []TaskWithSession // Tasks with session info (if sessions requested)
}

// ListTasks is the use case for listing tasks.
type ListTasks struct {
	tasks    domain.TaskRepository
	sessions domain.SessionManager
}

// NewListTasks creates a new ListTasks use case.
func NewListTasks(tasks domain.TaskRepository, sessions domain.SessionManager) *ListTasks {
	return &ListTasks{
		tasks:    tasks,
		sessions: sessions,
	}
}

// Execute lists tasks matching the given input criteria.
func (uc *ListTasks) Execute(_ context.Context, in ListTasksInput) (*ListTasksOutput, error) {
	tasks, err := uc.tasks.List(domain.TaskFilter{ProjectID: in.ProjectID, Status: in.Status})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	// An explicit status filter wins over the terminal filter.
	if !in.IncludeTerminal && in.Status == "" {
		tasks = filterActiveOnly(tasks)
	}

	if !in.IncludeSessions {
		return &ListTasksOutput{Tasks: tasks}, nil
	}

	withInfo := make([]TaskWithSession, 0, len(tasks))
	for _, task := range tasks {
		name := domain.SessionName(task.ID, "")
		// Ignore errors for list display
		running, _ := uc.sessions.IsRunning(name)
		withInfo = append(withInfo, TaskWithSession{
			Task:        task,
			SessionName: name,
			IsRunning:   running,
		})
	}
	return &ListTasksOutput{TasksWithInfo: withInfo}, nil
}

// filterActiveOnly removes tasks in a terminal status.
func filterActiveOnly(tasks []*domain.Task) []*domain.Task {
	var result []*domain.Task
	for _, t := range tasks {
		if !t.Status.IsTerminal() {
			result = append(result, t)
		}
	}
	return result
}
