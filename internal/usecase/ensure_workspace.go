package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// EnsureWorkspaceInput contains the parameters for provisioning a workspace.
type EnsureWorkspaceInput struct {
	TaskID int
}

// EnsureWorkspaceOutput contains the task's workspace.
type EnsureWorkspaceOutput struct {
	Ref     domain.WorkspaceRef
	Created bool
}

// EnsureWorkspace provisions a task's workspace. Calling it again returns the same reference.
type EnsureWorkspace struct {
	tasks       domain.TaskRepository
	locker      domain.TaskLocker
	provisioner domain.WorkspaceProvisioner
	logger      domain.Logger
}

// NewEnsureWorkspace creates a new EnsureWorkspace use case.
func NewEnsureWorkspace(
	tasks domain.TaskRepository,
	locker domain.TaskLocker,
	provisioner domain.WorkspaceProvisioner,
	logger domain.Logger,
) *EnsureWorkspace {
	return &EnsureWorkspace{
		tasks:       tasks,
		locker:      locker,
		provisioner: provisioner,
		logger:      logger,
	}
}

// Execute returns the existing workspace or creates one.
func (uc *EnsureWorkspace) Execute(ctx context.Context, in EnsureWorkspaceInput) (*EnsureWorkspaceOutput, error) {
	unlock, ok := uc.locker.TryLock(in.TaskID)
	if !ok {
		return nil, fmt.Errorf("task #%d: %w", in.TaskID, domain.ErrConflictingTransition)
	}
	defer unlock()

	task, err := uc.tasks.Get(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	if task.Workspace != nil {
		return &EnsureWorkspaceOutput{Ref: *task.Workspace}, nil
	}
	if !task.WorkspaceAllowed() {
		return nil, fmt.Errorf("task #%d (%s mode, %s): %w", task.ID, task.Mode, task.Status, domain.ErrWorkspaceNotSupported)
	}

	ref, created, err := uc.provisioner.Provision(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrWorkspaceProvision, err)
	}
	task.Workspace = &ref
	if err := uc.tasks.Save(task); err != nil {
		if created {
			if discardErr := uc.provisioner.Discard(ctx, task, ref); discardErr != nil {
				uc.logger.Warn(task.ID, "workspace", fmt.Sprintf("discard after failed save: %v", discardErr))
			}
		}
		return nil, fmt.Errorf("save task: %w", err)
	}
	return &EnsureWorkspaceOutput{Ref: ref, Created: created}, nil
}
