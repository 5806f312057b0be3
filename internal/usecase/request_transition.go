package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// RequestTransitionInput contains the parameters for moving a task.
// Fields are ordered to minimize memory padding.
type RequestTransitionInput struct {
	Actor   domain.Actor
	Target  domain.Status
	Summary string // Recorded in the stage result
	Details string
	TaskID  int
}

// RequestTransitionOutput contains the result of a transition request.
type RequestTransitionOutput struct {
	Task             *domain.Task
	From             domain.Status
	Changed          bool // False when the task was already in the target status
	WorkspaceCreated bool
}

// RequestTransition is the use case for moving a task along its workflow.
// Fields are ordered to minimize memory padding.
type RequestTransition struct {
	tasks       domain.TaskRepository
	locker      domain.TaskLocker
	provisioner domain.WorkspaceProvisioner
	observer    domain.TransitionObserver
	clock       domain.Clock
	logger      domain.Logger
	table       *domain.TransitionTable
}

// NewRequestTransition creates a new RequestTransition use case.
func NewRequestTransition(
	tasks domain.TaskRepository,
	locker domain.TaskLocker,
	provisioner domain.WorkspaceProvisioner,
	table *domain.TransitionTable,
	clock domain.Clock,
	logger domain.Logger,
) *RequestTransition {
	return &RequestTransition{
		tasks:       tasks,
		locker:      locker,
		provisioner: provisioner,
		table:       table,
		clock:       clock,
		logger:      logger,
	}
}

// SetObserver sets the component told about committed transitions.
func (uc *RequestTransition) SetObserver(observer domain.TransitionObserver) {
	uc.observer = observer
}

// Execute validates and commits a transition.
// The observer runs after the task lock is released and cannot fail the transition.
func (uc *RequestTransition) Execute(ctx context.Context, in RequestTransitionInput) (*RequestTransitionOutput, error) {
	if !in.Target.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, in.Target)
	}

	out, err := uc.commit(ctx, in)
	if err != nil {
		return nil, err
	}
	if !out.Changed {
		return out, nil
	}

	uc.logger.Info(out.Task.ID, "transition", fmt.Sprintf("%s -> %s by %s", out.From, out.Task.Status, in.Actor))
	if uc.observer != nil {
		uc.observer.OnTransitionAccepted(ctx, out.Task.Clone(), out.From, out.Task.Status, in.Actor)
	}
	return out, nil
}

// commit performs the state change while holding the task lock.
func (uc *RequestTransition) commit(ctx context.Context, in RequestTransitionInput) (*RequestTransitionOutput, error) {
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

	from := task.Status
	if from == in.Target {
		return &RequestTransitionOutput{Task: task, From: from}, nil
	}

	edge, ok := uc.table.Lookup(task.Mode, from, in.Target)
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s in %s mode", domain.ErrInvalidTransition, from, in.Target, task.Mode)
	}
	if edge.Kind == domain.EdgeManual && !in.Actor.IsExplicit() {
		return nil, fmt.Errorf("%w: %s requires an explicit request", domain.ErrInvalidTransition, edge.Key())
	}

	now := uc.clock.Now()
	next := task.Clone()
	next.Status = in.Target
	next.Updated = now
	next.Stages = append(next.Stages, domain.StageResult{
		Created: now,
		From:    from,
		Status:  in.Target,
		Actor:   in.Actor.String(),
		Summary: in.Summary,
		Details: in.Details,
	})

	var (
		ref     domain.WorkspaceRef
		created bool
	)
	if next.RequiresWorkspace(in.Target) && !next.HasWorkspace() {
		ref, created, err = uc.provisioner.Provision(ctx, next)
		if err != nil {
			uc.logger.Error(task.ID, "workspace", fmt.Sprintf("provision failed: %v", err))
			return nil, fmt.Errorf("%w: %w", domain.ErrWorkspaceProvision, err)
		}
		next.Workspace = &ref
	}

	if err := uc.tasks.Save(next); err != nil {
		if created {
			if discardErr := uc.provisioner.Discard(ctx, next, ref); discardErr != nil {
				uc.logger.Warn(task.ID, "workspace", fmt.Sprintf("discard after failed save: %v", discardErr))
			}
		}
		return nil, fmt.Errorf("save task: %w", err)
	}

	return &RequestTransitionOutput{
		Task:             next,
		From:             from,
		Changed:          true,
		WorkspaceCreated: created,
	}, nil
}
