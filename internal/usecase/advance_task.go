package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// AdvanceTaskInput contains the parameters for evaluating a task's auto edges.
type AdvanceTaskInput struct {
	TaskID int
}

// AdvanceTaskOutput contains the result of AdvanceTask.
// Edge is nil when no auto edge was ready.
type AdvanceTaskOutput struct {
	Task *domain.Task
	Edge *domain.Edge
}

// AdvanceTask takes the first auto edge out of the task's status whose preconditions hold.
// It moves at most one step per call.
type AdvanceTask struct {
	tasks      domain.TaskRepository
	checker    domain.PreconditionChecker
	transition *RequestTransition
	table      *domain.TransitionTable
	logger     domain.Logger
}

// NewAdvanceTask creates a new AdvanceTask use case.
func NewAdvanceTask(
	tasks domain.TaskRepository,
	checker domain.PreconditionChecker,
	transition *RequestTransition,
	table *domain.TransitionTable,
	logger domain.Logger,
) *AdvanceTask {
	return &AdvanceTask{
		tasks:      tasks,
		checker:    checker,
		transition: transition,
		table:      table,
		logger:     logger,
	}
}

// Execute evaluates the auto edges of a task.
func (uc *AdvanceTask) Execute(ctx context.Context, in AdvanceTaskInput) (*AdvanceTaskOutput, error) {
	task, err := uc.tasks.Get(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	for _, edge := range uc.table.From(task.Mode, task.Status) {
		if edge.Kind != domain.EdgeAuto {
			continue
		}
		ok, err := uc.checker.Satisfied(ctx, task, edge)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", edge.Key(), err)
		}
		if !ok {
			uc.logger.Debug(task.ID, "advance", edge.Key()+" not ready")
			continue
		}

		out, err := uc.transition.Execute(ctx, RequestTransitionInput{
			TaskID:  task.ID,
			Target:  edge.To,
			Actor:   domain.Actor{Kind: domain.ActorAutomation},
			Summary: "preconditions satisfied",
		})
		if err != nil {
			return nil, err
		}
		e := edge
		return &AdvanceTaskOutput{Task: out.Task, Edge: &e}, nil
	}
	return &AdvanceTaskOutput{Task: task}, nil
}
