package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// ListPendingHooksInput contains the parameters for listing pending markers.
type ListPendingHooksInput struct {
	ProjectID string
}

// ListPendingHooksOutput contains the failed actions awaiting recovery.
type ListPendingHooksOutput struct {
	Pending []domain.PendingHook
}

// ListPendingHooks lists the pending markers of a project.
type ListPendingHooks struct {
	pending domain.PendingStore
}

// NewListPendingHooks creates a new ListPendingHooks use case.
func NewListPendingHooks(pending domain.PendingStore) *ListPendingHooks {
	return &ListPendingHooks{pending: pending}
}

// Execute returns the markers ordered by hook name.
func (uc *ListPendingHooks) Execute(_ context.Context, in ListPendingHooksInput) (*ListPendingHooksOutput, error) {
	pending, err := uc.pending.List(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list pending hooks: %w", err)
	}
	return &ListPendingHooksOutput{Pending: pending}, nil
}

// ClearPendingHooksInput selects the markers to clear.
type ClearPendingHooksInput struct {
	ProjectID string
	HookName  string // Empty clears every marker of the project
}

// ClearPendingHooksOutput contains the number of markers removed.
type ClearPendingHooksOutput struct {
	Cleared int
}

// ClearPendingHooks removes pending markers once the failure has been dealt with.
type ClearPendingHooks struct {
	pending domain.PendingStore
	logger  domain.Logger
}

// NewClearPendingHooks creates a new ClearPendingHooks use case.
func NewClearPendingHooks(pending domain.PendingStore, logger domain.Logger) *ClearPendingHooks {
	return &ClearPendingHooks{
		pending: pending,
		logger:  logger,
	}
}

// Execute clears the selected markers.
func (uc *ClearPendingHooks) Execute(_ context.Context, in ClearPendingHooksInput) (*ClearPendingHooksOutput, error) {
	n, err := uc.pending.Clear(in.ProjectID, in.HookName)
	if err != nil {
		return nil, fmt.Errorf("clear pending hooks: %w", err)
	}
	if n > 0 {
		uc.logger.Info(0, "hook", fmt.Sprintf("cleared %d pending marker(s) in %s", n, in.ProjectID))
	}
	return &ClearPendingHooksOutput{Cleared: n}, nil
}
