package domain

import "errors"

// Domain errors.
var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrProjectNotFound        = errors.New("project not found")
	ErrHookNotFound           = errors.New("hook not found")
	ErrSessionNotFound        = errors.New("session not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrConflictingTransition  = errors.New("conflicting transition in progress")
	ErrInvalidTransitionTable = errors.New("invalid transition table")
	ErrWorkspaceProvision     = errors.New("workspace provisioning failed")
	ErrWorkspaceNotSupported  = errors.New("task does not use a workspace")
	ErrActionExecution        = errors.New("hook action failed")
	ErrSessionDelivery        = errors.New("session command delivery failed")
	ErrSessionNotReady        = errors.New("session did not become ready")
	ErrSessionRunning         = errors.New("session already running")
	ErrNoSession              = errors.New("no running session")
	ErrWorktreeNotFound       = errors.New("worktree not found")
	ErrUncommittedChanges     = errors.New("uncommitted changes exist")
	ErrNotInitialized         = errors.New("taskflow not initialized (run 'taskflow init' first)")
	ErrNotGitRepository       = errors.New("not a git repository (or any of the parent directories)")
	ErrEmptyTitle             = errors.New("title cannot be empty")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidMode            = errors.New("invalid mode")
	ErrInvalidHook            = errors.New("invalid hook definition")
	ErrInvalidHookEvent       = errors.New("invalid hook event")
	ErrHookExists             = errors.New("hook already exists")
	ErrFrameworkHook          = errors.New("framework hooks cannot be modified")
	ErrConfigExists           = errors.New("config file already exists")
)
