package domain

import (
	"context"
	"time"
)

// StoreInitializer initializes the data store.
type StoreInitializer interface {
	// Initialize creates the store if it doesn't exist.
	Initialize() error
}

// TaskRepository manages task persistence.
type TaskRepository interface {
	// Get retrieves a task by ID. Returns nil if not found.
	Get(id int) (*Task, error)

	// List retrieves tasks matching the filter, ordered by ID.
	List(filter TaskFilter) ([]*Task, error)

	// Save creates or updates a task.
	Save(task *Task) error

	// NextID returns the next available task ID.
	NextID() (int, error)
}

// TaskFilter specifies criteria for listing tasks.
type TaskFilter struct {
	ProjectID string // Empty = all projects
	Status    Status // Empty = all statuses
}

// ProjectRepository manages project settings.
type ProjectRepository interface {
	// GetProject retrieves project settings. Returns nil if not found.
	GetProject(id string) (*ProjectSettings, error)

	// SaveProject creates or updates project settings.
	SaveProject(p *ProjectSettings) error

	// ListProjects returns all projects ordered by ID.
	ListProjects() ([]*ProjectSettings, error)
}

// HookRepository manages custom hook definitions and per-project bindings.
type HookRepository interface {
	// GetHook retrieves a custom definition. Returns nil if not found.
	GetHook(name string) (*HookDefinition, error)

	// ListHooks returns custom definitions ordered by name.
	ListHooks() ([]*HookDefinition, error)

	// SaveHook creates or replaces a custom definition.
	SaveHook(def *HookDefinition) error

	// DeleteHook removes a custom definition.
	DeleteHook(name string) error

	// ListBindings returns the bindings of a project ordered by (Seq, HookName).
	ListBindings(projectID string) ([]HookBinding, error)

	// AddBinding enables a hook for a project, assigning the next sequence number.
	// If the binding already exists it is returned unchanged with created=false.
	AddBinding(projectID, hookName string) (binding HookBinding, created bool, err error)

	// RemoveBinding disables a hook. Returns false if it was not enabled.
	RemoveBinding(projectID, hookName string) (bool, error)
}

// HookRegistry resolves hook definitions from every origin.
type HookRegistry interface {
	// Get returns a definition by name. Returns nil if unknown.
	Get(name string) (*HookDefinition, error)

	// List returns all definitions ordered by name.
	List() ([]*HookDefinition, error)
}

// SessionRepository manages session records.
type SessionRepository interface {
	// GetSession retrieves a session by ID. Returns nil if not found.
	GetSession(id string) (*Session, error)

	// ListSessions returns sessions ordered by creation time.
	ListSessions() ([]*Session, error)

	// SaveSession creates or updates a session record.
	SaveSession(s *Session) error
}

// SessionManager manages tmux sessions.
type SessionManager interface {
	// Start creates and starts a new session.
	Start(ctx context.Context, opts StartSessionOptions) error

	// Stop terminates a session.
	Stop(sessionName string) error

	// Attach connects the terminal to a session.
	Attach(sessionName string) error

	// Peek captures the last N lines from a session.
	Peek(sessionName string, lines int) (string, error)

	// Send sends keys to a session.
	Send(sessionName string, keys string) error

	// IsRunning checks if a session is running.
	IsRunning(sessionName string) (bool, error)
}

// StartSessionOptions configures session creation.
type StartSessionOptions struct {
	Name       string // Session name
	Dir        string // Working directory
	Command    string // Command to run
	Transcript string // File the pane output is piped to (optional)
	TaskID     int    // Associated task ID
}

// WorktreeManager manages git worktrees.
type WorktreeManager interface {
	// Create creates a new worktree for the given branch.
	Create(branch, baseBranch string) (path string, err error)

	// Resolve returns the path of an existing worktree for the branch.
	Resolve(branch string) (path string, err error)

	// Remove deletes the worktree of a branch.
	Remove(branch string, force bool) error

	// Exists checks if a worktree exists for the branch.
	Exists(branch string) (bool, error)
}

// Git provides repository operations.
type Git interface {
	// DefaultBranch returns the repository's default branch.
	DefaultBranch() (string, error)

	// BranchExists checks if a branch exists.
	BranchExists(branch string) (bool, error)

	// DeleteBranch deletes a local branch.
	DeleteBranch(branch string) error

	// CurrentBranch returns the branch checked out in the working directory.
	CurrentBranch() (string, error)
}

// ActionRun describes one execution of a hook action.
// Fields are ordered to minimize memory padding.
type ActionRun struct {
	Command string
	Dir     string
	Env     []string
	Stdin   []byte
	Timeout time.Duration
}

// ActionResult is the result of a completed action.
// A non-zero exit code is reported here, not as an error.
type ActionResult struct {
	Output   string
	ExitCode int
}

// ActionRunner runs hook actions as shell commands.
type ActionRunner interface {
	// Run executes the action and waits for it.
	Run(ctx context.Context, run ActionRun) (*ActionResult, error)

	// Start launches the action without waiting and returns its PID.
	Start(ctx context.Context, run ActionRun) (int, error)
}

// RecursionGuard is a named test-and-set lock around reentrant actions.
type RecursionGuard interface {
	// TryAcquire takes the lock. Returns false if it is already held.
	TryAcquire(key string) (bool, error)

	// Release frees the lock.
	Release(key string) error
}

// TaskLocker serializes transitions of a single task.
type TaskLocker interface {
	// TryLock takes the task's lock without waiting.
	TryLock(taskID int) (unlock func(), ok bool)
}

// ProcessTracker records background processes started for tasks.
type ProcessTracker interface {
	// Track records a process.
	Track(taskID int, proc TrackedProcess) error

	// List returns the recorded processes of a task.
	List(taskID int) ([]TrackedProcess, error)

	// Terminate signals a process to stop.
	Terminate(pid int) error

	// Clear forgets the processes of a task.
	Clear(taskID int) error
}

// PreconditionChecker evaluates the artifacts an auto edge waits for.
type PreconditionChecker interface {
	// Satisfied reports whether the edge's preconditions hold for the task.
	Satisfied(ctx context.Context, task *Task, edge Edge) (bool, error)

	// WatchDirs returns existing directories where the task's pending artifacts would appear.
	WatchDirs(ctx context.Context, task *Task) ([]string, error)
}

// ArtifactWatcher waits for filesystem changes.
type ArtifactWatcher interface {
	// Wait returns when something changes under dirs or the timeout passes.
	// It returns ctx.Err() when ctx ends first.
	Wait(ctx context.Context, dirs []string, timeout time.Duration) error
}

// PendingStore persists failed actions awaiting recovery.
type PendingStore interface {
	// Put writes a marker, replacing any previous one for the hook.
	Put(p PendingHook) error

	// List returns the markers of a project ordered by hook name.
	List(projectID string) ([]PendingHook, error)

	// Clear removes a marker, or every marker of the project if hookName is empty.
	Clear(projectID, hookName string) (int, error)
}

// Notifier surfaces notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// TransitionObserver is called once after a transition is committed.
type TransitionObserver interface {
	OnTransitionAccepted(ctx context.Context, task *Task, from, to Status, actor Actor)
}

// WorkspaceProvisioner creates and discards task workspaces for the state machine.
type WorkspaceProvisioner interface {
	// Provision ensures the task has a workspace. created is true if one was made now.
	Provision(ctx context.Context, task *Task) (ref WorkspaceRef, created bool, err error)

	// Discard removes a workspace created by a transition that did not commit.
	Discard(ctx context.Context, task *Task, ref WorkspaceRef) error
}

// ConfigLoader loads configuration from files.
type ConfigLoader interface {
	// Load returns the merged configuration (repo + global).
	Load() (*Config, error)

	// LoadGlobal returns only the global configuration.
	LoadGlobal() (*Config, error)
}

// ConfigManager manages configuration files.
type ConfigManager interface {
	// GetRepoConfigInfo returns information about the repository config file.
	GetRepoConfigInfo() ConfigInfo

	// InitRepoConfig writes the default repository config. Fails if it exists.
	InitRepoConfig(cfg *Config) error
}

// Logger writes categorized log lines, per task or global (taskID 0).
type Logger interface {
	Info(taskID int, category, msg string)
	Debug(taskID int, category, msg string)
	Warn(taskID int, category, msg string)
	Error(taskID int, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}
