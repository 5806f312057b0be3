// Package app provides the dependency injection container for the application.
package app

import (
	"io"
	"os"
	"path/filepath"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/infra/artifacts"
	"github.com/runoshun/taskflow/internal/infra/builtin"
	"github.com/runoshun/taskflow/internal/infra/config"
	"github.com/runoshun/taskflow/internal/infra/executor"
	"github.com/runoshun/taskflow/internal/infra/git"
	"github.com/runoshun/taskflow/internal/infra/jsonstore"
	"github.com/runoshun/taskflow/internal/infra/keylock"
	"github.com/runoshun/taskflow/internal/infra/logging"
	"github.com/runoshun/taskflow/internal/infra/marker"
	"github.com/runoshun/taskflow/internal/infra/notify"
	"github.com/runoshun/taskflow/internal/infra/pending"
	"github.com/runoshun/taskflow/internal/infra/procs"
	"github.com/runoshun/taskflow/internal/infra/sqlitestore"
	"github.com/runoshun/taskflow/internal/infra/tmux"
	"github.com/runoshun/taskflow/internal/infra/worktree"
	"github.com/runoshun/taskflow/internal/usecase"
)

// Config holds the application configuration paths.
type Config struct {
	RepoRoot   string // Root directory of the git repository
	GitDir     string // Path to .git directory
	DataDir    string // Path to .git/taskflow directory
	SocketPath string // Path to tmux socket
	StorePath  string // Path to the store file
	ProjectID  string // Default project (repository directory name)
	Bin        string // Path of the running taskflow executable
}

// newConfig creates a new Config from the git client.
func newConfig(gitClient *git.Client, backend string) Config {
	dataDir := domain.RepoDataDir(gitClient.GitDir())
	bin, err := os.Executable()
	if err != nil {
		bin = "taskflow"
	}
	return Config{
		RepoRoot:   gitClient.RepoRoot(),
		GitDir:     gitClient.GitDir(),
		DataDir:    dataDir,
		SocketPath: domain.TmuxSocketPath(dataDir),
		StorePath:  domain.StorePath(dataDir, backend),
		ProjectID:  filepath.Base(gitClient.RepoRoot()),
		Bin:        bin,
	}
}

// store is what each store backend provides.
type store interface {
	domain.TaskRepository
	domain.ProjectRepository
	domain.HookRepository
	domain.SessionRepository
	domain.StoreInitializer
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Tasks            domain.TaskRepository
	Projects         domain.ProjectRepository
	Hooks            domain.HookRepository
	SessionRecords   domain.SessionRepository
	StoreInitializer domain.StoreInitializer
	Registry         domain.HookRegistry
	Clock            domain.Clock
	Git              domain.Git
	Worktrees        domain.WorktreeManager
	Sessions         domain.SessionManager
	Runner           domain.ActionRunner
	Guard            domain.RecursionGuard
	Locker           domain.TaskLocker
	Procs            domain.ProcessTracker
	Pending          domain.PendingStore
	Checker          domain.PreconditionChecker
	Watcher          domain.ArtifactWatcher
	Notifier         domain.Notifier
	ConfigLoader     domain.ConfigLoader
	ConfigManager    domain.ConfigManager
	Logger           domain.Logger

	// Pointer fields
	AppConfig *domain.Config
	Table     *domain.TransitionTable
	closers   []io.Closer

	// Configuration
	Config Config
}

// New creates a new Container by detecting the git repository from the given directory.
// Notices are printed to stderr.
func New(dir string, stderr io.Writer) (*Container, error) {
	gitClient, err := git.NewClient(dir)
	if err != nil {
		return nil, err
	}

	dataDir := domain.RepoDataDir(gitClient.GitDir())
	configLoader := config.NewLoader(dataDir)
	appConfig, err := configLoader.Load()
	if err != nil {
		return nil, err
	}
	cfg := newConfig(gitClient, appConfig.Store.Backend)

	c := &Container{
		Clock:         domain.RealClock{},
		Git:           gitClient,
		ConfigLoader:  configLoader,
		ConfigManager: config.NewManager(cfg.DataDir),
		AppConfig:     appConfig,
		Table:         domain.DefaultTransitions(),
		Config:        cfg,
	}

	var st store
	if appConfig.Store.Backend == domain.StoreBackendSQLite {
		db, err := sqlitestore.Open(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db)
		st = db.WithClock(c.Clock)
	} else {
		st = jsonstore.New(cfg.StorePath).WithClock(c.Clock)
	}
	c.Tasks = st
	c.Projects = st
	c.Hooks = st
	c.SessionRecords = st
	c.StoreInitializer = st
	c.Registry = builtin.NewRegistry(st)

	logger := logging.New(cfg.DataDir, logging.ParseLevel(appConfig.Log.Level))
	c.closers = append(c.closers, logger)
	c.Logger = logger
	c.Notifier = notify.NewPrinter(stderr, logger)

	if appConfig.Hooks.LockBackend == domain.LockBackendMemory {
		c.Guard = keylock.NewGuard(appConfig.Hooks.LockTTL)
		c.Locker = keylock.NewTaskLocks()
	} else {
		c.Guard = marker.NewGuard(domain.LockDir(cfg.DataDir), appConfig.Hooks.LockTTL)
		c.Locker = marker.NewTaskLocks(domain.LockDir(cfg.DataDir), appConfig.Hooks.LockTTL)
	}

	c.Worktrees = worktree.NewClient(cfg.RepoRoot, cfg.DataDir)
	c.Sessions = tmux.NewClient(cfg.SocketPath, cfg.DataDir)
	c.Runner = executor.NewClient()
	c.Procs = procs.NewTracker(cfg.DataDir)
	c.Pending = pending.NewStore(cfg.DataDir)
	c.Checker = artifacts.NewChecker(appConfig.Preconditions, st, c.Table)
	c.Watcher = artifacts.NewWatcher()

	for _, w := range appConfig.Warnings {
		c.Logger.Warn(0, "config", w)
	}
	return c, nil
}

// NewWithDeps creates a Container with the given core dependencies.
// Remaining ports are left for the caller to set. Intended for tests.
func NewWithDeps(cfg Config, tasks domain.TaskRepository, storeInit domain.StoreInitializer, clock domain.Clock, logger domain.Logger) *Container {
	return &Container{
		Tasks:            tasks,
		StoreInitializer: storeInit,
		Clock:            clock,
		Logger:           logger,
		AppConfig:        domain.NewDefaultConfig(),
		Table:            domain.DefaultTransitions(),
		Config:           cfg,
	}
}

// Close releases the store and log files.
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// UseCase factory methods

// InitRepoUseCase returns a new InitRepo use case.
func (c *Container) InitRepoUseCase() *usecase.InitRepo {
	return usecase.NewInitRepo(c.StoreInitializer, c.Projects, c.ConfigManager, c.EnableHookUseCase(), c.Logger)
}

// NewTaskUseCase returns a new NewTask use case.
func (c *Container) NewTaskUseCase() *usecase.NewTask {
	return usecase.NewNewTask(c.Tasks, c.Projects, c.Clock, c.Logger)
}

// ListTasksUseCase returns a new ListTasks use case.
func (c *Container) ListTasksUseCase() *usecase.ListTasks {
	return usecase.NewListTasks(c.Tasks, c.Sessions)
}

// ShowTaskUseCase returns a new ShowTask use case.
func (c *Container) ShowTaskUseCase() *usecase.ShowTask {
	return usecase.NewShowTask(c.Tasks, c.Projects, c.SessionRecords, c.Procs, c.Table)
}

// GetProjectSettingsUseCase returns a new GetProjectSettings use case.
func (c *Container) GetProjectSettingsUseCase() *usecase.GetProjectSettings {
	return usecase.NewGetProjectSettings(c.Projects)
}

// UpdateProjectSettingsUseCase returns a new UpdateProjectSettings use case.
func (c *Container) UpdateProjectSettingsUseCase() *usecase.UpdateProjectSettings {
	return usecase.NewUpdateProjectSettings(c.Projects, c.Logger)
}

// RequestTransitionUseCase returns a RequestTransition use case observed by the session dispatcher.
func (c *Container) RequestTransitionUseCase() *usecase.RequestTransition {
	uc := usecase.NewRequestTransition(c.Tasks, c.Locker, c.WorkspaceProvisioner(), c.Table, c.Clock, c.Logger)
	uc.SetObserver(c.NotifyTransitionUseCase())
	return uc
}

// AdvanceTaskUseCase returns a new AdvanceTask use case.
func (c *Container) AdvanceTaskUseCase() *usecase.AdvanceTask {
	return usecase.NewAdvanceTask(c.Tasks, c.Checker, c.RequestTransitionUseCase(), c.Table, c.Logger)
}

// WatchTasksUseCase returns a new WatchTasks use case.
func (c *Container) WatchTasksUseCase() *usecase.WatchTasks {
	return usecase.NewWatchTasks(c.Tasks, c.AdvanceTaskUseCase(), c.Checker, c.Watcher, c.Notifier, c.Logger)
}

// NotifyTransitionUseCase returns the session command dispatcher.
func (c *Container) NotifyTransitionUseCase() *usecase.NotifyTransition {
	return usecase.NewNotifyTransition(
		c.Projects, c.SessionRecords, c.Sessions, c.Notifier, c.ReleaseWorkspaceUseCase(), c.Table,
		c.ConfigLoader, c.Clock, c.Logger, c.Config.DataDir, c.Config.RepoRoot,
	)
}

// WorkspaceProvisioner returns the git worktree provisioner.
func (c *Container) WorkspaceProvisioner() *usecase.WorktreeProvisioner {
	return usecase.NewWorktreeProvisioner(c.Worktrees, c.Git, c.ConfigLoader, c.Clock, c.Logger)
}

// EnsureWorkspaceUseCase returns a new EnsureWorkspace use case.
func (c *Container) EnsureWorkspaceUseCase() *usecase.EnsureWorkspace {
	return usecase.NewEnsureWorkspace(c.Tasks, c.Locker, c.WorkspaceProvisioner(), c.Logger)
}

// ReleaseWorkspaceUseCase returns a new ReleaseWorkspace use case.
func (c *Container) ReleaseWorkspaceUseCase() *usecase.ReleaseWorkspace {
	return usecase.NewReleaseWorkspace(c.Tasks, c.Locker, c.SessionRecords, c.Sessions, c.Procs, c.Worktrees, c.Git, c.Logger)
}

// CompileSettingsUseCase returns a new CompileSettings use case.
func (c *Container) CompileSettingsUseCase() *usecase.CompileSettings {
	return usecase.NewCompileSettings(c.Projects, c.Hooks, c.Registry, c.ConfigLoader, c.Logger, c.Config.Bin)
}

// EnableHookUseCase returns a new EnableHook use case.
func (c *Container) EnableHookUseCase() *usecase.EnableHook {
	return usecase.NewEnableHook(c.Projects, c.Hooks, c.Registry, c.CompileSettingsUseCase(), c.Logger)
}

// DisableHookUseCase returns a new DisableHook use case.
func (c *Container) DisableHookUseCase() *usecase.DisableHook {
	return usecase.NewDisableHook(c.Projects, c.Hooks, c.CompileSettingsUseCase(), c.Logger)
}

// ListHooksUseCase returns a new ListHooks use case.
func (c *Container) ListHooksUseCase() *usecase.ListHooks {
	return usecase.NewListHooks(c.Projects, c.Hooks, c.Registry)
}

// AddHookUseCase returns a new AddHook use case.
func (c *Container) AddHookUseCase() *usecase.AddHook {
	return usecase.NewAddHook(c.Projects, c.Hooks, c.Registry, c.CompileSettingsUseCase(), c.Logger)
}

// RemoveHookUseCase returns a new RemoveHook use case.
func (c *Container) RemoveHookUseCase() *usecase.RemoveHook {
	return usecase.NewRemoveHook(c.Projects, c.Hooks, c.Registry, c.CompileSettingsUseCase(), c.Logger)
}

// DispatchHookUseCase returns a new DispatchHook use case.
func (c *Container) DispatchHookUseCase() *usecase.DispatchHook {
	return usecase.NewDispatchHook(c.CompileSettingsUseCase(), c.Runner, c.Guard, c.Pending, c.Procs, c.ConfigLoader, c.Clock, c.Logger)
}

// ListPendingHooksUseCase returns a new ListPendingHooks use case.
func (c *Container) ListPendingHooksUseCase() *usecase.ListPendingHooks {
	return usecase.NewListPendingHooks(c.Pending)
}

// ClearPendingHooksUseCase returns a new ClearPendingHooks use case.
func (c *Container) ClearPendingHooksUseCase() *usecase.ClearPendingHooks {
	return usecase.NewClearPendingHooks(c.Pending, c.Logger)
}

// ListSessionsUseCase returns a new ListSessions use case.
func (c *Container) ListSessionsUseCase() *usecase.ListSessions {
	return usecase.NewListSessions(c.SessionRecords, c.Sessions, c.Logger)
}

// StopSessionUseCase returns a new StopSession use case.
func (c *Container) StopSessionUseCase() *usecase.StopSession {
	return usecase.NewStopSession(c.SessionRecords, c.Sessions, c.Logger)
}

// AttachSessionUseCase returns a new AttachSession use case.
func (c *Container) AttachSessionUseCase() *usecase.AttachSession {
	return usecase.NewAttachSession(c.SessionRecords, c.Sessions)
}

// PeekSessionUseCase returns a new PeekSession use case.
func (c *Container) PeekSessionUseCase() *usecase.PeekSession {
	return usecase.NewPeekSession(c.SessionRecords, c.Sessions)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader)
}
