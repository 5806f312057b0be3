// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockTaskRepository is a test double for domain.TaskRepository.
// Fields are ordered to minimize memory padding.
type MockTaskRepository struct {
	Tasks     map[int]*domain.Task
	SaveErr   error
	GetErr    error
	ListErr   error
	NextIDErr error
	NextIDN   int
	SaveCalls int
}

// NewMockTaskRepository creates a new MockTaskRepository with initialized maps.
func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		Tasks:   make(map[int]*domain.Task),
		NextIDN: 1,
	}
}

// Ensure MockTaskRepository implements domain.TaskRepository interface.
var _ domain.TaskRepository = (*MockTaskRepository)(nil)

// Get retrieves a copy of a task by ID.
func (m *MockTaskRepository) Get(id int) (*domain.Task, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	task, ok := m.Tasks[id]
	if !ok {
		return nil, nil
	}
	return task.Clone(), nil
}

// List returns tasks matching the filter ordered by ID.
func (m *MockTaskRepository) List(filter domain.TaskFilter) ([]*domain.Task, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var tasks []*domain.Task
	for _, t := range m.Tasks {
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		tasks = append(tasks, t.Clone())
	}
	slices.SortFunc(tasks, func(a, b *domain.Task) int { return cmp.Compare(a.ID, b.ID) })
	return tasks, nil
}

// Save stores a copy of the task.
func (m *MockTaskRepository) Save(task *domain.Task) error {
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Tasks[task.ID] = task.Clone()
	return nil
}

// NextID returns the next available task ID.
func (m *MockTaskRepository) NextID() (int, error) {
	if m.NextIDErr != nil {
		return 0, m.NextIDErr
	}
	id := m.NextIDN
	m.NextIDN++
	return id, nil
}

// MockStoreInitializer is a test double for domain.StoreInitializer.
type MockStoreInitializer struct {
	InitErr     error
	Initialized bool
}

// Initialize marks the store initialized.
func (m *MockStoreInitializer) Initialize() error {
	if m.InitErr != nil {
		return m.InitErr
	}
	m.Initialized = true
	return nil
}

// MockProjectRepository is a test double for domain.ProjectRepository.
type MockProjectRepository struct {
	Projects map[string]*domain.ProjectSettings
	GetErr   error
	SaveErr  error
}

// NewMockProjectRepository creates a repository holding the given projects.
func NewMockProjectRepository(projects ...*domain.ProjectSettings) *MockProjectRepository {
	m := &MockProjectRepository{Projects: make(map[string]*domain.ProjectSettings)}
	for _, p := range projects {
		m.Projects[p.ID] = p
	}
	return m
}

// Ensure MockProjectRepository implements domain.ProjectRepository interface.
var _ domain.ProjectRepository = (*MockProjectRepository)(nil)

// GetProject returns a copy of the project or nil.
func (m *MockProjectRepository) GetProject(id string) (*domain.ProjectSettings, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.Projects[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

// SaveProject stores a copy of the project.
func (m *MockProjectRepository) SaveProject(p *domain.ProjectSettings) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	c := *p
	m.Projects[p.ID] = &c
	return nil
}

// ListProjects returns all projects ordered by ID.
func (m *MockProjectRepository) ListProjects() ([]*domain.ProjectSettings, error) {
	var out []*domain.ProjectSettings
	for _, p := range m.Projects {
		c := *p
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *domain.ProjectSettings) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// MockHookRepository is a test double for domain.HookRepository.
// Fields are ordered to minimize memory padding.
type MockHookRepository struct {
	Hooks      map[string]*domain.HookDefinition
	Bindings   map[string][]domain.HookBinding
	SaveErr    error
	BindingErr error
	NextSeq    int
}

// NewMockHookRepository creates an empty hook repository.
func NewMockHookRepository() *MockHookRepository {
	return &MockHookRepository{
		Hooks:    make(map[string]*domain.HookDefinition),
		Bindings: make(map[string][]domain.HookBinding),
		NextSeq:  1,
	}
}

// Ensure MockHookRepository implements domain.HookRepository interface.
var _ domain.HookRepository = (*MockHookRepository)(nil)

// GetHook returns a definition or nil.
func (m *MockHookRepository) GetHook(name string) (*domain.HookDefinition, error) {
	return m.Hooks[name], nil
}

// ListHooks returns definitions ordered by name.
func (m *MockHookRepository) ListHooks() ([]*domain.HookDefinition, error) {
	var out []*domain.HookDefinition
	for _, d := range m.Hooks {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *domain.HookDefinition) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// SaveHook stores a definition.
func (m *MockHookRepository) SaveHook(def *domain.HookDefinition) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Hooks[def.Name] = def
	return nil
}

// DeleteHook removes a definition.
func (m *MockHookRepository) DeleteHook(name string) error {
	delete(m.Hooks, name)
	return nil
}

// ListBindings returns a project's bindings ordered by (Seq, HookName).
func (m *MockHookRepository) ListBindings(projectID string) ([]domain.HookBinding, error) {
	if m.BindingErr != nil {
		return nil, m.BindingErr
	}
	out := slices.Clone(m.Bindings[projectID])
	slices.SortFunc(out, func(a, b domain.HookBinding) int {
		if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
			return c
		}
		return cmp.Compare(a.HookName, b.HookName)
	})
	return out, nil
}

// AddBinding appends a binding with the next sequence number.
func (m *MockHookRepository) AddBinding(projectID, hookName string) (domain.HookBinding, bool, error) {
	if m.BindingErr != nil {
		return domain.HookBinding{}, false, m.BindingErr
	}
	for _, b := range m.Bindings[projectID] {
		if b.HookName == hookName {
			return b, false, nil
		}
	}
	b := domain.HookBinding{ProjectID: projectID, HookName: hookName, Seq: m.NextSeq}
	m.NextSeq++
	m.Bindings[projectID] = append(m.Bindings[projectID], b)
	return b, true, nil
}

// RemoveBinding deletes a binding.
func (m *MockHookRepository) RemoveBinding(projectID, hookName string) (bool, error) {
	if m.BindingErr != nil {
		return false, m.BindingErr
	}
	before := len(m.Bindings[projectID])
	m.Bindings[projectID] = slices.DeleteFunc(m.Bindings[projectID], func(b domain.HookBinding) bool {
		return b.HookName == hookName
	})
	return len(m.Bindings[projectID]) < before, nil
}

// MockHookRegistry is a test double for domain.HookRegistry.
type MockHookRegistry struct {
	Defs map[string]*domain.HookDefinition
}

// NewMockHookRegistry creates a registry holding the given definitions.
func NewMockHookRegistry(defs ...*domain.HookDefinition) *MockHookRegistry {
	m := &MockHookRegistry{Defs: make(map[string]*domain.HookDefinition)}
	for _, d := range defs {
		m.Defs[d.Name] = d
	}
	return m
}

// Ensure MockHookRegistry implements domain.HookRegistry interface.
var _ domain.HookRegistry = (*MockHookRegistry)(nil)

// Get returns a definition or nil.
func (m *MockHookRegistry) Get(name string) (*domain.HookDefinition, error) {
	return m.Defs[name], nil
}

// List returns definitions ordered by name.
func (m *MockHookRegistry) List() ([]*domain.HookDefinition, error) {
	var out []*domain.HookDefinition
	for _, d := range m.Defs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *domain.HookDefinition) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// MockSessionRepository is a test double for domain.SessionRepository.
type MockSessionRepository struct {
	Sessions map[string]*domain.Session
	SaveErr  error
}

// NewMockSessionRepository creates an empty session repository.
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{Sessions: make(map[string]*domain.Session)}
}

// Ensure MockSessionRepository implements domain.SessionRepository interface.
var _ domain.SessionRepository = (*MockSessionRepository)(nil)

// GetSession returns a copy of the session or nil.
func (m *MockSessionRepository) GetSession(id string) (*domain.Session, error) {
	s, ok := m.Sessions[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

// ListSessions returns sessions ordered by creation time.
func (m *MockSessionRepository) ListSessions() ([]*domain.Session, error) {
	var out []*domain.Session
	for _, s := range m.Sessions {
		c := *s
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *domain.Session) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// SaveSession stores a copy of the session.
func (m *MockSessionRepository) SaveSession(s *domain.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	c := *s
	m.Sessions[s.ID] = &c
	return nil
}

// SentKeys is one recorded Send call.
type SentKeys struct {
	Session string
	Keys    string
}

// MockSessionManager is a test double for domain.SessionManager.
// Started sessions are running until stopped. PeekOutput is returned for every running session.
// Fields are ordered to minimize memory padding.
type MockSessionManager struct {
	Running      map[string]bool
	IsRunningErr error
	StartErr     error
	StopErr      error
	AttachErr    error
	SendErr      error
	PeekErr      error
	PeekOutput   string
	Started      []domain.StartSessionOptions
	Stopped      []string
	Attached     []string
	Sent         []SentKeys
	PeekCalls    int
}

// NewMockSessionManager creates a session manager whose sessions print a prompt.
func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		Running:    make(map[string]bool),
		PeekOutput: ">",
	}
}

// Ensure MockSessionManager implements domain.SessionManager interface.
var _ domain.SessionManager = (*MockSessionManager)(nil)

// Start records the call and marks the session running.
func (m *MockSessionManager) Start(_ context.Context, opts domain.StartSessionOptions) error {
	m.Started = append(m.Started, opts)
	if m.StartErr != nil {
		return m.StartErr
	}
	m.Running[opts.Name] = true
	return nil
}

// Stop records the call and marks the session stopped.
func (m *MockSessionManager) Stop(name string) error {
	m.Stopped = append(m.Stopped, name)
	if m.StopErr != nil {
		return m.StopErr
	}
	delete(m.Running, name)
	return nil
}

// Attach records the call.
func (m *MockSessionManager) Attach(name string) error {
	m.Attached = append(m.Attached, name)
	if m.AttachErr != nil {
		return m.AttachErr
	}
	if !m.Running[name] {
		return domain.ErrNoSession
	}
	return nil
}

// Peek returns the configured output for running sessions.
func (m *MockSessionManager) Peek(name string, _ int) (string, error) {
	m.PeekCalls++
	if m.PeekErr != nil {
		return "", m.PeekErr
	}
	if !m.Running[name] {
		return "", domain.ErrNoSession
	}
	return m.PeekOutput, nil
}

// Send records the keys.
func (m *MockSessionManager) Send(name string, keys string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	if !m.Running[name] {
		return domain.ErrNoSession
	}
	m.Sent = append(m.Sent, SentKeys{Session: name, Keys: keys})
	return nil
}

// IsRunning reports whether the session was started and not stopped.
func (m *MockSessionManager) IsRunning(name string) (bool, error) {
	if m.IsRunningErr != nil {
		return false, m.IsRunningErr
	}
	return m.Running[name], nil
}

// MockWorktreeManager is a test double for domain.WorktreeManager.
// Fields are ordered to minimize memory padding.
type MockWorktreeManager struct {
	CreateErr   error
	ResolveErr  error
	RemoveErr   error
	ExistsErr   error
	CreatePath  string
	ResolvePath string
	BaseBranch  string
	Created     []string
	Removed     []string
	ExistsVal   bool
	RemoveForce bool
}

// NewMockWorktreeManager creates a new MockWorktreeManager.
func NewMockWorktreeManager() *MockWorktreeManager {
	return &MockWorktreeManager{CreatePath: "/tmp/worktree"}
}

// Ensure MockWorktreeManager implements domain.WorktreeManager interface.
var _ domain.WorktreeManager = (*MockWorktreeManager)(nil)

// Create records the call and returns the configured path or error.
func (m *MockWorktreeManager) Create(branch, base string) (string, error) {
	m.Created = append(m.Created, branch)
	m.BaseBranch = base
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	return m.CreatePath, nil
}

// Resolve returns the configured path or error.
func (m *MockWorktreeManager) Resolve(_ string) (string, error) {
	if m.ResolveErr != nil {
		return "", m.ResolveErr
	}
	return m.ResolvePath, nil
}

// Remove records the call and returns the configured error.
func (m *MockWorktreeManager) Remove(branch string, force bool) error {
	m.Removed = append(m.Removed, branch)
	m.RemoveForce = force
	return m.RemoveErr
}

// Exists returns the configured value or error.
func (m *MockWorktreeManager) Exists(_ string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	return m.ExistsVal, nil
}

// MockGit is a test double for domain.Git.
// Fields are ordered to minimize memory padding.
type MockGit struct {
	DefaultBranchErr  error
	DeleteBranchErr   error
	CurrentBranchErr  error
	DefaultBranchName string
	CurrentBranchName string
	DeletedBranches   []string
	BranchExistsVal   bool
}

// Ensure MockGit implements domain.Git interface.
var _ domain.Git = (*MockGit)(nil)

// DefaultBranch returns the configured branch, "main" by default.
func (m *MockGit) DefaultBranch() (string, error) {
	if m.DefaultBranchErr != nil {
		return "", m.DefaultBranchErr
	}
	if m.DefaultBranchName == "" {
		return "main", nil
	}
	return m.DefaultBranchName, nil
}

// BranchExists returns the configured value.
func (m *MockGit) BranchExists(_ string) (bool, error) {
	return m.BranchExistsVal, nil
}

// DeleteBranch records the call and returns the configured error.
func (m *MockGit) DeleteBranch(branch string) error {
	m.DeletedBranches = append(m.DeletedBranches, branch)
	return m.DeleteBranchErr
}

// CurrentBranch returns the configured branch.
func (m *MockGit) CurrentBranch() (string, error) {
	if m.CurrentBranchErr != nil {
		return "", m.CurrentBranchErr
	}
	return m.CurrentBranchName, nil
}

// MockActionRunner is a test double for domain.ActionRunner.
// Results and Errors are keyed by command. OnRun, if set, runs inside Run.
// Fields are ordered to minimize memory padding.
type MockActionRunner struct {
	Results  map[string]*domain.ActionResult
	Errors   map[string]error
	OnRun    func(run domain.ActionRun)
	StartErr error
	Runs     []domain.ActionRun
	Starts   []domain.ActionRun
	NextPID  int
	mu       sync.Mutex
}

// NewMockActionRunner creates a runner where every command succeeds with no output.
func NewMockActionRunner() *MockActionRunner {
	return &MockActionRunner{
		Results: make(map[string]*domain.ActionResult),
		Errors:  make(map[string]error),
		NextPID: 1000,
	}
}

// Ensure MockActionRunner implements domain.ActionRunner interface.
var _ domain.ActionRunner = (*MockActionRunner)(nil)

// Run records the call and returns the configured result.
func (m *MockActionRunner) Run(_ context.Context, run domain.ActionRun) (*domain.ActionResult, error) {
	m.mu.Lock()
	m.Runs = append(m.Runs, run)
	onRun := m.OnRun
	m.mu.Unlock()

	if onRun != nil {
		onRun(run)
	}
	if err := m.Errors[run.Command]; err != nil {
		return &domain.ActionResult{}, err
	}
	if res, ok := m.Results[run.Command]; ok {
		return res, nil
	}
	return &domain.ActionResult{}, nil
}

// Start records the call and returns the next PID.
func (m *MockActionRunner) Start(_ context.Context, run domain.ActionRun) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Starts = append(m.Starts, run)
	if m.StartErr != nil {
		return 0, m.StartErr
	}
	pid := m.NextPID
	m.NextPID++
	return pid, nil
}

// MockRecursionGuard is a test double for domain.RecursionGuard.
type MockRecursionGuard struct {
	Held       map[string]bool
	AcquireErr error
	Released   []string
	mu         sync.Mutex
}

// NewMockRecursionGuard creates an empty guard.
func NewMockRecursionGuard() *MockRecursionGuard {
	return &MockRecursionGuard{Held: make(map[string]bool)}
}

// Ensure MockRecursionGuard implements domain.RecursionGuard interface.
var _ domain.RecursionGuard = (*MockRecursionGuard)(nil)

// TryAcquire takes key unless held.
func (m *MockRecursionGuard) TryAcquire(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AcquireErr != nil {
		return false, m.AcquireErr
	}
	if m.Held[key] {
		return false, nil
	}
	m.Held[key] = true
	return true, nil
}

// Release frees key.
func (m *MockRecursionGuard) Release(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Held, key)
	m.Released = append(m.Released, key)
	return nil
}

// MockTaskLocker is a test double for domain.TaskLocker.
type MockTaskLocker struct {
	Locked map[int]bool
	mu     sync.Mutex
}

// NewMockTaskLocker creates an unlocked locker.
func NewMockTaskLocker() *MockTaskLocker {
	return &MockTaskLocker{Locked: make(map[int]bool)}
}

// Ensure MockTaskLocker implements domain.TaskLocker interface.
var _ domain.TaskLocker = (*MockTaskLocker)(nil)

// TryLock takes the task lock unless already held.
func (m *MockTaskLocker) TryLock(taskID int) (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Locked[taskID] {
		return nil, false
	}
	m.Locked[taskID] = true
	return func() {
		m.mu.Lock()
		delete(m.Locked, taskID)
		m.mu.Unlock()
	}, true
}

// MockProcessTracker is a test double for domain.ProcessTracker.
// Fields are ordered to minimize memory padding.
type MockProcessTracker struct {
	Procs        map[int][]domain.TrackedProcess
	TerminateErr map[int]error
	ClearErr     error
	Terminated   []int
	Cleared      []int
}

// NewMockProcessTracker creates an empty tracker.
func NewMockProcessTracker() *MockProcessTracker {
	return &MockProcessTracker{
		Procs:        make(map[int][]domain.TrackedProcess),
		TerminateErr: make(map[int]error),
	}
}

// Ensure MockProcessTracker implements domain.ProcessTracker interface.
var _ domain.ProcessTracker = (*MockProcessTracker)(nil)

// Track records a process.
func (m *MockProcessTracker) Track(taskID int, proc domain.TrackedProcess) error {
	m.Procs[taskID] = append(m.Procs[taskID], proc)
	return nil
}

// List returns the recorded processes.
func (m *MockProcessTracker) List(taskID int) ([]domain.TrackedProcess, error) {
	return m.Procs[taskID], nil
}

// Terminate records the PID and returns the configured error for it.
func (m *MockProcessTracker) Terminate(pid int) error {
	m.Terminated = append(m.Terminated, pid)
	return m.TerminateErr[pid]
}

// Clear forgets the processes of a task.
func (m *MockProcessTracker) Clear(taskID int) error {
	m.Cleared = append(m.Cleared, taskID)
	if m.ClearErr != nil {
		return m.ClearErr
	}
	delete(m.Procs, taskID)
	return nil
}

// MockPreconditionChecker is a test double for domain.PreconditionChecker.
// Satisfied edges are keyed by Edge.Key().
type MockPreconditionChecker struct {
	Edges map[string]bool
	Err   error
	Dirs  []string
}

// NewMockPreconditionChecker creates a checker with the given satisfied edges.
func NewMockPreconditionChecker(satisfied ...string) *MockPreconditionChecker {
	m := &MockPreconditionChecker{Edges: make(map[string]bool)}
	for _, key := range satisfied {
		m.Edges[key] = true
	}
	return m
}

// Ensure MockPreconditionChecker implements domain.PreconditionChecker interface.
var _ domain.PreconditionChecker = (*MockPreconditionChecker)(nil)

// Satisfied returns the configured value for the edge.
func (m *MockPreconditionChecker) Satisfied(_ context.Context, _ *domain.Task, edge domain.Edge) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.Edges[edge.Key()], nil
}

// WatchDirs returns the configured directories.
func (m *MockPreconditionChecker) WatchDirs(_ context.Context, _ *domain.Task) ([]string, error) {
	return m.Dirs, nil
}

// MockArtifactWatcher is a test double for domain.ArtifactWatcher.
// Each Wait runs OnWait (if set) and returns immediately.
type MockArtifactWatcher struct {
	OnWait func(calls int)
	Calls  int
}

// Ensure MockArtifactWatcher implements domain.ArtifactWatcher interface.
var _ domain.ArtifactWatcher = (*MockArtifactWatcher)(nil)

// Wait records the call.
func (m *MockArtifactWatcher) Wait(ctx context.Context, _ []string, _ time.Duration) error {
	m.Calls++
	if m.OnWait != nil {
		m.OnWait(m.Calls)
	}
	return ctx.Err()
}

// MockPendingStore is a test double for domain.PendingStore.
type MockPendingStore struct {
	Markers map[string]map[string]domain.PendingHook
	PutErr  error
}

// NewMockPendingStore creates an empty pending store.
func NewMockPendingStore() *MockPendingStore {
	return &MockPendingStore{Markers: make(map[string]map[string]domain.PendingHook)}
}

// Ensure MockPendingStore implements domain.PendingStore interface.
var _ domain.PendingStore = (*MockPendingStore)(nil)

// Put stores a marker.
func (m *MockPendingStore) Put(p domain.PendingHook) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	if m.Markers[p.ProjectID] == nil {
		m.Markers[p.ProjectID] = make(map[string]domain.PendingHook)
	}
	m.Markers[p.ProjectID][p.HookName] = p
	return nil
}

// List returns markers ordered by hook name.
func (m *MockPendingStore) List(projectID string) ([]domain.PendingHook, error) {
	var out []domain.PendingHook
	for _, p := range m.Markers[projectID] {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.PendingHook) int { return cmp.Compare(a.HookName, b.HookName) })
	return out, nil
}

// Clear removes one or all markers of a project.
func (m *MockPendingStore) Clear(projectID, hookName string) (int, error) {
	if hookName == "" {
		n := len(m.Markers[projectID])
		delete(m.Markers, projectID)
		return n, nil
	}
	if _, ok := m.Markers[projectID][hookName]; !ok {
		return 0, nil
	}
	delete(m.Markers[projectID], hookName)
	return 1, nil
}

// MockNotifier is a test double for domain.Notifier.
type MockNotifier struct {
	Notices []domain.Notice
}

// Ensure MockNotifier implements domain.Notifier interface.
var _ domain.Notifier = (*MockNotifier)(nil)

// Notify records the notice.
func (m *MockNotifier) Notify(n domain.Notice) {
	m.Notices = append(m.Notices, n)
}

// ObservedTransition is one recorded observer call.
type ObservedTransition struct {
	Task  *domain.Task
	From  domain.Status
	To    domain.Status
	Actor domain.Actor
}

// MockTransitionObserver is a test double for domain.TransitionObserver.
type MockTransitionObserver struct {
	Calls []ObservedTransition
}

// Ensure MockTransitionObserver implements domain.TransitionObserver interface.
var _ domain.TransitionObserver = (*MockTransitionObserver)(nil)

// OnTransitionAccepted records the call.
func (m *MockTransitionObserver) OnTransitionAccepted(_ context.Context, task *domain.Task, from, to domain.Status, actor domain.Actor) {
	m.Calls = append(m.Calls, ObservedTransition{Task: task.Clone(), From: from, To: to, Actor: actor})
}

// MockWorkspaceProvisioner is a test double for domain.WorkspaceProvisioner.
// Fields are ordered to minimize memory padding.
type MockWorkspaceProvisioner struct {
	ProvisionErr   error
	DiscardErr     error
	Ref            domain.WorkspaceRef
	Discarded      []domain.WorkspaceRef
	ProvisionCalls int
}

// NewMockWorkspaceProvisioner creates a provisioner returning flow-style refs.
func NewMockWorkspaceProvisioner() *MockWorkspaceProvisioner {
	return &MockWorkspaceProvisioner{}
}

// Ensure MockWorkspaceProvisioner implements domain.WorkspaceProvisioner interface.
var _ domain.WorkspaceProvisioner = (*MockWorkspaceProvisioner)(nil)

// Provision returns the task's existing ref or a new one.
func (m *MockWorkspaceProvisioner) Provision(_ context.Context, task *domain.Task) (domain.WorkspaceRef, bool, error) {
	m.ProvisionCalls++
	if m.ProvisionErr != nil {
		return domain.WorkspaceRef{}, false, m.ProvisionErr
	}
	if task.Workspace != nil {
		return *task.Workspace, false, nil
	}
	if m.Ref.Branch != "" {
		return m.Ref, true, nil
	}
	return domain.WorkspaceRef{
		Branch: domain.BranchName(task.ID),
		Path:   fmt.Sprintf("/tmp/worktrees/%d", task.ID),
	}, true, nil
}

// Discard records the call.
func (m *MockWorkspaceProvisioner) Discard(_ context.Context, _ *domain.Task, ref domain.WorkspaceRef) error {
	m.Discarded = append(m.Discarded, ref)
	return m.DiscardErr
}

// LogEntry is one recorded log line.
type LogEntry struct {
	Level    string
	Category string
	Msg      string
	TaskID   int
}

// MockLogger is a test double for domain.Logger.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

// Ensure MockLogger implements domain.Logger interface.
var _ domain.Logger = (*MockLogger)(nil)

func (m *MockLogger) add(level string, taskID int, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, Category: category, Msg: msg, TaskID: taskID})
}

// Info records an info entry.
func (m *MockLogger) Info(taskID int, category, msg string) { m.add("INFO", taskID, category, msg) }

// Debug records a debug entry.
func (m *MockLogger) Debug(taskID int, category, msg string) { m.add("DEBUG", taskID, category, msg) }

// Warn records a warn entry.
func (m *MockLogger) Warn(taskID int, category, msg string) { m.add("WARN", taskID, category, msg) }

// Error records an error entry.
func (m *MockLogger) Error(taskID int, category, msg string) { m.add("ERROR", taskID, category, msg) }

// Count returns the number of entries at a level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config       *domain.Config
	GlobalConfig *domain.Config
	LoadErr      error
	GlobalErr    error
}

// NewMockConfigLoader creates a new MockConfigLoader with default config.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Ensure MockConfigLoader implements domain.ConfigLoader interface.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// Load returns the configured config or error.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// LoadGlobal returns the configured config or error.
func (m *MockConfigLoader) LoadGlobal() (*domain.Config, error) {
	if m.GlobalErr != nil {
		return nil, m.GlobalErr
	}
	if m.GlobalConfig != nil {
		return m.GlobalConfig, nil
	}
	return m.Config, nil
}

// MockConfigManager is a test double for domain.ConfigManager.
type MockConfigManager struct {
	InitRepoErr    error
	RepoConfigInfo domain.ConfigInfo
	InitRepoCalled bool
}

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{
		RepoConfigInfo: domain.ConfigInfo{Path: "/test/.git/taskflow/config.toml"},
	}
}

// Ensure MockConfigManager implements domain.ConfigManager interface.
var _ domain.ConfigManager = (*MockConfigManager)(nil)

// GetRepoConfigInfo returns the configured repo config info.
func (m *MockConfigManager) GetRepoConfigInfo() domain.ConfigInfo {
	return m.RepoConfigInfo
}

// InitRepoConfig records the call and returns the configured error.
func (m *MockConfigManager) InitRepoConfig(_ *domain.Config) error {
	m.InitRepoCalled = true
	return m.InitRepoErr
}
