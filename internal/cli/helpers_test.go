package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/runoshun/taskflow/internal/app"
	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/infra/builtin"
	"github.com/runoshun/taskflow/internal/testutil"
)

// testEnv is a container wired to test doubles, plus handles on them.
type testEnv struct {
	c         *app.Container
	tasks     *testutil.MockTaskRepository
	projects  *testutil.MockProjectRepository
	hooks     *testutil.MockHookRepository
	records   *testutil.MockSessionRepository
	sessions  *testutil.MockSessionManager
	worktrees *testutil.MockWorktreeManager
	git       *testutil.MockGit
	runner    *testutil.MockActionRunner
	procs     *testutil.MockProcessTracker
	pending   *testutil.MockPendingStore
	checker   *testutil.MockPreconditionChecker
	notifier  *testutil.MockNotifier
	config    *testutil.MockConfigLoader
	manager   *testutil.MockConfigManager
	clock     *testutil.MockClock
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestEnv creates a container with project "app" rooted at /repo.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(taskEnvVar, "")

	env := &testEnv{
		tasks:     testutil.NewMockTaskRepository(),
		projects:  testutil.NewMockProjectRepository(domain.NewDefaultProjectSettings("app", "/repo")),
		hooks:     testutil.NewMockHookRepository(),
		records:   testutil.NewMockSessionRepository(),
		sessions:  testutil.NewMockSessionManager(),
		worktrees: testutil.NewMockWorktreeManager(),
		git:       &testutil.MockGit{},
		runner:    testutil.NewMockActionRunner(),
		procs:     testutil.NewMockProcessTracker(),
		pending:   testutil.NewMockPendingStore(),
		checker:   testutil.NewMockPreconditionChecker(),
		notifier:  &testutil.MockNotifier{},
		config:    testutil.NewMockConfigLoader(),
		manager:   testutil.NewMockConfigManager(),
		clock:     &testutil.MockClock{NowTime: testNow},
	}
	env.config.Config.Session.PollInterval = time.Millisecond
	env.config.Config.Session.WarmupTimeout = 10 * time.Millisecond

	dataDir := t.TempDir()
	c := app.NewWithDeps(app.Config{
		RepoRoot:  "/repo",
		GitDir:    "/repo/.git",
		DataDir:   dataDir,
		ProjectID: "app",
		Bin:       "taskflow",
	}, env.tasks, &testutil.MockStoreInitializer{}, env.clock, &testutil.MockLogger{})
	c.Projects = env.projects
	c.Hooks = env.hooks
	c.SessionRecords = env.records
	c.Registry = builtin.NewRegistry(env.hooks)
	c.Git = env.git
	c.Worktrees = env.worktrees
	c.Sessions = env.sessions
	c.Runner = env.runner
	c.Guard = testutil.NewMockRecursionGuard()
	c.Locker = testutil.NewMockTaskLocker()
	c.Procs = env.procs
	c.Pending = env.pending
	c.Checker = env.checker
	c.Watcher = &testutil.MockArtifactWatcher{}
	c.Notifier = env.notifier
	c.ConfigLoader = env.config
	c.ConfigManager = env.manager
	env.c = c
	return env
}

// addTask stores a task of project "app" and returns it.
func (e *testEnv) addTask(id int, mode domain.Mode, status domain.Status) *domain.Task {
	task := &domain.Task{
		ID:              id,
		ProjectID:       "app",
		Title:           "Task " + string(status),
		Mode:            mode,
		Status:          status,
		WorktreeEnabled: mode == domain.ModeDevelopment,
		Created:         testNow.Add(-2 * time.Hour),
		Updated:         testNow.Add(-30 * time.Minute),
	}
	e.tasks.Tasks[id] = task
	if e.tasks.NextIDN <= id {
		e.tasks.NextIDN = id + 1
	}
	return task
}

// run executes the root command with args and returns stdout and stderr.
func (e *testEnv) run(args ...string) (string, string, error) {
	return e.runWithInput("", args...)
}

func (e *testEnv) runWithInput(stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := NewRootCommand(e.c, "test")
	root.SetOut(&out)
	root.SetErr(&errOut)
	var in io.Reader = strings.NewReader(stdin)
	root.SetIn(in)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}
