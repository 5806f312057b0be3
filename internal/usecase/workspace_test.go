package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureWorkspace_Idempotent(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks[1] = devTask(1, domain.StatusInProgress)
	prov := testutil.NewMockWorkspaceProvisioner()
	uc := NewEnsureWorkspace(tasks, testutil.NewMockTaskLocker(), prov, &testutil.MockLogger{})

	first, err := uc.Execute(context.Background(), EnsureWorkspaceInput{TaskID: 1})
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := uc.Execute(context.Background(), EnsureWorkspaceInput{TaskID: 1})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Ref, second.Ref)
	assert.Equal(t, 1, prov.ProvisionCalls, "no second workspace is created")
	assert.Equal(t, 1, tasks.SaveCalls)
}

func TestEnsureWorkspace_NotSupported(t *testing.T) {
	tests := []struct {
		task *domain.Task
		name string
	}{
		{name: "simple mode", task: &domain.Task{ID: 1, Status: domain.StatusInProgress, Mode: domain.ModeSimple}},
		{name: "worktree disabled", task: &domain.Task{ID: 1, Status: domain.StatusInProgress, Mode: domain.ModeDevelopment}},
		{name: "before analysis is done", task: devTask(1, domain.StatusAnalysis)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := testutil.NewMockTaskRepository()
			tasks.Tasks[1] = tt.task
			prov := testutil.NewMockWorkspaceProvisioner()
			uc := NewEnsureWorkspace(tasks, testutil.NewMockTaskLocker(), prov, &testutil.MockLogger{})

			_, err := uc.Execute(context.Background(), EnsureWorkspaceInput{TaskID: 1})
			assert.ErrorIs(t, err, domain.ErrWorkspaceNotSupported)
			assert.Equal(t, 0, prov.ProvisionCalls)
		})
	}
}

func TestEnsureWorkspace_Errors(t *testing.T) {
	t.Run("provision", func(t *testing.T) {
		tasks := testutil.NewMockTaskRepository()
		tasks.Tasks[1] = devTask(1, domain.StatusTesting)
		prov := testutil.NewMockWorkspaceProvisioner()
		prov.ProvisionErr = errors.New("no space")
		uc := NewEnsureWorkspace(tasks, testutil.NewMockTaskLocker(), prov, &testutil.MockLogger{})

		_, err := uc.Execute(context.Background(), EnsureWorkspaceInput{TaskID: 1})
		assert.ErrorIs(t, err, domain.ErrWorkspaceProvision)
	})

	t.Run("save discards", func(t *testing.T) {
		tasks := testutil.NewMockTaskRepository()
		tasks.Tasks[1] = devTask(1, domain.StatusTesting)
		tasks.SaveErr = errors.New("write failed")
		prov := testutil.NewMockWorkspaceProvisioner()
		uc := NewEnsureWorkspace(tasks, testutil.NewMockTaskLocker(), prov, &testutil.MockLogger{})

		_, err := uc.Execute(context.Background(), EnsureWorkspaceInput{TaskID: 1})
		require.Error(t, err)
		assert.Len(t, prov.Discarded, 1)
	})

	t.Run("not found", func(t *testing.T) {
		uc := NewEnsureWorkspace(testutil.NewMockTaskRepository(), testutil.NewMockTaskLocker(), testutil.NewMockWorkspaceProvisioner(), &testutil.MockLogger{})
		_, err := uc.Execute(context.Background(), EnsureWorkspaceInput{TaskID: 1})
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})
}

type releaseFixture struct {
	tasks     *testutil.MockTaskRepository
	sessions  *testutil.MockSessionRepository
	manager   *testutil.MockSessionManager
	procs     *testutil.MockProcessTracker
	worktrees *testutil.MockWorktreeManager
	git       *testutil.MockGit
	uc        *ReleaseWorkspace
}

func newReleaseFixture() *releaseFixture {
	f := &releaseFixture{
		tasks:     testutil.NewMockTaskRepository(),
		sessions:  testutil.NewMockSessionRepository(),
		manager:   testutil.NewMockSessionManager(),
		procs:     testutil.NewMockProcessTracker(),
		worktrees: testutil.NewMockWorktreeManager(),
		git:       &testutil.MockGit{},
	}
	f.uc = NewReleaseWorkspace(f.tasks, testutil.NewMockTaskLocker(), f.sessions, f.manager, f.procs, f.worktrees, f.git, &testutil.MockLogger{})

	task := devTask(1, domain.StatusDone)
	task.Workspace = &domain.WorkspaceRef{Branch: "flow-1", Path: "/wt/1"}
	f.tasks.Tasks[1] = task
	f.sessions.Sessions["s1"] = &domain.Session{ID: "s1", Name: "flow-1", TaskID: 1, Status: domain.SessionActive}
	f.sessions.Sessions["s2"] = &domain.Session{ID: "s2", Name: "flow-adhoc-s2", Status: domain.SessionActive}
	f.manager.Running["flow-1"] = true
	f.manager.Running["flow-adhoc-s2"] = true
	f.procs.Procs[1] = []domain.TrackedProcess{{Name: "watch", PID: 4242}, {Name: "server", PID: 4343}}
	return f
}

func TestReleaseWorkspace_Full(t *testing.T) {
	f := newReleaseFixture()

	out, err := f.uc.Execute(context.Background(), ReleaseWorkspaceInput{TaskID: 1})
	require.NoError(t, err)
	r := out.Report
	assert.True(t, r.Ok(), r.Summary())
	assert.Equal(t, []string{"flow-1"}, r.StoppedSessions)
	assert.Equal(t, []int{4242, 4343}, r.TerminatedPIDs)
	assert.True(t, r.WorkspaceRemoved)
	assert.True(t, r.BranchDeleted)

	assert.Equal(t, domain.SessionCompleted, f.sessions.Sessions["s1"].Status)
	assert.True(t, f.manager.Running["flow-adhoc-s2"], "sessions of other tasks are left alone")
	assert.Equal(t, []int{1}, f.procs.Cleared)
	assert.Equal(t, []string{"flow-1"}, f.worktrees.Removed)
	assert.False(t, f.worktrees.RemoveForce)
	assert.Nil(t, f.tasks.Tasks[1].Workspace)
}

func TestReleaseWorkspace_KeepWorkspace(t *testing.T) {
	f := newReleaseFixture()

	out, err := f.uc.Execute(context.Background(), ReleaseWorkspaceInput{TaskID: 1, KeepWorkspace: true})
	require.NoError(t, err)
	assert.True(t, out.Report.Ok())
	assert.False(t, out.Report.WorkspaceRemoved)
	assert.Empty(t, f.worktrees.Removed)
	assert.NotNil(t, f.tasks.Tasks[1].Workspace)
	assert.Equal(t, []string{"flow-1"}, out.Report.StoppedSessions)
}

func TestReleaseWorkspace_ContinuesAfterFailures(t *testing.T) {
	f := newReleaseFixture()
	f.manager.StopErr = errors.New("tmux gone")
	f.procs.TerminateErr[4242] = errors.New("operation not permitted")

	out, err := f.uc.Execute(context.Background(), ReleaseWorkspaceInput{TaskID: 1, Force: true})
	require.NoError(t, err)
	r := out.Report
	require.False(t, r.Ok())

	steps := make([]string, 0, len(r.Failures))
	for _, failure := range r.Failures {
		steps = append(steps, failure.Step)
	}
	assert.Equal(t, []string{domain.StepStopSession, domain.StepTerminateProcess}, steps)
	assert.Equal(t, []int{4343}, r.TerminatedPIDs)
	assert.True(t, r.WorkspaceRemoved, "worktree removal proceeds after kill failures")
	assert.True(t, f.worktrees.RemoveForce)
	assert.Contains(t, r.Summary(), "watch (pid 4242)")
}

func TestReleaseWorkspace_DirtyWorktree(t *testing.T) {
	f := newReleaseFixture()
	f.worktrees.RemoveErr = domain.ErrUncommittedChanges

	out, err := f.uc.Execute(context.Background(), ReleaseWorkspaceInput{TaskID: 1})
	require.NoError(t, err)
	require.Len(t, out.Report.Failures, 1)
	assert.Equal(t, domain.StepRemoveWorktree, out.Report.Failures[0].Step)
	assert.ErrorIs(t, out.Report.Failures[0].Err, domain.ErrUncommittedChanges)
	assert.Empty(t, f.git.DeletedBranches, "branch stays while its worktree exists")
	assert.NotNil(t, f.tasks.Tasks[1].Workspace)
}

func TestReleaseWorkspace_StopsUnrecordedSession(t *testing.T) {
	f := newReleaseFixture()
	delete(f.sessions.Sessions, "s1")

	out, err := f.uc.Execute(context.Background(), ReleaseWorkspaceInput{TaskID: 1, KeepWorkspace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"flow-1"}, out.Report.StoppedSessions)
}

func TestReleaseWorkspace_NotFound(t *testing.T) {
	f := newReleaseFixture()
	_, err := f.uc.Execute(context.Background(), ReleaseWorkspaceInput{TaskID: 42})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
