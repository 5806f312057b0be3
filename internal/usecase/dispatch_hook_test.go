package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatchFixture struct {
	*hookFixture
	runner  *testutil.MockActionRunner
	guard   *testutil.MockRecursionGuard
	pending *testutil.MockPendingStore
	procs   *testutil.MockProcessTracker
	uc      *DispatchHook
}

func newDispatchFixture(t *testing.T, defs ...*domain.HookDefinition) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		hookFixture: newHookFixture("/repo", defs...),
		runner:      testutil.NewMockActionRunner(),
		guard:       testutil.NewMockRecursionGuard(),
		pending:     testutil.NewMockPendingStore(),
		procs:       testutil.NewMockProcessTracker(),
	}
	for _, def := range defs {
		_, _, err := f.hooks.AddBinding("app", def.Name)
		require.NoError(t, err)
	}
	f.uc = NewDispatchHook(f.compile, f.runner, f.guard, f.pending, f.procs, f.config, &testutil.MockClock{NowTime: testNow}, f.logger)
	return f
}

func cmdHook(name string, event domain.HookEvent, matcher, command string) *domain.HookDefinition {
	return &domain.HookDefinition{
		Name:    name,
		Event:   event,
		Matcher: matcher,
		Origin:  domain.OriginCustom,
		Action:  domain.HookAction{Command: command},
	}
}

func payload(t *testing.T, doc string) *domain.HookPayload {
	t.Helper()
	p, err := domain.ParseHookPayload([]byte(doc))
	require.NoError(t, err)
	return p
}

func TestDispatchHook_RunsMatchingActionsInOrder(t *testing.T) {
	f := newDispatchFixture(t,
		cmdHook("fmt", domain.HookPostTool, "Edit|Write", "gofmt -l ."),
		cmdHook("bash-only", domain.HookPostTool, "Bash", "echo bash"),
		cmdHook("all", domain.HookPostTool, "", "echo all"),
		cmdHook("stop", domain.HookSessionStop, "", "echo stop"),
	)
	f.runner.Results["gofmt -l ."] = &domain.ActionResult{Output: "main.go\n"}
	doc := `{"hook_event_name":"PostToolUse","tool_name":"Edit","task_id":3}`

	out, err := f.uc.Execute(context.Background(), DispatchHookInput{
		Event:     domain.HookPostTool,
		ProjectID: "app",
		Payload:   payload(t, doc),
	})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 2)
	assert.Equal(t, "fmt", out.Outcomes[0].HookName)
	assert.Equal(t, domain.OutcomeExecuted, out.Outcomes[0].Kind)
	assert.Equal(t, "main.go\n", out.Outcomes[0].Output)
	assert.Equal(t, "all", out.Outcomes[1].HookName)
	assert.Equal(t, 0, out.Failed())

	require.Len(t, f.runner.Runs, 2)
	run := f.runner.Runs[0]
	assert.Equal(t, "/repo", run.Dir)
	assert.Equal(t, doc, string(run.Stdin), "the event document is passed through unchanged")
	assert.Equal(t, domain.DefaultActionTimeout, run.Timeout)
	assert.Equal(t, []string{
		"TASKFLOW_HOOK=fmt",
		"TASKFLOW_EVENT=post-tool",
		"TASKFLOW_PROJECT=app",
		"TASKFLOW_TASK=3",
	}, run.Env)
}

func TestDispatchHook_FailureDoesNotStopLaterActions(t *testing.T) {
	f := newDispatchFixture(t,
		cmdHook("a", domain.HookSessionStop, "", "exit 1"),
		cmdHook("b", domain.HookSessionStop, "", "broken"),
		cmdHook("c", domain.HookSessionStop, "", "echo ok"),
	)
	f.runner.Results["exit 1"] = &domain.ActionResult{ExitCode: 1, Output: "boom"}
	f.runner.Errors["broken"] = errors.New("exec: not found")

	out, err := f.uc.Execute(context.Background(), DispatchHookInput{Event: domain.HookSessionStop, ProjectID: "app"})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 3)

	assert.Equal(t, domain.OutcomeFailed, out.Outcomes[0].Kind)
	assert.Equal(t, 1, out.Outcomes[0].ExitCode)
	assert.ErrorIs(t, out.Outcomes[0].Err, domain.ErrActionExecution)
	assert.Equal(t, domain.OutcomeFailed, out.Outcomes[1].Kind)
	assert.Contains(t, out.Outcomes[1].Error, "not found")
	assert.Equal(t, domain.OutcomeExecuted, out.Outcomes[2].Kind)
	assert.Equal(t, 2, out.Failed())
	assert.Len(t, f.runner.Runs, 3)
	assert.Equal(t, 2, f.logger.Count("ERROR"))
}

func TestDispatchHook_SkipMarker(t *testing.T) {
	reentrant := cmdHook("push", domain.HookPostTool, "Bash", "git push")
	reentrant.Action.Reentrant = true
	f := newDispatchFixture(t, reentrant, cmdHook("any", domain.HookPostTool, "", "echo any"))

	out, err := f.uc.Execute(context.Background(), DispatchHookInput{
		Event:     domain.HookPostTool,
		ProjectID: "app",
		Payload:   payload(t, `{"tool_name":"Bash","tool_input":{"command":"git commit -m 'wip [skip hooks]'"}}`),
	})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 2)
	for _, oc := range out.Outcomes {
		assert.Equal(t, domain.OutcomeSkippedByMarker, oc.Kind)
	}
	assert.Empty(t, f.runner.Runs)
	assert.Empty(t, f.guard.Held)
}

func TestDispatchHook_SkipMarkerIgnoresMatcher(t *testing.T) {
	f := newDispatchFixture(t, lintHook(), cmdHook("stop", domain.HookSessionStop, "", "echo stop"))

	out, err := f.uc.Execute(context.Background(), DispatchHookInput{
		Event:     domain.HookPostTool,
		ProjectID: "app",
		Payload:   payload(t, `{"tool_name":"Bash","tool_input":{"command":"echo '[skip hooks]'"}}`),
	})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 1, "one skip per entry of the event")
	assert.Equal(t, "lint", out.Outcomes[0].HookName)
	assert.Equal(t, domain.OutcomeSkippedByMarker, out.Outcomes[0].Kind)
	assert.Empty(t, f.runner.Runs)
}

func TestDispatchHook_HookFilter(t *testing.T) {
	f := newDispatchFixture(t,
		cmdHook("fmt", domain.HookPostTool, "Edit|Write", "gofmt -l ."),
		cmdHook("all", domain.HookPostTool, "", "echo all"),
	)
	in := DispatchHookInput{
		Event:     domain.HookPostTool,
		ProjectID: "app",
		HookName:  "all",
		Payload:   payload(t, `{"tool_name":"Edit"}`),
	}

	out, err := f.uc.Execute(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 1)
	assert.Equal(t, "all", out.Outcomes[0].HookName)
	require.Len(t, f.runner.Runs, 1)
	assert.Equal(t, "echo all", f.runner.Runs[0].Command)

	in.HookName = "gone"
	out, err = f.uc.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, out.Outcomes)
	assert.Len(t, f.runner.Runs, 1)
}

func TestDispatchHook_RecursionGuard(t *testing.T) {
	push := cmdHook("push", domain.HookPostTool, "Bash", "git push")
	push.Action.Reentrant = true
	f := newDispatchFixture(t, push)
	in := DispatchHookInput{Event: domain.HookPostTool, ProjectID: "app", Payload: payload(t, `{"tool_name":"Bash"}`)}

	// The action itself triggers the same event before it finishes
	var nested *DispatchHookOutput
	f.runner.OnRun = func(domain.ActionRun) {
		if nested != nil {
			return
		}
		var err error
		nested, err = f.uc.Execute(context.Background(), in)
		require.NoError(t, err)
	}

	out, err := f.uc.Execute(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 1)
	assert.Equal(t, domain.OutcomeExecuted, out.Outcomes[0].Kind)

	require.NotNil(t, nested)
	require.Len(t, nested.Outcomes, 1)
	assert.Equal(t, domain.OutcomeSkippedRecursion, nested.Outcomes[0].Kind)

	assert.Len(t, f.runner.Runs, 1, "exactly one execution")
	assert.Equal(t, []string{"app/push"}, f.guard.Released)
	assert.Empty(t, f.guard.Held)
}

func TestDispatchHook_RecursionGuardThroughDocument(t *testing.T) {
	f := newDispatchFixture(t, pushHook())
	compiled, err := f.compile.Execute(context.Background(), CompileSettingsInput{ProjectID: "app"})
	require.NoError(t, err)
	var doc struct {
		Hooks map[string][]struct {
			Hooks []struct {
				Command string `json:"command"`
			} `json:"hooks"`
		} `json:"hooks"`
	}
	require.NoError(t, json.Unmarshal(compiled.Document, &doc))
	require.Len(t, doc.Hooks["PostToolUse"], 1)
	hostCommand := doc.Hooks["PostToolUse"][0].Hooks[0].Command
	assert.Equal(t, "/usr/local/bin/taskflow hook dispatch post-tool --project app --hook push", hostCommand)

	// What the host's command does: dispatch the event for that hook only
	in := DispatchHookInput{Event: domain.HookPostTool, ProjectID: "app", HookName: "push", Payload: payload(t, `{"tool_name":"Bash"}`)}
	var nested *DispatchHookOutput
	f.runner.OnRun = func(domain.ActionRun) {
		if nested == nil {
			var nestedErr error
			nested, nestedErr = f.uc.Execute(context.Background(), in)
			require.NoError(t, nestedErr)
		}
	}

	out, err := f.uc.Execute(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 1)
	assert.Equal(t, domain.OutcomeExecuted, out.Outcomes[0].Kind)
	require.NotNil(t, nested)
	require.Len(t, nested.Outcomes, 1)
	assert.Equal(t, domain.OutcomeSkippedRecursion, nested.Outcomes[0].Kind)
	require.Len(t, f.runner.Runs, 1)
	assert.Equal(t, "/repo/scripts/push.sh", f.runner.Runs[0].Command)
}

func TestDispatchHook_ReleasesGuardOnFailure(t *testing.T) {
	push := cmdHook("push", domain.HookSessionStop, "", "git push")
	push.Action.Reentrant = true
	f := newDispatchFixture(t, push)
	f.runner.Errors["git push"] = context.DeadlineExceeded

	out, err := f.uc.Execute(context.Background(), DispatchHookInput{Event: domain.HookSessionStop, ProjectID: "app"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, out.Outcomes[0].Kind)
	assert.ErrorIs(t, out.Outcomes[0].Err, context.DeadlineExceeded)
	assert.Empty(t, f.guard.Held)
}

func TestDispatchHook_GuardError(t *testing.T) {
	push := cmdHook("push", domain.HookSessionStop, "", "git push")
	push.Action.Reentrant = true
	f := newDispatchFixture(t, push)
	f.guard.AcquireErr = errors.New("read-only filesystem")

	out, err := f.uc.Execute(context.Background(), DispatchHookInput{Event: domain.HookSessionStop, ProjectID: "app"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, out.Outcomes[0].Kind)
	assert.Empty(t, f.runner.Runs)
}

func TestDispatchHook_PendingMarker(t *testing.T) {
	flaky := cmdHook("sync", domain.HookSessionEnd, "", "sync-docs")
	flaky.Action.PendingOnFailure = true
	f := newDispatchFixture(t, flaky, cmdHook("plain", domain.HookSessionEnd, "", "false"))
	f.runner.Results["sync-docs"] = &domain.ActionResult{ExitCode: 2, Output: "offline"}
	f.runner.Results["false"] = &domain.ActionResult{ExitCode: 1}

	_, err := f.uc.Execute(context.Background(), DispatchHookInput{
		Event:     domain.HookSessionEnd,
		ProjectID: "app",
		Payload:   payload(t, `{"task_id":5}`),
	})
	require.NoError(t, err)

	markers, err := f.pending.List("app")
	require.NoError(t, err)
	require.Len(t, markers, 1, "only actions asking for it leave a marker")
	m := markers[0]
	assert.Equal(t, "sync", m.HookName)
	assert.Equal(t, domain.HookSessionEnd, m.Event)
	assert.Equal(t, 2, m.ExitCode)
	assert.Equal(t, "offline", m.Output)
	assert.Equal(t, 5, m.TaskID)
	assert.Equal(t, testNow, m.Created)
}

func TestDispatchHook_Background(t *testing.T) {
	watch := cmdHook("watch", domain.HookSessionStart, "", "npm run watch")
	watch.Action.Background = true
	watch.Action.Timeout = time.Minute
	f := newDispatchFixture(t, watch)

	out, err := f.uc.Execute(context.Background(), DispatchHookInput{
		Event:     domain.HookSessionStart,
		ProjectID: "app",
		Payload:   payload(t, `{"task_id":7,"cwd":"/wt/7"}`),
	})
	require.NoError(t, err)
	require.Len(t, out.Outcomes, 1)
	assert.Equal(t, domain.OutcomeStarted, out.Outcomes[0].Kind)
	assert.Equal(t, 1000, out.Outcomes[0].PID)

	require.Len(t, f.runner.Starts, 1)
	assert.Equal(t, "/wt/7", f.runner.Starts[0].Dir)
	assert.Zero(t, f.runner.Starts[0].Timeout)
	assert.Equal(t, []domain.TrackedProcess{{Started: testNow, Name: "watch", PID: 1000}}, f.procs.Procs[7])
}

func TestDispatchHook_ActionTimeout(t *testing.T) {
	slow := cmdHook("slow", domain.HookSessionStop, "", "sleep 5")
	slow.Action.Timeout = 3 * time.Second
	f := newDispatchFixture(t, slow)

	_, err := f.uc.Execute(context.Background(), DispatchHookInput{Event: domain.HookSessionStop, ProjectID: "app"})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, f.runner.Runs[0].Timeout)
}

func TestDispatchHook_ProjectFromPayload(t *testing.T) {
	f := newDispatchFixture(t, cmdHook("a", domain.HookNotification, "idle_prompt", "notify"))

	out, err := f.uc.Execute(context.Background(), DispatchHookInput{
		Event:   domain.HookNotification,
		Payload: payload(t, `{"project_id":"app","notification_type":"idle_prompt"}`),
	})
	require.NoError(t, err)
	assert.Len(t, out.Outcomes, 1)
}

func TestDispatchHook_Errors(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.uc.Execute(context.Background(), DispatchHookInput{Event: "on-save", ProjectID: "app"})
	assert.ErrorIs(t, err, domain.ErrInvalidHookEvent)

	_, err = f.uc.Execute(context.Background(), DispatchHookInput{Event: domain.HookSessionStop})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = f.uc.Execute(context.Background(), DispatchHookInput{Event: domain.HookSessionStop, ProjectID: "other"})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}
