package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionCommand_Line(t *testing.T) {
	cmd := SessionCommand{Name: "start-feature", Args: []string{"42"}}
	assert.Equal(t, "/start-feature 42", cmd.Line("/"))
	assert.Equal(t, "test", SessionCommand{Name: "test"}.Line(""))
}

func TestResolveSessionCommand(t *testing.T) {
	rules := DefaultCommandRules()
	dev := &Task{ID: 42, Mode: ModeDevelopment}
	auto := &ProjectSettings{}
	manual := &ProjectSettings{ManualTestingMode: true, ManualReviewMode: true}

	tests := []struct {
		name     string
		task     *Task
		from, to Status
		settings *ProjectSettings
		want     CommandResolution
	}{
		{
			name: "start feature carries the task id",
			task: dev, from: StatusBacklog, to: StatusAnalysis, settings: auto,
			want: CommandResolution{Command: SessionCommand{Name: "start-feature", Args: []string{"42"}}, Mapped: true, Allowed: true},
		},
		{
			name: "start develop",
			task: dev, from: StatusAnalysis, to: StatusInProgress, settings: auto,
			want: CommandResolution{Command: SessionCommand{Name: "start-develop", Args: []string{}}, Mapped: true, Allowed: true},
		},
		{
			name: "testing gated by manual testing",
			task: dev, from: StatusInProgress, to: StatusTesting, settings: manual,
			want: CommandResolution{Command: SessionCommand{Name: "test", Args: []string{}}, Mapped: true, Allowed: false},
		},
		{
			name: "review automatic",
			task: dev, from: StatusTesting, to: StatusCodeReview, settings: auto,
			want: CommandResolution{Command: SessionCommand{Name: "review-and-pr", Args: []string{}}, Mapped: true, Allowed: true},
		},
		{
			name: "review gated by manual review",
			task: dev, from: StatusTesting, to: StatusCodeReview, settings: manual,
			want: CommandResolution{Command: SessionCommand{Name: "review-and-pr", Args: []string{}}, Mapped: true, Allowed: false},
		},
		{
			name: "done has no command",
			task: dev, from: StatusCodeReview, to: StatusDone, settings: auto,
			want: CommandResolution{},
		},
		{
			name: "simple mode start is unmapped",
			task: &Task{ID: 7, Mode: ModeSimple}, from: StatusBacklog, to: StatusInProgress, settings: auto,
			want: CommandResolution{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSessionCommand(rules, tt.task, tt.from, tt.to, tt.settings)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyCommandOverrides(t *testing.T) {
	overrides := map[string]string{
		"in_progress->testing": "run-tests {task} --fast",
		"testing->code_review": "",
		"code_review->done":    "ship",
	}
	rules := ApplyCommandOverrides(DefaultCommandRules(), overrides, DefaultTransitions())
	dev := &Task{ID: 5, Mode: ModeDevelopment}

	got := ResolveSessionCommand(rules, dev, StatusInProgress, StatusTesting, &ProjectSettings{})
	assert.Equal(t, SessionCommand{Name: "run-tests", Args: []string{"5", "--fast"}}, got.Command)

	got = ResolveSessionCommand(rules, dev, StatusInProgress, StatusTesting, &ProjectSettings{ManualTestingMode: true})
	assert.False(t, got.Allowed, "overridden rules keep their gate")

	assert.False(t, ResolveSessionCommand(rules, dev, StatusTesting, StatusCodeReview, &ProjectSettings{}).Mapped)
	assert.Equal(t, "ship", ResolveSessionCommand(rules, dev, StatusCodeReview, StatusDone, &ProjectSettings{}).Command.Name)

	unchanged := ResolveSessionCommand(rules, dev, StatusBacklog, StatusAnalysis, &ProjectSettings{})
	assert.Equal(t, "start-feature", unchanged.Command.Name)
}

func TestApplyCommandOverrides_SimpleModeOptIn(t *testing.T) {
	simple := &Task{ID: 7, Mode: ModeSimple}
	overrides := map[string]string{"backlog->in_progress": "start-develop {task}"}
	rules := ApplyCommandOverrides(DefaultCommandRules(), overrides, DefaultTransitions())

	got := ResolveSessionCommand(rules, simple, StatusBacklog, StatusInProgress, &ProjectSettings{})
	assert.Equal(t, CommandResolution{Command: SessionCommand{Name: "start-develop", Args: []string{"7"}}, Mapped: true, Allowed: true}, got)
}

func TestCommandGate_Open(t *testing.T) {
	assert.True(t, GateNone.Open(&ProjectSettings{ManualTestingMode: true}))
	assert.True(t, GateManualTesting.Open(nil))
	assert.False(t, GateManualReview.Open(&ProjectSettings{ManualReviewMode: true}))
}

func TestCleanupReport(t *testing.T) {
	r := &CleanupReport{TaskID: 1}
	assert.True(t, r.Ok())

	r.Fail(StepTerminateProcess, "123", ErrSessionRunning)
	r.Fail(StepDeleteBranch, "", ErrWorktreeNotFound)
	assert.False(t, r.Ok())
	assert.Equal(t, "terminate process 123: session already running\ndelete branch: worktree not found", r.Summary())
}
