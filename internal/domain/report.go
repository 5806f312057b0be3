package domain

import (
	"fmt"
	"strings"
)

// NoticeLevel is the severity of a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a message surfaced to the user, typically when automation needs a hand.
type Notice struct {
	Level   NoticeLevel
	Title   string
	Message string
	TaskID  int
}

// Release steps reported by CleanupReport.
const (
	StepStopSession      = "stop session"
	StepTerminateProcess = "terminate process"
	StepRemoveWorktree   = "remove worktree"
	StepDeleteBranch     = "delete branch"
)

// CleanupFailure is one step of a release that did not succeed.
type CleanupFailure struct {
	Err    error
	Step   string
	Target string
}

func (f CleanupFailure) String() string {
	if f.Target == "" {
		return fmt.Sprintf("%s: %v", f.Step, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Step, f.Target, f.Err)
}

// CleanupReport summarizes a workspace release.
// Fields are ordered to minimize memory padding.
type CleanupReport struct {
	StoppedSessions  []string
	TerminatedPIDs   []int
	Failures         []CleanupFailure
	TaskID           int
	WorkspaceRemoved bool
	BranchDeleted    bool
}

// Ok returns true if every step succeeded.
func (r *CleanupReport) Ok() bool {
	return len(r.Failures) == 0
}

// Fail records a failed step.
func (r *CleanupReport) Fail(step, target string, err error) {
	r.Failures = append(r.Failures, CleanupFailure{Step: step, Target: target, Err: err})
}

// Summary renders the failures on one line each.
func (r *CleanupReport) Summary() string {
	lines := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		lines = append(lines, f.String())
	}
	return strings.Join(lines, "\n")
}
