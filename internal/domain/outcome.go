package domain

import "time"

// OutcomeKind classifies what happened to one matched hook action.
type OutcomeKind string

const (
	OutcomeExecuted         OutcomeKind = "executed"
	OutcomeFailed           OutcomeKind = "failed"
	OutcomeSkippedRecursion OutcomeKind = "skipped_recursion"
	OutcomeSkippedByMarker  OutcomeKind = "skipped_by_marker"
	OutcomeStarted          OutcomeKind = "started" // Background action launched
)

// IsSkipped returns true for expected short-circuits.
func (k OutcomeKind) IsSkipped() bool {
	return k == OutcomeSkippedRecursion || k == OutcomeSkippedByMarker
}

// ExecutionOutcome reports the result of a single hook action.
// Fields are ordered to minimize memory padding.
type ExecutionOutcome struct {
	Err      error         `json:"-"`
	HookName string        `json:"hook"`
	Kind     OutcomeKind   `json:"kind"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exitCode"`
	PID      int           `json:"pid,omitempty"`
}

// PendingHook is a durable record of a failed action awaiting out-of-band recovery.
type PendingHook struct {
	Created   time.Time   `json:"created"`
	ProjectID string      `json:"project"`
	HookName  string      `json:"hook"`
	Event     HookEvent   `json:"event"`
	Kind      OutcomeKind `json:"kind"`
	Output    string      `json:"output,omitempty"`
	Error     string      `json:"error,omitempty"`
	ExitCode  int         `json:"exitCode"`
	TaskID    int         `json:"task,omitempty"`
}

// TrackedProcess is a background process started on behalf of a task.
type TrackedProcess struct {
	Started time.Time `json:"started"`
	Name    string    `json:"name"`
	PID     int       `json:"pid"`
}
