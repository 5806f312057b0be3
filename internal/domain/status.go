package domain

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusBacklog    Status = "backlog"     // Created, not started
	StatusAnalysis   Status = "analysis"    // Requirements and architecture being written
	StatusInProgress Status = "in_progress" // Implementation underway
	StatusTesting    Status = "testing"     // Verifying the implementation
	StatusCodeReview Status = "code_review" // Review and pull request
	StatusDone       Status = "done"        // Finished (terminal)
)

// Mode selects which workflow a task follows.
// A task's mode is fixed when it is created.
type Mode string

const (
	ModeSimple      Mode = "simple"
	ModeDevelopment Mode = "development"
)

// modeStatuses lists the status set of each mode in workflow order.
var modeStatuses = map[Mode][]Status{
	ModeSimple:      {StatusBacklog, StatusInProgress, StatusDone},
	ModeDevelopment: {StatusBacklog, StatusAnalysis, StatusInProgress, StatusTesting, StatusCodeReview, StatusDone},
}

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{
		StatusBacklog,
		StatusAnalysis,
		StatusInProgress,
		StatusTesting,
		StatusCodeReview,
		StatusDone,
	}
}

// IsValid returns true if the status is a known value in any mode.
func (s Status) IsValid() bool {
	switch s {
	case StatusBacklog, StatusAnalysis, StatusInProgress, StatusTesting, StatusCodeReview, StatusDone:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// Display returns a human-readable representation of the status.
func (s Status) Display() string {
	switch s {
	case StatusBacklog:
		return "Backlog"
	case StatusAnalysis:
		return "Analysis"
	case StatusInProgress:
		return "In Progress"
	case StatusTesting:
		return "Testing"
	case StatusCodeReview:
		return "Code Review"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// IsValid returns true if the mode is known.
func (m Mode) IsValid() bool {
	_, ok := modeStatuses[m]
	return ok
}

// Statuses returns the status set of the mode in workflow order.
func (m Mode) Statuses() []Status {
	statuses := modeStatuses[m]
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// HasStatus reports whether s belongs to the mode's status set.
func (m Mode) HasStatus(s Status) bool {
	for _, candidate := range modeStatuses[m] {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseMode converts a string into a Mode, returning ErrInvalidMode for unknown values.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.IsValid() {
		return "", ErrInvalidMode
	}
	return m, nil
}

// ParseStatus converts a string into a Status, returning ErrInvalidStatus for unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}
