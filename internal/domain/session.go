package domain

import (
	"strconv"
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of an interactive assistant session.
type SessionStatus string

const (
	SessionInitializing SessionStatus = "initializing"
	SessionActive       SessionStatus = "active"
	SessionCompleted    SessionStatus = "completed"
)

// Session represents one running interactive process.
// Fields are ordered to minimize memory padding.
type Session struct {
	Created    time.Time     `json:"created"`
	ID         string        `json:"-"`    // Stored as map key
	Name       string        `json:"name"` // tmux session name
	Dir        string        `json:"dir"`
	Transcript string        `json:"transcript,omitempty"`
	Status     SessionStatus `json:"status"`
	TaskID     int           `json:"task,omitempty"` // 0 for ad hoc sessions
}

// IsOpen returns true unless the session has completed.
func (s *Session) IsOpen() bool {
	return s.Status != SessionCompleted
}

// SessionCommand is a slash command delivered to a session's input.
type SessionCommand struct {
	Name string
	Args []string
}

// Line renders the command as "<prefix><name> arg1 arg2".
func (c SessionCommand) Line(prefix string) string {
	parts := append([]string{prefix + c.Name}, c.Args...)
	return strings.Join(parts, " ")
}

// CommandGate decides whether a mapped command may be sent automatically.
type CommandGate string

const (
	GateNone          CommandGate = ""
	GateManualTesting CommandGate = "manual_testing" // Blocked when manual testing mode is on
	GateManualReview  CommandGate = "manual_review"  // Blocked when manual review mode is on
)

// Open reports whether the gate lets the command through for these settings.
func (g CommandGate) Open(settings *ProjectSettings) bool {
	if settings == nil {
		return true
	}
	switch g {
	case GateManualTesting:
		return !settings.ManualTestingMode
	case GateManualReview:
		return !settings.ManualReviewMode
	default:
		return true
	}
}

// CommandRule maps an accepted transition to a session command.
// Template may reference {task}, replaced with the task ID.
type CommandRule struct {
	Mode     Mode
	From     Status
	To       Status
	Template string
	Gate     CommandGate
}

// DefaultCommandRules returns the built-in transition → command mapping.
// Only development edges are mapped; other modes opt in through [dispatch.commands].
func DefaultCommandRules() []CommandRule {
	return []CommandRule{
		{Mode: ModeDevelopment, From: StatusBacklog, To: StatusAnalysis, Template: "start-feature {task}"},
		{Mode: ModeDevelopment, From: StatusAnalysis, To: StatusInProgress, Template: "start-develop"},
		{Mode: ModeDevelopment, From: StatusInProgress, To: StatusTesting, Template: "test", Gate: GateManualTesting},
		{Mode: ModeDevelopment, From: StatusTesting, To: StatusCodeReview, Template: "review-and-pr", Gate: GateManualReview},
	}
}

// ApplyCommandOverrides replaces or adds rules from "from->to" = template pairs.
// An empty template removes the mapping. Overrides apply to every mode that has the edge.
func ApplyCommandOverrides(rules []CommandRule, overrides map[string]string, table *TransitionTable) []CommandRule {
	if len(overrides) == 0 {
		return rules
	}
	out := make([]CommandRule, 0, len(rules))
	for _, r := range rules {
		if _, ok := overrides[EdgeKey(r.From, r.To)]; !ok {
			out = append(out, r)
		}
	}
	for _, e := range table.Edges() {
		tmpl, ok := overrides[e.Key()]
		if !ok || strings.TrimSpace(tmpl) == "" {
			continue
		}
		out = append(out, CommandRule{
			Mode:     e.Mode,
			From:     e.From,
			To:       e.To,
			Template: tmpl,
			Gate:     defaultGate(e.From, e.To),
		})
	}
	return out
}

func defaultGate(from, to Status) CommandGate {
	switch {
	case from == StatusInProgress && to == StatusTesting:
		return GateManualTesting
	case from == StatusTesting && to == StatusCodeReview:
		return GateManualReview
	default:
		return GateNone
	}
}

// CommandResolution is the dispatcher's decision for one transition.
type CommandResolution struct {
	Command SessionCommand
	Mapped  bool // A rule exists for the transition
	Allowed bool // The rule's gate is open
}

// ResolveSessionCommand finds the command for a transition of task.
func ResolveSessionCommand(rules []CommandRule, task *Task, from, to Status, settings *ProjectSettings) CommandResolution {
	for _, r := range rules {
		if r.Mode != task.Mode || r.From != from || r.To != to {
			continue
		}
		fields := strings.Fields(strings.ReplaceAll(r.Template, "{task}", strconv.Itoa(task.ID)))
		if len(fields) == 0 {
			return CommandResolution{}
		}
		return CommandResolution{
			Command: SessionCommand{Name: fields[0], Args: fields[1:]},
			Mapped:  true,
			Allowed: r.Gate.Open(settings),
		}
	}
	return CommandResolution{}
}
