package domain

import (
	"fmt"
	"regexp"
	"time"
)

// HookEvent is a lifecycle or tool-use event that can trigger automations.
type HookEvent string

const (
	HookPreTool      HookEvent = "pre-tool"
	HookPostTool     HookEvent = "post-tool"
	HookPromptSubmit HookEvent = "prompt-submit"
	HookNotification HookEvent = "notification"
	HookSessionStop  HookEvent = "session-stop"
	HookSubagentStop HookEvent = "subagent-stop"
	HookPreCompact   HookEvent = "pre-compact"
	HookSessionStart HookEvent = "session-start"
	HookSessionEnd   HookEvent = "session-end"
)

// externalEventNames maps events to the names used in the settings document.
var externalEventNames = map[HookEvent]string{
	HookPreTool:      "PreToolUse",
	HookPostTool:     "PostToolUse",
	HookPromptSubmit: "UserPromptSubmit",
	HookNotification: "Notification",
	HookSessionStop:  "Stop",
	HookSubagentStop: "SubagentStop",
	HookPreCompact:   "PreCompact",
	HookSessionStart: "SessionStart",
	HookSessionEnd:   "SessionEnd",
}

// AllHookEvents returns every event in a stable order.
func AllHookEvents() []HookEvent {
	return []HookEvent{
		HookPreTool,
		HookPostTool,
		HookPromptSubmit,
		HookNotification,
		HookSessionStop,
		HookSubagentStop,
		HookPreCompact,
		HookSessionStart,
		HookSessionEnd,
	}
}

// IsValid returns true if the event is known.
func (e HookEvent) IsValid() bool {
	_, ok := externalEventNames[e]
	return ok
}

// ExternalName returns the event name used by the hosting environment.
func (e HookEvent) ExternalName() string {
	return externalEventNames[e]
}

// IsToolEvent reports whether the event's subject is a tool name.
func (e HookEvent) IsToolEvent() bool {
	return e == HookPreTool || e == HookPostTool
}

// ParseHookEvent accepts either the internal ("post-tool") or external ("PostToolUse") name.
func ParseHookEvent(s string) (HookEvent, error) {
	if e := HookEvent(s); e.IsValid() {
		return e, nil
	}
	for e, name := range externalEventNames {
		if name == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidHookEvent, s)
}

// HookOrigin records where a definition comes from.
type HookOrigin string

const (
	OriginFramework HookOrigin = "framework" // Shipped with taskflow
	OriginCustom    HookOrigin = "custom"    // Added by the project
)

// HookAction is what runs when a hook matches.
// Exactly one of Command (inline template) or Script (path) is set.
// Fields are ordered to minimize memory padding.
type HookAction struct {
	Command          string        `json:"command,omitempty"`
	Script           string        `json:"script,omitempty"`
	Timeout          time.Duration `json:"timeout,omitempty"`
	Reentrant        bool          `json:"reentrant,omitempty"`        // May trigger events that re-enter the engine
	Background       bool          `json:"background,omitempty"`       // Started without waiting; tracked per task
	PendingOnFailure bool          `json:"pendingOnFailure,omitempty"` // Leave a pending marker when it fails
}

// HookDefinition binds an event and matcher to an action.
type HookDefinition struct {
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Event        HookEvent  `json:"event"`
	Matcher      string     `json:"matcher,omitempty"`
	Origin       HookOrigin `json:"origin"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Action       HookAction `json:"action"`
}

var hookNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// Validate checks the definition's shape.
func (d *HookDefinition) Validate() error {
	if !hookNamePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: name %q must be lowercase letters, digits, '.', '_' or '-'", ErrInvalidHook, d.Name)
	}
	if !d.Event.IsValid() {
		return fmt.Errorf("%w: %s: unknown event %q", ErrInvalidHook, d.Name, d.Event)
	}
	if (d.Action.Command == "") == (d.Action.Script == "") {
		return fmt.Errorf("%w: %s: exactly one of command or script is required", ErrInvalidHook, d.Name)
	}
	if d.Action.Timeout < 0 {
		return fmt.Errorf("%w: %s: negative timeout", ErrInvalidHook, d.Name)
	}
	if _, err := CompileMatcher(d.Matcher); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidHook, d.Name, err)
	}
	return nil
}

// CompileMatcher compiles a matcher pattern anchored to the whole subject.
// An empty pattern or "*" matches everything and returns nil.
func CompileMatcher(pattern string) (*regexp.Regexp, error) {
	if pattern == "" || pattern == "*" {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("matcher %q: %w", pattern, err)
	}
	return re, nil
}

// HookBinding records that a project has enabled a hook.
// Seq increases monotonically across bindings and fixes compile order.
type HookBinding struct {
	Created   time.Time `json:"created"`
	ProjectID string    `json:"project"`
	HookName  string    `json:"hook"`
	Seq       int       `json:"seq"`
}

// RecursionKey is the lock key guarding a reentrant hook in a project.
// Hook names never contain "/", so the last separator splits the key unambiguously.
func RecursionKey(projectID, hookName string) string {
	return projectID + "/" + hookName
}
