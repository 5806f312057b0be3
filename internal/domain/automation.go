package domain

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// DispatchGrace pads document timeouts so the engine's own action timeout fires first.
const DispatchGrace = 10 * time.Second

// AutomationEntry is one (matcher, action) pair of compiled settings.
type AutomationEntry struct {
	matcher  *regexp.Regexp
	HookName string
	Matcher  string
	Command  string // Rendered command line
	Action   HookAction
}

// NewAutomationEntry builds an entry, compiling its matcher.
func NewAutomationEntry(hookName, matcher, command string, action HookAction) (AutomationEntry, error) {
	re, err := CompileMatcher(matcher)
	if err != nil {
		return AutomationEntry{}, err
	}
	return AutomationEntry{
		matcher:  re,
		HookName: hookName,
		Matcher:  matcher,
		Command:  command,
		Action:   action,
	}, nil
}

// Matches reports whether the entry applies to the event subject.
func (e AutomationEntry) Matches(subject string) bool {
	if e.matcher == nil {
		return true
	}
	return e.matcher.MatchString(subject)
}

// CompiledAutomationSettings maps events to their ordered automation entries.
// It is derived from the enabled bindings of a project and never edited in place.
// Fields are ordered to minimize memory padding.
type CompiledAutomationSettings struct {
	Events        map[HookEvent][]AutomationEntry
	ProjectID     string
	Bin           string        // Executable the host runs to reach the engine
	ActionTimeout time.Duration // Used for entries without their own timeout
}

// NewCompiledAutomationSettings returns an empty document for a project.
func NewCompiledAutomationSettings(projectID, bin string) *CompiledAutomationSettings {
	return &CompiledAutomationSettings{
		ProjectID: projectID,
		Bin:       bin,
		Events:    make(map[HookEvent][]AutomationEntry),
	}
}

// DispatchCommand is the command line the host runs for one entry.
// It hands the event back to the engine, so guards and markers apply before the
// entry's own command runs.
func (c *CompiledAutomationSettings) DispatchCommand(event HookEvent, hookName string) string {
	bin := c.Bin
	if bin == "" {
		bin = "taskflow"
	}
	return strings.Join([]string{
		shellWord(bin), "hook", "dispatch", string(event),
		"--project", shellWord(c.ProjectID),
		"--hook", shellWord(hookName),
	}, " ")
}

// documentTimeout is the host's timeout for an entry in seconds, zero for none.
func (c *CompiledAutomationSettings) documentTimeout(e AutomationEntry) int {
	timeout := e.Action.Timeout
	if timeout <= 0 {
		timeout = c.ActionTimeout
	}
	if timeout <= 0 {
		return 0
	}
	return int((timeout + DispatchGrace).Seconds())
}

var plainWord = regexp.MustCompile(`^[A-Za-z0-9_./:@%+=,-]+$`)

func shellWord(s string) string {
	if plainWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Add appends an entry to an event's list.
func (c *CompiledAutomationSettings) Add(event HookEvent, entry AutomationEntry) {
	c.Events[event] = append(c.Events[event], entry)
}

// For returns the entries of an event in order.
func (c *CompiledAutomationSettings) For(event HookEvent) []AutomationEntry {
	return c.Events[event]
}

// Len returns the total number of entries.
func (c *CompiledAutomationSettings) Len() int {
	n := 0
	for _, entries := range c.Events {
		n += len(entries)
	}
	return n
}

type settingsDocument struct {
	Hooks map[string][]settingsMatcher `json:"hooks"`
}

type settingsMatcher struct {
	Matcher string            `json:"matcher,omitempty"`
	Hooks   []settingsCommand `json:"hooks"`
}

type settingsCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"` // Seconds
}

// MarshalJSON renders the document read by the hosting environment:
//
//	{"hooks": {"PostToolUse": [{"matcher": "Edit|Write", "hooks": [{"type": "command", "command": "taskflow hook dispatch ..."}]}]}}
//
// Every command routes through the engine rather than running the action directly.
// Map keys are sorted by encoding/json, so equal settings give identical bytes.
func (c *CompiledAutomationSettings) MarshalJSON() ([]byte, error) {
	doc := settingsDocument{Hooks: make(map[string][]settingsMatcher)}
	for event, entries := range c.Events {
		if len(entries) == 0 {
			continue
		}
		list := make([]settingsMatcher, 0, len(entries))
		for _, e := range entries {
			list = append(list, settingsMatcher{
				Matcher: e.Matcher,
				Hooks: []settingsCommand{{
					Type:    "command",
					Command: c.DispatchCommand(event, e.HookName),
					Timeout: c.documentTimeout(e),
				}},
			})
		}
		doc.Hooks[event.ExternalName()] = list
	}
	return json.Marshal(doc)
}
