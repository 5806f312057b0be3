// Package builtin provides the framework hooks shipped with taskflow.
// These hooks route assistant events back into taskflow itself.
package builtin

import (
	"time"

	"github.com/runoshun/taskflow/internal/domain"
)

// Framework hook names.
const (
	HookAdvance      = "taskflow-advance"
	HookNeedsInput   = "taskflow-needs-input"
	HookPendingCheck = "taskflow-pending"
)

// advanceTimeout bounds the advance command; it may provision a worktree.
const advanceTimeout = 2 * time.Minute

// frameworkHooks are defined in code and cannot be replaced by custom definitions.
var frameworkHooks = []domain.HookDefinition{
	{
		Name:        HookAdvance,
		Description: "Advance the session's task along satisfied auto transitions when the assistant stops",
		Event:       domain.HookSessionStop,
		Action: domain.HookAction{
			Command:   "{{.Bin}} advance",
			Timeout:   advanceTimeout,
			Reentrant: true,
		},
	},
	{
		Name:        HookNeedsInput,
		Description: "Log a notice when the assistant waits for permission or input",
		Event:       domain.HookNotification,
		Matcher:     "permission_prompt|idle_prompt",
		Action: domain.HookAction{
			Command: `{{.Bin}} notify --level warn "assistant is waiting for input"`,
		},
	},
	{
		Name:        HookPendingCheck,
		Description: "Show failed actions awaiting recovery when a session starts",
		Event:       domain.HookSessionStart,
		Action: domain.HookAction{
			Command: "{{.Bin}} hook pending --project {{.Project}}",
		},
	},
}

// FrameworkHooks returns copies of the framework definitions.
func FrameworkHooks() []*domain.HookDefinition {
	out := make([]*domain.HookDefinition, 0, len(frameworkHooks))
	for _, def := range frameworkHooks {
		d := def
		d.Origin = domain.OriginFramework
		out = append(out, &d)
	}
	return out
}

// IsFrameworkHook reports whether name is reserved by a framework hook.
func IsFrameworkHook(name string) bool {
	for _, def := range frameworkHooks {
		if def.Name == name {
			return true
		}
	}
	return false
}
