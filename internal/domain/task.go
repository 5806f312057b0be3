// Package domain contains core business entities and interfaces.
package domain

import (
	"slices"
	"time"
)

// Task represents a work unit managed by taskflow.
// Fields are ordered to minimize memory padding.
type Task struct {
	Created         time.Time     `json:"created"`
	Updated         time.Time     `json:"updated,omitempty"`
	Workspace       *WorkspaceRef `json:"workspace,omitempty"` // Set once a worktree is provisioned
	ProjectID       string        `json:"project"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Status          Status        `json:"status"`
	Mode            Mode          `json:"mode"` // Immutable after creation
	Stages          []StageResult `json:"stages,omitempty"`
	ID              int           `json:"-"` // Stored as map key, not in value
	WorktreeEnabled bool          `json:"worktreeEnabled,omitempty"`
}

// StageResult is an append-only record of an accepted transition.
type StageResult struct {
	Created time.Time `json:"created"`
	From    Status    `json:"from"`
	Status  Status    `json:"status"` // Status entered by the transition
	Actor   string    `json:"actor"`
	Summary string    `json:"summary,omitempty"`
	Details string    `json:"details,omitempty"`
}

// WorkspaceRef points at a task's isolated branch and directory.
type WorkspaceRef struct {
	Created time.Time `json:"created"`
	Branch  string    `json:"branch"`
	Path    string    `json:"path"`
}

// workspaceStatuses are the statuses whose entry requires a workspace.
var workspaceStatuses = []Status{StatusInProgress, StatusTesting, StatusCodeReview}

// RequiresWorkspace reports whether entering status needs a provisioned workspace.
func (t *Task) RequiresWorkspace(status Status) bool {
	return t.workspaceCapable() && slices.Contains(workspaceStatuses, status)
}

// WorkspaceAllowed reports whether the task may hold a workspace in its current status.
// Tasks keep their workspace after reaching done.
func (t *Task) WorkspaceAllowed() bool {
	return t.workspaceCapable() && (slices.Contains(workspaceStatuses, t.Status) || t.Status == StatusDone)
}

func (t *Task) workspaceCapable() bool {
	return t.Mode == ModeDevelopment && t.WorktreeEnabled
}

// HasWorkspace returns true if a workspace has been provisioned.
func (t *Task) HasWorkspace() bool {
	return t.Workspace != nil
}

// LastStage returns the most recent stage result, or nil.
func (t *Task) LastStage() *StageResult {
	if len(t.Stages) == 0 {
		return nil
	}
	return &t.Stages[len(t.Stages)-1]
}

// Clone returns a deep copy so callers can stage changes without touching the original.
func (t *Task) Clone() *Task {
	c := *t
	c.Stages = slices.Clone(t.Stages)
	if t.Workspace != nil {
		ws := *t.Workspace
		c.Workspace = &ws
	}
	return &c
}

// WorkDir returns the directory a session for this task should run in.
func (t *Task) WorkDir(projectDir string) string {
	if t.Workspace != nil && t.Workspace.Path != "" {
		return t.Workspace.Path
	}
	return projectDir
}

// ActorKind identifies who asked for a transition.
type ActorKind string

const (
	ActorUser       ActorKind = "user"       // Explicit request from the UI or CLI
	ActorAutomation ActorKind = "automation" // Internal auto advance
	ActorSession    ActorKind = "session"    // The running assistant reporting its own progress
)

// Actor is the initiator of a transition request.
type Actor struct {
	Kind ActorKind
	Name string
}

// String formats the actor as "kind:name" (or just kind when unnamed).
func (a Actor) String() string {
	if a.Name == "" {
		return string(a.Kind)
	}
	return string(a.Kind) + ":" + a.Name
}

// IsExplicit reports whether the actor may take manual edges.
func (a Actor) IsExplicit() bool {
	return a.Kind == ActorUser || a.Kind == ActorSession
}

// ParseActorKind converts a string into an ActorKind; unknown values map to ActorUser.
func ParseActorKind(s string) ActorKind {
	switch ActorKind(s) {
	case ActorAutomation:
		return ActorAutomation
	case ActorSession:
		return ActorSession
	default:
		return ActorUser
	}
}
