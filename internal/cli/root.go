// Package cli provides the command-line interface for taskflow.
package cli

import (
	"fmt"

	"github.com/runoshun/taskflow/internal/app"
	"github.com/spf13/cobra"
)

// Command group IDs.
const (
	groupSetup   = "setup"
	groupTask    = "task"
	groupSession = "session"
)

// NewRootCommand creates the root command for taskflow.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskflow",
		Short: "Workflow orchestration for assistant coding sessions",
		Long: `taskflow moves tasks through a fixed workflow and drives a terminal
assistant session for each of them.

Each accepted transition is turned into a command typed into the task's
session, development tasks get their own git worktree, and hooks defined
per project run on assistant events.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Hook commands run inside assistant sessions; keep their output clean.
			if c == nil || cmd.Name() == "init" || isHookRuntime(cmd) {
				return nil
			}

			cfg, err := c.ConfigLoader.Load()
			if err != nil {
				// Ignore error (e.g. not initialized)
				return nil
			}

			for _, w := range cfg.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Management:"},
		&cobra.Group{ID: groupSession, Title: "Session Management:"},
	)

	// Setup commands
	initCmd := newInitCommand(c)
	initCmd.GroupID = groupSetup

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	settingsCmd := newSettingsCommand(c)
	settingsCmd.GroupID = groupSetup

	hookCmd := newHookCommand(c)
	hookCmd.GroupID = groupSetup

	// Task management commands
	newCmd := newNewCommand(c)
	newCmd.GroupID = groupTask

	listCmd := newListCommand(c)
	listCmd.GroupID = groupTask

	showCmd := newShowCommand(c)
	showCmd.GroupID = groupTask

	moveCmd := newMoveCommand(c)
	moveCmd.GroupID = groupTask

	advanceCmd := newAdvanceCommand(c)
	advanceCmd.GroupID = groupTask

	watchCmd := newWatchCommand(c)
	watchCmd.GroupID = groupTask

	// Session management commands
	sessionCmd := newSessionCommand(c)
	sessionCmd.GroupID = groupSession

	workspaceCmd := newWorkspaceCommand(c)
	workspaceCmd.GroupID = groupSession

	notifyCmd := newNotifyCommand(c)
	notifyCmd.GroupID = groupSession

	root.AddCommand(
		initCmd,
		configCmd,
		settingsCmd,
		hookCmd,
		newCmd,
		listCmd,
		showCmd,
		moveCmd,
		advanceCmd,
		watchCmd,
		sessionCmd,
		workspaceCmd,
		notifyCmd,
	)

	return root
}

// isHookRuntime reports whether cmd is invoked by the assistant rather than a person.
func isHookRuntime(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "dispatch", "advance", "notify", "pending":
		return true
	}
	return false
}
