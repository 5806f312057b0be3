package cli

import (
	"fmt"
	"io"

	"github.com/runoshun/taskflow/internal/app"
	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/usecase"
	"github.com/spf13/cobra"
)

// newWorkspaceCommand creates the workspace command.
func newWorkspaceCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage task workspaces",
		Long: `Manage the git worktree each development task works in.

Workspaces are normally created when a task enters in_progress. These
commands repair or clean them up by hand.`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(newWorkspaceEnsureCommand(c))
	cmd.AddCommand(newWorkspaceReleaseCommand(c))

	return cmd
}

// newWorkspaceEnsureCommand creates the workspace ensure subcommand.
func newWorkspaceEnsureCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure [id]",
		Short: "Create the task's workspace if it is missing",
		Long: `Make sure the task has its worktree. An existing worktree is reused.

Only development tasks with worktrees enabled, in a status that uses a
workspace, can have one.

Examples:
  taskflow workspace ensure 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := resolveTaskID(args, c.Git)
			if err != nil {
				return err
			}
			uc := c.EnsureWorkspaceUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.EnsureWorkspaceInput{TaskID: taskID})
			if err != nil {
				return err
			}

			verb := "Using"
			if out.Created {
				verb = "Created"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s workspace %s (%s)\n", verb, out.Ref.Path, out.Ref.Branch)
			return nil
		},
	}
}

// newWorkspaceReleaseCommand creates the workspace release subcommand.
func newWorkspaceReleaseCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Keep  bool
		Force bool
	}

	cmd := &cobra.Command{
		Use:   "release [id]",
		Short: "Stop a task's sessions and remove its workspace",
		Long: `Release everything a task holds: its sessions, background hook
processes, worktree and branch.

Every step is attempted even if an earlier one fails; failures are listed
at the end. The branch is only deleted once the worktree is gone.

Examples:
  # Stop sessions and processes, keep the worktree
  taskflow workspace release 3 --keep

  # Remove the worktree even with uncommitted changes
  taskflow workspace release 3 --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := resolveTaskID(args, c.Git)
			if err != nil {
				return err
			}
			uc := c.ReleaseWorkspaceUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ReleaseWorkspaceInput{
				TaskID:        taskID,
				KeepWorkspace: opts.Keep,
				Force:         opts.Force,
			})
			if err != nil {
				return err
			}

			printCleanupReport(cmd.OutOrStdout(), out.Report)
			if !out.Report.Ok() {
				return fmt.Errorf("release of task #%d incomplete:\n%s", taskID, out.Report.Summary())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Keep, "keep", false, "Keep the worktree and branch")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Remove the worktree even with uncommitted changes")

	return cmd
}

func printCleanupReport(w io.Writer, r *domain.CleanupReport) {
	for _, name := range r.StoppedSessions {
		_, _ = fmt.Fprintf(w, "Stopped session %s\n", name)
	}
	for _, pid := range r.TerminatedPIDs {
		_, _ = fmt.Fprintf(w, "Terminated process %d\n", pid)
	}
	if r.WorkspaceRemoved {
		_, _ = fmt.Fprintln(w, "Removed worktree")
	}
	if r.BranchDeleted {
		_, _ = fmt.Fprintf(w, "Deleted branch %s\n", domain.BranchName(r.TaskID))
	}
}
