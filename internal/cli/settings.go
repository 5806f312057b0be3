package cli

import (
	"fmt"
	"io"

	"github.com/runoshun/taskflow/internal/app"
	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/usecase"
	"github.com/spf13/cobra"
)

// newSettingsCommand creates the settings command.
func newSettingsCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage project workflow settings",
		Long: `Show or change a project's workflow flags.

  mode            simple or development; applies to tasks created afterwards
  worktree        give development tasks their own git worktree
  manual-testing  do not send the testing command; a person tests instead
  manual-review   do not send the review command; a person reviews instead`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(newSettingsShowCommand(c))
	cmd.AddCommand(newSettingsSetCommand(c))

	return cmd
}

// newSettingsShowCommand creates the settings show subcommand.
func newSettingsShowCommand(c *app.Container) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display project settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.GetProjectSettingsUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.GetProjectSettingsInput{
				ProjectID: projectOrDefault(c, project),
			})
			if err != nil {
				return err
			}
			printProjectSettings(cmd.OutOrStdout(), out.Project)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project (default: repository directory name)")

	return cmd
}

// newSettingsSetCommand creates the settings set subcommand.
func newSettingsSetCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Project       string
		Mode          string
		Worktree      bool
		ManualTesting bool
		ManualReview  bool
	}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change project settings",
		Long: `Change one or more project settings. Flags not given are left as they are.

Existing tasks keep the mode they were created with.

Examples:
  # Switch to the simple workflow
  taskflow settings set --mode simple

  # Test by hand, keep automated review
  taskflow settings set --manual-testing

  # Work directly in the repository instead of worktrees
  taskflow settings set --worktree=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var update domain.ProjectSettingsUpdate
			flags := cmd.Flags()
			if flags.Changed("mode") {
				mode := domain.Mode(opts.Mode)
				update.Mode = &mode
			}
			if flags.Changed("worktree") {
				update.WorktreeEnabled = &opts.Worktree
			}
			if flags.Changed("manual-testing") {
				update.ManualTestingMode = &opts.ManualTesting
			}
			if flags.Changed("manual-review") {
				update.ManualReviewMode = &opts.ManualReview
			}
			if update.IsEmpty() {
				return fmt.Errorf("nothing to change: pass at least one of --mode, --worktree, --manual-testing, --manual-review")
			}

			uc := c.UpdateProjectSettingsUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.UpdateProjectSettingsInput{
				ProjectID: projectOrDefault(c, opts.Project),
				Update:    update,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !out.Changed {
				_, _ = fmt.Fprintln(w, "Settings unchanged")
			} else {
				_, _ = fmt.Fprintf(w, "Updated settings of %s\n", out.Project.ID)
			}
			printProjectSettings(w, out.Project)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "Project (default: repository directory name)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "Workflow mode: simple or development")
	cmd.Flags().BoolVar(&opts.Worktree, "worktree", true, "Provision a worktree per development task")
	cmd.Flags().BoolVar(&opts.ManualTesting, "manual-testing", true, "Test by hand instead of sending the testing command")
	cmd.Flags().BoolVar(&opts.ManualReview, "manual-review", true, "Review by hand instead of sending the review command")

	return cmd
}

func printProjectSettings(w io.Writer, p *domain.ProjectSettings) {
	_, _ = fmt.Fprintf(w, "project:        %s\n", p.ID)
	_, _ = fmt.Fprintf(w, "dir:            %s\n", p.Dir)
	_, _ = fmt.Fprintf(w, "mode:           %s\n", p.Mode)
	_, _ = fmt.Fprintf(w, "worktree:       %t\n", p.WorktreeEnabled)
	_, _ = fmt.Fprintf(w, "manual-testing: %t\n", p.ManualTestingMode)
	_, _ = fmt.Fprintf(w, "manual-review:  %t\n", p.ManualReviewMode)
}
