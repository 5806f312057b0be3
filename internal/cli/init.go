package cli

import (
	"fmt"
	"strings"

	"github.com/runoshun/taskflow/internal/app"
	"github.com/runoshun/taskflow/internal/infra/builtin"
	"github.com/runoshun/taskflow/internal/usecase"
	"github.com/spf13/cobra"
)

// defaultInitHooks are enabled for the project created by init.
var defaultInitHooks = []string{builtin.HookAdvance, builtin.HookNeedsInput, builtin.HookPendingCheck}

// newInitCommand creates the init command.
func newInitCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Project string
		Hooks   []string
		NoHooks bool
	}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize repository for taskflow",
		Long: `Initialize a repository for taskflow.

This command creates the .git/taskflow/ directory with:
- config.toml: repository configuration (kept if it exists)
- the task store
- logs/, locks/, pending/, procs/, transcripts/, worktrees/

It also registers the repository as a project. A new project has the
framework hooks enabled unless --no-hooks is given. Running init again
is safe: existing projects and configuration are left untouched.

Examples:
  # Initialize with the repository directory name as project
  taskflow init

  # Use a different project name
  taskflow init --project api

  # Enable only the advance hook
  taskflow init --hook taskflow-advance`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID := opts.Project
			if projectID == "" {
				projectID = c.Config.ProjectID
			}
			hooks := opts.Hooks
			if opts.NoHooks {
				hooks = nil
			}

			uc := c.InitRepoUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.InitRepoInput{
				DataDir:   c.Config.DataDir,
				RepoRoot:  c.Config.RepoRoot,
				ProjectID: projectID,
				Hooks:     hooks,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Initialized taskflow in %s\n", out.DataDir)
			if out.ConfigCreated {
				_, _ = fmt.Fprintln(w, "Created default config.toml")
			}
			if out.ProjectCreated {
				_, _ = fmt.Fprintf(w, "Created project %s (mode: %s)\n", out.Project.ID, out.Project.Mode)
			} else {
				_, _ = fmt.Fprintf(w, "Project %s already exists\n", out.Project.ID)
			}
			if len(out.EnabledHooks) > 0 {
				_, _ = fmt.Fprintf(w, "Enabled hooks: %s\n", strings.Join(out.EnabledHooks, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "Project name (default: repository directory name)")
	cmd.Flags().StringArrayVar(&opts.Hooks, "hook", defaultInitHooks, "Hook enabled for a new project (repeatable)")
	cmd.Flags().BoolVar(&opts.NoHooks, "no-hooks", false, "Do not enable any hook")

	return cmd
}
