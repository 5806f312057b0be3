package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/runoshun/taskflow/internal/app"
	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/infra/hookfile"
	"github.com/runoshun/taskflow/internal/usecase"
	"github.com/spf13/cobra"
)

// newHookCommand creates the hook command.
func newHookCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage assistant hooks",
		Long: `Manage the hooks run on assistant events.

Hooks are defined once (framework hooks ship with taskflow, custom hooks are
added from YAML files) and enabled per project. Enabling or disabling a hook
recompiles the project's automation settings.`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(newHookListCommand(c))
	cmd.AddCommand(newHookAddCommand(c))
	cmd.AddCommand(newHookRemoveCommand(c))
	cmd.AddCommand(newHookEnableCommand(c))
	cmd.AddCommand(newHookDisableCommand(c))
	cmd.AddCommand(newHookCompileCommand(c))
	cmd.AddCommand(newHookDispatchCommand(c))
	cmd.AddCommand(newHookPendingCommand(c))

	return cmd
}

// newHookListCommand creates the hook list subcommand.
func newHookListCommand(c *app.Container) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hook definitions",
		Long: `List every known hook and whether it is enabled for the project.

Output format is tab-separated with columns:
  NAME, ORIGIN, EVENT, MATCHER, ENABLED, DESCRIPTION`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ListHooksUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ListHooksInput{
				ProjectID: projectOrDefault(c, project),
			})
			if err != nil {
				return err
			}
			printHookList(cmd.OutOrStdout(), out.Hooks)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project (default: repository directory name)")

	return cmd
}

func printHookList(w io.Writer, hooks []usecase.HookListing) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "NAME\tORIGIN\tEVENT\tMATCHER\tENABLED\tDESCRIPTION")
	for _, h := range hooks {
		def := h.Definition
		matcher := def.Matcher
		if matcher == "" {
			matcher = "*"
		}
		enabled := "-"
		if h.Binding != nil {
			enabled = fmt.Sprintf("#%d", h.Binding.Seq)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			def.Name,
			def.Origin,
			def.Event,
			matcher,
			enabled,
			def.Description,
		)
	}
}

// newHookAddCommand creates the hook add subcommand.
func newHookAddCommand(c *app.Container) *cobra.Command {
	var opts struct {
		File    string
		Replace bool
	}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add custom hooks from a YAML file",
		Long: `Add custom hook definitions from a YAML file ("-" reads standard input).

File format:
  hooks:
    - name: lint
      event: post-tool          # or PostToolUse
      matcher: Edit|Write       # regular expression on the tool name
      command: make lint
      timeout: 2m
      pending_on_failure: true
    - name: notes
      event: session-stop
      script: |
        echo "session for task $TASKFLOW_TASK stopped" >> notes.log
      background: true

Definitions are validated together; nothing is stored if one is invalid.
Existing custom hooks are only overwritten with --replace. Framework hooks
can never be overwritten.

Examples:
  taskflow hook add -f hooks.yaml
  taskflow hook add -f hooks.yaml --replace`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var defs []*domain.HookDefinition
			var err error
			if opts.File == "-" {
				defs, err = hookfile.Load(cmd.InOrStdin())
			} else {
				defs, err = hookfile.LoadFile(opts.File)
			}
			if err != nil {
				return err
			}

			uc := c.AddHookUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.AddHookInput{
				Definitions: defs,
				Replace:     opts.Replace,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, name := range out.Added {
				_, _ = fmt.Fprintf(w, "Added hook %s\n", name)
			}
			for _, name := range out.Replaced {
				_, _ = fmt.Fprintf(w, "Replaced hook %s\n", name)
			}
			if len(out.Recompiled) > 0 {
				_, _ = fmt.Fprintf(w, "Recompiled settings of %s\n", strings.Join(out.Recompiled, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML file with hook definitions (required)")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "Overwrite custom hooks with the same name")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// newHookRemoveCommand creates the hook remove subcommand.
func newHookRemoveCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a custom hook",
		Long: `Remove a custom hook definition.

The hook is disabled in every project first and their settings are recompiled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.RemoveHookUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.RemoveHookInput{Name: args[0]})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Removed hook %s\n", args[0])
			if len(out.Unbound) > 0 {
				_, _ = fmt.Fprintf(w, "Disabled in %s\n", strings.Join(out.Unbound, ", "))
			}
			return nil
		},
	}
}

// newHookEnableCommand creates the hook enable subcommand.
func newHookEnableCommand(c *app.Container) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "enable <name>",
		Short: "Enable a hook for a project",
		Long: `Enable a hook for a project and recompile its settings.

Enabling an already enabled hook adds nothing but recompiles. Executables listed as
dependencies but missing from PATH are reported as warnings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.EnableHookUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.EnableHookInput{
				ProjectID: projectOrDefault(c, project),
				HookName:  args[0],
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !out.Created {
				_, _ = fmt.Fprintf(w, "Hook %s is already enabled\n", args[0])
				printCompileResult(cmd, out.Compiled)
				return nil
			}
			_, _ = fmt.Fprintf(w, "Enabled hook %s (#%d)\n", args[0], out.Binding.Seq)
			for _, dep := range out.MissingDependencies {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s needs %s, which was not found in PATH\n", args[0], dep)
			}
			printCompileResult(cmd, out.Compiled)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project (default: repository directory name)")

	return cmd
}

// newHookDisableCommand creates the hook disable subcommand.
func newHookDisableCommand(c *app.Container) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "disable <name>",
		Short: "Disable a hook for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := c.DisableHookUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.DisableHookInput{
				ProjectID: projectOrDefault(c, project),
				HookName:  args[0],
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !out.Removed {
				_, _ = fmt.Fprintf(w, "Hook %s is not enabled\n", args[0])
				printCompileResult(cmd, out.Compiled)
				return nil
			}
			_, _ = fmt.Fprintf(w, "Disabled hook %s\n", args[0])
			printCompileResult(cmd, out.Compiled)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project (default: repository directory name)")

	return cmd
}

// printCompileResult reports warnings and the written path of a recompilation.
func printCompileResult(cmd *cobra.Command, out *usecase.CompileSettingsOutput) {
	if out == nil {
		return
	}
	for _, warning := range out.Warnings {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", warning)
	}
	if out.Path != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out.Path)
	}
}

// newHookCompileCommand creates the hook compile subcommand.
func newHookCompileCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Project string
		Write   bool
	}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the compiled automation settings",
		Long: `Compile the project's enabled hooks into the assistant's settings document.

The document is printed to standard output. With --write it is also saved to
the configured settings path inside the project directory.

Examples:
  taskflow hook compile
  taskflow hook compile --write`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.CompileSettingsUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.CompileSettingsInput{
				ProjectID: projectOrDefault(c, opts.Project),
				Write:     opts.Write,
			})
			if err != nil {
				return err
			}

			for _, warning := range out.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", warning)
			}
			if out.Path != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", out.Path)
			}
			_, _ = cmd.OutOrStdout().Write(out.Document)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "Project (default: repository directory name)")
	cmd.Flags().BoolVar(&opts.Write, "write", false, "Write the document to the settings path")

	return cmd
}

// newHookDispatchCommand creates the hook dispatch subcommand.
func newHookDispatchCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Project string
		Hook    string
	}

	cmd := &cobra.Command{
		Use:   "dispatch <event>",
		Short: "Run the enabled hooks for an event",
		Long: `Run every enabled hook matching an event, in enable order.

The event document is read from standard input as JSON. The event may be
given by its taskflow name (post-tool) or its assistant name (PostToolUse).
The task is taken from the document's task_id or $TASKFLOW_TASK.

A failing action never stops the ones after it. The command fails when at
least one action failed.

The compiled settings document runs this command once per enabled hook,
with --hook naming the hook.

Examples:
  echo '{"tool_name":"Edit"}' | taskflow hook dispatch post-tool
  echo '{"tool_name":"Bash"}' | taskflow hook dispatch post-tool --project web --hook push`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := domain.ParseHookEvent(args[0])
			if err != nil {
				return err
			}
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read event: %w", err)
			}
			payload, err := domain.ParseHookPayload(data)
			if err != nil {
				return err
			}
			if payload.TaskID == 0 {
				payload.TaskID, _ = resolveTaskIDFromEnv()
			}
			project := opts.Project
			if project == "" && payload.ProjectID == "" {
				project = c.Config.ProjectID
			}

			uc := c.DispatchHookUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.DispatchHookInput{
				Event:     event,
				Payload:   payload,
				ProjectID: project,
				HookName:  opts.Hook,
			})
			if err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			for _, oc := range out.Outcomes {
				if oc.Kind != domain.OutcomeFailed {
					continue
				}
				_, _ = fmt.Fprintf(w, "%s: %s\n", oc.HookName, oc.Error)
				if oc.Output != "" {
					_, _ = fmt.Fprint(w, oc.Output)
				}
			}
			if n := out.Failed(); n > 0 {
				return fmt.Errorf("%w: %d of %d action(s) failed", domain.ErrActionExecution, n, len(out.Outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "Project (default: document project_id, then repository directory name)")
	cmd.Flags().StringVar(&opts.Hook, "hook", "", "Run only this hook")

	return cmd
}

// newHookPendingCommand creates the hook pending subcommand.
func newHookPendingCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Project string
		Hook    string
		Clear   bool
	}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Show or clear failed actions awaiting recovery",
		Long: `List the pending markers left by failed hook actions.

Hooks with pending_on_failure leave a marker when their action fails.
Use --clear once the problem is fixed.

Examples:
  taskflow hook pending
  taskflow hook pending --clear --hook lint`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID := projectOrDefault(c, opts.Project)
			w := cmd.OutOrStdout()

			if opts.Clear {
				uc := c.ClearPendingHooksUseCase()
				out, err := uc.Execute(cmd.Context(), usecase.ClearPendingHooksInput{
					ProjectID: projectID,
					HookName:  opts.Hook,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "Cleared %d pending marker(s)\n", out.Cleared)
				return nil
			}

			uc := c.ListPendingHooksUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ListPendingHooksInput{ProjectID: projectID})
			if err != nil {
				return err
			}
			for _, p := range out.Pending {
				if opts.Hook != "" && p.HookName != opts.Hook {
					continue
				}
				line := fmt.Sprintf("%s (%s) failed at %s", p.HookName, p.Event, p.Created.Format("2006-01-02 15:04:05"))
				if p.TaskID > 0 {
					line += fmt.Sprintf(" for task #%d", p.TaskID)
				}
				_, _ = fmt.Fprintln(w, line)
				if p.Error != "" {
					_, _ = fmt.Fprintf(w, "  %s\n", p.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "Project (default: repository directory name)")
	cmd.Flags().StringVar(&opts.Hook, "hook", "", "Only this hook")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "Clear the markers instead of listing them")

	return cmd
}
