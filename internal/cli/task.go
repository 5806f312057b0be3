package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/runoshun/taskflow/internal/app"
	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/infra/notify"
	"github.com/runoshun/taskflow/internal/usecase"
	"github.com/spf13/cobra"
)

// taskEnvVar carries the task ID into sessions and hook actions.
const taskEnvVar = "TASKFLOW_TASK"

// newNewCommand creates the new command for creating tasks.
func newNewCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title   string
		Body    string
		Project string
	}

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new task",
		Long: `Create a new task in the backlog.

The task takes the project's current mode. Development tasks of a project
with worktrees enabled get their own worktree once they enter in_progress.

Examples:
  # Create a task in the default project
  taskflow new --title "Add login page"

  # Create a task with a description in another project
  taskflow new --project api --title "Rate limit" --body "Limit per token"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.NewTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.NewTaskInput{
				ProjectID:   projectOrDefault(c, opts.Project),
				Title:       opts.Title,
				Description: opts.Body,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d (%s)\n", out.Task.ID, out.Task.Mode)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&opts.Body, "body", "", "Task description")
	cmd.Flags().StringVar(&opts.Project, "project", "", "Project (default: repository directory name)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// newListCommand creates the list command for listing tasks.
func newListCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Project  string
		Status   string
		All      bool
		Sessions bool
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `Display a list of tasks.

By default, tasks in the terminal status (done) are hidden.
Use --all to show them, or --status to list one status only.

Output format is tab-separated with columns:
  ID, PROJECT, MODE, STATUS, UPDATED, TITLE

With --sessions (-s), a SESSION column shows the running task session.

Examples:
  # List open tasks
  taskflow list

  # List everything including done tasks
  taskflow list --all

  # List tasks waiting for review in one project
  taskflow list --project api --status code_review`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input := usecase.ListTasksInput{
				ProjectID:       opts.Project,
				IncludeTerminal: opts.All,
				IncludeSessions: opts.Sessions,
			}
			if opts.Status != "" {
				status, err := domain.ParseStatus(opts.Status)
				if err != nil {
					return err
				}
				input.Status = status
			}

			uc := c.ListTasksUseCase()
			out, err := uc.Execute(cmd.Context(), input)
			if err != nil {
				return err
			}

			if opts.Sessions {
				printTaskListWithSessions(cmd.OutOrStdout(), out.TasksWithInfo, c.Clock)
			} else {
				printTaskList(cmd.OutOrStdout(), out.Tasks, c.Clock)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "Show only tasks of this project")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Show only tasks in this status")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Show all tasks including done")
	cmd.Flags().BoolVarP(&opts.Sessions, "sessions", "s", false, "Include session information")

	return cmd
}

// printTaskList prints tasks in TSV format.
func printTaskList(w io.Writer, tasks []*domain.Task, clock domain.Clock) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "ID\tPROJECT\tMODE\tSTATUS\tUPDATED\tTITLE")
	for _, task := range tasks {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			task.ID,
			task.ProjectID,
			task.Mode,
			task.Status,
			formatAge(clock, task.Updated),
			task.Title,
		)
	}
}

// printTaskListWithSessions prints tasks with session information in TSV format.
func printTaskListWithSessions(w io.Writer, tasksWithInfo []usecase.TaskWithSession, clock domain.Clock) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "ID\tPROJECT\tMODE\tSTATUS\tSESSION\tUPDATED\tTITLE")
	for _, info := range tasksWithInfo {
		task := info.Task
		sessionStr := "-"
		if info.IsRunning {
			sessionStr = info.SessionName
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			task.ID,
			task.ProjectID,
			task.Mode,
			task.Status,
			sessionStr,
			formatAge(clock, task.Updated),
			task.Title,
		)
	}
}

// formatAge formats the time since t, or "-" when t is unset.
func formatAge(clock domain.Clock, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return formatDuration(clock.Now().Sub(t)) + " ago"
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// newShowCommand creates the show command for displaying task details.
func newShowCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Display task details",
		Long: `Display detailed information about a task.

If no ID is provided, the task is taken from $TASKFLOW_TASK (set inside task
sessions) or from the current branch name (flow-<id>).

Output includes:
  - Status, mode and project
  - Workspace branch and path
  - Open sessions and background hook processes
  - Transitions available from the current status
  - Stage history

Examples:
  # Show task by ID
  taskflow show 1

  # Show the task of the current session or branch
  taskflow show`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := resolveTaskID(args, c.Git)
			if err != nil {
				return err
			}

			uc := c.ShowTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowTaskInput{TaskID: taskID})
			if err != nil {
				return err
			}

			printTaskDetails(cmd.OutOrStdout(), out)
			return nil
		},
	}

	return cmd
}

// printTaskDetails prints the show output.
func printTaskDetails(w io.Writer, out *usecase.ShowTaskOutput) {
	styles := notify.NewStyles(w)
	task := out.Task

	_, _ = fmt.Fprintf(w, "# %d: %s\n\n", task.ID, task.Title)
	_, _ = fmt.Fprintf(w, "Status:  %s\n", styles.Status(task.Status))
	_, _ = fmt.Fprintf(w, "Mode:    %s\n", task.Mode)
	_, _ = fmt.Fprintf(w, "Project: %s\n", task.ProjectID)
	if out.Project == nil {
		_, _ = fmt.Fprintln(w, styles.Muted("         (project no longer exists)"))
	}
	if task.Workspace != nil {
		_, _ = fmt.Fprintf(w, "Branch:  %s\n", task.Workspace.Branch)
		_, _ = fmt.Fprintf(w, "Path:    %s\n", task.Workspace.Path)
	}
	_, _ = fmt.Fprintf(w, "Created: %s\n", task.Created.Format(time.DateTime))

	if len(out.Sessions) > 0 {
		_, _ = fmt.Fprintln(w, "\nSessions:")
		for _, s := range out.Sessions {
			_, _ = fmt.Fprintf(w, "  %s  %s  %s\n", s.ID, s.Name, s.Status)
		}
	}
	if len(out.Processes) > 0 {
		_, _ = fmt.Fprintln(w, "\nBackground processes:")
		for _, p := range out.Processes {
			_, _ = fmt.Fprintf(w, "  %d  %s\n", p.PID, p.Name)
		}
	}
	if len(out.Next) > 0 {
		_, _ = fmt.Fprintln(w, "\nNext:")
		for _, e := range out.Next {
			_, _ = fmt.Fprintf(w, "  %s (%s)\n", styles.Status(e.To), e.Kind)
		}
	}

	if task.Description != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", task.Description)
	}

	if len(task.Stages) > 0 {
		_, _ = fmt.Fprintln(w, "\nHistory:")
		for _, st := range task.Stages {
			line := fmt.Sprintf("  [%s] %s -> %s by %s", st.Created.Format(time.DateTime), st.From, st.Status, st.Actor)
			if st.Summary != "" {
				line += ": " + st.Summary
			}
			_, _ = fmt.Fprintln(w, line)
		}
	}
}

// newMoveCommand creates the move command for requesting a transition.
func newMoveCommand(c *app.Container) *cobra.Command {
	var opts struct {
		As      string
		Name    string
		Summary string
		Details string
	}

	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another status",
		Long: `Request a status transition for a task.

Only transitions of the task's workflow are accepted. Entering a status that
needs a workspace provisions it first; if that fails the task stays where it is.
After the move, the matching command is typed into the task session.

A session moving its own task should pass --as session: the assistant is
already working on the next step, so no command is sent back to it.

Valid statuses: backlog, analysis, in_progress, testing, code_review, done

Examples:
  # Start work on task 3
  taskflow move 3 in_progress

  # Report review completion from inside the session
  taskflow move 3 done --as session --summary "merged"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseTaskID(args[0])
			if err != nil {
				return fmt.Errorf("invalid task ID: %w", err)
			}
			target, err := domain.ParseStatus(args[1])
			if err != nil {
				return err
			}
			actor := domain.Actor{Kind: domain.ParseActorKind(opts.As), Name: opts.Name}
			if actor.Kind == domain.ActorAutomation {
				return fmt.Errorf("%w: automation moves are made by advance", domain.ErrInvalidTransition)
			}

			uc := c.RequestTransitionUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.RequestTransitionInput{
				TaskID:  taskID,
				Target:  target,
				Actor:   actor,
				Summary: opts.Summary,
				Details: opts.Details,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !out.Changed {
				_, _ = fmt.Fprintf(w, "Task #%d is already %s\n", taskID, target)
				return nil
			}
			_, _ = fmt.Fprintf(w, "Moved task #%d: %s -> %s\n", taskID, out.From, out.Task.Status)
			if out.WorkspaceCreated && out.Task.Workspace != nil {
				_, _ = fmt.Fprintf(w, "Workspace: %s (%s)\n", out.Task.Workspace.Path, out.Task.Workspace.Branch)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", string(domain.ActorUser), "Actor kind: user or session")
	cmd.Flags().StringVar(&opts.Name, "by", "", "Actor name recorded in the history")
	cmd.Flags().StringVar(&opts.Summary, "summary", "", "Stage summary recorded in the history")
	cmd.Flags().StringVar(&opts.Details, "details", "", "Stage details recorded in the history")

	return cmd
}

// newAdvanceCommand creates the advance command.
func newAdvanceCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advance [id]",
		Short: "Take a satisfied automatic transition",
		Long: `Move a task along its next automatic transition if its preconditions hold.

At most one step is taken per call. Nothing happens when no automatic
transition is ready. The taskflow-advance hook runs this command whenever
the assistant stops.

If no ID is provided, the task is taken from $TASKFLOW_TASK or the current
branch name.

Examples:
  taskflow advance 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := resolveTaskID(args, c.Git)
			if err != nil {
				return err
			}

			uc := c.AdvanceTaskUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.AdvanceTaskInput{TaskID: taskID})
			if err != nil {
				// Another process holds the task; the next stop event retries.
				if errors.Is(err, domain.ErrConflictingTransition) {
					return nil
				}
				return err
			}
			if out.Edge != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Advanced task #%d: %s -> %s\n", taskID, out.Edge.From, out.Edge.To)
			}
			return nil
		},
	}

	return cmd
}

// newWatchCommand creates the watch command.
func newWatchCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Project  string
		Interval time.Duration
		Once     bool
	}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Advance tasks as their artifacts appear",
		Long: `Watch open tasks and advance them when their preconditions are met.

Artifact directories are watched for changes; tasks are also re-checked
every --interval. Press Ctrl-C to stop.

Examples:
  # Watch every project
  taskflow watch

  # Check once and exit
  taskflow watch --once`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			uc := c.WatchTasksUseCase()
			out, err := uc.Execute(ctx, usecase.WatchTasksInput{
				ProjectID: opts.Project,
				Interval:  opts.Interval,
				Once:      opts.Once,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if out != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Advanced %d task(s) in %d round(s)\n", out.Advanced, out.Rounds)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "Watch only tasks of this project")
	cmd.Flags().DurationVar(&opts.Interval, "interval", usecase.DefaultWatchInterval, "Maximum time between checks")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "Check once and exit")

	return cmd
}

// projectOrDefault returns project, or the repository's default project.
func projectOrDefault(c *app.Container, project string) string {
	if project != "" {
		return project
	}
	return c.Config.ProjectID
}

// resolveTaskID resolves the task ID from args, $TASKFLOW_TASK, or the current branch.
func resolveTaskID(args []string, git domain.Git) (int, error) {
	if len(args) > 0 {
		id, err := parseTaskID(args[0])
		if err != nil {
			return 0, fmt.Errorf("invalid task ID: %w", err)
		}
		return id, nil
	}

	if id, err := resolveTaskIDFromEnv(); id > 0 || err != nil {
		return id, err
	}

	if git == nil {
		return 0, fmt.Errorf("task ID is required (not on a task branch)")
	}
	branch, err := git.CurrentBranch()
	if err != nil {
		return 0, fmt.Errorf("failed to detect current branch: %w", err)
	}
	id, ok := domain.ParseBranchTaskID(branch)
	if !ok {
		return 0, fmt.Errorf("task ID is required (current branch '%s' is not a task branch)", branch)
	}
	return id, nil
}

// resolveTaskIDFromEnv reads $TASKFLOW_TASK. It returns 0 when the variable is unset.
func resolveTaskIDFromEnv() (int, error) {
	env := os.Getenv(taskEnvVar)
	if env == "" {
		return 0, nil
	}
	id, err := parseTaskID(env)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", taskEnvVar, err)
	}
	return id, nil
}

// parseTaskID parses a task ID string to int.
func parseTaskID(s string) (int, error) {
	// Remove leading # if present
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("task ID must be positive")
	}
	return id, nil
}
