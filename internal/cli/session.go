package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/runoshun/taskflow/internal/app"
	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/usecase"
	"github.com/spf13/cobra"
)

// newSessionCommand creates the session command.
func newSessionCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage assistant sessions",
		Long: `Inspect and control the terminal sessions taskflow types commands into.

A session is addressed by its ID or, with --task, by the task it belongs to.`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(newSessionListCommand(c))
	cmd.AddCommand(newSessionStopCommand(c))
	cmd.AddCommand(newSessionAttachCommand(c))
	cmd.AddCommand(newSessionPeekCommand(c))

	return cmd
}

// newSessionListCommand creates the session list subcommand.
func newSessionListCommand(c *app.Container) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Long: `List recorded sessions. Sessions whose terminal is gone are marked completed.

Output format is tab-separated with columns:
  ID, NAME, TASK, STATUS, CREATED, DIR`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := c.ListSessionsUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ListSessionsInput{IncludeCompleted: all})
			if err != nil {
				return err
			}
			printSessionList(cmd.OutOrStdout(), out.Sessions)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed sessions")

	return cmd
}

func printSessionList(w io.Writer, sessions []*domain.Session) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "ID\tNAME\tTASK\tSTATUS\tCREATED\tDIR")
	for _, s := range sessions {
		task := "-"
		if s.TaskID > 0 {
			task = fmt.Sprintf("#%d", s.TaskID)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.Name,
			task,
			s.Status,
			s.Created.Format(time.DateTime),
			s.Dir,
		)
	}
}

// sessionRefFlags binds the flags that address a session.
type sessionRefFlags struct {
	Task int
}

func (f *sessionRefFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.Task, "task", 0, "Address the session of this task")
}

func (f *sessionRefFlags) ref(args []string) (usecase.SessionRef, error) {
	if len(args) > 0 && f.Task > 0 {
		return usecase.SessionRef{}, fmt.Errorf("give either a session ID or --task, not both")
	}
	if len(args) > 0 {
		return usecase.SessionRef{SessionID: strings.TrimSpace(args[0])}, nil
	}
	if f.Task > 0 {
		return usecase.SessionRef{TaskID: f.Task}, nil
	}
	return usecase.SessionRef{}, fmt.Errorf("session ID or --task is required")
}

// newSessionStopCommand creates the session stop subcommand.
func newSessionStopCommand(c *app.Container) *cobra.Command {
	var refFlags sessionRefFlags

	cmd := &cobra.Command{
		Use:   "stop [session-id]",
		Short: "Stop a session",
		Long: `Stop a session and the processes running in it.

Examples:
  taskflow session stop --task 3
  taskflow session stop 5f0c9e2a-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFlags.ref(args)
			if err != nil {
				return err
			}
			uc := c.StopSessionUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.StopSessionInput{Ref: ref})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stopped session %s\n", out.SessionName)
			return nil
		},
	}
	refFlags.register(cmd)

	return cmd
}

// newSessionAttachCommand creates the session attach subcommand.
func newSessionAttachCommand(c *app.Container) *cobra.Command {
	var refFlags sessionRefFlags

	cmd := &cobra.Command{
		Use:   "attach [session-id]",
		Short: "Attach to a running session",
		Long: `Attach the terminal to a running session.

Detach with the usual tmux key (Ctrl-b d); the session keeps running.

Examples:
  taskflow session attach --task 3`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFlags.ref(args)
			if err != nil {
				return err
			}
			uc := c.AttachSessionUseCase()
			_, err = uc.Execute(cmd.Context(), usecase.AttachSessionInput{Ref: ref})
			return err
		},
	}
	refFlags.register(cmd)

	return cmd
}

// newSessionPeekCommand creates the session peek subcommand.
func newSessionPeekCommand(c *app.Container) *cobra.Command {
	var refFlags sessionRefFlags
	var lines int

	cmd := &cobra.Command{
		Use:   "peek [session-id]",
		Short: "Show the last lines of a session",
		Long: `Print the last lines displayed in a session without attaching.

Examples:
  taskflow session peek --task 3
  taskflow session peek --task 3 -n 100`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFlags.ref(args)
			if err != nil {
				return err
			}
			uc := c.PeekSessionUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.PeekSessionInput{Ref: ref, Lines: lines})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Output)
			return nil
		},
	}
	refFlags.register(cmd)
	cmd.Flags().IntVarP(&lines, "lines", "n", usecase.DefaultPeekLines, "Number of lines to show")

	return cmd
}

// newNotifyCommand creates the notify command used by hooks.
func newNotifyCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Level string
		Task  int
	}

	cmd := &cobra.Command{
		Use:   "notify <message...>",
		Short: "Show a notice to the user",
		Long: `Print a notice on the terminal and record it in the log.

Hook actions use this to surface events. The task defaults to $TASKFLOW_TASK.

Levels: info, warn, error

Examples:
  taskflow notify --level warn "assistant is waiting for input"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := domain.NoticeLevel(opts.Level)
			switch level {
			case domain.NoticeInfo, domain.NoticeWarn, domain.NoticeError:
			default:
				return fmt.Errorf("invalid level %q (want info, warn or error)", opts.Level)
			}

			taskID := opts.Task
			if taskID == 0 {
				taskID, _ = resolveTaskIDFromEnv()
			}
			c.Notifier.Notify(domain.Notice{
				Level:  level,
				Title:  strings.Join(args, " "),
				TaskID: taskID,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Level, "level", string(domain.NoticeInfo), "Notice level")
	cmd.Flags().IntVar(&opts.Task, "task", 0, "Task the notice is about")

	return cmd
}
