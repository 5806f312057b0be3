// Package tmux provides tmux session management.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Client implements domain.SessionManager interface.
var _ domain.SessionManager = (*Client)(nil)

// ExecFunc is the function signature for syscall.Exec.
// It is used to allow testing of the Attach method.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// defaultConfig keeps sessions quiet; sessions are driven by send-keys, not by a human.
const defaultConfig = `set -g status off
set -g escape-time 0
set -g history-limit 50000
`

// Client manages tmux sessions on a private socket.
// Fields are ordered to minimize memory padding.
type Client struct {
	execFunc   ExecFunc // Function to use for exec (default: syscall.Exec)
	socketPath string
	configPath string
}

// NewClient creates a new tmux client.
// socketPath is typically .git/taskflow/tmux.sock; tmux.conf is kept next to it in dataDir.
func NewClient(socketPath, dataDir string) *Client {
	return &Client{
		execFunc:   syscall.Exec,
		socketPath: socketPath,
		configPath: filepath.Join(dataDir, "tmux.conf"),
	}
}

// SetExecFunc sets the exec function for testing purposes.
func (c *Client) SetExecFunc(fn ExecFunc) {
	c.execFunc = fn
}

// Start creates a detached session running opts.Command in opts.Dir.
// When opts.Transcript is set, pane output is appended to that file.
func (c *Client) Start(ctx context.Context, opts domain.StartSessionOptions) error {
	running, err := c.IsRunning(opts.Name)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if running {
		return domain.ErrSessionRunning
	}
	if err := c.ensureConfig(); err != nil {
		return err
	}

	args := c.baseArgs("new-session", "-d", "-s", opts.Name, "-c", opts.Dir)
	if opts.TaskID > 0 {
		args = append(args, "-e", "TASKFLOW_TASK="+strconv.Itoa(opts.TaskID))
	}
	if opts.Command != "" {
		args = append(args, opts.Command)
	}

	cmd := exec.CommandContext(ctx, "tmux", args...)
	cmd.Dir = opts.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("start session: %w: %s", err, string(out))
	}

	if opts.Transcript != "" {
		if err := c.pipeTranscript(opts.Name, opts.Transcript); err != nil {
			return err
		}
	}
	return nil
}

// pipeTranscript appends everything the pane prints to path.
func (c *Client) pipeTranscript(sessionName, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	cmd := exec.Command("tmux", c.baseArgs("pipe-pane", "-o", "-t", sessionName, "cat >> "+shellQuote(path))...) //nolint:gosec // path is quoted
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pipe transcript: %w: %s", err, string(out))
	}
	return nil
}

// Stop terminates a session and the processes running in its panes.
// Stopping a session that is not running is not an error.
func (c *Client) Stop(sessionName string) error {
	running, err := c.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !running {
		return nil
	}

	out, err := exec.Command("tmux", c.baseArgs("list-panes", "-t", sessionName, "-F", "#{pane_pid}")...).Output() //nolint:gosec // session names are generated
	if err == nil {
		for _, field := range strings.Fields(string(out)) {
			pid, convErr := strconv.Atoi(field)
			if convErr != nil {
				continue
			}
			// Pane processes lead their own process group; signal the group, then direct children.
			_ = syscall.Kill(-pid, syscall.SIGTERM)
			_ = exec.Command("pkill", "-TERM", "-P", field).Run()
		}
	}

	cmd := exec.Command("tmux", c.baseArgs("kill-session", "-t", sessionName)...) //nolint:gosec // session names are generated
	if out, err := cmd.CombinedOutput(); err != nil {
		// Terminating the pane processes may already have closed the session.
		stillRunning, checkErr := c.IsRunning(sessionName)
		if checkErr != nil || stillRunning {
			return fmt.Errorf("stop session: %w: %s", err, string(out))
		}
	}
	return nil
}

// Attach replaces the current process with a tmux client attached to the session.
func (c *Client) Attach(sessionName string) error {
	running, err := c.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !running {
		return domain.ErrNoSession
	}

	tmuxPath, err := exec.LookPath("tmux")
	if err != nil {
		return fmt.Errorf("find tmux: %w", err)
	}
	argv := append([]string{"tmux"}, c.baseArgs("attach", "-t", sessionName)...)
	if err := c.execFunc(tmuxPath, argv, os.Environ()); err != nil {
		return fmt.Errorf("attach session: %w", err)
	}
	return nil
}

// Peek captures the last N lines from a session.
func (c *Client) Peek(sessionName string, lines int) (string, error) {
	running, err := c.IsRunning(sessionName)
	if err != nil {
		return "", fmt.Errorf("check session: %w", err)
	}
	if !running {
		return "", domain.ErrNoSession
	}

	cmd := exec.Command("tmux", c.baseArgs("capture-pane", "-t", sessionName, "-p", "-S", fmt.Sprintf("-%d", lines))...) //nolint:gosec // session names are generated
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("peek session: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// Send sends keys to a session. Key names such as "Enter" are interpreted by tmux.
func (c *Client) Send(sessionName string, keys string) error {
	running, err := c.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !running {
		return domain.ErrNoSession
	}

	cmd := exec.Command("tmux", c.baseArgs("send-keys", "-t", sessionName, keys)...) //nolint:gosec // keys are passed as a single argument
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("send keys: %w: %s", err, string(out))
	}
	return nil
}

// IsRunning checks if a session is running.
// A missing socket or server means no session.
func (c *Client) IsRunning(sessionName string) (bool, error) {
	cmd := exec.Command("tmux", "-S", c.socketPath, "has-session", "-t", "="+sessionName) //nolint:gosec // session names are generated
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return false, fmt.Errorf("find tmux: %w", err)
	}
	return false, nil
}

func (c *Client) baseArgs(args ...string) []string {
	return append([]string{"-S", c.socketPath, "-f", c.configPath}, args...)
}

// ensureConfig writes the default tmux.conf unless one exists.
func (c *Client) ensureConfig() error {
	if _, err := os.Stat(c.configPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o750); err != nil {
		return fmt.Errorf("create tmux config dir: %w", err)
	}
	if err := os.WriteFile(c.configPath, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("write tmux config: %w", err)
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
