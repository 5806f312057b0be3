// Package executor runs hook actions as shell commands.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Client implements domain.ActionRunner interface.
var _ domain.ActionRunner = (*Client)(nil)

// waitDelay bounds how long Run waits for output pipes after the process is killed.
const waitDelay = 2 * time.Second

// Client implements domain.ActionRunner with sh -c.
type Client struct {
	shell string
}

// NewClient creates a new action runner using /bin/sh.
func NewClient() *Client {
	return &Client{shell: "sh"}
}

// Run executes the action and waits for it.
// A non-zero exit is reported in the result. Errors mean the action could not run to completion.
func (c *Client) Run(ctx context.Context, run domain.ActionRun) (*domain.ActionResult, error) {
	if run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, run.Timeout)
		defer cancel()
	}

	// #nosec G204 - commands come from registered hook definitions
	cmd := exec.CommandContext(ctx, c.shell, "-c", run.Command)
	c.prepare(cmd, run)
	cmd.Cancel = func() error {
		// Kill the whole group so children of the shell don't outlive the timeout.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
	if len(run.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(run.Stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	result := &domain.ActionResult{Output: out.String()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("action %q: %w", run.Command, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("action %q: %w", run.Command, err)
	}
	return result, nil
}

// Start launches the action detached from the caller and returns its PID.
// The process is reaped in the background; its output is discarded.
func (c *Client) Start(_ context.Context, run domain.ActionRun) (int, error) {
	// #nosec G204 - commands come from registered hook definitions
	cmd := exec.Command(c.shell, "-c", run.Command)
	c.prepare(cmd, run)
	if len(run.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(run.Stdin)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start action %q: %w", run.Command, err)
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()
	return pid, nil
}

func (c *Client) prepare(cmd *exec.Cmd, run domain.ActionRun) {
	if run.Dir != "" {
		cmd.Dir = run.Dir
	}
	cmd.Env = append(os.Environ(), run.Env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
