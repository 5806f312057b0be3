// Package worktree provides git worktree operations.
package worktree

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Client implements domain.WorktreeManager interface.
var _ domain.WorktreeManager = (*Client)(nil)

// Info describes one registered worktree.
type Info struct {
	Path   string
	Branch string // Empty for detached worktrees
}

// Client manages git worktrees.
type Client struct {
	repoRoot string // Main repository root
	dataDir  string // Worktrees live under <dataDir>/worktrees
}

// NewClient creates a new worktree client.
func NewClient(repoRoot, dataDir string) *Client {
	return &Client{
		repoRoot: repoRoot,
		dataDir:  dataDir,
	}
}

// Create creates a worktree for a task branch, creating the branch from baseBranch if needed.
// An existing worktree for the branch is reused.
func (c *Client) Create(branch, baseBranch string) (string, error) {
	taskID, ok := domain.ParseBranchTaskID(branch)
	if !ok {
		return "", fmt.Errorf("invalid task branch name: %s", branch)
	}
	path := domain.WorktreePath(c.dataDir, taskID)

	exists, err := c.Exists(branch)
	if err != nil {
		return "", fmt.Errorf("check worktree exists: %w", err)
	}
	if exists {
		return path, nil
	}

	branchExists, err := c.branchExists(branch)
	if err != nil {
		return "", err
	}

	var args []string
	if branchExists {
		args = []string{"worktree", "add", path, branch}
	} else {
		args = []string{"worktree", "add", "-b", branch, path, baseBranch}
	}

	out, err := c.git(args...)
	if err == nil {
		return path, nil
	}
	if !strings.Contains(out, "already registered") && !strings.Contains(out, "missing but locked") {
		return "", fmt.Errorf("create worktree: %w: %s", err, out)
	}

	// The directory vanished but git still has it registered.
	if _, err := c.git("worktree", "prune"); err != nil {
		return "", fmt.Errorf("prune stale worktrees: %w", err)
	}
	if out, err := c.git(args...); err != nil {
		return "", fmt.Errorf("create worktree after prune: %w: %s", err, out)
	}
	return path, nil
}

// Resolve returns the path of an existing worktree for the branch.
func (c *Client) Resolve(branch string) (string, error) {
	worktrees, err := c.List()
	if err != nil {
		return "", err
	}
	for _, wt := range worktrees {
		if wt.Branch == branch {
			return wt.Path, nil
		}
	}
	return "", domain.ErrWorktreeNotFound
}

// Remove deletes the worktree of a branch.
// Without force, a dirty worktree yields ErrUncommittedChanges.
func (c *Client) Remove(branch string, force bool) error {
	path, err := c.Resolve(branch)
	if err != nil {
		return err
	}

	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)

	out, err := c.git(args...)
	if err == nil {
		return nil
	}
	if strings.Contains(out, "contains modified or untracked files") || strings.Contains(out, "is dirty") {
		return domain.ErrUncommittedChanges
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		// Directory already gone; drop the registration.
		if _, pruneErr := c.git("worktree", "prune"); pruneErr == nil {
			return nil
		}
	}
	return fmt.Errorf("remove worktree: %w: %s", err, out)
}

// Exists reports whether the branch has a registered worktree whose directory exists.
func (c *Client) Exists(branch string) (bool, error) {
	worktrees, err := c.List()
	if err != nil {
		return false, err
	}
	for _, wt := range worktrees {
		if wt.Branch != branch {
			continue
		}
		if _, err := os.Stat(wt.Path); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("check worktree directory: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// List returns all worktrees.
func (c *Client) List() ([]Info, error) {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	return parseWorktreeList(string(out))
}

// parseWorktreeList parses the porcelain output of git worktree list.
// Format:
//
//	worktree /path/to/worktree
//	HEAD abc123
//	branch refs/heads/branch-name
//	<blank line>
func parseWorktreeList(output string) ([]Info, error) {
	var worktrees []Info
	var current Info

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "":
			if current.Path != "" {
				worktrees = append(worktrees, current)
			}
			current = Info{}
		}
	}
	if current.Path != "" {
		worktrees = append(worktrees, current)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse worktree list: %w", err)
	}
	return worktrees, nil
}

func (c *Client) branchExists(branch string) (bool, error) {
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = c.repoRoot
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("check branch exists: %w", err)
}

// git runs a git command in the repository root and returns its combined output.
func (c *Client) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.repoRoot
	out, err := cmd.CombinedOutput()
	return string(out), err
}
