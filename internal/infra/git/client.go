// Package git provides repository operations backed by go-git.
package git

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Client implements domain.Git interface.
var _ domain.Git = (*Client)(nil)

// Client provides git operations.
type Client struct {
	repo       *git.Repository
	repoRoot   string // Main repository root (parent of .git)
	gitDir     string // Common .git directory
	workingDir string // Current working directory (may be worktree)
}

// NewClient opens the repository containing dir.
// Inside a linked worktree the client still resolves to the main repository.
func NewClient(dir string) (*Client, error) {
	repoRoot, gitDir, workingDir, err := findGitRoot(dir)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(repoRoot, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &Client{
		repo:       repo,
		repoRoot:   repoRoot,
		gitDir:     gitDir,
		workingDir: workingDir,
	}, nil
}

// RepoRoot returns the repository root directory.
func (c *Client) RepoRoot() string {
	return c.repoRoot
}

// GitDir returns the .git directory path.
func (c *Client) GitDir() string {
	return c.gitDir
}

// WorkingDir returns the toplevel of the worktree the client was opened from.
func (c *Client) WorkingDir() string {
	return c.workingDir
}

// DefaultBranch returns the branch new workspaces start from.
// The remote HEAD wins, then main, then master, then the checked out branch.
func (c *Client) DefaultBranch() (string, error) {
	remoteHead, err := c.repo.Reference(plumbing.NewRemoteHEADReferenceName("origin"), false)
	if err == nil && remoteHead.Type() == plumbing.SymbolicReference {
		return strings.TrimPrefix(remoteHead.Target().String(), "refs/remotes/origin/"), nil
	}

	for _, candidate := range []string{"main", "master"} {
		exists, err := c.BranchExists(candidate)
		if err != nil {
			return "", err
		}
		if exists {
			return candidate, nil
		}
	}

	head, err := c.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash())
	}
	return head.Name().Short(), nil
}

// BranchExists checks if a local branch exists.
func (c *Client) BranchExists(branch string) (bool, error) {
	_, err := c.repo.Reference(plumbing.NewBranchReferenceName(branch), false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check branch %s: %w", branch, err)
	}
	return true, nil
}

// DeleteBranch removes a local branch ref and its config section.
// Deleting a missing branch is not an error.
func (c *Client) DeleteBranch(branch string) error {
	exists, err := c.BranchExists(branch)
	if err != nil || !exists {
		return err
	}
	if err := c.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(branch)); err != nil {
		return fmt.Errorf("delete branch %s: %w", branch, err)
	}
	if err := c.repo.DeleteBranch(branch); err != nil && !errors.Is(err, git.ErrBranchNotFound) {
		return fmt.Errorf("delete branch config %s: %w", branch, err)
	}
	return nil
}

// CurrentBranch returns the branch checked out in the worktree the client was opened from.
// The repository handle points at the main worktree, so HEAD is read with git itself.
func (c *Client) CurrentBranch() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = c.workingDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolve current branch: %w", err)
	}
	branch := strings.TrimSpace(string(out))
	if branch == "HEAD" {
		return "", errors.New("HEAD is detached")
	}
	return branch, nil
}

// findGitRoot finds the git repository root and .git directory from the given directory.
// This works correctly both in the main repository and inside worktrees.
func findGitRoot(dir string) (repoRoot, gitDir, workingDir string, err error) {
	cmd := exec.Command("git", "rev-parse", "--git-common-dir")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", "", "", domain.ErrNotGitRepository
	}
	gitDir = strings.TrimSpace(string(out))

	// --show-toplevel returns the worktree root when run inside a worktree
	cmd = exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	toplevel, err := cmd.Output()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to find toplevel: %w", err)
	}
	workingDir = strings.TrimSpace(string(toplevel))

	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}
	gitDir = filepath.Clean(gitDir)
	repoRoot = filepath.Dir(gitDir)

	return repoRoot, gitDir, workingDir, nil
}
