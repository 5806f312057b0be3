package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure WorktreeProvisioner implements domain.WorkspaceProvisioner interface.
var _ domain.WorkspaceProvisioner = (*WorktreeProvisioner)(nil)

// WorktreeProvisioner provisions task workspaces as git worktrees on flow-<id> branches.
type WorktreeProvisioner struct {
	worktrees    domain.WorktreeManager
	git          domain.Git
	configLoader domain.ConfigLoader
	clock        domain.Clock
	logger       domain.Logger
}

// NewWorktreeProvisioner creates a new WorktreeProvisioner.
func NewWorktreeProvisioner(
	worktrees domain.WorktreeManager,
	git domain.Git,
	configLoader domain.ConfigLoader,
	clock domain.Clock,
	logger domain.Logger,
) *WorktreeProvisioner {
	return &WorktreeProvisioner{
		worktrees:    worktrees,
		git:          git,
		configLoader: configLoader,
		clock:        clock,
		logger:       logger,
	}
}

// Provision returns the task's workspace, creating the worktree if needed.
// A worktree left over for the task's branch is adopted rather than recreated.
func (p *WorktreeProvisioner) Provision(_ context.Context, task *domain.Task) (domain.WorkspaceRef, bool, error) {
	if task.Workspace != nil {
		return *task.Workspace, false, nil
	}

	branch := domain.BranchName(task.ID)
	exists, err := p.worktrees.Exists(branch)
	if err != nil {
		return domain.WorkspaceRef{}, false, fmt.Errorf("check worktree: %w", err)
	}
	if exists {
		path, resolveErr := p.worktrees.Resolve(branch)
		if resolveErr != nil {
			return domain.WorkspaceRef{}, false, fmt.Errorf("resolve worktree: %w", resolveErr)
		}
		p.logger.Info(task.ID, "workspace", "adopted existing worktree "+path)
		return domain.WorkspaceRef{Created: p.clock.Now(), Branch: branch, Path: path}, false, nil
	}

	base, err := p.baseBranch()
	if err != nil {
		return domain.WorkspaceRef{}, false, err
	}
	path, err := p.worktrees.Create(branch, base)
	if err != nil {
		return domain.WorkspaceRef{}, false, fmt.Errorf("create worktree: %w", err)
	}
	p.logger.Info(task.ID, "workspace", fmt.Sprintf("created worktree %s from %s", path, base))
	return domain.WorkspaceRef{Created: p.clock.Now(), Branch: branch, Path: path}, true, nil
}

// Discard removes a worktree and its branch.
func (p *WorktreeProvisioner) Discard(_ context.Context, task *domain.Task, ref domain.WorkspaceRef) error {
	if err := p.worktrees.Remove(ref.Branch, true); err != nil {
		return fmt.Errorf("remove worktree: %w", err)
	}
	if err := p.git.DeleteBranch(ref.Branch); err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	p.logger.Info(task.ID, "workspace", "discarded worktree "+ref.Path)
	return nil
}

// baseBranch resolves [workspace] base_branch, falling back to the repository default branch.
func (p *WorktreeProvisioner) baseBranch() (string, error) {
	cfg, err := p.configLoader.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if cfg.Workspace.BaseBranch != "" {
		return cfg.Workspace.BaseBranch, nil
	}
	branch, err := p.git.DefaultBranch()
	if err != nil {
		return "", fmt.Errorf("get default branch: %w", err)
	}
	return branch, nil
}
