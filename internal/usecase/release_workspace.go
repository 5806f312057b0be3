package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// ReleaseWorkspaceInput contains the parameters for releasing a task's resources.
type ReleaseWorkspaceInput struct {
	TaskID        int
	KeepWorkspace bool // Stop sessions and processes but leave the worktree
	Force         bool // Remove the worktree even with uncommitted changes
}

// ReleaseWorkspaceOutput contains the cleanup report.
type ReleaseWorkspaceOutput struct {
	Report *domain.CleanupReport
}

// ReleaseWorkspace stops everything bound to a task and optionally deletes its workspace.
// Every step runs even if an earlier one fails; failures are collected in the report.
// Fields are ordered to minimize memory padding.
type ReleaseWorkspace struct {
	tasks     domain.TaskRepository
	locker    domain.TaskLocker
	sessions  domain.SessionRepository
	manager   domain.SessionManager
	procs     domain.ProcessTracker
	worktrees domain.WorktreeManager
	git       domain.Git
	logger    domain.Logger
}

// NewReleaseWorkspace creates a new ReleaseWorkspace use case.
func NewReleaseWorkspace(
	tasks domain.TaskRepository,
	locker domain.TaskLocker,
	sessions domain.SessionRepository,
	manager domain.SessionManager,
	procs domain.ProcessTracker,
	worktrees domain.WorktreeManager,
	git domain.Git,
	logger domain.Logger,
) *ReleaseWorkspace {
	return &ReleaseWorkspace{
		tasks:     tasks,
		locker:    locker,
		sessions:  sessions,
		manager:   manager,
		procs:     procs,
		worktrees: worktrees,
		git:       git,
		logger:    logger,
	}
}

// Execute releases the task. The returned error covers only failures to start the release.
func (uc *ReleaseWorkspace) Execute(_ context.Context, in ReleaseWorkspaceInput) (*ReleaseWorkspaceOutput, error) {
	unlock, ok := uc.locker.TryLock(in.TaskID)
	if !ok {
		return nil, fmt.Errorf("task #%d: %w", in.TaskID, domain.ErrConflictingTransition)
	}
	defer unlock()

	task, err := uc.tasks.Get(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}

	report := &domain.CleanupReport{TaskID: task.ID}
	uc.stopSessions(task, report)
	uc.terminateProcesses(task, report)
	if !in.KeepWorkspace && task.Workspace != nil {
		uc.removeWorkspace(task, in.Force, report)
	}

	if report.Ok() {
		uc.logger.Info(task.ID, "workspace", "released")
	} else {
		uc.logger.Warn(task.ID, "workspace", "released with failures:\n"+report.Summary())
	}
	return &ReleaseWorkspaceOutput{Report: report}, nil
}

func (uc *ReleaseWorkspace) stopSessions(task *domain.Task, report *domain.CleanupReport) {
	records, err := uc.sessions.ListSessions()
	if err != nil {
		report.Fail(domain.StepStopSession, "", fmt.Errorf("list sessions: %w", err))
		records = nil
	}

	// The task's own tmux session is stopped even if its record is missing.
	names := []string{domain.SessionName(task.ID, "")}
	byName := make(map[string]*domain.Session)
	for _, s := range records {
		if s.TaskID != task.ID || !s.IsOpen() {
			continue
		}
		if _, seen := byName[s.Name]; !seen && s.Name != names[0] {
			names = append(names, s.Name)
		}
		byName[s.Name] = s
	}

	for _, name := range names {
		running, err := uc.manager.IsRunning(name)
		if err != nil {
			report.Fail(domain.StepStopSession, name, err)
			continue
		}
		if running {
			if err := uc.manager.Stop(name); err != nil {
				report.Fail(domain.StepStopSession, name, err)
				continue
			}
			report.StoppedSessions = append(report.StoppedSessions, name)
		}
		if s, ok := byName[name]; ok {
			s.Status = domain.SessionCompleted
			if err := uc.sessions.SaveSession(s); err != nil {
				report.Fail(domain.StepStopSession, name, fmt.Errorf("save session: %w", err))
			}
		}
	}
}

func (uc *ReleaseWorkspace) terminateProcesses(task *domain.Task, report *domain.CleanupReport) {
	procs, err := uc.procs.List(task.ID)
	if err != nil {
		report.Fail(domain.StepTerminateProcess, "", fmt.Errorf("list processes: %w", err))
		return
	}
	for _, p := range procs {
		target := fmt.Sprintf("%s (pid %d)", p.Name, p.PID)
		if err := uc.procs.Terminate(p.PID); err != nil {
			report.Fail(domain.StepTerminateProcess, target, err)
			continue
		}
		report.TerminatedPIDs = append(report.TerminatedPIDs, p.PID)
	}
	if err := uc.procs.Clear(task.ID); err != nil {
		report.Fail(domain.StepTerminateProcess, "", fmt.Errorf("clear process records: %w", err))
	}
}

func (uc *ReleaseWorkspace) removeWorkspace(task *domain.Task, force bool, report *domain.CleanupReport) {
	ref := *task.Workspace
	if err := uc.worktrees.Remove(ref.Branch, force); err != nil {
		report.Fail(domain.StepRemoveWorktree, ref.Path, err)
		return
	}
	report.WorkspaceRemoved = true

	if err := uc.git.DeleteBranch(ref.Branch); err != nil {
		report.Fail(domain.StepDeleteBranch, ref.Branch, err)
	} else {
		report.BranchDeleted = true
	}

	task.Workspace = nil
	if err := uc.tasks.Save(task); err != nil {
		report.Fail(domain.StepRemoveWorktree, ref.Path, fmt.Errorf("save task: %w", err))
	}
}
