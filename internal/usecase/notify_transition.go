package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure NotifyTransition implements domain.TransitionObserver interface.
var _ domain.TransitionObserver = (*NotifyTransition)(nil)

// NotifyTransitionInput describes a committed transition.
type NotifyTransitionInput struct {
	Task  *domain.Task
	Actor domain.Actor
	From  domain.Status
	To    domain.Status
}

// NotifyTransitionOutput contains what the dispatcher did.
// Fields are ordered to minimize memory padding.
type NotifyTransitionOutput struct {
	Release        *domain.CleanupReport // Set when the task was released on done
	Line           string                // Command line sent or to be run manually
	SessionName    string
	SessionCreated bool
	Delivered      bool
	Manual         bool // No automatic command; a notice was emitted instead
	Skipped        bool // The session itself requested the transition
}

// NotifyTransition is the session command dispatcher.
// It maps a committed transition to a command and delivers it to the task's session,
// starting one if needed. Delivery problems become notices and never undo the transition.
// Fields are ordered to minimize memory padding.
type NotifyTransition struct {
	projects     domain.ProjectRepository
	sessions     domain.SessionRepository
	manager      domain.SessionManager
	notifier     domain.Notifier
	configLoader domain.ConfigLoader
	clock        domain.Clock
	logger       domain.Logger
	release      *ReleaseWorkspace
	table        *domain.TransitionTable
	newID        func() string
	dataDir      string
	repoRoot     string
}

// NewNotifyTransition creates a new NotifyTransition use case.
func NewNotifyTransition(
	projects domain.ProjectRepository,
	sessions domain.SessionRepository,
	manager domain.SessionManager,
	notifier domain.Notifier,
	release *ReleaseWorkspace,
	table *domain.TransitionTable,
	configLoader domain.ConfigLoader,
	clock domain.Clock,
	logger domain.Logger,
	dataDir string,
	repoRoot string,
) *NotifyTransition {
	return &NotifyTransition{
		projects:     projects,
		sessions:     sessions,
		manager:      manager,
		notifier:     notifier,
		release:      release,
		table:        table,
		configLoader: configLoader,
		clock:        clock,
		logger:       logger,
		newID:        uuid.NewString,
		dataDir:      dataDir,
		repoRoot:     repoRoot,
	}
}

// OnTransitionAccepted runs the dispatcher; its errors have already been surfaced as notices.
func (uc *NotifyTransition) OnTransitionAccepted(ctx context.Context, task *domain.Task, from, to domain.Status, actor domain.Actor) {
	_, _ = uc.Execute(ctx, NotifyTransitionInput{Task: task, From: from, To: to, Actor: actor})
}

// Execute dispatches the command for one transition.
// The returned error wraps domain.ErrSessionDelivery when delivery failed.
func (uc *NotifyTransition) Execute(ctx context.Context, in NotifyTransitionInput) (*NotifyTransitionOutput, error) {
	task := in.Task
	out := &NotifyTransitionOutput{}

	cfg, err := uc.configLoader.Load()
	if err != nil {
		return out, uc.fail(task, "", fmt.Errorf("load config: %w", err))
	}
	project, err := uc.projects.GetProject(task.ProjectID)
	if err != nil {
		return out, uc.fail(task, "", fmt.Errorf("get project: %w", err))
	}

	if in.To.IsTerminal() && cfg.Workspace.ReleaseOnDone && uc.release != nil {
		out.Release = uc.releaseOnDone(ctx, task)
	}

	if in.Actor.Kind == domain.ActorSession {
		uc.logger.Debug(task.ID, "dispatch", "transition reported by the session, no command sent")
		out.Skipped = true
		return out, nil
	}

	res := domain.ResolveSessionCommand(cfg.CommandRules(uc.table), task, in.From, in.To, project)
	if !res.Mapped || !res.Allowed {
		out.Manual = true
		uc.notifier.Notify(domain.Notice{
			Level:   domain.NoticeInfo,
			Title:   "manual action required",
			Message: manualReason(res, in.From, in.To),
			TaskID:  task.ID,
		})
		return out, nil
	}

	out.Line = res.Command.Line(cfg.Session.CommandPrefix)
	session, created, err := uc.resolveSession(ctx, task, project, cfg)
	if session != nil {
		out.SessionName = session.Name
	}
	out.SessionCreated = created
	if err != nil {
		return out, uc.fail(task, out.Line, err)
	}

	if err := uc.manager.Send(session.Name, out.Line); err != nil {
		return out, uc.fail(task, out.Line, fmt.Errorf("send to %s: %w", session.Name, err))
	}
	if err := uc.manager.Send(session.Name, "Enter"); err != nil {
		return out, uc.fail(task, out.Line, fmt.Errorf("send to %s: %w", session.Name, err))
	}
	out.Delivered = true
	uc.logger.Info(task.ID, "dispatch", fmt.Sprintf("sent %q to %s", out.Line, session.Name))
	return out, nil
}

// resolveSession finds the session to deliver to:
// the task's own session, then any other active session, then a new one for the task.
func (uc *NotifyTransition) resolveSession(ctx context.Context, task *domain.Task, project *domain.ProjectSettings, cfg *domain.Config) (*domain.Session, bool, error) {
	records, err := uc.sessions.ListSessions()
	if err != nil {
		return nil, false, fmt.Errorf("list sessions: %w", err)
	}

	var own, other *domain.Session
	for _, s := range records {
		if !s.IsOpen() {
			continue
		}
		running, err := uc.manager.IsRunning(s.Name)
		if err != nil {
			return nil, false, fmt.Errorf("check session %s: %w", s.Name, err)
		}
		if !running {
			s.Status = domain.SessionCompleted
			if err := uc.sessions.SaveSession(s); err != nil {
				uc.logger.Warn(task.ID, "dispatch", fmt.Sprintf("mark %s completed: %v", s.Name, err))
			}
			continue
		}
		switch {
		case s.TaskID == task.ID && own == nil:
			own = s
		case s.Status == domain.SessionActive && other == nil:
			other = s
		}
	}
	if own != nil {
		return own, false, nil
	}
	if other != nil {
		return other, false, nil
	}

	// A session left running without a record is adopted.
	name := domain.SessionName(task.ID, "")
	running, err := uc.manager.IsRunning(name)
	if err != nil {
		return nil, false, fmt.Errorf("check session %s: %w", name, err)
	}
	if running {
		id := uc.newID()
		s := &domain.Session{
			Created: uc.clock.Now(),
			ID:      id,
			Name:    name,
			Dir:     task.WorkDir(projectDir(project, uc.repoRoot)),
			Status:  domain.SessionActive,
			TaskID:  task.ID,
		}
		if err := uc.sessions.SaveSession(s); err != nil {
			return s, false, fmt.Errorf("save session: %w", err)
		}
		return s, false, nil
	}

	s, err := uc.startSession(ctx, task, project, cfg)
	return s, s != nil, err
}

func projectDir(project *domain.ProjectSettings, fallback string) string {
	if project != nil && project.Dir != "" {
		return project.Dir
	}
	return fallback
}

func (uc *NotifyTransition) startSession(ctx context.Context, task *domain.Task, project *domain.ProjectSettings, cfg *domain.Config) (*domain.Session, error) {
	id := uc.newID()
	s := &domain.Session{
		Created:    uc.clock.Now(),
		ID:         id,
		Name:       domain.SessionName(task.ID, id),
		Dir:        task.WorkDir(projectDir(project, uc.repoRoot)),
		Transcript: domain.TranscriptPath(uc.dataDir, id),
		Status:     domain.SessionInitializing,
		TaskID:     task.ID,
	}
	err := uc.manager.Start(ctx, domain.StartSessionOptions{
		Name:       s.Name,
		Dir:        s.Dir,
		Command:    cfg.Session.Command,
		Transcript: s.Transcript,
		TaskID:     task.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if err := uc.sessions.SaveSession(s); err != nil {
		return s, fmt.Errorf("save session: %w", err)
	}
	uc.logger.Info(task.ID, "session", "started "+s.Name)

	if err := uc.waitReady(ctx, s.Name, cfg.Session.WarmupTimeout, cfg.Session.PollInterval); err != nil {
		return s, err
	}
	s.Status = domain.SessionActive
	if err := uc.sessions.SaveSession(s); err != nil {
		return s, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

// waitReady polls until the session is running and has printed something.
func (uc *NotifyTransition) waitReady(ctx context.Context, name string, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = domain.DefaultPollInterval
	}
	attempts := max(1, int(timeout/interval))
	for i := 0; ; i++ {
		running, err := uc.manager.IsRunning(name)
		if err != nil {
			return fmt.Errorf("check session %s: %w", name, err)
		}
		if running {
			screen, err := uc.manager.Peek(name, 5)
			if err == nil && strings.TrimSpace(screen) != "" {
				return nil
			}
		}
		if i >= attempts {
			return fmt.Errorf("%w: %s after %s", domain.ErrSessionNotReady, name, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (uc *NotifyTransition) releaseOnDone(ctx context.Context, task *domain.Task) *domain.CleanupReport {
	res, err := uc.release.Execute(ctx, ReleaseWorkspaceInput{TaskID: task.ID, KeepWorkspace: true})
	if err != nil {
		uc.notifier.Notify(domain.Notice{Level: domain.NoticeWarn, Title: "release failed", Message: err.Error(), TaskID: task.ID})
		return nil
	}
	if !res.Report.Ok() {
		uc.notifier.Notify(domain.Notice{Level: domain.NoticeWarn, Title: "release incomplete", Message: res.Report.Summary(), TaskID: task.ID})
	}
	return res.Report
}

// fail surfaces a delivery failure as the transition's single notice.
func (uc *NotifyTransition) fail(task *domain.Task, line string, err error) error {
	err = fmt.Errorf("%w: %w", domain.ErrSessionDelivery, err)
	uc.logger.Warn(task.ID, "dispatch", err.Error())

	msg := err.Error()
	if line != "" {
		msg = fmt.Sprintf("run %q in the task session manually (%v)", line, err)
	}
	level := domain.NoticeWarn
	if errors.Is(err, context.Canceled) {
		level = domain.NoticeInfo
	}
	uc.notifier.Notify(domain.Notice{Level: level, Title: "command not delivered", Message: msg, TaskID: task.ID})
	return err
}

func manualReason(res domain.CommandResolution, from, to domain.Status) string {
	if res.Mapped {
		return fmt.Sprintf("%s -> %s: automatic %q is disabled by the project's manual mode", from, to, res.Command.Name)
	}
	return fmt.Sprintf("%s -> %s has no automatic command", from, to)
}
