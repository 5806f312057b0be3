package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// StopSessionInput contains the parameters for stopping a session.
type StopSessionInput struct {
	Ref SessionRef
}

// StopSessionOutput contains the result of stopping a session.
type StopSessionOutput struct {
	SessionName string
	Completed   int // Records marked completed
}

// StopSession terminates a session explicitly.
type StopSession struct {
	sessions domain.SessionRepository
	manager  domain.SessionManager
	logger   domain.Logger
}

// NewStopSession creates a new StopSession use case.
func NewStopSession(sessions domain.SessionRepository, manager domain.SessionManager, logger domain.Logger) *StopSession {
	return &StopSession{
		sessions: sessions,
		manager:  manager,
		logger:   logger,
	}
}

// Execute stops the tmux session and completes every open record with its name.
// Stopping a session that is not running only updates the records.
func (uc *StopSession) Execute(_ context.Context, in StopSessionInput) (*StopSessionOutput, error) {
	name, _, err := resolveSessionName(uc.sessions, in.Ref)
	if err != nil {
		return nil, err
	}

	if err := uc.manager.Stop(name); err != nil {
		return nil, fmt.Errorf("stop session: %w", err)
	}

	all, err := uc.sessions.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := &StopSessionOutput{SessionName: name}
	for _, s := range all {
		if s.Name != name || !s.IsOpen() {
			continue
		}
		s.Status = domain.SessionCompleted
		if err := uc.sessions.SaveSession(s); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		out.Completed++
	}

	uc.logger.Info(in.Ref.TaskID, "session", "stopped "+name)
	return out, nil
}
