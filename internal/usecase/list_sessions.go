package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// ListSessionsInput contains the parameters for listing sessions.
type ListSessionsInput struct {
	IncludeCompleted bool
}

// ListSessionsOutput contains the result of listing sessions.
type ListSessionsOutput struct {
	Sessions []*domain.Session
}

// ListSessions lists session records, completing those whose tmux session is gone.
type ListSessions struct {
	sessions domain.SessionRepository
	manager  domain.SessionManager
	logger   domain.Logger
}

// NewListSessions creates a new ListSessions use case.
func NewListSessions(sessions domain.SessionRepository, manager domain.SessionManager, logger domain.Logger) *ListSessions {
	return &ListSessions{
		sessions: sessions,
		manager:  manager,
		logger:   logger,
	}
}

// Execute returns sessions ordered by creation time.
func (uc *ListSessions) Execute(_ context.Context, in ListSessionsInput) (*ListSessionsOutput, error) {
	all, err := uc.sessions.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := &ListSessionsOutput{}
	for _, s := range all {
		if s.IsOpen() {
			running, err := uc.manager.IsRunning(s.Name)
			if err != nil {
				return nil, fmt.Errorf("check session %s: %w", s.Name, err)
			}
			if !running {
				s.Status = domain.SessionCompleted
				if err := uc.sessions.SaveSession(s); err != nil {
					return nil, fmt.Errorf("save session: %w", err)
				}
				uc.logger.Debug(s.TaskID, "session", s.Name+" is gone, marked completed")
			}
		}
		if s.IsOpen() || in.IncludeCompleted {
			out.Sessions = append(out.Sessions, s)
		}
	}
	return out, nil
}

// SessionRef selects a session by record ID or by task.
type SessionRef struct {
	SessionID string
	TaskID    int
}

// resolveSessionName returns the tmux name for ref.
func resolveSessionName(sessions domain.SessionRepository, ref SessionRef) (string, *domain.Session, error) {
	if ref.SessionID != "" {
		s, err := sessions.GetSession(ref.SessionID)
		if err != nil {
			return "", nil, fmt.Errorf("get session: %w", err)
		}
		if s == nil {
			return "", nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, ref.SessionID)
		}
		return s.Name, s, nil
	}
	if ref.TaskID <= 0 {
		return "", nil, fmt.Errorf("%w: no session or task given", domain.ErrSessionNotFound)
	}
	return domain.SessionName(ref.TaskID, ""), nil, nil
}
