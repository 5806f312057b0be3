package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// AttachSessionInput contains the parameters for attaching to a session.
type AttachSessionInput struct {
	Ref SessionRef
}

// AttachSessionOutput contains the result of attaching to a session.
// This use case replaces the current process, so the output is not used.
type AttachSessionOutput struct{}

// AttachSession is the use case for attaching to a running session.
type AttachSession struct {
	sessions domain.SessionRepository
	manager  domain.SessionManager
}

// NewAttachSession creates a new AttachSession use case.
func NewAttachSession(sessions domain.SessionRepository, manager domain.SessionManager) *AttachSession {
	return &AttachSession{
		sessions: sessions,
		manager:  manager,
	}
}

// Execute attaches to a running session.
// This replaces the current process and does not return on success.
func (uc *AttachSession) Execute(_ context.Context, in AttachSessionInput) (*AttachSessionOutput, error) {
	name, _, err := resolveSessionName(uc.sessions, in.Ref)
	if err != nil {
		return nil, err
	}

	running, err := uc.manager.IsRunning(name)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !running {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSession, name)
	}

	if err := uc.manager.Attach(name); err != nil {
		return nil, fmt.Errorf("attach session: %w", err)
	}

	// This line should never be reached
	return &AttachSessionOutput{}, nil
}
