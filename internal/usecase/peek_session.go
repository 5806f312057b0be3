package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/taskflow/internal/domain"
)

// DefaultPeekLines is the default number of lines to display.
const DefaultPeekLines = 30

// PeekSessionInput contains the parameters for peeking at a session.
type PeekSessionInput struct {
	Ref   SessionRef
	Lines int // Number of lines to display (0 uses default)
}

// PeekSessionOutput contains the result of peeking at a session.
type PeekSessionOutput struct {
	SessionName string
	Output      string
}

// PeekSession is the use case for viewing session output non-interactively.
type PeekSession struct {
	sessions domain.SessionRepository
	manager  domain.SessionManager
}

// NewPeekSession creates a new PeekSession use case.
func NewPeekSession(sessions domain.SessionRepository, manager domain.SessionManager) *PeekSession {
	return &PeekSession{
		sessions: sessions,
		manager:  manager,
	}
}

// Execute captures the last N lines from a running session.
func (uc *PeekSession) Execute(_ context.Context, in PeekSessionInput) (*PeekSessionOutput, error) {
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

	lines := in.Lines
	if lines <= 0 {
		lines = DefaultPeekLines
	}
	output, err := uc.manager.Peek(name, lines)
	if err != nil {
		return nil, fmt.Errorf("peek session: %w", err)
	}
	return &PeekSessionOutput{SessionName: name, Output: output}, nil
}
