// Package logging provides file-based logging for taskflow.
// Entries go to a global log (.git/taskflow/logs/taskflow.log) and,
// when they concern a task, to that task's log (.git/taskflow/logs/task-N.log).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger writes categorized entries to per-repository log files.
// Fields are ordered to minimize memory padding.
type Logger struct {
	echo       io.Writer
	now        func() time.Time
	globalFile *os.File
	taskFiles  map[int]*os.File
	dataDir    string
	mu         sync.Mutex
	level      slog.Level
	echoLevel  slog.Level
}

// Option configures a Logger.
type Option func(*Logger)

// WithEcho mirrors entries at or above level to w (typically stderr).
func WithEcho(w io.Writer, level slog.Level) Option {
	return func(l *Logger) {
		l.echo = w
		l.echoLevel = level
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// New creates a Logger writing under dataDir.
// If dataDir is empty, file output is disabled.
func New(dataDir string, level slog.Level, opts ...Option) *Logger {
	l := &Logger{
		dataDir:   dataDir,
		level:     level,
		now:       time.Now,
		taskFiles: make(map[int]*os.File),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ParseLevel parses a [log] level value. Unknown values fall back to info.
func ParseLevel(levelStr string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelStr))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (l *Logger) openLocked(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	// Log files are append-only and readable by repository users.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// writers returns the files an entry for taskID goes to, opening them on first use.
func (l *Logger) writers(taskID int) []io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []io.Writer
	if l.globalFile == nil {
		if f, err := l.openLocked(domain.GlobalLogPath(l.dataDir)); err == nil {
			l.globalFile = f
		}
	}
	if l.globalFile != nil {
		out = append(out, l.globalFile)
	}
	if taskID <= 0 {
		return out
	}
	f, ok := l.taskFiles[taskID]
	if !ok {
		var err error
		if f, err = l.openLocked(domain.TaskLogPath(l.dataDir, taskID)); err != nil {
			return out
		}
		l.taskFiles[taskID] = f
	}
	return append(out, f)
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.taskFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.taskFiles, id)
	}
	return lastErr
}

// formatLog formats an entry.
// Format: [2025-12-30 09:32:51] [INFO] [task-1] [category] message
func formatLog(t time.Time, level slog.Level, taskID int, category, msg string) string {
	scope := "global"
	if taskID > 0 {
		scope = fmt.Sprintf("task-%d", taskID)
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format(time.DateTime),
		level.String(),
		scope,
		category,
		msg,
	)
}

func (l *Logger) log(level slog.Level, taskID int, category, msg string) {
	entry := formatLog(l.now(), level, taskID, category, msg)

	if l.echo != nil && level >= l.echoLevel {
		l.mu.Lock()
		_, _ = io.WriteString(l.echo, entry)
		l.mu.Unlock()
	}

	if l.dataDir == "" || level < l.level {
		return
	}
	for _, w := range l.writers(taskID) {
		_, _ = io.WriteString(w, entry)
	}
}

// Info logs an info message.
func (l *Logger) Info(taskID int, category, msg string) {
	l.log(slog.LevelInfo, taskID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(taskID int, category, msg string) {
	l.log(slog.LevelDebug, taskID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(taskID int, category, msg string) {
	l.log(slog.LevelWarn, taskID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(taskID int, category, msg string) {
	l.log(slog.LevelError, taskID, category, msg)
}
