// Package notify renders user-facing notices and status labels on the terminal.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Printer implements domain.Notifier interface.
var _ domain.Notifier = (*Printer)(nil)

// Colors is the palette shared by notices and status labels.
var Colors = struct {
	Info       lipgloss.Color
	Warn       lipgloss.Color
	Error      lipgloss.Color
	Muted      lipgloss.Color
	Backlog    lipgloss.Color
	Analysis   lipgloss.Color
	InProgress lipgloss.Color
	Testing    lipgloss.Color
	CodeReview lipgloss.Color
	Done       lipgloss.Color
}{
	Info:       lipgloss.Color("#74B9FF"), // Light blue
	Warn:       lipgloss.Color("#FDCB6E"), // Yellow
	Error:      lipgloss.Color("#D63031"), // Red
	Muted:      lipgloss.Color("#636E72"), // Gray
	Backlog:    lipgloss.Color("#74B9FF"),
	Analysis:   lipgloss.Color("#A29BFE"), // Lavender
	InProgress: lipgloss.Color("#FDCB6E"),
	Testing:    lipgloss.Color("#FAB1A0"), // Peach
	CodeReview: lipgloss.Color("#6C5CE7"), // Purple
	Done:       lipgloss.Color("#00B894"), // Green
}

// Styles holds the lipgloss styles bound to one output.
type Styles struct {
	renderer *lipgloss.Renderer
	label    map[domain.NoticeLevel]lipgloss.Style
	status   map[domain.Status]lipgloss.Style
	muted    lipgloss.Style
}

// NewStyles creates styles for w. Color is only emitted when w is a terminal.
func NewStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	label := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(c)
	}
	fg := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().Foreground(c)
	}
	return &Styles{
		renderer: r,
		label: map[domain.NoticeLevel]lipgloss.Style{
			domain.NoticeInfo:  label(Colors.Info),
			domain.NoticeWarn:  label(Colors.Warn),
			domain.NoticeError: label(Colors.Error),
		},
		status: map[domain.Status]lipgloss.Style{
			domain.StatusBacklog:    fg(Colors.Backlog),
			domain.StatusAnalysis:   fg(Colors.Analysis),
			domain.StatusInProgress: fg(Colors.InProgress),
			domain.StatusTesting:    fg(Colors.Testing),
			domain.StatusCodeReview: fg(Colors.CodeReview),
			domain.StatusDone:       fg(Colors.Done),
		},
		muted: fg(Colors.Muted),
	}
}

// Status renders a status label.
func (s *Styles) Status(status domain.Status) string {
	style, ok := s.status[status]
	if !ok {
		return string(status)
	}
	return style.Render(string(status))
}

// Muted renders secondary text.
func (s *Styles) Muted(text string) string {
	return s.muted.Render(text)
}

// Level renders a notice level tag such as "[warn]".
func (s *Styles) Level(level domain.NoticeLevel) string {
	tag := "[" + string(level) + "]"
	style, ok := s.label[level]
	if !ok {
		return tag
	}
	return style.Render(tag)
}

// Printer writes notices to a terminal and mirrors them to the log.
type Printer struct {
	w      io.Writer
	styles *Styles
	logger domain.Logger
	mu     sync.Mutex
}

// NewPrinter creates a notifier writing to w. logger may be nil.
func NewPrinter(w io.Writer, logger domain.Logger) *Printer {
	return &Printer{w: w, styles: NewStyles(w), logger: logger}
}

// Notify prints one notice:
//
//	[warn] task #3: manual action required
//	  in_progress -> testing has no automatic command
func (p *Printer) Notify(n domain.Notice) {
	level := n.Level
	if level == "" {
		level = domain.NoticeInfo
	}

	head := n.Title
	if n.TaskID > 0 {
		head = fmt.Sprintf("task #%d: %s", n.TaskID, n.Title)
	}

	p.mu.Lock()
	_, _ = fmt.Fprintf(p.w, "%s %s\n", p.styles.Level(level), head)
	if n.Message != "" {
		_, _ = fmt.Fprintf(p.w, "  %s\n", p.styles.Muted(n.Message))
	}
	p.mu.Unlock()

	if p.logger == nil {
		return
	}
	line := head
	if n.Message != "" {
		line += ": " + n.Message
	}
	switch level {
	case domain.NoticeError:
		p.logger.Error(n.TaskID, "notice", line)
	case domain.NoticeWarn:
		p.logger.Warn(n.TaskID, "notice", line)
	default:
		p.logger.Info(n.TaskID, "notice", line)
	}
}
