package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level classifies a message shown to the operator.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
	LevelHint
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Reporter is the operator-facing output channel handed to every component.
type Reporter interface {
	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	// Hint prints a heading followed by numbered remediation steps.
	Hint(title string, steps ...string)
}

type styles struct {
	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	hint    lipgloss.Style
	step    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	primary := lipgloss.Color("#7571F9")
	success := lipgloss.Color("#71F9A5")
	warning := lipgloss.Color("#F9E871")
	danger := lipgloss.Color("#F97171")
	textDim := lipgloss.Color("#9CA3AF")

	return styles{
		info:    r.NewStyle().Foreground(primary),
		success: r.NewStyle().Foreground(success).Bold(true),
		warn:    r.NewStyle().Foreground(warning).Bold(true),
		err:     r.NewStyle().Foreground(danger).Bold(true),
		hint:    r.NewStyle().Foreground(warning),
		step:    r.NewStyle().Foreground(textDim).PaddingLeft(2),
	}
}

// Console writes styled messages to a terminal. Colour is dropped
// automatically when the writer is not a TTY or NO_COLOR is set.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
}

func NewConsole(w io.Writer) *Console {
	return &Console{out: w, styles: newStyles(lipgloss.NewRenderer(w))}
}

func (c *Console) Info(format string, args ...any) {
	c.line(c.styles.info, "i ", format, args...)
}

func (c *Console) Success(format string, args ...any) {
	c.line(c.styles.success, "✓ ", format, args...)
}

func (c *Console) Warn(format string, args ...any) {
	c.line(c.styles.warn, "! ", format, args...)
}

func (c *Console) Error(format string, args ...any) {
	c.line(c.styles.err, "✗ ", format, args...)
}

func (c *Console) Hint(title string, steps ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.styles.hint.Render(title))
	for i, s := range steps {
		fmt.Fprintln(c.out, c.styles.step.Render(fmt.Sprintf("%d. %s", i+1, s)))
	}
}

func (c *Console) line(st lipgloss.Style, icon, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, st.Render(icon+fmt.Sprintf(format, args...)))
}

// Message is one captured report line.
type Message struct {
	Level Level
	Text  string
	Steps []string
}

// Recorder keeps every message in memory. Used by tests and by callers that
// want to render messages themselves.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) add(l Level, text string, steps []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Level: l, Text: text, Steps: steps})
}

func (r *Recorder) Info(format string, args ...any) {
	r.add(LevelInfo, fmt.Sprintf(format, args...), nil)
}

func (r *Recorder) Success(format string, args ...any) {
	r.add(LevelSuccess, fmt.Sprintf(format, args...), nil)
}

func (r *Recorder) Warn(format string, args ...any) {
	r.add(LevelWarn, fmt.Sprintf(format, args...), nil)
}

func (r *Recorder) Error(format string, args ...any) {
	r.add(LevelError, fmt.Sprintf(format, args...), nil)
}

func (r *Recorder) Hint(title string, steps ...string) {
	r.add(LevelHint, title, append([]string(nil), steps...))
}

// Count returns how many messages were recorded at level l.
func (r *Recorder) Count(l Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.Messages {
		if m.Level == l {
			n++
		}
	}
	return n
}

// Contains reports whether any message at level l contains substr, either
// in its text or in one of its steps.
func (r *Recorder) Contains(l Level, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.Messages {
		if m.Level != l {
			continue
		}
		if strings.Contains(m.Text, substr) {
			return true
		}
		for _, s := range m.Steps {
			if strings.Contains(s, substr) {
				return true
			}
		}
	}
	return false
}

// Replay sends every recorded message to to, in order.
func (r *Recorder) Replay(to Reporter) {
	r.mu.Lock()
	msgs := append([]Message(nil), r.Messages...)
	r.mu.Unlock()
	for _, m := range msgs {
		switch m.Level {
		case LevelInfo:
			to.Info("%s", m.Text)
		case LevelSuccess:
			to.Success("%s", m.Text)
		case LevelWarn:
			to.Warn("%s", m.Text)
		case LevelError:
			to.Error("%s", m.Text)
		case LevelHint:
			to.Hint(m.Text, m.Steps...)
		}
	}
}

// Discard drops everything. JSON output mode uses it so stdout stays clean.
type Discard struct{}

func (Discard) Info(string, ...any)    {}
func (Discard) Success(string, ...any) {}
func (Discard) Warn(string, ...any)    {}
func (Discard) Error(string, ...any)   {}
func (Discard) Hint(string, ...string) {}
