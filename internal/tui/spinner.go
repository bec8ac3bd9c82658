package tui

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vee-sh/bssm/internal/logging"
)

type loadedMsg struct{}

// loadingModel draws a single spinner line until loadedMsg arrives.
type loadingModel struct {
	spinner spinner.Model
	label   string
	done    bool
}

func newLoadingModel(label string) loadingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7571F9"))
	return loadingModel{spinner: s, label: label}
}

func (m loadingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m loadingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m loadingModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.label + "\n"
}

// Spin runs work while a spinner labelled label is drawn on out. Input is not
// read, so Ctrl+C still reaches ctx through the signal handler. Spin returns
// once work has returned.
func Spin(ctx context.Context, out io.Writer, label string, work func()) {
	p := tea.NewProgram(newLoadingModel(label),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		work()
		p.Send(loadedMsg{})
	}()
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		logging.Logger().Debugf("spinner: %v", err)
	}
	<-finished
}
