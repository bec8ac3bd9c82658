package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/session"
)

type statusMsg struct {
	message string
	isError bool
}

type favoriteToggledMsg struct {
	id       string
	favorite bool
	err      error
}

const pageSize = 10

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleMainKeys(msg)

	case statusMsg:
		m.statusMessage = msg.message
		return m, nil

	case favoriteToggledMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Error saving favorite: %v", msg.err)
			return m, nil
		}
		if msg.favorite {
			m.favorites[msg.id] = true
			m.statusMessage = fmt.Sprintf("%s added to favorites", msg.id)
		} else {
			delete(m.favorites, msg.id)
			m.statusMessage = fmt.Sprintf("%s removed from favorites", msg.id)
		}
		m.filter()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleMainKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.searchInput.SetValue("")
			m.filter()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}

	case key.Matches(msg, m.keys.Down):
		if m.selectedIndex < len(m.visible)-1 {
			m.selectedIndex++
		}

	case key.Matches(msg, m.keys.PageUp):
		m.selectedIndex = max(m.selectedIndex-pageSize, 0)

	case key.Matches(msg, m.keys.PageDown):
		m.selectedIndex = max(min(m.selectedIndex+pageSize, len(m.visible)-1), 0)

	case key.Matches(msg, m.keys.Tab):
		m.tab = (m.tab + 1) % viewTab(len(tabNames))
		m.selectedIndex = 0
		m.filter()

	case key.Matches(msg, m.keys.ShiftTab):
		m.tab = (m.tab + viewTab(len(tabNames)) - 1) % viewTab(len(tabNames))
		m.selectedIndex = 0
		m.filter()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Favorite):
		if inst, ok := m.selected(); ok {
			return m, m.toggleFavorite(inst)
		}

	case key.Matches(msg, m.keys.Connect):
		return m.choose(session.ModeInteractive)

	case key.Matches(msg, m.keys.Forward):
		return m.choose(session.ModePortForward)

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.searching = false
		m.searchQuery = ""
		m.searchInput.SetValue("")
		m.searchInput.Blur()
		m.filter()
		return m, nil

	case key.Matches(msg, m.keys.Connect):
		m.searching = false
		m.searchQuery = m.searchInput.Value()
		m.searchInput.Blur()
		m.filter()
		return m, nil

	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		m.searchQuery = m.searchInput.Value()
		m.filter()
		return m, cmd
	}
}

func (m *Model) choose(mode session.Mode) (tea.Model, tea.Cmd) {
	inst, ok := m.selected()
	if !ok {
		m.statusMessage = "Nothing selected"
		return m, nil
	}
	m.choice = &Choice{Instance: inst, Mode: mode}
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) toggleFavorite(inst catalog.Instance) tea.Cmd {
	want := !m.favorites[inst.ID]
	persist := m.opts.ToggleFavorite
	return func() tea.Msg {
		var err error
		if persist != nil {
			err = persist(inst, want)
		}
		return favoriteToggledMsg{id: inst.ID, favorite: want, err: err}
	}
}
