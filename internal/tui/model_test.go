package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/session"
)

func testModel() *Model {
	return New(Options{
		Title: "bssm",
		Instances: []catalog.Instance{
			{ID: "i-1", Name: "api", PrivateIP: "10.0.0.1"},
			{ID: "i-2", Name: "db", PrivateIP: "10.0.0.2"},
			{ID: "i-3", Name: "web", PrivateIP: "10.0.0.3"},
		},
		Favorites: map[string]bool{"i-2": true},
		Recent:    []string{"i-3", "i-gone", "i-1"},
	})
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyMsg(k))
	}
	return cmd
}

func visibleIDs(m *Model) []string {
	ids := make([]string, len(m.visible))
	for i, inst := range m.visible {
		ids[i] = inst.ID
	}
	return ids
}

func TestTabsFilter(t *testing.T) {
	m := testModel()
	if got := strings.Join(visibleIDs(m), ","); got != "i-1,i-2,i-3" {
		t.Fatalf("all tab = %s", got)
	}

	press(m, "tab")
	if got := strings.Join(visibleIDs(m), ","); got != "i-2" {
		t.Errorf("favorites tab = %s", got)
	}

	press(m, "tab")
	if got := strings.Join(visibleIDs(m), ","); got != "i-3,i-1" {
		t.Errorf("recent tab = %s", got)
	}

	press(m, "tab")
	if m.tab != tabAll {
		t.Errorf("tab did not wrap, got %d", m.tab)
	}
}

func TestSearchNarrowsList(t *testing.T) {
	m := testModel()
	press(m, "/")
	if !m.searching {
		t.Fatal("expected search mode")
	}
	press(m, "1", "0", ".", "0", ".", "0", ".", "3")
	if got := strings.Join(visibleIDs(m), ","); got != "i-3" {
		t.Errorf("search result = %s", got)
	}
	press(m, "enter")
	if m.searching || m.searchQuery != "10.0.0.3" {
		t.Errorf("search not applied: searching=%v query=%q", m.searching, m.searchQuery)
	}

	// esc in the list clears the query first
	press(m, "esc")
	if m.quitting || len(m.visible) != 3 {
		t.Errorf("esc should clear the search, quitting=%v visible=%d", m.quitting, len(m.visible))
	}
}

func TestConnectSetsChoice(t *testing.T) {
	m := testModel()
	cmd := press(m, "down", "enter")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	c := m.Choice()
	if c == nil || c.Instance.ID != "i-2" || c.Mode != session.ModeInteractive {
		t.Errorf("choice = %+v", c)
	}
}

func TestForwardSetsMode(t *testing.T) {
	m := testModel()
	press(m, "p")
	if c := m.Choice(); c == nil || c.Mode != session.ModePortForward || c.Instance.ID != "i-1" {
		t.Errorf("choice = %+v", c)
	}
}

func TestQuitWithoutChoice(t *testing.T) {
	m := testModel()
	press(m, "q")
	if !m.quitting || m.Choice() != nil {
		t.Errorf("quit: quitting=%v choice=%+v", m.quitting, m.Choice())
	}
}

func TestToggleFavorite(t *testing.T) {
	var persisted []string
	m := testModel()
	m.opts.ToggleFavorite = func(inst catalog.Instance, fav bool) error {
		if fav {
			persisted = append(persisted, "+"+inst.ID)
		} else {
			persisted = append(persisted, "-"+inst.ID)
		}
		return nil
	}

	cmd := press(m, "f")
	m.Update(cmd())
	if !m.favorites["i-1"] {
		t.Error("i-1 should be a favorite")
	}

	press(m, "down")
	cmd = press(m, "f")
	m.Update(cmd())
	if m.favorites["i-2"] {
		t.Error("i-2 should no longer be a favorite")
	}
	if strings.Join(persisted, ",") != "+i-1,-i-2" {
		t.Errorf("persisted = %v", persisted)
	}
}

func TestToggleFavoriteError(t *testing.T) {
	m := testModel()
	m.opts.ToggleFavorite = func(catalog.Instance, bool) error { return errors.New("disk full") }
	cmd := press(m, "f")
	m.Update(cmd())
	if m.favorites["i-1"] || !strings.Contains(m.statusMessage, "disk full") {
		t.Errorf("favorites=%v status=%q", m.favorites, m.statusMessage)
	}
}

func TestViewRenders(t *testing.T) {
	m := testModel()
	if got := m.View(); !strings.Contains(got, "Initializing") {
		t.Errorf("View() before size = %q", got)
	}
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	out := m.View()
	for _, want := range []string{"bssm", "api", "i-1", "10.0.0.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	tests := map[time.Duration]string{
		30 * time.Second: "just now",
		5 * time.Minute:  "5 minutes ago",
		3 * time.Hour:    "3 hours ago",
		30 * time.Hour:   "1 day ago",
		72 * time.Hour:   "3 days ago",
	}
	for d, want := range tests {
		if got := formatAge(d); got != want {
			t.Errorf("formatAge(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestViewHeaderShowsTabs(t *testing.T) {
	m := testModel()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	header := m.viewHeader()
	for _, name := range tabNames {
		if !strings.Contains(header, name) {
			t.Errorf("header missing tab %q", name)
		}
	}
	m.searching = true
	if out := m.View(); out == m.viewMainScreen() {
		t.Error("search mode should render its own screen")
	}
}

func TestLoadingModel(t *testing.T) {
	m := newLoadingModel("loading instances")
	if m.Init() == nil {
		t.Error("Init should start the spinner")
	}
	if !strings.Contains(m.View(), "loading instances") {
		t.Errorf("View() = %q", m.View())
	}
	next, cmd := m.Update(loadedMsg{})
	if cmd == nil {
		t.Fatal("loadedMsg should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if next.View() != "" {
		t.Errorf("finished view = %q", next.View())
	}
}

func TestSpinWaitsForWork(t *testing.T) {
	ran := false
	var out strings.Builder
	Spin(context.Background(), &out, "loading", func() {
		time.Sleep(20 * time.Millisecond)
		ran = true
	})
	if !ran {
		t.Error("Spin returned before work finished")
	}
}
