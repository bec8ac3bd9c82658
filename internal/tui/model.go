package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/session"
)

// Tabs
type viewTab int

const (
	tabAll viewTab = iota
	tabFavorites
	tabRecent
)

var tabNames = []string{"Instances", "Favorites", "Recent"}

// Choice is what the operator picked when the browser closed.
type Choice struct {
	Instance catalog.Instance
	Mode     session.Mode
}

// Options seeds the browser.
type Options struct {
	Title     string
	Instances []catalog.Instance
	Favorites map[string]bool
	// Recent lists instance IDs, most recent first.
	Recent []string
	// ToggleFavorite persists a favorite change. Optional.
	ToggleFavorite func(inst catalog.Instance, favorite bool) error
}

// Model is the instance browser state.
type Model struct {
	opts Options

	tab           viewTab
	searching     bool
	width         int
	height        int
	ready         bool
	quitting      bool
	showHelp      bool
	statusMessage string

	all           []catalog.Instance
	visible       []catalog.Instance
	favorites     map[string]bool
	selectedIndex int
	searchQuery   string
	choice        *Choice

	searchInput textinput.Model
	help        help.Model
	keys        keyMap
	styles      *styles
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
	Search   key.Binding
	Favorite key.Binding
	Connect  key.Binding
	Forward  key.Binding
	Help     key.Binding
	Quit     key.Binding
	Cancel   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Forward, k.Search, k.Favorite, k.Tab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Tab, k.ShiftTab, k.Search, k.Cancel},
		{k.Connect, k.Forward, k.Favorite},
		{k.Help, k.Quit},
	}
}

type styles struct {
	Header         lipgloss.Style
	Footer         lipgloss.Style
	ActiveTab      lipgloss.Style
	InactiveTab    lipgloss.Style
	ListPane       lipgloss.Style
	DetailPane     lipgloss.Style
	SelectedItem   lipgloss.Style
	UnselectedItem lipgloss.Style
	FavoriteIcon   lipgloss.Style
	Title          lipgloss.Style
	Subtitle       lipgloss.Style
	Label          lipgloss.Style
	Value          lipgloss.Style
	Error          lipgloss.Style
	Success        lipgloss.Style
	SearchBox      lipgloss.Style
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next tab"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev tab"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Favorite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "favorite"),
		),
		Connect: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect"),
		),
		Forward: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "port forward"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

func defaultStyles() *styles {
	primary := lipgloss.Color("#7571F9")
	success := lipgloss.Color("#71F9A5")
	warning := lipgloss.Color("#F9E871")
	danger := lipgloss.Color("#F97171")
	muted := lipgloss.Color("#6B7280")
	bg := lipgloss.Color("#1F2937")
	bgLight := lipgloss.Color("#374151")
	text := lipgloss.Color("#F3F4F6")
	textDim := lipgloss.Color("#9CA3AF")

	border := lipgloss.RoundedBorder()

	return &styles{
		Header: lipgloss.NewStyle().
			Foreground(text).
			Background(bgLight).
			Bold(true).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Foreground(textDim).
			Background(bgLight).
			Padding(0, 1),
		ActiveTab: lipgloss.NewStyle().
			Foreground(primary).
			Background(bg).
			Bold(true).
			Padding(0, 2),
		InactiveTab: lipgloss.NewStyle().
			Foreground(textDim).
			Padding(0, 2),
		ListPane: lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(muted).
			Padding(0, 1),
		DetailPane: lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(muted).
			Padding(0, 1),
		SelectedItem: lipgloss.NewStyle().
			Foreground(text).
			Background(primary).
			Bold(true).
			Padding(0, 1),
		UnselectedItem: lipgloss.NewStyle().
			Foreground(text).
			Padding(0, 1),
		FavoriteIcon: lipgloss.NewStyle().
			Foreground(warning).
			SetString("★"),
		Title: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		Subtitle: lipgloss.NewStyle().
			Foreground(textDim),
		Label: lipgloss.NewStyle().
			Foreground(textDim).
			Width(14),
		Value: lipgloss.NewStyle().
			Foreground(text),
		Error: lipgloss.NewStyle().
			Foreground(danger).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(success).
			Bold(true),
		SearchBox: lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(primary).
			Padding(0, 1),
	}
}

func New(opts Options) *Model {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search by name, id, ip..."
	searchInput.CharLimit = 100

	favs := make(map[string]bool, len(opts.Favorites))
	for id, ok := range opts.Favorites {
		if ok {
			favs[id] = true
		}
	}

	m := &Model{
		opts:        opts,
		all:         opts.Instances,
		favorites:   favs,
		searchInput: searchInput,
		help:        help.New(),
		keys:        defaultKeyMap(),
		styles:      defaultStyles(),
	}
	m.filter()
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Choice returns the operator's pick, or nil when they quit without one.
func (m *Model) Choice() *Choice {
	return m.choice
}

// filter rebuilds visible from the active tab and search query.
func (m *Model) filter() {
	var base []catalog.Instance
	switch m.tab {
	case tabFavorites:
		for _, inst := range m.all {
			if m.favorites[inst.ID] {
				base = append(base, inst)
			}
		}
	case tabRecent:
		byID := make(map[string]catalog.Instance, len(m.all))
		for _, inst := range m.all {
			byID[inst.ID] = inst
		}
		for _, id := range m.opts.Recent {
			if inst, ok := byID[id]; ok {
				base = append(base, inst)
			}
		}
	default:
		base = m.all
	}

	q := strings.ToLower(strings.TrimSpace(m.searchQuery))
	m.visible = make([]catalog.Instance, 0, len(base))
	for _, inst := range base {
		if q != "" && !matches(inst, q) {
			continue
		}
		m.visible = append(m.visible, inst)
	}

	if m.selectedIndex >= len(m.visible) {
		m.selectedIndex = len(m.visible) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}

func matches(inst catalog.Instance, q string) bool {
	hay := strings.ToLower(strings.Join([]string{
		inst.Name, inst.ID, inst.PrivateIP, inst.PublicIP, inst.Platform, inst.PlatformName, inst.InstanceType,
	}, " "))
	return strings.Contains(hay, q)
}

func (m *Model) selected() (catalog.Instance, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.visible) {
		return catalog.Instance{}, false
	}
	return m.visible[m.selectedIndex], true
}
