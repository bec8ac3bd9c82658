package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vee-sh/bssm/internal/catalog"
)

// View renders the entire TUI
func (m *Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.quitting {
		return ""
	}
	if m.searching {
		return m.viewSearchMode()
	}
	return m.viewMainScreen()
}

// viewMainScreen renders the main instance picker screen
func (m *Model) viewMainScreen() string {
	var sections []string
	sections = append(sections, m.viewHeader())

	contentHeight := m.height - 4
	listWidth := 40
	detailWidth := m.width - listWidth - 4
	if detailWidth < 30 {
		detailWidth = 30
	}

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.viewListPane(listWidth, contentHeight-2),
		m.viewDetailPane(detailWidth, contentHeight-2),
	)
	sections = append(sections, content)
	sections = append(sections, m.viewFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// viewHeader renders the header with tabs
func (m *Model) viewHeader() string {
	title := m.styles.Title.Render(m.opts.Title)

	tabViews := make([]string, len(tabNames))
	for i, name := range tabNames {
		style := m.styles.InactiveTab
		if viewTab(i) == m.tab {
			style = m.styles.ActiveTab
		}
		tabViews[i] = style.Render(name)
	}

	header := lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", strings.Join(tabViews, ""))
	return m.styles.Header.Width(m.width).Render(header)
}

// viewListPane renders the instance list of the current tab
func (m *Model) viewListPane(width, height int) string {
	var content strings.Builder

	content.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("%s (%d)", tabNames[m.tab], len(m.visible))) + "\n")
	content.WriteString(strings.Repeat("─", max(width-2, 1)) + "\n")

	if len(m.visible) == 0 {
		content.WriteString(m.styles.Subtitle.Render("\nNothing to show\n"))
	}

	visibleHeight := max(height-4, 1)
	startIdx := 0
	if m.selectedIndex >= visibleHeight {
		startIdx = m.selectedIndex - visibleHeight + 1
	}
	endIdx := min(startIdx+visibleHeight, len(m.visible))

	for i := startIdx; i < endIdx; i++ {
		inst := m.visible[i]
		icon := "  "
		if m.favorites[inst.ID] {
			icon = m.styles.FavoriteIcon.Render() + " "
		}
		display := icon + inst.Name
		if i == m.selectedIndex {
			content.WriteString(m.styles.SelectedItem.Width(width - 4).Render("▶ " + display))
		} else {
			content.WriteString(m.styles.UnselectedItem.Width(width - 4).Render("  " + display))
		}
		content.WriteString("\n")
	}

	if startIdx > 0 {
		content.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("  ↑ %d more", startIdx)) + "\n")
	}
	if endIdx < len(m.visible) {
		content.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("  ↓ %d more", len(m.visible)-endIdx)) + "\n")
	}

	return m.styles.ListPane.Width(width).Height(height).Render(content.String())
}

// viewDetailPane renders the selected instance details
func (m *Model) viewDetailPane(width, height int) string {
	var content strings.Builder
	content.WriteString(m.styles.Subtitle.Render("Details") + "\n")
	content.WriteString(strings.Repeat("─", max(width-2, 1)) + "\n")

	inst, ok := m.selected()
	if !ok {
		content.WriteString(m.styles.Subtitle.Render("\nNo instance selected\n"))
		return m.styles.DetailPane.Width(width).Height(height).Render(content.String())
	}

	for _, d := range details(inst) {
		if d[1] == "" {
			continue
		}
		content.WriteString(m.styles.Label.Render(d[0]+":") + m.styles.Value.Render(d[1]) + "\n")
	}
	return m.styles.DetailPane.Width(width).Height(height).Render(content.String())
}

func details(inst catalog.Instance) [][2]string {
	launched := ""
	if !inst.LaunchTime.IsZero() {
		launched = formatAge(time.Since(inst.LaunchTime))
	}
	return [][2]string{
		{"Name", inst.Name},
		{"Instance ID", inst.ID},
		{"State", inst.State},
		{"Type", inst.InstanceType},
		{"Private IP", inst.PrivateIP},
		{"Public IP", inst.PublicIP},
		{"Platform", inst.Platform},
		{"OS", inst.PlatformName},
		{"SSM Agent", inst.AgentVersion},
		{"Ping", inst.PingStatus},
		{"Launched", launched},
	}
}

// viewFooter renders the footer with key hints
func (m *Model) viewFooter() string {
	footer := m.help.View(m.keys)
	if m.statusMessage != "" {
		footer = m.styles.Success.Render(m.statusMessage) + "  " + footer
	}
	return m.styles.Footer.Width(m.width).Render(footer)
}

// viewSearchMode renders the search interface
func (m *Model) viewSearchMode() string {
	var content strings.Builder
	content.WriteString(m.viewHeader())
	content.WriteString("\n\n")

	searchBox := m.styles.SearchBox.Width(60).Render(
		m.styles.Title.Render("Search") + "\n" +
			m.searchInput.View() + "\n\n" +
			m.styles.Subtitle.Render(fmt.Sprintf("%d matching  [Enter] apply  [Esc] clear", len(m.visible))),
	)
	content.WriteString(lipgloss.Place(m.width, max(m.height-6, 1), lipgloss.Center, lipgloss.Center, searchBox))
	content.WriteString("\n")
	content.WriteString(m.viewFooter())
	return content.String()
}

// formatAge formats a duration as a short age
func formatAge(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
