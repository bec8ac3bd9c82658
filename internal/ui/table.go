package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vee-sh/bssm/internal/catalog"
)

var tableHeaders = []string{"#", "NAME", "INSTANCE ID", "STATE", "TYPE", "PRIVATE IP", "PLATFORM"}

const (
	colState = 3
)

// RenderTable writes the instance table to w. Colour is only used when w
// is a terminal. Favorites are marked with a star.
func RenderTable(w io.Writer, instances []catalog.Instance, favorites map[string]bool) {
	r := lipgloss.NewRenderer(w)
	if len(instances) == 0 {
		fmt.Fprintln(w, r.NewStyle().Foreground(lipgloss.Color("#F9E871")).Render("No SSM-reachable instances."))
		return
	}

	header := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7571F9")).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	stateStyles := map[string]lipgloss.Style{
		"running": cell.Foreground(lipgloss.Color("#71F9A5")),
		"stopped": cell.Foreground(lipgloss.Color("#F97171")),
	}
	other := cell.Foreground(lipgloss.Color("#F9E871"))

	rows := make([][]string, 0, len(instances))
	for i, inst := range instances {
		name := inst.Name
		if favorites[inst.ID] {
			name = "★ " + name
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1), name, inst.ID, inst.State, inst.InstanceType, inst.PrivateIP, inst.Platform,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers(tableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == colState && row >= 0 && row < len(instances) {
				if st, ok := stateStyles[instances[row].State]; ok {
					return st
				}
				return other
			}
			return cell
		})

	fmt.Fprintf(w, "SSM-reachable instances (%d)\n", len(instances))
	fmt.Fprintln(w, t.Render())
}
