package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/session"
	"github.com/vee-sh/bssm/internal/state"
	"github.com/vee-sh/bssm/internal/tui"
	"github.com/vee-sh/bssm/internal/ui"
)

var cmdTUI = &cobra.Command{
	Use:   "tui",
	Short: "Browse instances in a full-screen interface",
	Long: `Launch the Terminal User Interface over the reachable instances.

The TUI provides an interactive way to:
  - Browse and search instances by name, ID or IP
  - Switch between all, favorite and recent instances
  - Toggle favorites
  - Open a shell (enter) or a port-forward (p) on the selection`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		h, instances, err := e.instances(ctx)
		if err != nil {
			return err
		}
		st, err := e.store()
		if err != nil {
			return err
		}

		var recent []string
		if hist, err := st.History(); err == nil {
			for _, entry := range hist {
				recent = append(recent, entry.InstanceID)
			}
		}

		model := tui.New(tui.Options{
			Title:     fmt.Sprintf("bssm · %s", h.ProfileName),
			Instances: instances,
			Favorites: favoriteIDs(st),
			Recent:    recent,
			ToggleFavorite: func(inst catalog.Instance, fav bool) error {
				if !fav {
					_, err := st.RemoveFavorite(inst.ID)
					return err
				}
				_, err := st.AddFavorite(state.Favorite{
					InstanceID: inst.ID,
					Name:       inst.Name,
					Profile:    h.ProfileName,
					AddedAt:    time.Now(),
				})
				return err
			},
		})

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("TUI error: %w", err)
		}

		choice := model.Choice()
		if choice == nil {
			return nil
		}
		req := session.Request{Mode: choice.Mode}
		if req.Mode != session.ModeInteractive {
			if req.Ports, err = ui.AskPorts(req.Mode, req.Ports); err != nil {
				return err
			}
		}
		return executeConnection(ctx, e, h, choice.Instance, req)
	},
}
