package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/state"
)

var cmdFavorite = &cobra.Command{
	Use:     "favorite",
	Aliases: []string{"fav"},
	Short:   "Manage favorite instances",
}

var cmdFavoriteAdd = &cobra.Command{
	Use:   "add <instance>",
	Short: "Mark an instance as favorite",
	Long: `Mark an instance as favorite. The instance may be an ID or a name; names
are looked up in the catalog of the selected profile.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		st, err := e.store()
		if err != nil {
			return err
		}

		fav := state.Favorite{InstanceID: args[0], Profile: e.profile.Name, AddedAt: time.Now()}
		if isInstanceID(args[0]) {
			if known, err := st.IsFavorite(args[0]); err == nil && known {
				e.rep.Info("%s is already a favorite", args[0])
				return nil
			}
		} else {
			// a name needs the catalog to find its ID
			_, instances, err := e.instances(cmd.Context())
			if err != nil {
				return err
			}
			inst, ok := catalog.Find(instances, args[0])
			if !ok {
				return fmt.Errorf("no online instance matches %q", args[0])
			}
			fav.InstanceID, fav.Name = inst.ID, inst.Name
		}

		added, err := st.AddFavorite(fav)
		if err != nil {
			return err
		}
		if !added {
			e.rep.Info("%s is already a favorite", fav.InstanceID)
			return nil
		}
		e.rep.Success("favorited %s", displayName(fav.Name, fav.InstanceID))
		return nil
	},
}

func isInstanceID(s string) bool {
	return strings.HasPrefix(s, "i-") || strings.HasPrefix(s, "mi-")
}

var cmdFavoriteRemove = &cobra.Command{
	Use:     "remove <instance>",
	Aliases: []string{"rm"},
	Short:   "Remove an instance from favorites",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		st, err := e.store()
		if err != nil {
			return err
		}
		favs, err := st.Favorites()
		if err != nil {
			return err
		}

		id := args[0]
		for _, f := range favs {
			if strings.EqualFold(f.Name, args[0]) {
				id = f.InstanceID
				break
			}
		}
		removed, err := st.RemoveFavorite(id)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%q is not a favorite", args[0])
		}
		e.rep.Success("removed %s from favorites", args[0])
		return nil
	},
}

var cmdFavoriteList = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List favorite instances",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		st, err := e.store()
		if err != nil {
			return err
		}
		favs, err := st.Favorites()
		if err != nil {
			return err
		}

		if OutputJSON() {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(favs)
		}
		w := cmd.OutOrStdout()
		if len(favs) == 0 {
			fmt.Fprintln(w, "No favorites. Add one with: bssm favorite add <instance>")
			return nil
		}
		for _, f := range favs {
			profile := ""
			if f.Profile != "" {
				profile = " [" + f.Profile + "]"
			}
			fmt.Fprintf(w, "  ★ %-28s %s%s\n", displayName(f.Name, "-"), f.InstanceID, profile)
		}
		return nil
	},
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func init() {
	cmdFavorite.AddCommand(cmdFavoriteAdd)
	cmdFavorite.AddCommand(cmdFavoriteRemove)
	cmdFavorite.AddCommand(cmdFavoriteList)
}
