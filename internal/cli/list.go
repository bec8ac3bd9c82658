package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/ui"
)

var cmdList = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List instances reachable through SSM",
	Long: `List the instances with an online SSM agent for the selected profile,
sorted by name. Favorites are starred.

Examples:
  bssm list
  bssm list -p prod -r eu-west-1
  bssm list --json | jq '.[].id'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		_, instances, err := e.instances(cmd.Context())
		if err != nil {
			return err
		}
		if OutputJSON() {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(instances)
		}
		favorites := map[string]bool{}
		if st, err := e.store(); err == nil {
			favorites = favoriteIDs(st)
		}
		ui.RenderTable(cmd.OutOrStdout(), instances, favorites)
		return nil
	},
}
