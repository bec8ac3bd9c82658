package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vee-sh/bssm/internal/config"
)

var cmdConfig = &cobra.Command{
	Use:   "config",
	Short: "Show or change bssm settings",
}

var cmdConfigShow = &cobra.Command{
	Use:   "show",
	Short: "Print effective settings (file plus environment overrides)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		if OutputJSON() {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(settings)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(settings)
	},
}

var cmdConfigPath = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var cmdConfigSet = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting in the config file",
	Long: `Change a setting in the config file. Environment overrides are not
written back.

Keys: auditEnabled, credentialsBackend, defaultProfile, defaultRegion,
maxHistory, preferFZF`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.Keys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
		settings, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := settings.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(path, settings); err != nil {
			return err
		}
		newReporter(cmd).Success("%s set in %s", args[0], path)
		return nil
	},
}

func init() {
	cmdConfig.AddCommand(cmdConfigShow)
	cmdConfig.AddCommand(cmdConfigPath)
	cmdConfig.AddCommand(cmdConfigSet)
}
