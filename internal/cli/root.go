package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/logging"
	"github.com/vee-sh/bssm/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "bssm",
	Short: "Connect to EC2 instances through AWS Systems Manager",
	Long: `bssm - Connect to EC2 instances through AWS Systems Manager.

Lists the instances SSM can reach for an AWS profile and opens a shell or a
port-forward to one of them. Expired SSO sessions are refreshed with
"aws sso login" before anything else happens.

Run without arguments to pick an instance interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

// Execute is the entrypoint for the Cobra command tree.
func Execute() error {
	addSubcommands()
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.Version = version.String()
	rootCmd.SetVersionTemplate(versionTemplate)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func addSubcommands() {
	rootCmd.AddCommand(cmdConnect)
	rootCmd.AddCommand(cmdList)
	rootCmd.AddCommand(cmdForward)
	rootCmd.AddCommand(cmdWhoami)
	rootCmd.AddCommand(cmdFavorite)
	rootCmd.AddCommand(cmdHistory)
	rootCmd.AddCommand(cmdAudit)
	rootCmd.AddCommand(cmdDoctor)
	rootCmd.AddCommand(cmdTUI)
	rootCmd.AddCommand(cmdCreds)
	rootCmd.AddCommand(cmdSSHConfig)
	rootCmd.AddCommand(cmdConfig)
	rootCmd.AddCommand(cmdCompletion)
	rootCmd.AddCommand(cmdVersion)
}

var (
	flagProfile      string
	flagRegion       string
	flagJSON         bool
	flagDebug        bool
	flagVersionShort bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagProfile, "profile", "p", "", "AWS profile (default: config defaultProfile, $AWS_PROFILE, then \"default\")")
	pf.StringVarP(&flagRegion, "region", "r", "", "AWS region (default: from the profile)")
	pf.BoolVar(&flagJSON, "json", false, "output JSON where supported")
	pf.BoolVarP(&flagDebug, "debug", "d", false, "enable debug logging")
	pf.BoolVarP(&flagVersionShort, "version", "v", false, "show version and exit")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if flagVersionShort {
			fmt.Fprint(cmd.OutOrStdout(), renderVersion())
			os.Exit(0)
		}
		if flagDebug {
			logging.SetDebug(true)
		}
		return nil
	}
	rootCmd.Flags().BoolVarP(&connectNumbered, "numbered", "n", false, "print a numbered table and ask for a row number")
}

func OutputJSON() bool { return flagJSON }

const versionTemplate = `{{.Name}} {{.Version}}

  _____
 |  _  |  bssm
 | |_| |  {{.Version}}
 |_____|

`

func renderVersion() string {
	return fmt.Sprintf(`%s %s

  _____
 |  _  |  bssm
 | |_| |  %s
 |_____|

`, rootCmd.Name(), rootCmd.Version, rootCmd.Version)
}
