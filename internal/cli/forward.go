package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/session"
	"github.com/vee-sh/bssm/internal/ui"
)

var (
	forwardLocal  int
	forwardRemote int
	forwardHost   string
)

var cmdForward = &cobra.Command{
	Use:     "forward [instance]",
	Aliases: []string{"port-forward", "pf"},
	Short:   "Forward a local port through an instance",
	Long: `Forward a local port to a port on the instance, or with --host to a
host reachable from the instance (a database endpoint, for example).

Ports not given on the command line are asked for.

Examples:
  bssm forward web-1 --remote 80 --local 8080
  bssm forward bastion --host db.internal --remote 5432 --local 15432
  bssm forward                  # Pick an instance, then answer prompts`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		req := session.Request{
			Mode:  session.ModePortForward,
			Ports: session.Ports{Local: forwardLocal, Remote: forwardRemote, Host: forwardHost},
		}
		if forwardHost != "" {
			req.Mode = session.ModeRemotePortForward
		}
		if req.Ports.Local == 0 {
			req.Ports.Local = req.Ports.Remote
		}
		if OutputJSON() && req.Ports.Remote == 0 {
			return fmt.Errorf("--remote is required with --json")
		}

		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		h, inst, err := chooseInstance(ctx, cmd, e, args)
		if err != nil {
			return err
		}
		if req.Ports, err = ui.AskPorts(req.Mode, req.Ports); err != nil {
			return err
		}
		return executeConnection(ctx, e, h, inst, req)
	},
}

func init() {
	var modes []string
	for _, m := range session.Modes() {
		if m != session.ModeInteractive {
			modes = append(modes, string(m))
		}
	}
	cmdForward.Long += "\n\nSession modes: " + strings.Join(modes, ", ")

	cmdForward.Flags().IntVarP(&forwardLocal, "local", "l", 0, "local port (default: same as remote)")
	cmdForward.Flags().IntVarP(&forwardRemote, "remote", "R", 0, "remote port")
	cmdForward.Flags().StringVar(&forwardHost, "host", "", "forward to this host as seen from the instance")
	cmdForward.Flags().BoolVarP(&connectNumbered, "numbered", "n", false, "print a numbered table and ask for a row number")
}
