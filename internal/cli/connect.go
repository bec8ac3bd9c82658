package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/awsauth"
	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/session"
	"github.com/vee-sh/bssm/internal/ui"
)

var connectNumbered bool

var cmdConnect = &cobra.Command{
	Use:   "connect [instance]",
	Short: "Open an interactive shell on an instance",
	Long: `Open an interactive SSM shell on an instance.

The instance may be given as an ID or a name (case-insensitive). Without
one, pick from the reachable instances; favorites are listed first.

Examples:
  bssm connect                  # Pick interactively
  bssm connect web-1            # Connect by name
  bssm connect i-0abc123 -p dev # Connect by ID with the dev profile
  bssm connect -n               # Numbered table prompt instead of a picker`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func init() {
	cmdConnect.Flags().BoolVarP(&connectNumbered, "numbered", "n", false, "print a numbered table and ask for a row number")
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	h, inst, err := chooseInstance(ctx, cmd, e, args)
	if err != nil {
		return err
	}
	return executeConnection(ctx, e, h, inst, session.Request{Mode: session.ModeInteractive})
}

// chooseInstance resolves credentials, lists the fleet and selects the
// target named in args, or asks the operator for one.
func chooseInstance(ctx context.Context, cmd *cobra.Command, e *env, args []string) (awsauth.SessionHandle, catalog.Instance, error) {
	h, instances, err := e.instances(ctx)
	if err != nil {
		return h, catalog.Instance{}, err
	}
	if len(instances) == 0 {
		e.rep.Hint("Instances appear here once they are running, have the SSM agent online and an instance profile allowing SSM:",
			"aws ssm describe-instance-information --profile "+h.ProfileName)
		return h, catalog.Instance{}, reported(ui.ErrNoInstances, 1)
	}

	if len(args) == 1 {
		inst, ok := catalog.Find(instances, args[0])
		if !ok {
			return h, catalog.Instance{}, fmt.Errorf("no online instance matches %q", args[0])
		}
		return h, inst, nil
	}

	favorites := map[string]bool{}
	if st, err := e.store(); err == nil {
		favorites = favoriteIDs(st)
	}

	var inst catalog.Instance
	if connectNumbered {
		ordered := ui.FavoritesFirst(instances, favorites)
		ui.RenderTable(cmd.OutOrStdout(), ordered, favorites)
		inst, err = ui.AskIndex(ordered)
	} else {
		inst, err = ui.PickInstance(ctx, instances, favorites, e.settings.PreferFZF)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return h, catalog.Instance{}, context.Canceled
		}
		return h, catalog.Instance{}, err
	}
	return h, inst, nil
}
