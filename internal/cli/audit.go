package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/audit"
)

var auditLimit int

var cmdAudit = &cobra.Command{
	Use:   "audit",
	Short: "View the session audit log",
	Long: `Display the session audit log showing connect/disconnect events.

The audit log records:
  - Session start times and a session id
  - Profile, region, instance and session mode
  - Duration, exit code and errors

Set auditEnabled: false in the config file to stop recording.

Examples:
  bssm audit             # Show last 50 entries
  bssm audit -n 10       # Show last 10 entries
  bssm audit --json      # JSON output`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := audit.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to determine audit log path: %w", err)
		}
		entries, err := audit.ReadEntries(path, auditLimit)
		if err != nil {
			return err
		}

		if OutputJSON() {
			if entries == nil {
				entries = []audit.Entry{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		w := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(w, "No audit entries found.")
			return nil
		}
		fmt.Fprintln(w, "Session Audit Log:")
		fmt.Fprintln(w)
		for _, e := range entries {
			ts := e.Timestamp.Format("2006-01-02 15:04:05")
			target := displayName(e.Instance, e.InstanceID)
			switch e.Action {
			case audit.ActionConnect:
				fmt.Fprintf(w, "  %s  [CONNECT]     %s -> %s (%s, %s)\n", ts, e.Profile, target, e.InstanceID, e.Mode)
			case audit.ActionDisconnect:
				fmt.Fprintf(w, "  %s  [DISCONNECT]  %s -> %s (duration: %s, exit: %d)\n", ts, e.Profile, target, e.Duration, e.ExitCode)
			case audit.ActionError:
				fmt.Fprintf(w, "  %s  [ERROR]       %s -> %s: %s\n", ts, e.Profile, target, e.Error)
			}
		}
		return nil
	},
}

func init() {
	cmdAudit.Flags().IntVarP(&auditLimit, "limit", "n", 50, "number of entries to show")
}
