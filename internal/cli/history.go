package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/state"
)

var (
	historyLimit int
	historyClear bool
)

var cmdHistory = &cobra.Command{
	Use:   "history",
	Short: "Show recently connected instances",
	Long: `Display the instances you connected to most recently, newest first.
The history keeps one entry per instance, up to maxHistory entries.

Examples:
  bssm history            # Show recent connections
  bssm history -n 5       # Show the last 5
  bssm history --clear    # Forget all entries
  bssm history --json     # JSON output`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		st, err := e.store()
		if err != nil {
			return err
		}

		if historyClear {
			if err := st.ClearHistory(); err != nil {
				return err
			}
			e.rep.Success("history cleared")
			return nil
		}

		entries, err := st.History()
		if err != nil {
			return err
		}
		if historyLimit > 0 && historyLimit < len(entries) {
			entries = entries[:historyLimit]
		}
		return showHistory(cmd, entries)
	},
}

func showHistory(cmd *cobra.Command, entries []state.HistoryEntry) error {
	if OutputJSON() {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No connection history.")
		return nil
	}
	fmt.Fprintln(w, "Recent connections:")
	fmt.Fprintln(w)
	for _, h := range entries {
		mode := h.Mode
		if mode == "" {
			mode = "interactive"
		}
		fmt.Fprintf(w, "  %-24s  %-20s  %-12s  %-19s  %s\n",
			displayName(h.InstanceName, "-"),
			h.InstanceID,
			h.Profile,
			mode,
			formatTimeAgo(h.ConnectedAt),
		)
	}
	return nil
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	d := time.Since(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	cmdHistory.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of entries to show (0 for all)")
	cmdHistory.Flags().BoolVar(&historyClear, "clear", false, "clear the history")
}
