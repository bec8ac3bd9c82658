package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var cmdWhoami = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"test-auth"},
	Short:   "Check credentials and show the caller identity",
	Long: `Validate the credentials of the selected profile, refreshing an expired
SSO session if needed, and print the identity AWS sees.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		r := e.resolver()
		h, err := e.resolve(ctx)
		if err != nil {
			return err
		}
		id, err := r.Identity(ctx, h)
		if err != nil {
			return fmt.Errorf("get caller identity: %w", err)
		}

		if OutputJSON() {
			out := struct {
				Profile string `json:"profile"`
				Region  string `json:"region,omitempty"`
				Account string `json:"account"`
				Arn     string `json:"arn"`
				UserID  string `json:"userId"`
				Source  string `json:"source,omitempty"`
			}{h.ProfileName, h.EffectiveRegion(), id.Account, id.Arn, id.UserID, ""}
			if h.Keys != nil {
				out.Source = h.Keys.Source
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		e.rep.Success("credentials for profile %q are valid", h.ProfileName)
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "  Profile:  %s\n", h.ProfileName)
		if region := h.EffectiveRegion(); region != "" {
			fmt.Fprintf(w, "  Region:   %s\n", region)
		}
		fmt.Fprintf(w, "  Account:  %s\n", id.Account)
		fmt.Fprintf(w, "  ARN:      %s\n", id.Arn)
		fmt.Fprintf(w, "  User ID:  %s\n", id.UserID)
		if h.Keys != nil {
			fmt.Fprintf(w, "  Keys:     %s\n", h.Keys.Source)
		}
		return nil
	},
}
