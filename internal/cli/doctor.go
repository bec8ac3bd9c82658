package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/config"
	"github.com/vee-sh/bssm/internal/credentials"
)

var (
	doctorVerbose bool
	doctorAuth    bool
)

var cmdDoctor = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the local setup",
	Long: `Run diagnostics on the local setup.

Checks performed:
  - aws CLI and session-manager-plugin are installed
  - fzf is installed (optional, used by the picker)
  - AWS shared config or credentials file exists
  - bssm config file is valid and the credential backend opens
  - with --auth: credentials of the selected profile are valid

Examples:
  bssm doctor
  bssm doctor --auth -p prod
  bssm doctor --verbose`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		issues := 0

		fmt.Fprintln(w, "=== System Checks ===")
		issues += checkTools(w)
		issues += checkSharedConfig(w)
		fmt.Fprintln(w)

		fmt.Fprintln(w, "=== bssm ===")
		issues += checkSettings(w)
		fmt.Fprintln(w)

		if doctorAuth {
			fmt.Fprintln(w, "=== Credentials ===")
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			h, err := e.resolve(cmd.Context())
			if err != nil {
				fmt.Fprintf(w, "  [FAIL] profile %s: credentials not usable\n", e.profile.Name)
				return err
			}
			id, err := e.resolver().Identity(cmd.Context(), h)
			if err != nil {
				fmt.Fprintf(w, "  [FAIL] identity: %v\n", err)
				issues++
			} else {
				fmt.Fprintf(w, "  [OK]   profile %s: %s\n", h.ProfileName, id.Arn)
			}
			fmt.Fprintln(w)
		}

		if issues == 0 {
			fmt.Fprintln(w, "[OK]   No issues detected")
			return nil
		}
		fmt.Fprintf(w, "[!]    %d issue(s) found\n", issues)
		return reported(errors.New("doctor found issues"), 1)
	},
}

func checkTools(w io.Writer) int {
	tools := []struct {
		name     string
		required bool
		hint     string
	}{
		{"aws", true, "https://aws.amazon.com/cli/"},
		{"session-manager-plugin", true, "https://docs.aws.amazon.com/systems-manager/latest/userguide/session-manager-working-with-install-plugin.html"},
		{"fzf", false, "https://github.com/junegunn/fzf"},
	}

	failed := 0
	for _, t := range tools {
		path, err := exec.LookPath(t.name)
		switch {
		case err != nil && t.required:
			fmt.Fprintf(w, "  [FAIL] %s: not found in PATH (install: %s)\n", t.name, t.hint)
			failed++
		case err != nil:
			fmt.Fprintf(w, "  [WARN] %s: not found (optional)\n", t.name)
		case doctorVerbose:
			fmt.Fprintf(w, "  [OK]   %s: %s\n", t.name, path)
		default:
			fmt.Fprintf(w, "  [OK]   %s\n", t.name)
		}
	}
	return failed
}

// sharedConfigFiles honours the same environment overrides as the SDK.
func sharedConfigFiles() []string {
	home, _ := os.UserHomeDir()
	cfg := os.Getenv("AWS_CONFIG_FILE")
	if cfg == "" {
		cfg = filepath.Join(home, ".aws", "config")
	}
	creds := os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	if creds == "" {
		creds = filepath.Join(home, ".aws", "credentials")
	}
	return []string{cfg, creds}
}

func checkSharedConfig(w io.Writer) int {
	found := 0
	for _, p := range sharedConfigFiles() {
		if _, err := os.Stat(p); err != nil {
			if doctorVerbose {
				fmt.Fprintf(w, "  [INFO] %s: not present\n", p)
			}
			continue
		}
		found++
		fmt.Fprintf(w, "  [OK]   %s\n", p)
	}
	if found == 0 {
		fmt.Fprintln(w, "  [WARN] no AWS shared config found (run: aws configure or aws configure sso)")
	}
	return 0
}

func checkSettings(w io.Writer) int {
	issues := 0
	path, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] config path: %v\n", err)
		return 1
	}
	settings, err := config.Resolve(path)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] config %s: %v\n", path, err)
		return 1
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  [OK]   config: defaults (%s not present)\n", path)
	} else {
		fmt.Fprintf(w, "  [OK]   config: %s\n", path)
	}

	backend, err := credentials.Select(settings.CredentialsBackend)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] credential backend %s: %v\n", settings.CredentialsBackend, err)
		issues++
	} else {
		fmt.Fprintf(w, "  [OK]   credential backend: %s\n", backend.Name())
	}
	return issues
}

func init() {
	cmdDoctor.Flags().BoolVar(&doctorVerbose, "verbose", false, "verbose output")
	cmdDoctor.Flags().BoolVar(&doctorAuth, "auth", false, "also validate credentials of the selected profile")
}
