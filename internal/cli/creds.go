package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vee-sh/bssm/internal/config"
	"github.com/vee-sh/bssm/internal/credentials"
	"github.com/vee-sh/bssm/internal/ui"
)

var (
	credsAccessKeyID  string
	credsSessionToken string
)

var cmdCreds = &cobra.Command{
	Use:   "creds",
	Short: "Manage static access keys stored by bssm",
	Long: `Store long-lived access keys for an AWS profile in the OS keyring or in an
encrypted file, instead of plain text in ~/.aws/credentials. Stored keys take
precedence over the shared config when bssm resolves that profile.

The backend is chosen by BSSM_CREDENTIALS_BACKEND, then credentialsBackend in
the config file, then auto (keyring, falling back to the encrypted file).`,
}

var cmdCredsSet = &cobra.Command{
	Use:   "set [profile]",
	Short: "Store an access key pair for a profile",
	Long: `Store an access key pair for a profile. The secret is read without echo
from the terminal, or as the first line of stdin when it is not a terminal.

Examples:
  bssm creds set dev --access-key-id AKIA...
  echo "$SECRET" | bssm creds set ci --access-key-id AKIA...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, profile, err := credsTarget(args)
		if err != nil {
			return err
		}
		keyID := strings.TrimSpace(credsAccessKeyID)
		if keyID == "" {
			return errors.New("--access-key-id is required")
		}
		secret, err := readSecret(cmd.ErrOrStderr(), os.Stdin, "Secret access key: ")
		if err != nil {
			return err
		}
		keys := credentials.Keys{
			AccessKeyID:     keyID,
			SecretAccessKey: secret,
			SessionToken:    strings.TrimSpace(credsSessionToken),
		}
		if err := backend.Set(profile, keys); err != nil {
			return err
		}
		newReporter(cmd).Success("stored keys for profile %q in %s backend", profile, backend.Name())
		return nil
	},
}

var cmdCredsRemove = &cobra.Command{
	Use:     "remove [profile]",
	Aliases: []string{"rm"},
	Short:   "Delete the stored key pair of a profile",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, profile, err := credsTarget(args)
		if err != nil {
			return err
		}
		if _, ok, _ := backend.Get(profile); ok && !OutputJSON() {
			yes, err := ui.Confirm(fmt.Sprintf("Delete stored keys for %q?", profile), false)
			if err != nil {
				return err
			}
			if !yes {
				return nil
			}
		}
		if err := backend.Delete(profile); err != nil {
			return err
		}
		newReporter(cmd).Success("removed stored keys for profile %q", profile)
		return nil
	},
}

var cmdCredsBackends = &cobra.Command{
	Use:   "backends",
	Short: "List credential storage backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		active := "unavailable"
		if b, err := credentials.Select(settings.CredentialsBackend); err == nil {
			active = b.Name()
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Available credential backends:")
		fmt.Fprintln(w)

		fmt.Fprint(w, "  keyring    - System keyring")
		if native := credentials.AvailableKeyrings(); len(native) > 0 {
			fmt.Fprintf(w, " [✓ %s]", strings.Join(native, ", "))
		} else {
			fmt.Fprint(w, " [✗ Not available]")
		}
		if active == config.BackendKeyring {
			fmt.Fprint(w, " [ACTIVE]")
		}
		fmt.Fprintln(w)

		fmt.Fprint(w, "  file       - Encrypted file")
		if fb, err := credentials.NewFileBackend(); err == nil {
			fmt.Fprintf(w, " (%s)", fb.Path())
		}
		fmt.Fprint(w, " [✓ Always available]")
		if active == config.BackendFile {
			fmt.Fprint(w, " [ACTIVE]")
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Current configuration:")
		fmt.Fprintf(w, "  Active backend:  %s\n", active)
		fmt.Fprintf(w, "  Configured:      %s\n", settings.CredentialsBackend)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "To set a default backend:")
		fmt.Fprintln(w, "  bssm config set credentialsBackend <auto|keyring|file>")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "To temporarily override:")
		fmt.Fprintf(w, "  %s_CREDENTIALS_BACKEND=file bssm connect\n", config.EnvPrefix)
		return nil
	},
}

// credsTarget opens the configured backend and picks the profile from args,
// falling back to the usual profile selection.
func credsTarget(args []string) (credentials.Backend, string, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, "", err
	}
	backend, err := credentials.Select(settings.CredentialsBackend)
	if err != nil {
		return nil, "", err
	}
	name := flagProfile
	if len(args) == 1 {
		name = args[0]
	}
	p := selectProfile(settings, name, "", os.Getenv("AWS_PROFILE"))
	return backend, p.Name, nil
}

// readSecret reads without echo from a terminal, or a single line otherwise.
func readSecret(prompt io.Writer, in *os.File, label string) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	cmdCredsSet.Flags().StringVar(&credsAccessKeyID, "access-key-id", "", "AWS access key id")
	cmdCredsSet.Flags().StringVar(&credsSessionToken, "session-token", "", "optional session token")
	cmdCreds.AddCommand(cmdCredsSet)
	cmdCreds.AddCommand(cmdCredsRemove)
	cmdCreds.AddCommand(cmdCredsBackends)
}
