package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vee-sh/bssm/internal/awsauth"
	"github.com/vee-sh/bssm/internal/sshconfig"
)

var (
	sshPrefix       string
	sshUser         string
	sshIdentityFile string
	sshWrite        bool
)

var cmdSSHConfig = &cobra.Command{
	Use:   "ssh-config",
	Short: "Generate ssh config entries that tunnel through SSM",
	Long: `Print an OpenSSH Host block for every reachable instance. Each block uses
the AWS-StartSSHSession document as ProxyCommand, so plain ssh, scp and rsync
work without a bastion. Aliases already defined in ~/.ssh/config are skipped.

The ProxyCommand authenticates with --profile, so profiles whose keys live in
the bssm credential store (bssm creds set) are refused: ssh cannot read them.

Examples:
  bssm ssh-config -p prod --prefix prod- --user ec2-user
  bssm ssh-config --write      # Append to ~/.ssh/config`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		h, instances, err := e.instances(cmd.Context())
		if err != nil {
			return err
		}
		if !proxyCanAuthenticate(h) {
			e.rep.Warn("profile %q uses keys from the bssm credential store, which ssh cannot read", h.ProfileName)
			e.rep.Hint("Use a profile from ~/.aws/credentials instead:",
				"aws configure --profile "+h.ProfileName,
				"bssm creds remove "+h.ProfileName)
			return nil
		}

		userConfig, err := sshconfig.UserConfigPath()
		if err != nil {
			return err
		}
		existing, err := sshconfig.LoadExisting(userConfig)
		if err != nil {
			return fmt.Errorf("parse %s: %w", userConfig, err)
		}

		opts := sshconfig.Options{
			Prefix:       sshPrefix,
			User:         sshUser,
			IdentityFile: sshIdentityFile,
			Profile:      h.ProfileName,
			Region:       h.Region,
		}
		blocks, skipped := sshconfig.Plan(instances, existing, opts)
		for _, alias := range skipped {
			e.rep.Info("skipping %s: already defined", alias)
		}
		if len(blocks) == 0 {
			e.rep.Warn("nothing to generate")
			return nil
		}

		var buf bytes.Buffer
		if err := sshconfig.Write(&buf, blocks, opts); err != nil {
			return err
		}
		if !sshWrite {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}

		if err := os.MkdirAll(filepath.Dir(userConfig), 0o700); err != nil {
			return err
		}
		f, err := os.OpenFile(userConfig, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := fmt.Fprintf(f, "\n# Added by bssm (profile %s)\n%s", h.ProfileName, buf.String()); err != nil {
			return err
		}
		e.rep.Success("added %d host(s) to %s", len(blocks), userConfig)
		return nil
	},
}

// proxyCanAuthenticate reports whether a ProxyCommand started by ssh can
// act as h. Stored keys only reach children bssm starts itself.
func proxyCanAuthenticate(h awsauth.SessionHandle) bool {
	return h.Keys == nil
}

func init() {
	cmdSSHConfig.Flags().StringVar(&sshPrefix, "prefix", "", "prefix for every host alias")
	cmdSSHConfig.Flags().StringVarP(&sshUser, "user", "u", "", "remote user (User)")
	cmdSSHConfig.Flags().StringVarP(&sshIdentityFile, "identity-file", "i", "", "private key (IdentityFile)")
	cmdSSHConfig.Flags().BoolVar(&sshWrite, "write", false, "append to ~/.ssh/config instead of printing")
}
