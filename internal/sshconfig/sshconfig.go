// Package sshconfig generates OpenSSH Host blocks that tunnel through SSM
// with the AWS-StartSSHSession document.
package sshconfig

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kevinburke/ssh_config"

	"github.com/vee-sh/bssm/internal/catalog"
)

// Options control the generated blocks.
type Options struct {
	// Prefix is prepended to every alias, e.g. "aws-".
	Prefix       string
	User         string
	IdentityFile string
	// Profile is omitted from the proxy command when empty or "default".
	Profile string
	Region  string
}

// Block is one generated Host entry.
type Block struct {
	Alias      string
	InstanceID string
}

var unsafeAlias = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Alias turns an instance name into a host alias.
func Alias(prefix string, inst catalog.Instance) string {
	name := strings.Trim(unsafeAlias.ReplaceAllString(strings.ToLower(inst.Name), "-"), "-")
	if name == "" {
		name = inst.ID
	}
	return prefix + name
}

// ProxyCommand is the ssh ProxyCommand that opens the SSM tunnel.
func ProxyCommand(opts Options) string {
	var b strings.Builder
	b.WriteString("aws ssm start-session --target %h --document-name AWS-StartSSHSession --parameters portNumber=%p")
	if opts.Profile != "" && opts.Profile != "default" {
		b.WriteString(" --profile " + opts.Profile)
	}
	if opts.Region != "" {
		b.WriteString(" --region " + opts.Region)
	}
	return b.String()
}

// Plan picks the blocks to emit: one per instance, skipping aliases in
// existing and later duplicates of an alias.
func Plan(instances []catalog.Instance, existing map[string]bool, opts Options) (blocks []Block, skipped []string) {
	seen := map[string]bool{}
	for _, inst := range instances {
		alias := Alias(opts.Prefix, inst)
		if existing[alias] || seen[alias] {
			skipped = append(skipped, alias)
			continue
		}
		seen[alias] = true
		blocks = append(blocks, Block{Alias: alias, InstanceID: inst.ID})
	}
	return blocks, skipped
}

// Write renders blocks in ssh_config syntax.
func Write(w io.Writer, blocks []Block, opts Options) error {
	proxy := ProxyCommand(opts)
	for i, b := range blocks {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		lines := []string{
			"Host " + b.Alias,
			"    HostName " + b.InstanceID,
		}
		if opts.User != "" {
			lines = append(lines, "    User "+opts.User)
		}
		if opts.IdentityFile != "" {
			lines = append(lines, "    IdentityFile "+opts.IdentityFile)
		}
		lines = append(lines, "    ProxyCommand "+proxy)
		if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
			return err
		}
	}
	return nil
}

// ExistingAliases returns the literal host aliases declared in r. Wildcard
// and negated patterns are ignored.
func ExistingAliases(r io.Reader) (map[string]bool, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return nil, err
	}
	out := map[string]bool{}
	for _, h := range cfg.Hosts {
		for _, p := range h.Patterns {
			s := p.String()
			if strings.ContainsAny(s, "*?!") {
				continue
			}
			out[s] = true
		}
	}
	return out, nil
}

// UserConfigPath is ~/.ssh/config.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ssh", "config"), nil
}

// LoadExisting reads aliases from path; a missing file yields none.
func LoadExisting(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return ExistingAliases(f)
}
