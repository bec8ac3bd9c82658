package sshconfig

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kevinburke/ssh_config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vee-sh/bssm/internal/catalog"
)

var fleet = []catalog.Instance{
	{ID: "i-0aaa", Name: "Web Server"},
	{ID: "i-0bbb", Name: "db"},
	{ID: "i-0ccc", Name: "i-0ccc"},
	{ID: "i-0ddd", Name: "db"},
}

func TestAlias(t *testing.T) {
	assert.Equal(t, "aws-web-server", Alias("aws-", fleet[0]))
	assert.Equal(t, "db", Alias("", fleet[1]))
	assert.Equal(t, "i-0eee", Alias("", catalog.Instance{ID: "i-0eee", Name: "!!!"}))
}

func TestProxyCommand(t *testing.T) {
	assert.Equal(t,
		"aws ssm start-session --target %h --document-name AWS-StartSSHSession --parameters portNumber=%p",
		ProxyCommand(Options{Profile: "default"}))
	assert.True(t, strings.HasSuffix(ProxyCommand(Options{Profile: "dev", Region: "eu-west-1"}), "--profile dev --region eu-west-1"))
}

func TestExistingAliases(t *testing.T) {
	cfg := `Host db bastion
    HostName 10.0.0.1

Host *.internal !skip
    User ops

Host *
    ServerAliveInterval 30
`
	got, err := ExistingAliases(strings.NewReader(cfg))
	require.NoError(t, err)
	assert.True(t, got["db"])
	assert.True(t, got["bastion"])
	assert.False(t, got["*"])
	assert.False(t, got["*.internal"])
}

func TestPlanAndWrite(t *testing.T) {
	opts := Options{User: "ec2-user", Profile: "dev"}
	blocks, skipped := Plan(fleet, map[string]bool{"db": true}, opts)

	require.Len(t, blocks, 2)
	assert.Equal(t, []string{"db", "db"}, skipped)
	assert.Equal(t, "web-server", blocks[0].Alias)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, blocks, opts))

	// The output must be valid ssh_config.
	cfg, err := ssh_config.Decode(&buf)
	require.NoError(t, err)
	host, err := cfg.Get("web-server", "HostName")
	require.NoError(t, err)
	assert.Equal(t, "i-0aaa", host)
	user, err := cfg.Get("i-0ccc", "User")
	require.NoError(t, err)
	assert.Equal(t, "ec2-user", user)
	proxy, err := cfg.Get("web-server", "ProxyCommand")
	require.NoError(t, err)
	assert.Contains(t, proxy, "AWS-StartSSHSession")
	assert.Contains(t, proxy, "--profile dev")
}

func TestLoadExistingMissingFile(t *testing.T) {
	got, err := LoadExisting(filepath.Join(t.TempDir(), "config"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
