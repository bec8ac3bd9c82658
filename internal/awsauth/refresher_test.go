package awsauth

import (
	"context"
	"os/exec"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vee-sh/bssm/internal/report"
)

func TestLoginArgs(t *testing.T) {
	assert.Equal(t, []string{"sso", "login", "--profile", "dev"}, LoginArgs("dev"))
}

func TestRefreshRunsLoginCommand(t *testing.T) {
	var got []string
	l := &LoginRefresher{
		Command:  "aws",
		Reporter: &report.Recorder{},
		Run: func(c *exec.Cmd) error {
			got = c.Args
			return nil
		},
	}
	require.NoError(t, l.Refresh(context.Background(), "dev"))
	assert.Equal(t, []string{"aws", "sso", "login", "--profile", "dev"}, got)
}

func TestRefreshDefaultDropsInheritedProfile(t *testing.T) {
	t.Setenv("AWS_PROFILE", "prod")
	var env []string
	l := &LoginRefresher{Command: "aws", Reporter: &report.Recorder{}, Run: func(c *exec.Cmd) error {
		env = c.Env
		return nil
	}}
	require.NoError(t, l.Refresh(context.Background(), DefaultProfile))
	require.NotNil(t, env)
	assert.NotContains(t, env, "AWS_PROFILE=prod")
}

func TestStripProfileEnv(t *testing.T) {
	got := StripProfileEnv([]string{"HOME=/h", "AWS_PROFILE=prod", "AWS_DEFAULT_PROFILE=prod", "AWS_REGION=eu-west-1"})
	assert.Equal(t, []string{"HOME=/h", "AWS_REGION=eu-west-1"}, got)
}

func TestChildEnv(t *testing.T) {
	base := []string{"AWS_PROFILE=prod"}
	assert.Equal(t, base, SessionHandle{ProfileName: "prod"}.ChildEnv(base))
	h := SessionHandle{ProfileName: "default", IsDefault: true, Keys: &aws.Credentials{AccessKeyID: "AKIA", SecretAccessKey: "s"}}
	assert.Equal(t, []string{"AWS_ACCESS_KEY_ID=AKIA", "AWS_SECRET_ACCESS_KEY=s"}, h.ChildEnv(base))
}

func TestRefreshToolMissing(t *testing.T) {
	l := NewLoginRefresher(&report.Recorder{})
	l.Command = "bssm-test-no-such-binary"

	err := l.Refresh(context.Background(), "dev")
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindToolMissing, f.Kind)
	assert.Contains(t, f.Remediation[0], installURL)
}

func TestRefreshNonZeroExit(t *testing.T) {
	l := NewLoginRefresher(&report.Recorder{})
	l.Command = "sh"
	l.Run = func(c *exec.Cmd) error {
		return exec.Command("sh", "-c", "exit 1").Run()
	}

	err := l.Refresh(context.Background(), "dev")
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindLoginFailed, f.Kind)
	assert.Contains(t, f.Error(), "exit status 1")
}

func TestParseProfiles(t *testing.T) {
	assert.Equal(t, []string{"default", "dev", "prod"}, parseProfiles([]byte("default\n dev \n\nprod\n")))
	assert.Equal(t, []string{}, parseProfiles(nil))
}
