package session

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vee-sh/bssm/internal/awsauth"
	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/logging"
	"github.com/vee-sh/bssm/internal/report"
)

var web = catalog.Instance{ID: "i-0abc", Name: "web"}

func found(string) (string, error) { return "/usr/local/bin/aws", nil }

func TestBuildArgs(t *testing.T) {
	dev := awsauth.SessionHandle{ProfileName: "dev"}
	def := awsauth.SessionHandle{ProfileName: awsauth.DefaultProfile, IsDefault: true}

	tests := []struct {
		name string
		h    awsauth.SessionHandle
		req  Request
		want string
	}{
		{"default profile", def, Request{}, "ssm start-session --target i-0abc"},
		{"named profile", dev, Request{Mode: ModeInteractive}, "ssm start-session --target i-0abc --profile dev"},
		{
			"region override",
			awsauth.SessionHandle{ProfileName: "dev", Region: "ap-northeast-2"},
			Request{},
			"ssm start-session --target i-0abc --profile dev --region ap-northeast-2",
		},
		{
			"port forward",
			def,
			Request{Mode: ModePortForward, Ports: Ports{Local: 8080, Remote: 80}},
			"ssm start-session --target i-0abc --document-name AWS-StartPortForwardingSession --parameters portNumber=80,localPortNumber=8080",
		},
		{
			"remote port forward",
			dev,
			Request{Mode: ModeRemotePortForward, Ports: Ports{Local: 15432, Remote: 5432, Host: "db.internal"}},
			"ssm start-session --target i-0abc --document-name AWS-StartPortForwardingSessionToRemoteHost --parameters host=db.internal,portNumber=5432,localPortNumber=15432 --profile dev",
		},
		{
			"stored keys pin region",
			awsauth.SessionHandle{ProfileName: "ci", Config: aws.Config{Region: "us-west-2"}, Keys: &aws.Credentials{AccessKeyID: "AKIA"}},
			Request{},
			"ssm start-session --target i-0abc --region us-west-2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := BuildArgs(tt.h, "i-0abc", tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Join(args, " "))
		})
	}
}

func TestBuildArgsRejectsBadPorts(t *testing.T) {
	h := awsauth.SessionHandle{IsDefault: true}
	cases := []Request{
		{Mode: ModePortForward, Ports: Ports{Local: 0, Remote: 80}},
		{Mode: ModePortForward, Ports: Ports{Local: 8080, Remote: 70000}},
		{Mode: ModeRemotePortForward, Ports: Ports{Local: 8080, Remote: 80}},
		{Mode: "telepathy"},
	}
	for _, req := range cases {
		_, err := BuildArgs(h, "i-1", req)
		assert.Error(t, err, "request %+v", req)
	}
}

func TestModes(t *testing.T) {
	assert.Equal(t, []Mode{ModeInteractive, ModePortForward, ModeRemotePortForward}, Modes())
}

func TestLaunchClosed(t *testing.T) {
	rec := &report.Recorder{}
	var gotArgs []string
	l := &Launcher{Command: "aws", LookPath: found, Reporter: rec, Run: func(c *exec.Cmd) error {
		gotArgs = c.Args[1:]
		return nil
	}}

	res := l.Launch(context.Background(), awsauth.SessionHandle{ProfileName: "dev"}, web, Request{})
	assert.Equal(t, StateClosed, res.State)
	assert.Equal(t, []State{StateIdle, StateLaunching, StateActive, StateClosed}, res.Trace)
	assert.NoError(t, res.Err)
	assert.Contains(t, gotArgs, "--profile")
	assert.True(t, rec.Contains(report.LevelSuccess, "web (i-0abc)"))
}

func TestLaunchNonZeroExitIsFailed(t *testing.T) {
	rec := &report.Recorder{}
	l := &Launcher{Command: "aws", LookPath: found, Reporter: rec, Run: func(*exec.Cmd) error {
		return exec.Command("sh", "-c", "exit 255").Run()
	}}

	res := l.Launch(context.Background(), awsauth.SessionHandle{IsDefault: true}, web, Request{})
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 255, res.ExitCode)
	assert.Equal(t, []State{StateIdle, StateLaunching, StateActive, StateFailed}, res.Trace)
	assert.Equal(t, 1, rec.Count(report.LevelError))
}

func TestLaunchToolMissingNeverActive(t *testing.T) {
	rec := &report.Recorder{}
	ran := false
	l := &Launcher{
		Command:  "aws",
		LookPath: func(string) (string, error) { return "", exec.ErrNotFound },
		Reporter: rec,
		Run:      func(*exec.Cmd) error { ran = true; return nil },
	}

	res := l.Launch(context.Background(), awsauth.SessionHandle{IsDefault: true}, web, Request{})
	assert.Equal(t, StateFailed, res.State)
	assert.NotContains(t, res.Trace, StateActive)
	assert.ErrorIs(t, res.Err, ErrToolMissing)
	assert.False(t, ran)
	assert.True(t, rec.Contains(report.LevelHint, "https://aws.amazon.com/cli/"))
}

func TestLaunchRealLookPathMissing(t *testing.T) {
	rec := &report.Recorder{}
	l := NewLauncher(rec)
	l.Command = "bssm-test-no-such-binary"

	res := l.Launch(context.Background(), awsauth.SessionHandle{IsDefault: true}, web, Request{})
	assert.Equal(t, StateFailed, res.State)
	assert.NotContains(t, res.Trace, StateActive)
}

func TestLaunchInterrupted(t *testing.T) {
	rec := &report.Recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Launcher{Command: "aws", LookPath: found, Reporter: rec, Run: func(*exec.Cmd) error {
		cancel()
		return errors.New("signal: interrupt")
	}}

	res := l.Launch(ctx, awsauth.SessionHandle{IsDefault: true}, web, Request{})
	assert.Equal(t, StateInterrupted, res.State)
	assert.Equal(t, []State{StateIdle, StateLaunching, StateActive, StateInterrupted}, res.Trace)
	assert.NoError(t, res.Err)
	assert.True(t, rec.Contains(report.LevelWarn, "interrupted"))
	assert.Zero(t, rec.Count(report.LevelError))
}

func TestLaunchInvalidRequest(t *testing.T) {
	rec := &report.Recorder{}
	l := &Launcher{Command: "aws", LookPath: found, Reporter: rec, Run: func(*exec.Cmd) error { return nil }}

	res := l.Launch(context.Background(), awsauth.SessionHandle{IsDefault: true}, web, Request{Mode: ModePortForward})
	assert.Equal(t, StateFailed, res.State)
	assert.Error(t, res.Err)
	assert.NotContains(t, res.Trace, StateActive)
}

func TestLaunchPassesStoredKeys(t *testing.T) {
	var env []string
	l := &Launcher{Command: "aws", LookPath: found, Reporter: &report.Recorder{}, Run: func(c *exec.Cmd) error {
		env = c.Env
		return nil
	}}
	h := awsauth.SessionHandle{ProfileName: "ci", Keys: &aws.Credentials{AccessKeyID: "AKIA", SecretAccessKey: "s"}}

	l.Launch(context.Background(), h, web, Request{})
	assert.Contains(t, env, "AWS_ACCESS_KEY_ID=AKIA")
}

func TestLaunchDefaultIgnoresInheritedProfile(t *testing.T) {
	t.Setenv("AWS_PROFILE", "prod")
	t.Setenv("AWS_DEFAULT_PROFILE", "prod")
	var env, args []string
	l := &Launcher{Command: "aws", LookPath: found, Reporter: &report.Recorder{}, Run: func(c *exec.Cmd) error {
		env, args = c.Env, c.Args
		return nil
	}}

	l.Launch(context.Background(), awsauth.SessionHandle{ProfileName: "default", IsDefault: true}, web, Request{})
	require.NotNil(t, env)
	assert.NotContains(t, args, "--profile")
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "AWS_PROFILE=") || strings.HasPrefix(kv, "AWS_DEFAULT_PROFILE="), kv)
	}
}

func TestTrackerStopsAtTerminalState(t *testing.T) {
	r := &tracker{res: Result{State: StateIdle, Trace: []State{StateIdle}}, log: logging.Logger().WithField("target", "i-0abc")}
	r.to(StateLaunching)
	r.to(StateFailed)
	r.to(StateActive)
	assert.Equal(t, StateFailed, r.res.State)
	assert.Equal(t, []State{StateIdle, StateLaunching, StateFailed}, r.res.Trace)
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateActive.Terminal())
	assert.True(t, StateInterrupted.Terminal())
	assert.Equal(t, "closed", StateClosed.String())
}
