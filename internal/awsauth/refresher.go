package awsauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/vee-sh/bssm/internal/logging"
	"github.com/vee-sh/bssm/internal/report"
	"github.com/vee-sh/bssm/internal/util"
)

// LoginRefresher renews SSO tokens by running the AWS CLI login flow with
// the terminal attached, so the browser prompt and device code reach the
// operator.
type LoginRefresher struct {
	// Command is the AWS CLI executable, "aws" unless overridden.
	Command  string
	Run      func(*exec.Cmd) error
	Reporter report.Reporter
}

func NewLoginRefresher(rep report.Reporter) *LoginRefresher {
	return &LoginRefresher{Command: "aws", Run: util.RunAttached, Reporter: rep}
}

// LoginArgs is the argument vector for an SSO login of profile.
func LoginArgs(profile string) []string {
	return []string{"sso", "login", "--profile", profile}
}

// Refresh blocks until the login command exits. It returns a Failure of kind
// ToolMissing or LoginFailed, or context.Canceled on interruption.
func (l *LoginRefresher) Refresh(ctx context.Context, profile string) error {
	name := l.Command
	if name == "" {
		name = "aws"
	}
	run := l.Run
	if run == nil {
		run = util.RunAttached
	}

	l.Reporter.Info("running: %s sso login --profile %s", name, profile)
	cmd := exec.CommandContext(ctx, name, LoginArgs(profile)...)
	if profile == DefaultProfile {
		cmd.Env = StripProfileEnv(os.Environ())
	}
	err := run(cmd)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return context.Canceled
	}
	logging.Logger().WithField("profile", profile).Debugf("sso login failed: %v", err)

	if errors.Is(err, exec.ErrNotFound) {
		return newFailure(KindToolMissing, profile, err)
	}
	if code := util.ExitCode(err); code > 0 {
		return newFailure(KindLoginFailed, profile, fmt.Errorf("exit status %d", code))
	}
	return newFailure(KindLoginFailed, profile, err)
}
