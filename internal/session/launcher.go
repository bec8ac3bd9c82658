package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/vee-sh/bssm/internal/awsauth"
	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/logging"
	"github.com/vee-sh/bssm/internal/report"
	"github.com/vee-sh/bssm/internal/util"
)

const installURL = "https://aws.amazon.com/cli/"

// ErrToolMissing means the AWS CLI could not be found on PATH.
var ErrToolMissing = errors.New("aws CLI not found in PATH")

// State is a session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateActive
	StateClosed
	StateFailed
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	case StateInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed || s == StateInterrupted
}

type Request struct {
	Mode  Mode
	Ports Ports
}

// Result is the outcome of one Launch. Trace lists every state the session
// passed through, starting with StateIdle.
type Result struct {
	State    State
	ExitCode int
	Err      error
	Trace    []State
}

// Launcher hands the terminal to `aws ssm start-session` and waits for it.
type Launcher struct {
	Command  string
	LookPath func(string) (string, error)
	Run      func(*exec.Cmd) error
	Reporter report.Reporter
}

func NewLauncher(rep report.Reporter) *Launcher {
	return &Launcher{
		Command:  "aws",
		LookPath: exec.LookPath,
		Run:      util.RunAttached,
		Reporter: rep,
	}
}

// BuildArgs is the full start-session argument vector for target under h.
func BuildArgs(h awsauth.SessionHandle, target string, req Request) ([]string, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeInteractive
	}
	doc, err := Get(mode)
	if err != nil {
		return nil, err
	}
	args, err := doc.Args(target, req.Ports)
	if err != nil {
		return nil, err
	}
	switch {
	case h.Keys != nil:
		// Stored keys travel in the environment; a --profile flag would
		// shadow them, so pin the region instead.
		if r := h.EffectiveRegion(); r != "" {
			args = append(args, "--region", r)
		}
	default:
		if !h.IsDefault {
			args = append(args, "--profile", h.ProfileName)
		}
		if h.Region != "" {
			args = append(args, "--region", h.Region)
		}
	}
	return args, nil
}

type tracker struct {
	res Result
	log *logrus.Entry
}

func (r *tracker) to(s State) {
	if r.res.State.Terminal() {
		r.log.Debugf("session already %s, ignoring -> %s", r.res.State, s)
		return
	}
	r.log.Debugf("session %s -> %s", r.res.State, s)
	r.res.State = s
	r.res.Trace = append(r.res.Trace, s)
}

// Launch runs a session to completion. A failing session is reported and
// returned in Result; it is never fatal to the caller.
func (l *Launcher) Launch(ctx context.Context, h awsauth.SessionHandle, target catalog.Instance, req Request) Result {
	r := &tracker{
		res: Result{State: StateIdle, Trace: []State{StateIdle}},
		log: logging.Logger().WithFields(logrus.Fields{"target": target.ID, "mode": req.Mode}),
	}
	r.to(StateLaunching)

	args, err := BuildArgs(h, target.ID, req)
	if err != nil {
		r.to(StateFailed)
		r.res.Err = err
		l.Reporter.Error("cannot start session: %v", err)
		return r.res
	}

	name := l.Command
	if name == "" {
		name = "aws"
	}
	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath(name); err != nil {
		r.to(StateFailed)
		r.res.Err = fmt.Errorf("%w: %v", ErrToolMissing, err)
		r.res.ExitCode = -1
		l.toolMissing()
		return r.res
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if h.IsDefault || h.Keys != nil {
		cmd.Env = h.ChildEnv(os.Environ())
	}
	runCmd := l.Run
	if runCmd == nil {
		runCmd = util.RunAttached
	}

	l.announce(target, req)
	r.to(StateActive)
	r.log.Debugf("exec %s %v", name, args)
	err = runCmd(cmd)

	switch {
	case ctx.Err() != nil:
		r.to(StateInterrupted)
		r.res.ExitCode = util.ExitCode(err)
		l.Reporter.Warn("session to %s interrupted", target.Title())
	case err == nil:
		r.to(StateClosed)
		l.Reporter.Success("session to %s closed", target.Title())
	case errors.Is(err, exec.ErrNotFound):
		r.to(StateFailed)
		r.res.Err = fmt.Errorf("%w: %v", ErrToolMissing, err)
		r.res.ExitCode = -1
		l.toolMissing()
	default:
		r.to(StateFailed)
		r.res.Err = err
		r.res.ExitCode = util.ExitCode(err)
		l.Reporter.Error("session to %s failed: %v", target.Title(), err)
	}
	return r.res
}

func (l *Launcher) announce(target catalog.Instance, req Request) {
	switch req.Mode {
	case ModePortForward:
		l.Reporter.Info("port forwarding: localhost:%d -> %s:%d", req.Ports.Local, target.ID, req.Ports.Remote)
		l.Reporter.Info("press Ctrl+C to stop")
	case ModeRemotePortForward:
		l.Reporter.Info("port forwarding: localhost:%d -> %s:%d via %s", req.Ports.Local, req.Ports.Host, req.Ports.Remote, target.ID)
		l.Reporter.Info("press Ctrl+C to stop")
	default:
		l.Reporter.Info("connecting to %s...", target.Title())
		l.Reporter.Info("type 'exit' or press Ctrl+D to end the session")
	}
}

func (l *Launcher) toolMissing() {
	l.Reporter.Error("AWS CLI is not installed or not in PATH")
	l.Reporter.Hint("Install the AWS CLI and the Session Manager plugin:", installURL)
}
