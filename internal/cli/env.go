package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vee-sh/bssm/internal/awsauth"
	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/config"
	"github.com/vee-sh/bssm/internal/credentials"
	"github.com/vee-sh/bssm/internal/logging"
	"github.com/vee-sh/bssm/internal/report"
	"github.com/vee-sh/bssm/internal/state"
	"github.com/vee-sh/bssm/internal/tui"
)

// env is what every AWS-facing command needs: settings, the selected
// profile and the operator output channel.
type env struct {
	settings config.Settings
	profile  awsauth.Profile
	rep      report.Reporter
	keys     awsauth.KeySource
	// stderr is set when the command writes to the process's stderr.
	stderr *os.File
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	e := &env{
		settings: settings,
		profile:  selectProfile(settings, flagProfile, flagRegion, os.Getenv("AWS_PROFILE")),
		rep:      newReporter(cmd),
	}
	if f, ok := cmd.ErrOrStderr().(*os.File); ok {
		e.stderr = f
	}
	if backend, err := credentials.Select(settings.CredentialsBackend); err == nil {
		e.keys = credentials.Store{Backend: backend}
	} else {
		logging.Logger().Debugf("credential store unavailable: %v", err)
	}
	return e, nil
}

func loadSettings() (config.Settings, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to determine config path: %w", err)
	}
	return config.Resolve(path)
}

// selectProfile applies the precedence flag > config > $AWS_PROFILE > default.
// The region falls back to the config value; an empty region leaves the
// choice to the SDK's own chain.
func selectProfile(s config.Settings, flagName, flagRegion, envProfile string) awsauth.Profile {
	name := awsauth.DefaultProfile
	for _, c := range []string{flagName, s.DefaultProfile, envProfile} {
		if c = strings.TrimSpace(c); c != "" {
			name = c
			break
		}
	}
	region := strings.TrimSpace(flagRegion)
	if region == "" {
		region = strings.TrimSpace(s.DefaultRegion)
	}
	return awsauth.Profile{Name: name, Region: region}
}

// newReporter writes to stderr so stdout stays clean for data; JSON mode
// silences it entirely.
func newReporter(cmd *cobra.Command) report.Reporter {
	if OutputJSON() {
		return report.Discard{}
	}
	return report.NewConsole(cmd.ErrOrStderr())
}

func (e *env) resolver() *awsauth.Resolver {
	return awsauth.NewResolver(e.rep, e.keys)
}

// resolve validates credentials. Failures have already been shown to the
// operator and come back marked as reported.
func (e *env) resolve(ctx context.Context) (awsauth.SessionHandle, error) {
	h, err := e.resolver().Resolve(ctx, e.profile)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return h, context.Canceled
		}
		if OutputJSON() {
			// the Discard reporter showed nothing; let main print it
			return h, err
		}
		return h, reported(err, 1)
	}
	return h, nil
}

// instances resolves credentials and lists the reachable fleet.
func (e *env) instances(ctx context.Context) (awsauth.SessionHandle, []catalog.Instance, error) {
	h, err := e.resolve(ctx)
	if err != nil {
		return h, nil, err
	}
	var list []catalog.Instance
	if out, ok := e.spinnerOut(); ok {
		// messages are held back so they do not tear the spinner line
		var held report.Recorder
		tui.Spin(ctx, out, "loading instances...", func() {
			list = catalog.New(h, &held).List(ctx)
		})
		held.Replay(e.rep)
	} else {
		list = catalog.New(h, e.rep).List(ctx)
	}
	if ctx.Err() != nil {
		return h, nil, context.Canceled
	}
	return h, list, nil
}

// spinnerOut is the terminal to draw a progress spinner on, if any.
func (e *env) spinnerOut() (io.Writer, bool) {
	if OutputJSON() || e.stderr == nil {
		return nil, false
	}
	if !term.IsTerminal(int(e.stderr.Fd())) {
		return nil, false
	}
	return e.stderr, true
}

func (e *env) store() (*state.Store, error) {
	path, err := state.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine state path: %w", err)
	}
	return state.NewStore(path, e.settings.MaxHistory), nil
}

// favoriteIDs is best effort: an unreadable store means no favorites.
func favoriteIDs(st *state.Store) map[string]bool {
	ids := map[string]bool{}
	favs, err := st.Favorites()
	if err != nil {
		logging.Logger().Debugf("reading favorites: %v", err)
		return ids
	}
	for _, f := range favs {
		ids[f.InstanceID] = true
	}
	return ids
}

// reportedError marks an error the operator has already seen.
type reportedError struct {
	err  error
	code int
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error, code int) error {
	if code <= 0 {
		code = 1
	}
	return reportedError{err: err, code: code}
}

// Reported returns the exit code for an error that was already shown to the
// operator, so the caller should exit without printing it again.
func Reported(err error) (int, bool) {
	var re reportedError
	if errors.As(err, &re) {
		return re.code, true
	}
	return 0, false
}
