package cli

import (
	"context"
	"time"

	"github.com/vee-sh/bssm/internal/audit"
	"github.com/vee-sh/bssm/internal/awsauth"
	"github.com/vee-sh/bssm/internal/catalog"
	"github.com/vee-sh/bssm/internal/logging"
	"github.com/vee-sh/bssm/internal/session"
	"github.com/vee-sh/bssm/internal/state"
)

// newLauncher is replaced in tests.
var newLauncher = session.NewLauncher

// executeConnection handles the common launch logic for connect, forward,
// tui and the root command: audit, launch, then history. The launcher has
// already told the operator how the session ended, so neither a failed nor
// an interrupted session is an error for the caller.
func executeConnection(ctx context.Context, e *env, h awsauth.SessionHandle, inst catalog.Instance, req session.Request) error {
	if req.Mode == "" {
		req.Mode = session.ModeInteractive
	}

	var auditSession *audit.Session
	if e.settings.AuditEnabled {
		if path, err := audit.DefaultPath(); err == nil {
			auditSession = audit.Begin(path, audit.Target{
				Profile:    h.ProfileName,
				Region:     h.EffectiveRegion(),
				InstanceID: inst.ID,
				Instance:   inst.Name,
				Mode:       string(req.Mode),
			})
		}
	}

	res := newLauncher(e.rep).Launch(ctx, h, inst, req)
	auditSession.End(res.ExitCode, res.Err)

	if reachedActive(res.Trace) {
		recordHistory(e, h, inst, req.Mode)
	}

	logging.Logger().WithField("state", res.State).Debugf("session ended with exit code %d", res.ExitCode)
	return nil
}

func reachedActive(trace []session.State) bool {
	for _, s := range trace {
		if s == session.StateActive {
			return true
		}
	}
	return false
}

// recordHistory is non-fatal: a session that ran is not failed by a
// history write.
func recordHistory(e *env, h awsauth.SessionHandle, inst catalog.Instance, mode session.Mode) {
	st, err := e.store()
	if err == nil {
		err = st.AddHistory(state.HistoryEntry{
			InstanceID:   inst.ID,
			InstanceName: inst.Name,
			Profile:      h.ProfileName,
			Mode:         string(mode),
			ConnectedAt:  time.Now(),
		})
	}
	if err != nil {
		logging.Logger().Warnf("failed to update history: %v", err)
	}
}
