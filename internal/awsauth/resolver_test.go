package awsauth

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vee-sh/bssm/internal/report"
)

type fakeSTS struct {
	calls *int
	err   error
}

func (f fakeSTS) GetCallerIdentity(ctx context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	*f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/ops"),
		UserId:  aws.String("AIDAEXAMPLE"),
	}, nil
}

type fakeRefresher struct {
	calls    int
	profiles []string
	err      error
}

func (f *fakeRefresher) Refresh(_ context.Context, profile string) error {
	f.calls++
	f.profiles = append(f.profiles, profile)
	return f.err
}

type fakeLister struct {
	names []string
	err   error
}

func (f fakeLister) ListProfiles(context.Context) ([]string, error) { return f.names, f.err }

type harness struct {
	resolver  *Resolver
	rec       *report.Recorder
	refresher *fakeRefresher
	loads     int
	probes    int
}

func newHarness(probeErr, loadErr error) *harness {
	h := &harness{rec: &report.Recorder{}, refresher: &fakeRefresher{}}
	h.resolver = &Resolver{
		Load: func(_ context.Context, p Profile, _ *aws.Credentials) (aws.Config, error) {
			h.loads++
			if loadErr != nil {
				return aws.Config{}, loadErr
			}
			return aws.Config{Region: "eu-west-1"}, nil
		},
		NewSTS:    func(aws.Config) STSAPI { return fakeSTS{calls: &h.probes, err: probeErr} },
		Refresher: h.refresher,
		Profiles:  fakeLister{names: []string{"dev", "prod"}},
		Reporter:  h.rec,
	}
	return h
}

func TestResolveValidCredentials(t *testing.T) {
	h := newHarness(nil, nil)

	got, err := h.resolver.Resolve(context.Background(), Profile{Name: "dev", Region: "us-east-2"})
	require.NoError(t, err)
	assert.Equal(t, "dev", got.ProfileName)
	assert.Equal(t, "us-east-2", got.Region)
	assert.False(t, got.IsDefault)
	assert.Equal(t, 1, h.probes)
	assert.Zero(t, h.refresher.calls)
	assert.Zero(t, h.rec.Count(report.LevelError))
}

func TestResolveEmptyNameIsDefault(t *testing.T) {
	h := newHarness(nil, nil)

	got, err := h.resolver.Resolve(context.Background(), Profile{})
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, got.ProfileName)
	assert.True(t, got.IsDefault)
	assert.Equal(t, "eu-west-1", got.EffectiveRegion())
}

func TestResolveStaleTokenRefreshesOnce(t *testing.T) {
	h := newHarness(apiErr("UnauthorizedException"), nil)

	got, err := h.resolver.Resolve(context.Background(), Profile{Name: "sso-dev"})
	require.NoError(t, err)
	assert.Equal(t, "sso-dev", got.ProfileName)
	assert.Equal(t, 1, h.refresher.calls)
	assert.Equal(t, []string{"sso-dev"}, h.refresher.profiles)
	// The rebuilt handle is not probed again.
	assert.Equal(t, 1, h.probes)
	assert.Equal(t, 2, h.loads)
	assert.True(t, h.rec.Contains(report.LevelWarn, "sso-dev"))
}

func TestResolveRefreshFailure(t *testing.T) {
	h := newHarness(apiErr("UnauthorizedException"), nil)
	h.refresher.err = newFailure(KindLoginFailed, "sso-dev", errors.New("exit status 1"))

	_, err := h.resolver.Resolve(context.Background(), Profile{Name: "sso-dev"})
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindLoginFailed, f.Kind)
	assert.Equal(t, 1, h.refresher.calls)
	assert.True(t, h.rec.Contains(report.LevelError, "SSO login"))
}

func TestResolveTerminalFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid", apiErr("InvalidClientTokenId"), KindInvalidCredentials},
		{"expired", apiErr("ExpiredToken"), KindExpiredToken},
		{"none", errors.New("failed to retrieve credentials"), KindNoCredentials},
		{"other", errors.New("network is unreachable"), KindAuthFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.err, nil)
			got, err := h.resolver.Resolve(context.Background(), Profile{Name: "dev"})
			f, ok := AsFailure(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, f.Kind)
			assert.Equal(t, SessionHandle{}, got)
			assert.Zero(t, h.refresher.calls)
			assert.Equal(t, 1, h.rec.Count(report.LevelHint))
		})
	}
}

func TestResolveProfileNotFound(t *testing.T) {
	h := newHarness(nil, config.SharedConfigProfileNotExistError{Profile: "ghost"})

	got, err := h.resolver.Resolve(context.Background(), Profile{Name: "ghost"})
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindProfileNotFound, f.Kind)
	assert.Equal(t, []string{"dev", "prod"}, f.Profiles)
	assert.Equal(t, SessionHandle{}, got)
	assert.Zero(t, h.probes)
	assert.True(t, h.rec.Contains(report.LevelHint, "prod"))
}

func TestResolveProfileNotFoundListingFails(t *testing.T) {
	h := newHarness(nil, config.SharedConfigProfileNotExistError{Profile: "ghost"})
	h.resolver.Profiles = fakeLister{err: exec.ErrNotFound}

	_, err := h.resolver.Resolve(context.Background(), Profile{Name: "ghost"})
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Empty(t, f.Profiles)
	assert.True(t, h.rec.Contains(report.LevelHint, "no profiles configured"))
}

func TestResolveCanceled(t *testing.T) {
	h := newHarness(errors.New("request canceled"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.resolver.Resolve(ctx, Profile{Name: "dev"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.rec.Count(report.LevelError))
}

func TestIdentity(t *testing.T) {
	h := newHarness(nil, nil)
	id, err := h.resolver.Identity(context.Background(), SessionHandle{ProfileName: "dev"})
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id.Account)
	assert.Contains(t, id.Arn, "user/ops")
}

type fakeKeys map[string]aws.Credentials

func (f fakeKeys) Lookup(profile string) (aws.Credentials, bool, error) {
	c, ok := f[profile]
	return c, ok, nil
}

func TestResolveAttachesStoredKeys(t *testing.T) {
	h := newHarness(nil, nil)
	h.resolver.Keys = fakeKeys{"ci": {AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "secret"}}

	got, err := h.resolver.Resolve(context.Background(), Profile{Name: "ci"})
	require.NoError(t, err)
	require.NotNil(t, got.Keys)
	assert.Equal(t, []string{"AWS_ACCESS_KEY_ID=AKIAEXAMPLE", "AWS_SECRET_ACCESS_KEY=secret"}, got.CLIEnv())

	other, err := h.resolver.Resolve(context.Background(), Profile{Name: "dev"})
	require.NoError(t, err)
	assert.Nil(t, other.Keys)
	assert.Empty(t, other.CLIEnv())
}

func TestResolveStoredKeysInvalidSuggestsCredsSet(t *testing.T) {
	h := newHarness(apiErr("InvalidClientTokenId"), nil)
	h.resolver.Keys = fakeKeys{"ci": {AccessKeyID: "AKIAOLD", SecretAccessKey: "secret"}}

	_, err := h.resolver.Resolve(context.Background(), Profile{Name: "ci"})
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidCredentials, f.Kind)
	assert.Equal(t, "Replace stored keys: bssm creds set ci --access-key-id <key>", f.Remediation[0])

	_, err = h.resolver.Resolve(context.Background(), Profile{Name: "dev"})
	f, _ = AsFailure(err)
	for _, step := range f.Remediation {
		assert.NotContains(t, step, "bssm creds")
	}
}
