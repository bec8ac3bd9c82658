package awsauth

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/vee-sh/bssm/internal/logging"
	"github.com/vee-sh/bssm/internal/report"
)

const DefaultProfile = "default"

// Profile names a credential configuration and an optional region override.
type Profile struct {
	Name   string
	Region string
}

func (p Profile) normalized() Profile {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = DefaultProfile
	}
	p.Region = strings.TrimSpace(p.Region)
	return p
}

// SessionHandle is a credential-bearing AWS configuration scoped to one
// profile. IsDefault is decided when the handle is built.
type SessionHandle struct {
	ProfileName string
	// Region is the explicit override, empty when the profile's own region applies.
	Region    string
	IsDefault bool
	Config    aws.Config
	// Keys holds stored static keys when the credential store supplied them.
	Keys *aws.Credentials
}

// CLIEnv is the environment the AWS CLI needs to act as this handle. It is
// empty unless the handle carries stored keys.
func (h SessionHandle) CLIEnv() []string {
	if h.Keys == nil {
		return nil
	}
	env := []string{
		"AWS_ACCESS_KEY_ID=" + h.Keys.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY=" + h.Keys.SecretAccessKey,
	}
	if h.Keys.SessionToken != "" {
		env = append(env, "AWS_SESSION_TOKEN="+h.Keys.SessionToken)
	}
	return env
}

// ChildEnv is the environment for an AWS CLI child acting as this handle.
// The default profile is selected by omitting --profile, so an inherited
// AWS_PROFILE must not redirect the child to another profile.
func (h SessionHandle) ChildEnv(base []string) []string {
	env := base
	if h.IsDefault {
		env = StripProfileEnv(base)
	}
	return append(env, h.CLIEnv()...)
}

// StripProfileEnv drops AWS_PROFILE and AWS_DEFAULT_PROFILE from env.
func StripProfileEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, "AWS_PROFILE=") || strings.HasPrefix(kv, "AWS_DEFAULT_PROFILE=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// EffectiveRegion is the region the handle's clients will talk to.
func (h SessionHandle) EffectiveRegion() string {
	if h.Region != "" {
		return h.Region
	}
	return h.Config.Region
}

// Identity is the caller identity returned by STS.
type Identity struct {
	Account string `json:"account"`
	Arn     string `json:"arn"`
	UserID  string `json:"userId"`
}

type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ConfigLoader builds the AWS configuration for a profile. keys is nil
// unless the credential store holds a pair for the profile.
type ConfigLoader func(ctx context.Context, p Profile, keys *aws.Credentials) (aws.Config, error)

// Refresher renews a stale SSO token for a profile.
type Refresher interface {
	Refresh(ctx context.Context, profile string) error
}

// ProfileLister enumerates configured profile names.
type ProfileLister interface {
	ListProfiles(ctx context.Context) ([]string, error)
}

// KeySource supplies static access keys stored outside the shared config.
type KeySource interface {
	Lookup(profile string) (aws.Credentials, bool, error)
}

// SharedConfigLoader loads the shared AWS config for a profile. Static
// keys, when given, take precedence over the config credential chain.
func SharedConfigLoader(ctx context.Context, p Profile, keys *aws.Credentials) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithSharedConfigProfile(p.Name)}
	if p.Region != "" {
		opts = append(opts, config.WithRegion(p.Region))
	}
	if keys != nil {
		opts = append(opts, config.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(keys.AccessKeyID, keys.SecretAccessKey, keys.SessionToken)))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

// Resolver turns a Profile into a validated SessionHandle. A stale SSO token
// triggers exactly one login through Refresher; every other failure is
// reported and returned as a Failure.
type Resolver struct {
	Load      ConfigLoader
	NewSTS    func(aws.Config) STSAPI
	Refresher Refresher
	Profiles  ProfileLister
	// Keys is optional.
	Keys     KeySource
	Reporter report.Reporter
}

func NewResolver(rep report.Reporter, keys KeySource) *Resolver {
	return &Resolver{
		Load:      SharedConfigLoader,
		NewSTS:    func(cfg aws.Config) STSAPI { return sts.NewFromConfig(cfg) },
		Refresher: NewLoginRefresher(rep),
		Profiles:  NewCLIProfileLister(),
		Keys:      keys,
		Reporter:  rep,
	}
}

func (r *Resolver) Resolve(ctx context.Context, p Profile) (SessionHandle, error) {
	p = p.normalized()
	log := logging.Logger().WithField("profile", p.Name)

	h, err := r.build(ctx, p)
	if err == nil {
		log.Debug("probing caller identity")
		_, err = r.NewSTS(h.Config).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err == nil {
			return h, nil
		}
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return SessionHandle{}, context.Canceled
	}

	kind := Classify(err)
	log.WithField("kind", kind).Debugf("credential check failed: %v", err)
	if kind != KindStaleToken {
		return SessionHandle{}, r.fail(ctx, p, h.Keys != nil, kind, err)
	}

	r.Reporter.Warn("SSO token for profile %q has expired, logging in again...", p.Name)
	if err := r.Refresher.Refresh(ctx, p.Name); err != nil {
		if errors.Is(err, context.Canceled) {
			return SessionHandle{}, context.Canceled
		}
		if f, ok := AsFailure(err); ok {
			f.Report(r.Reporter)
		}
		return SessionHandle{}, err
	}
	r.Reporter.Success("SSO login completed")

	// The login just succeeded, so the rebuilt context is trusted as is.
	h, err = r.build(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return SessionHandle{}, context.Canceled
		}
		return SessionHandle{}, r.fail(ctx, p, false, Classify(err), err)
	}
	return h, nil
}

// Identity resolves nothing; it only asks STS who the handle belongs to.
func (r *Resolver) Identity(ctx context.Context, h SessionHandle) (Identity, error) {
	out, err := r.NewSTS(h.Config).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Account: aws.ToString(out.Account),
		Arn:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}

func (r *Resolver) build(ctx context.Context, p Profile) (SessionHandle, error) {
	keys := r.storedKeys(p.Name)
	cfg, err := r.Load(ctx, p, keys)
	if err != nil {
		return SessionHandle{}, err
	}
	return SessionHandle{
		ProfileName: p.Name,
		Region:      p.Region,
		IsDefault:   p.Name == DefaultProfile,
		Config:      cfg,
		Keys:        keys,
	}, nil
}

func (r *Resolver) storedKeys(profile string) *aws.Credentials {
	if r.Keys == nil {
		return nil
	}
	log := logging.Logger().WithField("profile", profile)
	creds, ok, err := r.Keys.Lookup(profile)
	if err != nil {
		log.Debugf("credential store lookup failed: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	log.Debug("using stored static keys")
	return &creds
}

func (r *Resolver) fail(ctx context.Context, p Profile, stored bool, kind Kind, err error) Failure {
	f := newFailure(kind, p.Name, err)
	switch {
	case kind == KindProfileNotFound:
		f.Profiles = r.listProfiles(ctx)
	case stored && (kind == KindInvalidCredentials || kind == KindExpiredToken):
		// the shared config is not consulted for stored keys
		f.Remediation = append([]string{
			"Replace stored keys: bssm creds set " + p.Name + " --access-key-id <key>",
			"Or drop them to use the shared config: bssm creds remove " + p.Name,
		}, f.Remediation...)
	}
	f.Report(r.Reporter)
	return f
}

func (r *Resolver) listProfiles(ctx context.Context) []string {
	if r.Profiles == nil {
		return []string{}
	}
	names, err := r.Profiles.ListProfiles(ctx)
	if err != nil {
		logging.Logger().Debugf("listing profiles failed: %v", err)
		return []string{}
	}
	if names == nil {
		return []string{}
	}
	return names
}
