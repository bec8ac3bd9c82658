package awsauth

import (
	"errors"
	"fmt"

	"github.com/vee-sh/bssm/internal/report"
)

// Kind is the closed set of credential and login failure categories.
type Kind int

const (
	KindInvalidCredentials Kind = iota + 1
	KindExpiredToken
	KindNoCredentials
	KindProfileNotFound
	// KindStaleToken is recoverable: the resolver runs one SSO login.
	KindStaleToken
	KindLoginFailed
	KindToolMissing
	KindAuthFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindExpiredToken:
		return "ExpiredToken"
	case KindNoCredentials:
		return "NoCredentials"
	case KindProfileNotFound:
		return "ProfileNotFound"
	case KindStaleToken:
		return "StaleToken"
	case KindLoginFailed:
		return "LoginFailed"
	case KindToolMissing:
		return "ToolMissing"
	case KindAuthFailed:
		return "AuthFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Failure is a terminal credential outcome. It is returned by value and
// matched with errors.As or AsFailure.
type Failure struct {
	Kind    Kind
	Profile string
	Message string
	// Remediation lists commands or steps the operator can try.
	Remediation []string
	// Profiles is filled for KindProfileNotFound; it may be empty.
	Profiles []string
	Err      error
}

func (f Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

func (f Failure) Unwrap() error { return f.Err }

// AsFailure unwraps err looking for a Failure.
func AsFailure(err error) (Failure, bool) {
	var f Failure
	if errors.As(err, &f) {
		return f, true
	}
	return Failure{}, false
}

// Report renders the failure and its remediation through rep.
func (f Failure) Report(rep report.Reporter) {
	rep.Error("%s", f.Message)
	if f.Kind == KindAuthFailed && f.Err != nil {
		rep.Error("%v", f.Err)
	}
	if f.Kind == KindProfileNotFound {
		if len(f.Profiles) == 0 {
			rep.Hint("Available profiles:", "(no profiles configured)")
		} else {
			rep.Hint("Available profiles:", f.Profiles...)
		}
		return
	}
	if len(f.Remediation) > 0 {
		rep.Hint("Try the following:", f.Remediation...)
	}
}

const installURL = "https://aws.amazon.com/cli/"

func newFailure(kind Kind, profile string, err error) Failure {
	f := Failure{Kind: kind, Profile: profile, Err: err}
	switch kind {
	case KindInvalidCredentials:
		f.Message = fmt.Sprintf("AWS credentials for profile %q are invalid", profile)
		f.Remediation = []string{
			"Reset access keys: aws configure --profile " + profile,
			"Log in again with SSO: aws sso login --profile " + profile,
			"Check the active identity: aws sts get-caller-identity",
		}
	case KindExpiredToken:
		f.Message = fmt.Sprintf("AWS session token for profile %q has expired", profile)
		f.Remediation = []string{
			"Log in again with SSO: aws sso login --profile " + profile,
			"Rotate access keys: aws configure --profile " + profile,
		}
	case KindNoCredentials:
		f.Message = fmt.Sprintf("no credentials found for profile %q", profile)
		f.Remediation = []string{
			"Configure access keys: aws configure --profile " + profile,
			"Configure SSO: aws configure sso --profile " + profile,
			"List profiles: aws configure list-profiles",
			"Or export AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY",
		}
	case KindProfileNotFound:
		f.Message = fmt.Sprintf("profile %q not found", profile)
	case KindStaleToken:
		f.Message = fmt.Sprintf("SSO token for profile %q is still not valid after login", profile)
		f.Remediation = []string{
			"Log in manually: aws sso login --profile " + profile,
		}
	case KindLoginFailed:
		f.Message = fmt.Sprintf("SSO login for profile %q failed", profile)
		f.Remediation = []string{
			"Retry manually: aws sso login --profile " + profile,
		}
	case KindToolMissing:
		f.Message = "AWS CLI is not installed or not in PATH"
		f.Remediation = []string{"Install the AWS CLI: " + installURL}
	default:
		f.Kind = KindAuthFailed
		f.Message = fmt.Sprintf("authentication failed for profile %q", profile)
		f.Remediation = []string{
			"Access keys: aws configure",
			"SSO: aws sso login",
		}
	}
	return f
}
