package awsauth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/ssocreds"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func apiErr(code string) error {
	return &smithy.OperationError{
		ServiceID:     "STS",
		OperationName: "GetCallerIdentity",
		Err:           &smithy.GenericAPIError{Code: code, Message: "rejected"},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid token id", apiErr("InvalidClientTokenId"), KindInvalidCredentials},
		{"bad signature", apiErr("SignatureDoesNotMatch"), KindInvalidCredentials},
		{"expired token", apiErr("ExpiredToken"), KindExpiredToken},
		{"expired token exception", apiErr("ExpiredTokenException"), KindExpiredToken},
		{"sso unauthorized", apiErr("UnauthorizedException"), KindStaleToken},
		{"missing profile", config.SharedConfigProfileNotExistError{Profile: "ghost"}, KindProfileNotFound},
		{"wrapped missing profile", fmt.Errorf("load: %w", config.SharedConfigProfileNotExistError{Profile: "ghost"}), KindProfileNotFound},
		{"sso token typed", &ssocreds.InvalidTokenError{Err: errors.New("expired")}, KindStaleToken},
		{"sso token message", errors.New("refresh cached SSO token failed, unable to refresh SSO token"), KindStaleToken},
		{"no credentials", errors.New("failed to refresh cached credentials, no EC2 IMDS role found"), KindNoCredentials},
		{"unknown api code", apiErr("Throttling"), KindAuthFailed},
		{"plain error", errors.New("dial tcp: connection refused"), KindAuthFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestNewFailureUnknownKindBecomesAuthFailed(t *testing.T) {
	f := newFailure(Kind(99), "dev", errors.New("boom"))
	assert.Equal(t, KindAuthFailed, f.Kind)
	assert.NotEmpty(t, f.Remediation)
	assert.Contains(t, f.Error(), "boom")
}

func TestAsFailure(t *testing.T) {
	f := newFailure(KindExpiredToken, "dev", nil)
	wrapped := fmt.Errorf("resolve: %w", f)

	got, ok := AsFailure(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindExpiredToken, got.Kind)

	_, ok = AsFailure(errors.New("other"))
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "StaleToken", KindStaleToken.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
}
