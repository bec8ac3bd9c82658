package awsauth

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/ssocreds"
	"github.com/aws/smithy-go"
)

// Some SDK credential errors are untyped; these substrings identify them.
var (
	staleTokenMarkers = []string{
		"sso token",
		"sso session",
		"token has expired and refresh failed",
	}
	noCredentialMarkers = []string{
		"no ec2 imds role found",
		"failed to retrieve credentials",
		"no valid credential sources",
		"anonymous credentials",
		"failed to refresh cached credentials",
	}
)

// Classify maps an error from config loading or the identity probe onto a
// failure Kind. Errors it cannot place become KindAuthFailed.
func Classify(err error) Kind {
	if err == nil {
		return 0
	}

	var notExist config.SharedConfigProfileNotExistError
	if errors.As(err, &notExist) {
		return KindProfileNotFound
	}
	var invalidToken *ssocreds.InvalidTokenError
	if errors.As(err, &invalidToken) {
		return KindStaleToken
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidClientTokenId", "SignatureDoesNotMatch", "InvalidAccessKeyId", "UnrecognizedClientException":
			return KindInvalidCredentials
		case "ExpiredToken", "ExpiredTokenException", "RequestExpired":
			return KindExpiredToken
		case "UnauthorizedException":
			// sso:GetRoleCredentials rejects a revoked portal token this way
			return KindStaleToken
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, staleTokenMarkers):
		return KindStaleToken
	case containsAny(msg, noCredentialMarkers):
		return KindNoCredentials
	case strings.Contains(msg, "failed to get shared config profile"):
		return KindProfileNotFound
	}
	return KindAuthFailed
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
