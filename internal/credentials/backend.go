package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/vee-sh/bssm/internal/config"
	"github.com/vee-sh/bssm/internal/logging"
)

// Keys is a static AWS access key pair stored for one profile.
type Keys struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken,omitempty"`
}

func (k Keys) Validate() error {
	if strings.TrimSpace(k.AccessKeyID) == "" {
		return errors.New("access key id required")
	}
	if strings.TrimSpace(k.SecretAccessKey) == "" {
		return errors.New("secret access key required")
	}
	return nil
}

// Backend persists Keys by AWS profile name.
type Backend interface {
	Name() string
	// Get returns ok=false when nothing is stored for profile.
	Get(profile string) (Keys, bool, error)
	Set(profile string, k Keys) error
	Delete(profile string) error
}

// Store adapts a Backend to the resolver's key lookup.
type Store struct {
	Backend Backend
}

func (s Store) Lookup(profile string) (aws.Credentials, bool, error) {
	if s.Backend == nil {
		return aws.Credentials{}, false, nil
	}
	k, ok, err := s.Backend.Get(profile)
	if err != nil || !ok {
		return aws.Credentials{}, false, err
	}
	return aws.Credentials{
		AccessKeyID:     k.AccessKeyID,
		SecretAccessKey: k.SecretAccessKey,
		SessionToken:    k.SessionToken,
		Source:          "bssm " + s.Backend.Name(),
	}, true, nil
}

// Select opens the backend named by name: keyring, file, or auto, which
// prefers the OS keyring and falls back to the encrypted file.
func Select(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case config.BackendKeyring:
		return NewKeyringBackend()
	case config.BackendFile:
		return NewFileBackend()
	case "", config.BackendAuto:
		kr, err := NewKeyringBackend()
		if err == nil {
			return kr, nil
		}
		logging.Logger().Debugf("keyring unavailable, using encrypted file: %v", err)
		return NewFileBackend()
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", name)
	}
}

func validProfile(profile string) error {
	if strings.TrimSpace(profile) == "" {
		return errors.New("profile name required")
	}
	return nil
}

func encodeKeys(k Keys) ([]byte, error) {
	return json.Marshal(k)
}

func decodeKeys(data []byte) (Keys, error) {
	var k Keys
	if err := json.Unmarshal(data, &k); err != nil {
		return Keys{}, fmt.Errorf("decode stored keys: %w", err)
	}
	return k, nil
}
