package credentials

import (
	"errors"

	"github.com/99designs/keyring"
)

const serviceName = "bssm"

// nativeBackends are the persistent keyrings backed by the OS. The keyring
// package's file and pass backends are left out; the encrypted file backend
// in this package covers that case without a password prompt. KeyCtl is left
// out because the kernel keyring does not survive a logout.
var nativeBackends = []keyring.BackendType{
	keyring.KeychainBackend,
	keyring.WinCredBackend,
	keyring.SecretServiceBackend,
	keyring.KWalletBackend,
}

// KeyringBackend stores keys in the OS keyring.
type KeyringBackend struct {
	ring keyring.Keyring
}

func NewKeyringBackend() (*KeyringBackend, error) {
	r, err := keyring.Open(keyring.Config{
		ServiceName:     serviceName,
		AllowedBackends: nativeBackends,
	})
	if err != nil {
		return nil, err
	}
	return &KeyringBackend{ring: r}, nil
}

func (b *KeyringBackend) Name() string { return "keyring" }

func itemKey(profile string) string { return "aws:" + profile }

func (b *KeyringBackend) Get(profile string) (Keys, bool, error) {
	if err := validProfile(profile); err != nil {
		return Keys{}, false, err
	}
	it, err := b.ring.Get(itemKey(profile))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Keys{}, false, nil
		}
		return Keys{}, false, err
	}
	k, err := decodeKeys(it.Data)
	if err != nil {
		return Keys{}, false, err
	}
	return k, true, nil
}

func (b *KeyringBackend) Set(profile string, k Keys) error {
	if err := validProfile(profile); err != nil {
		return err
	}
	if err := k.Validate(); err != nil {
		return err
	}
	data, err := encodeKeys(k)
	if err != nil {
		return err
	}
	return b.ring.Set(keyring.Item{
		Key:         itemKey(profile),
		Data:        data,
		Label:       "bssm AWS keys (" + profile + ")",
		Description: "AWS access key pair",
	})
}

func (b *KeyringBackend) Delete(profile string) error {
	if err := validProfile(profile); err != nil {
		return err
	}
	err := b.ring.Remove(itemKey(profile))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

// AvailableKeyrings lists the OS keyring implementations usable here.
func AvailableKeyrings() []string {
	allowed := map[keyring.BackendType]bool{}
	for _, b := range nativeBackends {
		allowed[b] = true
	}
	var out []string
	for _, b := range keyring.AvailableBackends() {
		if allowed[b] {
			out = append(out, string(b))
		}
	}
	return out
}
