package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = Keys{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "wJalrXUtnFEMI"}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	fb, err := NewFileBackendAt(filepath.Join(t.TempDir(), "credentials.enc"), "/home/tester")
	require.NoError(t, err)
	return map[string]Backend{
		"file":    fb,
		"keyring": &KeyringBackend{ring: keyring.NewArrayKeyring(nil)},
	}
}

func TestBackendRoundTrip(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := b.Get("dev")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set("dev", sample))
			got, ok, err := b.Get("dev")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, sample, got)

			require.NoError(t, b.Delete("dev"))
			_, ok, err = b.Get("dev")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting twice is fine.
			assert.NoError(t, b.Delete("dev"))
		})
	}
}

func TestBackendRejectsBadInput(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, b.Set("", sample))
			assert.Error(t, b.Set("dev", Keys{AccessKeyID: "AKIA"}))
			_, _, err := b.Get(" ")
			assert.Error(t, err)
		})
	}
}

func TestFileBackendEncryptsAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")
	fb, err := NewFileBackendAt(path, "/home/tester")
	require.NoError(t, err)
	require.NoError(t, fb.Set("dev", sample))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), sample.SecretAccessKey)

	other, err := NewFileBackendAt(path, "/home/someone-else")
	require.NoError(t, err)
	_, _, err = other.Get("dev")
	assert.Error(t, err)
}

func TestStoreLookup(t *testing.T) {
	b := &KeyringBackend{ring: keyring.NewArrayKeyring(nil)}
	require.NoError(t, b.Set("ci", sample))
	s := Store{Backend: b}

	creds, ok, err := s.Lookup("ci")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sample.AccessKeyID, creds.AccessKeyID)
	assert.Equal(t, "bssm keyring", creds.Source)

	_, ok, err = s.Lookup("dev")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = Store{}.Lookup("ci")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectUnknown(t *testing.T) {
	_, err := Select("vault")
	assert.Error(t, err)
}

func TestSelectFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	b, err := Select("file")
	require.NoError(t, err)
	assert.Equal(t, "file", b.Name())
}
