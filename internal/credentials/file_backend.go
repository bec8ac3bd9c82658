package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/vee-sh/bssm/internal/config"
)

const (
	fileName = "credentials.enc"
	keySalt  = "bssm-credentials-v1"
	keyInfo  = "bssm file backend"
)

// FileBackend keeps every profile's keys in one AES-256-GCM encrypted
// file. The key is derived per user, so the file protects against casual
// disclosure, not against the user's own account.
type FileBackend struct {
	mu       sync.Mutex
	filePath string
	key      []byte
}

func NewFileBackend() (*FileBackend, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewFileBackendAt(filepath.Join(dir, fileName), home)
}

// NewFileBackendAt uses path for storage and derives the key from secret.
func NewFileBackendAt(path, secret string) (*FileBackend, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &FileBackend{filePath: path, key: key}, nil
}

func deriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), []byte(keySalt), []byte(keyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func (f *FileBackend) Name() string { return "file" }

func (f *FileBackend) Path() string { return f.filePath }

func (f *FileBackend) load() (map[string]Keys, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Keys{}, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	plaintext, err := f.decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials file: %w", err)
	}
	var all map[string]Keys
	if err := json.Unmarshal(plaintext, &all); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if all == nil {
		all = map[string]Keys{}
	}
	return all, nil
}

func (f *FileBackend) save(all map[string]Keys) error {
	data, err := json.Marshal(all)
	if err != nil {
		return err
	}
	encrypted, err := f.encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.filePath), 0o700); err != nil {
		return err
	}
	tmp := f.filePath + ".tmp"
	if err := os.WriteFile(tmp, encrypted, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.filePath)
}

func (f *FileBackend) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(f.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FileBackend) encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := f.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (f *FileBackend) decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := f.gcm()
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(ciphertext) < n {
		return nil, fmt.Errorf("ciphertext too short")
	}
	return gcm.Open(nil, ciphertext[:n], ciphertext[n:], nil)
}

func (f *FileBackend) Get(profile string) (Keys, bool, error) {
	if err := validProfile(profile); err != nil {
		return Keys{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return Keys{}, false, err
	}
	k, ok := all[profile]
	return k, ok, nil
}

func (f *FileBackend) Set(profile string, k Keys) error {
	if err := validProfile(profile); err != nil {
		return err
	}
	if err := k.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return err
	}
	all[profile] = k
	return f.save(all)
}

func (f *FileBackend) Delete(profile string) error {
	if err := validProfile(profile); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := all[profile]; !ok {
		return nil
	}
	delete(all, profile)
	return f.save(all)
}
