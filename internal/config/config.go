package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. BSSM_DEFAULT_PROFILE.
const EnvPrefix = "BSSM"

const DefaultMaxHistory = 50

// Backend names accepted by CredentialsBackend.
const (
	BackendAuto    = "auto"
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

type Settings struct {
	DefaultProfile     string `yaml:"defaultProfile" json:"defaultProfile" split_words:"true"`
	DefaultRegion      string `yaml:"defaultRegion" json:"defaultRegion" split_words:"true"`
	MaxHistory         int    `yaml:"maxHistory" json:"maxHistory" split_words:"true"`
	PreferFZF          bool   `yaml:"preferFZF" json:"preferFZF" envconfig:"PREFER_FZF"`
	CredentialsBackend string `yaml:"credentialsBackend" json:"credentialsBackend" split_words:"true"`
	AuditEnabled       bool   `yaml:"auditEnabled" json:"auditEnabled" split_words:"true"`
}

// Defaults is what a missing config file means.
func Defaults() Settings {
	return Settings{
		MaxHistory:         DefaultMaxHistory,
		PreferFZF:          true,
		CredentialsBackend: BackendAuto,
		AuditEnabled:       true,
	}
}

// Dir is the per-user bssm directory, honouring XDG_CONFIG_HOME.
func Dir() (string, error) {
	cfgHome := os.Getenv("XDG_CONFIG_HOME")
	if strings.TrimSpace(cfgHome) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cfgHome = filepath.Join(home, ".config")
	}
	return filepath.Join(cfgHome, "bssm"), nil
}

func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the YAML file over Defaults. A missing file is not an error;
// invalid YAML is. Environment overrides are not applied here, see FromEnv.
func Load(path string) (Settings, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Settings{}, err
		}
	}
	s := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return Settings{}, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	s.normalize()
	return s, nil
}

// FromEnv applies BSSM_* environment overrides on top of s.
func FromEnv(s Settings) (Settings, error) {
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return Settings{}, err
	}
	s.normalize()
	return s, nil
}

// Resolve is Load followed by FromEnv.
func Resolve(path string) (Settings, error) {
	s, err := Load(path)
	if err != nil {
		return Settings{}, err
	}
	return FromEnv(s)
}

func Save(path string, s Settings) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Settings) normalize() {
	if s.MaxHistory <= 0 {
		s.MaxHistory = DefaultMaxHistory
	}
	s.CredentialsBackend = strings.ToLower(strings.TrimSpace(s.CredentialsBackend))
	if s.CredentialsBackend == "" {
		s.CredentialsBackend = BackendAuto
	}
}

func (s Settings) Validate() error {
	switch s.CredentialsBackend {
	case BackendAuto, BackendKeyring, BackendFile:
	default:
		return fmt.Errorf("credentialsBackend must be one of auto, keyring, file (got %q)", s.CredentialsBackend)
	}
	if s.MaxHistory < 1 {
		return fmt.Errorf("maxHistory must be positive")
	}
	return nil
}

// Keys lists the settable keys in name order.
func Keys() []string {
	keys := []string{"defaultProfile", "defaultRegion", "maxHistory", "preferFZF", "credentialsBackend", "auditEnabled"}
	sort.Strings(keys)
	return keys
}

// Set assigns a value by its YAML key name.
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "defaultProfile":
		s.DefaultProfile = value
	case "defaultRegion":
		s.DefaultRegion = value
	case "maxHistory":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("maxHistory must be a positive integer")
		}
		s.MaxHistory = n
	case "preferFZF", "auditEnabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		if key == "preferFZF" {
			s.PreferFZF = b
		} else {
			s.AuditEnabled = b
		}
	case "credentialsBackend":
		s.CredentialsBackend = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return s.Validate()
}
