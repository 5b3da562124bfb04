// Package file loads graphmail settings from a TOML file and the environment.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

const (
	configDirName  = ".graphmail"
	configFileName = "config.toml"
	dbFileName     = "graphmail.db"
)

// Dir returns the graphmail home directory (~/.graphmail).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// DefaultPath returns ~/.graphmail/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Loader reads settings. Env is the environment lookup, os.LookupEnv by default.
type Loader struct {
	Path string
	Env  func(string) (string, bool)
}

// NewLoader creates a loader for path. An empty path uses DefaultPath.
func NewLoader(path string) *Loader {
	return &Loader{Path: path, Env: os.LookupEnv}
}

// Load returns defaults overlaid with the file (if present) and then GRAPHMAIL_* variables.
// A .env file in the working directory is loaded into the environment first.
func (l *Loader) Load() (domain.Settings, error) {
	_ = godotenv.Load()

	settings := domain.DefaultSettings()

	path, err := l.path()
	if err != nil {
		return settings, err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return settings, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return settings, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := l.applyEnv(&settings); err != nil {
		return settings, err
	}

	if settings.Storage.Path == "" {
		settings.Storage.Path = filepath.Join(filepath.Dir(path), dbFileName)
	}

	return settings, nil
}

// Save writes settings to the loader's path with owner-only permissions.
func (l *Loader) Save(settings domain.Settings) error {
	path, err := l.path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (l *Loader) path() (string, error) {
	if l.Path != "" {
		return l.Path, nil
	}
	return DefaultPath()
}

func (l *Loader) applyEnv(s *domain.Settings) error {
	lookup := l.Env
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		"GRAPHMAIL_TENANT":         &s.Microsoft.Tenant,
		"GRAPHMAIL_CLIENT_ID":      &s.Microsoft.ClientID,
		"GRAPHMAIL_CLIENT_SECRET":  &s.Microsoft.ClientSecret,
		"GRAPHMAIL_REDIRECT_URI":   &s.Microsoft.RedirectURI,
		"GRAPHMAIL_DB_PATH":        &s.Storage.Path,
		"GRAPHMAIL_REDIS_ADDR":     &s.Session.RedisAddr,
		"GRAPHMAIL_REDIS_PASSWORD": &s.Session.RedisPassword,
		"GRAPHMAIL_ENCRYPTION_KEY": &s.Security.EncryptionKey,
		"GRAPHMAIL_RELAY_ADDR":     &s.Relay.Addr,
		"GRAPHMAIL_RELAY_DOMAIN":   &s.Relay.Domain,
		"GRAPHMAIL_RELAY_USERNAME": &s.Relay.Username,
		"GRAPHMAIL_RELAY_PASSWORD": &s.Relay.Password,
		"GRAPHMAIL_METRICS_ADDR":   &s.Metrics.Addr,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	if v, ok := lookup("GRAPHMAIL_SCOPES"); ok {
		s.Microsoft.Scopes = strings.Fields(v)
	}

	bools := map[string]*bool{
		"GRAPHMAIL_SINGLE_USER":        &s.Microsoft.SingleUser,
		"GRAPHMAIL_SAVE_TO_SENT_ITEMS": &s.Microsoft.SaveToSentItems,
	}
	for name, dst := range bools {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a boolean: %w", name, v, domain.ErrInvalidInput)
		}
		*dst = b
	}

	if v, ok := lookup("GRAPHMAIL_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRAPHMAIL_REDIS_DB=%q is not an integer: %w", v, domain.ErrInvalidInput)
		}
		s.Session.RedisDB = n
	}

	if v, ok := lookup("GRAPHMAIL_SESSION_TTL"); ok {
		if err := s.Session.TTL.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("GRAPHMAIL_SESSION_TTL: %w", err)
		}
	}

	return nil
}
