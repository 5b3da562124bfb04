package domain

import (
	"fmt"
	"time"
)

// Settings is the full application configuration.
type Settings struct {
	Microsoft MicrosoftSettings `toml:"microsoft"`
	Storage   StorageSettings   `toml:"storage"`
	Session   SessionSettings   `toml:"session"`
	Security  SecuritySettings  `toml:"security"`
	Relay     RelaySettings     `toml:"relay"`
	Metrics   MetricsSettings   `toml:"metrics"`
}

// MicrosoftSettings configures the identity provider and Graph.
type MicrosoftSettings struct {
	Tenant          string   `toml:"tenant"`
	ClientID        string   `toml:"client_id"`
	ClientSecret    string   `toml:"client_secret,omitempty"`
	RedirectURI     string   `toml:"redirect_uri"`
	Scopes          []string `toml:"scopes,omitempty"`
	SingleUser      bool     `toml:"single_user"`
	SaveToSentItems bool     `toml:"save_to_sent_items"`
}

// StorageSettings configures the single-user token database.
type StorageSettings struct {
	// Path is the SQLite file. Empty means ~/.graphmail/graphmail.db.
	Path string `toml:"path"`
}

// SessionSettings configures the per-session credential store.
// RedisAddr is required unless Microsoft.SingleUser is set.
type SessionSettings struct {
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password,omitempty"`
	RedisDB       int      `toml:"redis_db"`
	TTL           Duration `toml:"ttl"`
}

// SecuritySettings holds the token encryption key.
type SecuritySettings struct {
	// EncryptionKey is a passphrase the cipher key is derived from.
	// Empty means a random key is loaded from (or created in) the keyring.
	EncryptionKey string `toml:"encryption_key,omitempty"`
}

// RelaySettings configures the SMTP relay front end.
type RelaySettings struct {
	Addr     string `toml:"addr"`
	Domain   string `toml:"domain"`
	Username string `toml:"username"`
	Password string `toml:"password,omitempty"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Addr string `toml:"addr"`
}

// DefaultSettings returns settings with defaults applied.
func DefaultSettings() Settings {
	return Settings{
		Microsoft: MicrosoftSettings{
			Tenant:     "common",
			SingleUser: true,
		},
		Session: SessionSettings{
			TTL: Duration(24 * time.Hour),
		},
		Relay: RelaySettings{
			Addr:   "127.0.0.1:2525",
			Domain: "localhost",
		},
	}
}

// Duration is a time.Duration written as text ("24h") in config files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, ErrInvalidInput)
	}
	*d = Duration(v)
	return nil
}
