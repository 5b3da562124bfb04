package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

func envFrom(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	l := &Loader{Path: filepath.Join(dir, "config.toml"), Env: envFrom(nil)}

	got, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "common", got.Microsoft.Tenant)
	assert.True(t, got.Microsoft.SingleUser)
	assert.Equal(t, domain.Duration(24*time.Hour), got.Session.TTL)
	assert.Equal(t, filepath.Join(dir, "graphmail.db"), got.Storage.Path)
}

func TestLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[microsoft]
tenant = "contoso.onmicrosoft.com"
client_id = "client-1"
redirect_uri = "http://localhost/callback"
single_user = false
save_to_sent_items = true

[session]
redis_addr = "localhost:6379"
ttl = "2h"

[storage]
path = "/var/lib/graphmail/tokens.db"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	got, err := (&Loader{Path: path, Env: envFrom(nil)}).Load()
	require.NoError(t, err)

	assert.Equal(t, "contoso.onmicrosoft.com", got.Microsoft.Tenant)
	assert.Equal(t, "client-1", got.Microsoft.ClientID)
	assert.False(t, got.Microsoft.SingleUser)
	assert.True(t, got.Microsoft.SaveToSentItems)
	assert.Equal(t, "localhost:6379", got.Session.RedisAddr)
	assert.Equal(t, domain.Duration(2*time.Hour), got.Session.TTL)
	assert.Equal(t, "/var/lib/graphmail/tokens.db", got.Storage.Path)
	assert.Equal(t, "127.0.0.1:2525", got.Relay.Addr, "unset values keep defaults")
}

func TestLoader_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[microsoft]\nclient_id = \"from-file\"\n"), 0o600))

	l := &Loader{Path: path, Env: envFrom(map[string]string{
		"GRAPHMAIL_CLIENT_ID":     "from-env",
		"GRAPHMAIL_CLIENT_SECRET": "s3cret",
		"GRAPHMAIL_SINGLE_USER":   "false",
		"GRAPHMAIL_REDIS_DB":      "3",
		"GRAPHMAIL_SESSION_TTL":   "90m",
		"GRAPHMAIL_SCOPES":        "User.Read Mail.Send",
	})}

	got, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", got.Microsoft.ClientID)
	assert.Equal(t, "s3cret", got.Microsoft.ClientSecret)
	assert.False(t, got.Microsoft.SingleUser)
	assert.Equal(t, 3, got.Session.RedisDB)
	assert.Equal(t, domain.Duration(90*time.Minute), got.Session.TTL)
	assert.Equal(t, []string{"User.Read", "Mail.Send"}, got.Microsoft.Scopes)
}

func TestLoader_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad toml", file: "[microsoft\n"},
		{name: "bad bool", env: map[string]string{"GRAPHMAIL_SINGLE_USER": "maybe"}},
		{name: "bad int", env: map[string]string{"GRAPHMAIL_REDIS_DB": "three"}},
		{name: "bad duration", env: map[string]string{"GRAPHMAIL_SESSION_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if tt.file != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o600))
			}
			_, err := (&Loader{Path: path, Env: envFrom(tt.env)}).Load()
			assert.Error(t, err)
		})
	}
}

func TestLoader_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	l := &Loader{Path: path, Env: envFrom(nil)}

	settings := domain.DefaultSettings()
	settings.Microsoft.ClientID = "client-2"
	settings.Session.TTL = domain.Duration(45 * time.Minute)
	require.NoError(t, l.Save(settings))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "client-2", got.Microsoft.ClientID)
	assert.Equal(t, domain.Duration(45*time.Minute), got.Session.TTL)
}
