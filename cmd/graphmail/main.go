package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/graphmail/internal/adapters/driven/config/file"
	"github.com/custodia-labs/graphmail/internal/adapters/driven/crypto"
	"github.com/custodia-labs/graphmail/internal/adapters/driven/keyring"
	"github.com/custodia-labs/graphmail/internal/adapters/driven/mime"
	"github.com/custodia-labs/graphmail/internal/adapters/driven/session"
	"github.com/custodia-labs/graphmail/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/graphmail/internal/adapters/driving/cli"
	"github.com/custodia-labs/graphmail/internal/connectors/microsoft"
	"github.com/custodia-labs/graphmail/internal/connectors/microsoft/outlook"
	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
	"github.com/custodia-labs/graphmail/internal/core/services"
	"github.com/custodia-labs/graphmail/internal/logger"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	defer logger.Sync()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		logger.Error("cli: %v", err)
		return 1
	}
	return 0
}

// bootstrap loads settings and builds every service the CLI needs.
//
//nolint:funlen // sequential setup of all dependencies
func bootstrap(configPath string) (*cli.Services, error) {
	settings, err := file.NewLoader(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dir, err := file.Dir()
	if err != nil {
		return nil, err
	}

	// The keyring is opened lazily; most commands never touch it.
	var keys *keyring.KeyStore
	openKeys := func() (*keyring.KeyStore, error) {
		if keys != nil {
			return keys, nil
		}
		ring, err := keyring.Open(dir)
		if err != nil {
			return nil, err
		}
		keys = keyring.NewKeyStore(ring)
		return keys, nil
	}

	if settings.Microsoft.ClientSecret == "" {
		if ks, err := openKeys(); err == nil {
			if secret, err := ks.ClientSecret(); err == nil {
				settings.Microsoft.ClientSecret = secret
			} else {
				logger.Warn("config: reading client secret from keyring: %v", err)
			}
		} else {
			logger.Debug("config: keyring unavailable: %v", err)
		}
	}

	cipher, err := newCipher(settings.Security, openKeys)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	deps := services.CredentialDeps{Cipher: cipher}

	if settings.Microsoft.SingleUser {
		store, err := sqlite.Open(settings.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("opening token store: %w", err)
		}
		closers = append(closers, store.Close)
		deps.Tokens = sqlite.NewTokenStore(store)
	} else {
		sessions, err := newSessionStore(settings.Session)
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		if c, ok := sessions.(interface{ Close() error }); ok {
			closers = append(closers, c.Close)
		}
		deps.Sessions = sessions
		deps.SessionTTL = time.Duration(settings.Session.TTL)
	}

	oauth := microsoft.NewOAuthHandler(microsoft.OAuthConfig{
		Tenant:       settings.Microsoft.Tenant,
		ClientID:     settings.Microsoft.ClientID,
		ClientSecret: settings.Microsoft.ClientSecret,
		RedirectURI:  settings.Microsoft.RedirectURI,
		Scopes:       settings.Microsoft.Scopes,
	}, nil)
	if settings.Microsoft.ClientID == "" {
		logger.Warn("config: no client ID configured. %s", oauth.SetupHint())
	}
	deps.Refresher = oauth
	deps.Profiles = oauth
	deps.AuthURLs = oauth

	credentials := services.NewCredentialManager(settings.Microsoft.SingleUser, deps)
	parser := mime.NewParser()

	// Each caller gets its own GraphClient bound to the credential manager.
	newMailService := func() *services.MailService {
		graph := microsoft.NewGraphClient(credentials)
		mailer := outlook.NewMailer(graph, outlook.NewCompiler(settings.Microsoft.SaveToSentItems))
		return services.NewMailService(mailer, parser)
	}

	graph := microsoft.NewGraphClient(credentials)

	return &cli.Services{
		Credentials: credentials,
		Mail:        newMailService(),
		Mailbox:     services.NewMailboxService(outlook.NewMailbox(graph)),
		Secrets:     lazySecrets(openKeys),
		Relay:       newRelayRunner(settings, newMailService),
		Close:       closeAll,
	}, nil
}

// newCipher derives the cipher from the configured passphrase, or from a
// random key kept in the keyring.
func newCipher(sec domain.SecuritySettings, openKeys func() (*keyring.KeyStore, error)) (*crypto.Cipher, error) {
	if sec.EncryptionKey != "" {
		return crypto.NewCipherFromSecret(sec.EncryptionKey)
	}

	ks, err := openKeys()
	if err != nil {
		return nil, fmt.Errorf("no encryption_key configured and keyring unavailable: %w", err)
	}
	key, err := ks.LoadOrCreate()
	if err != nil {
		return nil, err
	}
	return crypto.NewCipher(key)
}

func newSessionStore(cfg domain.SessionSettings) (driven.SessionStore, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("session mode needs session.redis_addr to share credentials across processes: %w", domain.ErrInvalidInput)
	}

	store, err := session.NewRedisStore(context.Background(), session.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// secretFunc adapts a lazily opened keyring to cli.SecretStore.
type secretFunc func(secret string) error

func (f secretFunc) SetClientSecret(secret string) error {
	return f(secret)
}

func lazySecrets(openKeys func() (*keyring.KeyStore, error)) cli.SecretStore {
	return secretFunc(func(secret string) error {
		ks, err := openKeys()
		if err != nil {
			return err
		}
		return ks.SetClientSecret(secret)
	})
}
