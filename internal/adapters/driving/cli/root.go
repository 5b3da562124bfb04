package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driving"
	"github.com/custodia-labs/graphmail/internal/logger"
)

var (
	// Version is set by goreleaser ldflags.
	version = "dev"

	// Verbose enables debug logging.
	verbose bool

	// configPath overrides ~/.graphmail/config.toml.
	configPath string

	// sessionKey scopes every command to a per-session credential.
	sessionKey string

	// Services holds injected service implementations for CLI commands.
	credentialService driving.CredentialService
	mailService       driving.MailService
	mailboxService    driving.MailboxService
	secretStore       SecretStore
	relayRunner       RelayRunner
	closeServices     func() error

	bootstrap Bootstrap
)

// SecretStore persists the OAuth client secret.
type SecretStore interface {
	SetClientSecret(secret string) error
}

// RelayOptions configures the relay command.
type RelayOptions struct {
	Addr        string
	MetricsAddr string
}

// RelayRunner serves the SMTP relay until ctx is cancelled.
type RelayRunner func(ctx context.Context, opts RelayOptions) error

// Services holds configuration for CLI commands.
type Services struct {
	Credentials driving.CredentialService
	Mail        driving.MailService
	Mailbox     driving.MailboxService
	Secrets     SecretStore
	Relay       RelayRunner
	// Close releases stores opened for the services.
	Close func() error
}

// Bootstrap builds services once flags are parsed.
type Bootstrap func(configPath string) (*Services, error)

// SetServices injects service implementations for CLI commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	credentialService = s.Credentials
	mailService = s.Mail
	mailboxService = s.Mailbox
	secretStore = s.Secrets
	relayRunner = s.Relay
	closeServices = s.Close
}

// SetBootstrap registers the function that builds services from the loaded config.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "graphmail",
	Short: "Send and read Outlook mail through Microsoft Graph",
	Long: `Graphmail sends mail and browses an Outlook mailbox through Microsoft Graph,
keeping the OAuth access token valid in the background.

Run 'graphmail auth url' to connect a mailbox.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeServices != nil {
		if cerr := closeServices(); cerr != nil {
			logger.Warn("cli: closing services: %v", cerr)
		}
		closeServices = nil
	}
	return err
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// commandContext returns the command context scoped to --session when set.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionKey != "" {
		ctx = domain.WithSessionKey(ctx, sessionKey)
	}
	return ctx
}

var errNotConfigured = errors.New("service not configured")

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.graphmail/config.toml)")
	rootCmd.PersistentFlags().StringVar(&sessionKey, "session", "", "per-session credential key")
	rootCmd.Version = version

	// Use PersistentPreRunE to set verbose mode and build services before any command executes
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if bootstrap == nil {
			return nil
		}
		s, err := bootstrap(configPath)
		if err != nil {
			return err
		}
		SetServices(s)
		return nil
	}
}
