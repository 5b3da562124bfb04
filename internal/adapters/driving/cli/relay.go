package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run an SMTP relay that delivers through Microsoft Graph",
	Long: `Accept mail over SMTP and deliver it with the connected account.

In per-session mode the SMTP AUTH username selects the session credential.
With --metrics-addr, Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runRelay,
}

var relayOpts RelayOptions

func init() {
	relayCmd.Flags().StringVar(&relayOpts.Addr, "addr", "", "SMTP listen address (default from config)")
	relayCmd.Flags().StringVar(&relayOpts.MetricsAddr, "metrics-addr", "", "metrics listen address (disabled when empty)")
	rootCmd.AddCommand(relayCmd)
}

func runRelay(cmd *cobra.Command, _ []string) error {
	if relayRunner == nil {
		return fmt.Errorf("relay %w", errNotConfigured)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return relayRunner(ctx, relayOpts)
}
