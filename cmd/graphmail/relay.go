package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/graphmail/internal/adapters/driving/cli"
	"github.com/custodia-labs/graphmail/internal/adapters/driving/smtprelay"
	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driving"
	"github.com/custodia-labs/graphmail/internal/core/services"
	"github.com/custodia-labs/graphmail/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func newRelayRunner(settings domain.Settings, newMailService func() *services.MailService) cli.RelayRunner {
	return func(ctx context.Context, opts cli.RelayOptions) error {
		cfg := smtprelay.Config{
			Addr:       settings.Relay.Addr,
			Domain:     settings.Relay.Domain,
			Username:   settings.Relay.Username,
			Password:   settings.Relay.Password,
			PerSession: !settings.Microsoft.SingleUser,
		}
		if opts.Addr != "" {
			cfg.Addr = opts.Addr
		}
		metricsAddr := settings.Metrics.Addr
		if opts.MetricsAddr != "" {
			metricsAddr = opts.MetricsAddr
		}

		relay := smtprelay.New(cfg, func() driving.MailService { return newMailService() })

		errCh := make(chan error, 2)
		go func() { errCh <- relay.ListenAndServe() }()

		var metricsSrv *http.Server
		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				logger.Info("relay: metrics listening on %s", metricsAddr)
				if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
		}

		var runErr error
		select {
		case <-ctx.Done():
			logger.Info("relay: shutting down")
		case runErr = <-errCh:
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		if err := relay.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}
