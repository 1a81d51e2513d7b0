package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"restoboost/internal/api"
	"restoboost/internal/metrics"
	"restoboost/internal/store/sqlstore"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with health and metrics servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				logger.Error().Err(err).Msg("failed to load config")
				return err
			}

			a, err := newApp(cfg, &logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.startEvents(ctx)

			if a.sql != nil {
				backups := sqlstore.NewBackupService(a.sql, cfg.Backup, &logger)
				go backups.Start(ctx)
			}

			if cfg.Monitoring.HealthCheckPort == 0 {
				cfg.Monitoring.HealthCheckPort = 8090
			}
			go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, a, &logger)

			if cfg.Monitoring.PrometheusEnabled {
				if cfg.Monitoring.PrometheusPort == 0 {
					cfg.Monitoring.PrometheusPort = 9090
				}
				metrics.Register()
				go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
			}

			admin, err := a.adminMiddleware()
			if err != nil {
				return err
			}
			srv := api.NewHTTPServer(cfg.Server.Address, a.services(), admin, &logger)
			srv.SetTimeouts(cfg.ReadTimeout(), cfg.WriteTimeout())

			logger.Info().Str("version", Version).Str("store", cfg.Store.Driver).Msg("restoboost started")
			return srv.Start(ctx)
		},
	}
}
