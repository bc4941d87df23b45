package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mindstorm-criteria-engine/internal/api"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := withShutdownSignals(cmd.Context(), a.logger)
			defer cancel()

			server := api.NewServer(a.config, a.service, a.logger, a.healthChecks()...)

			cfg := a.config.GetConfig()
			a.logger.WithField("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
				Info("Starting criteria engine HTTP server")

			if err := server.Start(ctx); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			a.logger.Info("Server stopped")
			return nil
		},
	}
}

// healthChecks reports each configured dependency on /health.
func (a *app) healthChecks() []api.Option {
	var opts []api.Option

	if a.store != nil {
		opts = append(opts, api.WithHealthCheck("review_store", func(ctx context.Context) error {
			if state := a.store.State(); state == "open" {
				return fmt.Errorf("circuit breaker is %s", state)
			}
			return nil
		}))
	}
	if a.db != nil {
		opts = append(opts, api.WithHealthCheck("database", a.db.Health))
	}
	if a.redis != nil {
		opts = append(opts, api.WithHealthCheck("jobs_redis", a.redis.Ping))
	}
	return opts
}
