package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"attache/internal/async"
	"attache/internal/logging"
	"attache/internal/observability"
	"attache/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the attachment collection over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, col, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			defer col.Close()

			logger := logging.NewComponentLogger("Serve")

			metrics, err := observability.NewMetricsCollector(observability.MetricsConfig{
				Enabled:        cfgMgr.MetricsEnabled(),
				PrometheusPort: cfgMgr.MetricsPort(),
			}, logger)
			if err != nil {
				return fmt.Errorf("create metrics collector: %w", err)
			}
			if cfgMgr.MetricsEnabled() {
				col.Subscribe(observability.NewCollectionMetrics(metrics))
			}

			srvCfg := server.DefaultConfig()
			srvCfg.Host = cfgMgr.ServerHost()
			srvCfg.Port = cfgMgr.ServerPort()
			srvCfg.EnableCORS = cfgMgr.ServerEnableCORS()
			srv := server.NewServer(col, srvCfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			async.Go(logger, "http server", func() {
				errCh <- srv.Start()
			})
			fmt.Printf("%s listening on %s:%d\n", green("attache"), srvCfg.Host, srvCfg.Port)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("%s shutdown: %v\n", red("error"), err)
			}
			return metrics.Shutdown(shutdownCtx)
		},
	}
	return cmd
}
