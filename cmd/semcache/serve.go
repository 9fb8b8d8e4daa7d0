package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pario-ai/semcache/pkg/assistant"
	"github.com/pario-ai/semcache/pkg/history"
	"github.com/pario-ai/semcache/pkg/metrics"
	"github.com/pario-ai/semcache/pkg/router"
	"github.com/pario-ai/semcache/pkg/server"
	"github.com/pario-ai/semcache/pkg/upstream"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(configPath)
			if err != nil {
				return err
			}
			m := metrics.New()

			c, closeCache, err := openCache(cfg, log, m)
			if err != nil {
				return err
			}
			defer func() { _ = closeCache() }()

			h, err := history.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("init history: %w", err)
			}
			defer func() { _ = h.Close() }()

			client := upstream.New(router.New(cfg), &http.Client{Timeout: cfg.Assistant.Timeout}, log, m)
			a, err := assistant.New(client, cfg.Assistant, log)
			if err != nil {
				return fmt.Errorf("init assistant: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Cache.Enabled {
				// Warm up before taking traffic so the first query does not pay
				// for rehydration. A failure here is retried on first use.
				if stats, err := c.Stats(ctx); err != nil {
					log.WithError(err).Warn("cache warm-up failed")
				} else {
					log.WithField("records", stats.RecordCount).Info("cache warm")
				}
			}

			log.WithField("config", configPath).Info("starting semcache")
			return server.New(cfg, c, a, h, log, m).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	return cmd
}
