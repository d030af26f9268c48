// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/strata-ai/strata/pkg/config"
	"github.com/strata-ai/strata/pkg/manifest"
	"github.com/strata-ai/strata/pkg/router"
	"github.com/strata-ai/strata/pkg/stack"
	"github.com/strata-ai/strata/pkg/telemetry"
)

const shutdownGrace = 10 * time.Second

func runServe(ctx context.Context, flags globalFlags) {
	watcher, err := config.NewWatcher(flags.ConfigPath)
	if err != nil {
		fatal(err)
	}
	cfg := watcher.Config()

	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	watcher.OnChange(func(next *config.Config) {
		telemetry.ConfigureSlog(os.Stderr, next.Log.Level, next.Log.Format)
	})
	watcher.Start(ctx)
	defer watcher.Stop()

	shutdownTelemetry, err := telemetry.InitWithConfig("strata", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		fatal(err)
	}

	m, err := manifest.Load(flags.ManifestPath)
	if err != nil {
		fatal(err)
	}
	reg, err := stack.Build(m)
	if err != nil {
		fatal(err)
	}

	metrics, err := telemetry.NewRouterMetrics()
	if err != nil {
		fatal(err)
	}
	rt := router.New(reg, router.WithMetrics(metrics))

	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: router.NewServer(rt),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("stack serving",
			"listen", cfg.Server.Listen,
			"manifest", flags.ManifestPath,
			"groups", len(reg.Groups()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	if err := reg.Close(); err != nil {
		slog.Error("registry close", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown", "error", err)
	}
}
