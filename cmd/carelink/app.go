// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/CareLink/cmd/carelink/config"
	"github.com/AleutianAI/CareLink/pkg/annotation"
	"github.com/AleutianAI/CareLink/pkg/client"
	"github.com/AleutianAI/CareLink/pkg/logging"
	"github.com/AleutianAI/CareLink/pkg/persist"
	"github.com/AleutianAI/CareLink/pkg/telemetry"
)

// =============================================================================
// Application Wiring
// =============================================================================

// app bundles the wired dependencies shared by the CLI commands.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	api     *client.APIClient
	cache   *annotation.PatientCache
	backups *persist.BackupStore
	syncer  *persist.Syncer

	shutdowns []func(context.Context) error
}

// newApp loads config and wires the client stack. quietLogs routes logs to
// file only, which the TUI needs to keep its display intact.
func newApp(quietLogs bool) (*app, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "cli",
		Quiet:   quietLogs,
	})

	a := &app{cfg: cfg, logger: logger}

	if cfg.Telemetry.MetricsListen != "" {
		a.shutdowns = append(a.shutdowns, telemetry.ServeMetrics(cfg.Telemetry.MetricsListen))
	}
	tracingShutdown, err := telemetry.SetupTracing(cfg.Telemetry.TracingEnabled, "carelink-cli")
	if err != nil {
		logger.Warn("tracing setup failed", "error", err)
	} else {
		a.shutdowns = append(a.shutdowns, tracingShutdown)
	}

	// The streaming endpoint holds its response open, so the transport
	// carries no whole-request timeout; contexts cancel instead.
	transport := client.NewDefaultHTTPClient(0)
	retrying := client.NewRetryingClient(transport, client.RetryConfig{
		MaxRetries:        cfg.Retry.MaxRetries,
		Delay:             time.Duration(cfg.Retry.DelayMillis) * time.Millisecond,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		Limiter:           rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}, logger.Slog())
	a.api = client.NewAPIClient(cfg.Server.BaseURL, retrying, logger.Slog())

	a.cache = annotation.NewPatientCache(
		time.Duration(cfg.Cache.TTLMillis)*time.Millisecond,
		annotation.SystemClock{},
	)

	if cfg.Backup.Dir != "" {
		store, err := persist.OpenBackupStore(
			persist.DefaultConfig(logging.ExpandPath(cfg.Backup.Dir)),
			annotation.SystemClock{},
		)
		if err != nil {
			logger.Warn("backup store unavailable, failed saves will not be preserved", "error", err)
		} else {
			a.backups = store
		}
	}

	a.syncer = persist.NewSyncer(a.api, a.cache, a.backups, logger.Slog())
	return a, nil
}

// Close releases listeners, the backup store, and the log file.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, shutdown := range a.shutdowns {
		if err := shutdown(ctx); err != nil {
			a.logger.Warn("shutdown step failed", "error", err)
		}
	}
	if a.backups != nil {
		if err := a.backups.Close(); err != nil {
			a.logger.Warn("backup store close failed", "error", err)
		}
	}
	if err := a.logger.Close(); err != nil {
		fmt.Println("log close failed:", err)
	}
}
