// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

// Config is the CareLink CLI configuration, read from
// ~/.carelink/carelink.yaml and created with defaults on first run.
type Config struct {
	// Server: where the annotation server lives
	Server ServerConfig `yaml:"server" validate:"required"`

	// Retry: budget for failed requests
	Retry RetryConfig `yaml:"retry"`

	// Cache: patient bundle cache
	Cache CacheConfig `yaml:"cache"`

	// Streaming: progressive action loading
	Streaming StreamingConfig `yaml:"streaming"`

	// Backup: local fallback storage for failed saves
	Backup BackupConfig `yaml:"backup"`

	// Logging: log level and destinations
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry: metrics listener and tracing
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"` // e.g. http://localhost:5000
}

type RetryConfig struct {
	MaxRetries  int `yaml:"max_retries" validate:"gte=0,lte=10"` // retries after the first attempt
	DelayMillis int `yaml:"delay_millis" validate:"gte=0"`       // constant wait between attempts

	// BackoffMultiplier is kept in the file format for compatibility; the
	// client waits a constant delay regardless of its value.
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

type CacheConfig struct {
	TTLMillis int `yaml:"ttl_millis" validate:"gte=0"` // e.g. 300000 (5 minutes)
}

type StreamingConfig struct {
	Enabled bool `yaml:"enabled"` // progressive action loading via SSE
}

type BackupConfig struct {
	Dir string `yaml:"dir"` // e.g. ~/.carelink/backups
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `yaml:"dir"` // e.g. ~/.carelink/logs
}

type TelemetryConfig struct {
	MetricsListen  string `yaml:"metrics_listen"`  // e.g. 127.0.0.1:9180; empty disables
	TracingEnabled bool   `yaml:"tracing_enabled"` // spans to stderr
}

// DefaultConfig returns the first-run configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:5000",
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			DelayMillis:       1000,
			BackoffMultiplier: 1.5,
		},
		Cache: CacheConfig{
			TTLMillis: 300000,
		},
		Streaming: StreamingConfig{
			Enabled: true,
		},
		Backup: BackupConfig{
			Dir: "~/.carelink/backups",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.carelink/logs",
		},
		Telemetry: TelemetryConfig{},
	}
}
