// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/CareLink/pkg/telemetry"
)

// =============================================================================
// Retrying Client
// =============================================================================

const (
	// DefaultMaxRetries is the number of retries after the first attempt,
	// giving four attempts in total.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the wait between attempts.
	DefaultRetryDelay = 1 * time.Second
)

// RetryConfig controls the retry budget of a RetryingClient.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Negative values are treated as zero.
	MaxRetries int

	// Delay is the wait between attempts. The same delay is used for every
	// retry; BackoffMultiplier is carried in config but not applied.
	Delay time.Duration

	// BackoffMultiplier is accepted for config compatibility and ignored.
	// Retries wait a constant Delay.
	BackoffMultiplier float64

	// Limiter, when non-nil, gates every attempt (including retries) so a
	// tight retry loop cannot hammer the server.
	Limiter *rate.Limiter
}

// DefaultRetryConfig returns the standard retry budget: 3 retries with a
// constant 1s delay and no rate limiting.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		Delay:             DefaultRetryDelay,
		BackoffMultiplier: 1.5,
	}
}

// RetryingClient wraps an HTTPClient with a fixed retry budget.
//
// # Description
//
// Every operation is attempted up to MaxRetries+1 times. Both transport
// errors and non-2xx status codes count as failures; the last failure is
// returned once the budget is exhausted. A successful response is returned
// with its body open and untouched.
//
// # Limitations
//
//   - POST bodies are buffered as byte slices so attempts can replay them.
//   - No response-based retry hints (Retry-After etc.) are honored.
type RetryingClient struct {
	inner  HTTPClient
	config RetryConfig
	logger *slog.Logger

	// sleep is injectable for tests; production uses a context-aware wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryingClient wraps inner with the given retry budget. A nil logger
// selects slog.Default. Zero-valued MaxRetries/Delay fall back to defaults;
// to disable retries set MaxRetries to a negative value.
func NewRetryingClient(inner HTTPClient, config RetryConfig, logger *slog.Logger) *RetryingClient {
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Delay == 0 {
		config.Delay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingClient{
		inner:  inner,
		config: config,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Get issues a GET with retries.
func (c *RetryingClient) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, url, func(ctx context.Context) (*http.Response, error) {
		return c.inner.Get(ctx, url)
	})
}

// Post issues a POST with retries. The body is taken as a byte slice so it
// can be replayed on each attempt.
func (c *RetryingClient) Post(ctx context.Context, url, contentType string, body []byte) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, url, func(ctx context.Context) (*http.Response, error) {
		return c.inner.Post(ctx, url, contentType, bytes.NewReader(body))
	})
}

// Delete issues a DELETE with retries.
func (c *RetryingClient) Delete(ctx context.Context, url string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, url, func(ctx context.Context) (*http.Response, error) {
		return c.inner.Delete(ctx, url)
	})
}

// do runs the retry loop around one attempt function.
func (c *RetryingClient) do(ctx context.Context, method, url string, attempt func(context.Context) (*http.Response, error)) (*http.Response, error) {
	remaining := c.config.MaxRetries

	for {
		if c.config.Limiter != nil {
			if err := c.config.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		telemetry.RequestAttempts.WithLabelValues(method).Inc()

		resp, err := attempt(ctx)
		failure := classify(resp, err)
		if failure == nil {
			return resp, nil
		}

		if remaining <= 0 {
			telemetry.RequestFailures.Inc()
			c.logger.Error("request failed, retries exhausted",
				"method", method,
				"url", url,
				"attempts", c.config.MaxRetries+1,
				"error", failure,
			)
			return nil, failure
		}
		remaining--

		telemetry.RequestRetries.Inc()
		c.logger.Warn("request failed, retrying",
			"method", method,
			"url", url,
			"remaining", remaining+1,
			"delay", c.config.Delay,
			"error", failure,
		)

		if err := c.sleep(ctx, c.config.Delay); err != nil {
			return nil, err
		}
	}
}

// classify turns an attempt result into a failure error, or nil on success.
// A non-2xx response has its body drained into the error and closed.
func classify(resp *http.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
