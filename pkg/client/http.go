// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package client implements the CareLink server client: a thin HTTP
// transport abstraction, a retrying wrapper with a fixed budget, and the
// typed API surface the annotation engine consumes.
package client

import (
	"context"
	"io"
	"net/http"
	"time"
)

// HTTPClient abstracts HTTP operations so tests can inject mocks and the
// retrying wrapper can sit in front of any transport.
//
// Implementations must honor context cancellation and return the response
// with its body open; callers own closing it.
type HTTPClient interface {
	// Get issues a GET request.
	Get(ctx context.Context, url string) (*http.Response, error)

	// Post issues a POST request with the given content type and body.
	Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error)

	// Delete issues a DELETE request.
	Delete(ctx context.Context, url string) (*http.Response, error)
}

// defaultHTTPClient is the production HTTPClient over net/http.
type defaultHTTPClient struct {
	client *http.Client
}

// NewDefaultHTTPClient creates the production transport. A zero timeout
// disables the client-side deadline (streaming responses must not be cut
// off by a whole-request timeout; per-call contexts carry cancellation).
func NewDefaultHTTPClient(timeout time.Duration) HTTPClient {
	return &defaultHTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

func (c *defaultHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

func (c *defaultHTTPClient) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.client.Do(req)
}

func (c *defaultHTTPClient) Delete(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

var _ HTTPClient = (*defaultHTTPClient)(nil)
