// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"
)

// EventsClient sends CreateEventRequest payloads to the direct events
// API. It owns its own HTTP connection pool — pools are per-instance,
// never shared across tracers (spec.md §5).
type EventsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retries    int
	backoff    time.Duration
}

// ClientOptions configures an EventsClient's HTTP transport, sized per
// the environment profile selected at tracer init (spec.md §5).
type ClientOptions struct {
	BaseURL        string
	APIKey         string
	MaxIdleConns   int
	RequestTimeout time.Duration
	Retries        int
	Backoff        time.Duration
}

// NewEventsClient builds a client with a dedicated connection pool.
func NewEventsClient(opts ClientOptions) *EventsClient {
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 100 * time.Millisecond
	}

	transport := &http.Transport{
		MaxIdleConns:        opts.MaxIdleConns,
		MaxIdleConnsPerHost: opts.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
	}
	return &EventsClient{
		httpClient: &http.Client{Transport: transport, Timeout: opts.RequestTimeout},
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
	}
}

// Send POSTs req to the events endpoint, retrying transient failures
// per the transport error-handling profile (spec.md §7: default 3
// retries, exponential backoff, then drop). Send never panics; any
// terminal failure is returned as an error for the caller to log and
// count, never to propagate to the host application's call stack.
func (c *EventsClient) Send(ctx context.Context, req *CreateEventRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("transport: marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff * time.Duration(math.Pow(2, float64(attempt-1)))):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("transport: build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("transport: events API returned status %d", resp.StatusCode)
		if resp.StatusCode < 500 {
			// Client errors are not retried; the payload itself is bad.
			return lastErr
		}
	}
	return lastErr
}
