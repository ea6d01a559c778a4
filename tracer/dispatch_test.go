// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/honeyhiveai/tracer-go/internal/safelog"
	"github.com/honeyhiveai/tracer-go/transport"
)

type captureExporter struct {
	mu      sync.Mutex
	batches [][]sdktrace.ReadOnlySpan
	fail    bool
}

func (c *captureExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return assert.AnError
	}
	c.batches = append(c.batches, spans)
	return nil
}

func (c *captureExporter) Shutdown(context.Context) error { return nil }

func (c *captureExporter) batchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func TestOTLPBatchDispatcherFlushesOnExplicitCall(t *testing.T) {
	exp := &captureExporter{}
	metrics := &instrumentMetrics{}
	d := newOTLPBatchDispatcher(exp, 10, time.Hour, 16, safelog.New("t", false), metrics)
	defer d.shutdown(context.Background())

	d.enqueueSpan(context.Background(), nil)
	ok := d.flush(context.Background(), time.Second)
	assert.True(t, ok)
	assert.Equal(t, 1, exp.batchCount())
}

func TestOTLPBatchDispatcherDropsOldestBatchOnOverflow(t *testing.T) {
	exp := &captureExporter{}
	metrics := &instrumentMetrics{}
	// A huge flush interval and tiny capacity so overflow triggers
	// before the background worker ever drains the queue.
	d := &otlpBatchDispatcher{
		exporter:      exp,
		queue:         make(chan sdktrace.ReadOnlySpan, 2),
		batchSize:     100,
		flushInterval: time.Hour,
		logger:        safelog.New("t", false),
		metrics:       metrics,
		flushReq:      make(chan chan bool),
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	// Fill the queue directly without starting run(), to control the
	// overflow deterministically.
	d.queue <- nil
	d.queue <- nil
	d.enqueueSpan(context.Background(), nil)

	assert.Equal(t, int64(1), metrics.droppedBatches.Load())
	assert.Equal(t, 1, len(d.queue))
}

func TestOTLPBatchDispatcherFlushTimeoutReturnsFalse(t *testing.T) {
	exp := &captureExporter{}
	metrics := &instrumentMetrics{}
	d := newOTLPBatchDispatcher(exp, 10, time.Hour, 16, safelog.New("t", false), metrics)
	defer d.shutdown(context.Background())

	// A zero timeout takes the not-yet-acknowledged path: flush
	// returns false at once instead of waiting on the worker.
	ok := d.flush(context.Background(), 0)
	assert.False(t, ok)
}

func TestOTLPImmediateDispatcherRecordsFailureAsMetric(t *testing.T) {
	exp := &captureExporter{fail: true}
	metrics := &instrumentMetrics{}
	d := &otlpImmediateDispatcher{exporter: exp, timeout: time.Second, logger: safelog.New("t", false), metrics: metrics}
	d.enqueueSpan(context.Background(), nil)
	assert.Equal(t, int64(1), metrics.droppedSpans.Load())
}

func TestClientDispatcherSendsAndFlushWaits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := transport.NewEventsClient(transport.ClientOptions{BaseURL: srv.URL, APIKey: "hh_test"})
	metrics := &instrumentMetrics{}
	d := newClientDispatcher(client, safelog.New("t", false), metrics, 4)

	ev := &transport.Event{EventName: "test", Project: "demo", Source: "dev", EventID: "e1", SessionID: "s1"}
	d.enqueueEvent(context.Background(), ev)

	ok := d.flush(context.Background(), time.Second)
	require.True(t, ok)
	assert.Equal(t, int64(0), metrics.droppedEvents.Load())
}

func TestClientDispatcherCountsFailedSends(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := transport.NewEventsClient(transport.ClientOptions{BaseURL: srv.URL, APIKey: "hh_test"})
	metrics := &instrumentMetrics{}
	d := newClientDispatcher(client, safelog.New("t", false), metrics, 4)

	d.enqueueEvent(context.Background(), &transport.Event{EventName: "test"})
	d.flush(context.Background(), time.Second)
	assert.Equal(t, int64(1), metrics.droppedEvents.Load())
}
