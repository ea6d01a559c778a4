// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"context"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/honeyhiveai/tracer-go/internal/safelog"
	"github.com/honeyhiveai/tracer-go/transport"
)

// dispatcher is the exporter-dispatch seam from spec.md §4.6: exactly
// one implementation is chosen at tracer init and never changes for
// the instance's lifetime.
type dispatcher interface {
	enqueueEvent(ctx context.Context, ev *transport.Event)
	enqueueSpan(ctx context.Context, s sdktrace.ReadOnlySpan)
	flush(ctx context.Context, timeout time.Duration) bool
	shutdown(ctx context.Context) error
}

// clientDispatcher is "client mode": canonical events go straight to
// the direct events API. It never receives spans.
type clientDispatcher struct {
	client  *transport.EventsClient
	logger  *safelog.Logger
	metrics *instrumentMetrics
	wg      sync.WaitGroup
	sem     chan struct{}
}

func newClientDispatcher(client *transport.EventsClient, logger *safelog.Logger, metrics *instrumentMetrics, concurrency int) *clientDispatcher {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &clientDispatcher{client: client, logger: logger, metrics: metrics, sem: make(chan struct{}, concurrency)}
}

func (d *clientDispatcher) enqueueEvent(ctx context.Context, ev *transport.Event) {
	d.wg.Add(1)
	d.sem <- struct{}{}
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()
		if err := d.client.Send(ctx, ev.ToCreateEventRequest()); err != nil {
			d.metrics.droppedEvents.Add(1)
			d.logger.Debugf("event dropped after retries: %v", err)
		}
	}()
}

func (d *clientDispatcher) enqueueSpan(context.Context, sdktrace.ReadOnlySpan) {}

func (d *clientDispatcher) flush(ctx context.Context, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	case <-ctx.Done():
		return false
	}
}

func (d *clientDispatcher) shutdown(ctx context.Context) error {
	d.flush(ctx, 5*time.Second)
	return nil
}

// otlpImmediateDispatcher is "OTLP immediate mode": each span is
// pushed through the exporter synchronously, bounded by a per-call
// timeout (spec.md §4.6).
type otlpImmediateDispatcher struct {
	exporter sdktrace.SpanExporter
	timeout  time.Duration
	logger   *safelog.Logger
	metrics  *instrumentMetrics
}

func (d *otlpImmediateDispatcher) enqueueEvent(context.Context, *transport.Event) {}

func (d *otlpImmediateDispatcher) enqueueSpan(ctx context.Context, s sdktrace.ReadOnlySpan) {
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.exporter.ExportSpans(cctx, []sdktrace.ReadOnlySpan{s}); err != nil {
		d.metrics.droppedSpans.Add(1)
		d.logger.Debugf("span export failed: %v", err)
	}
}

func (d *otlpImmediateDispatcher) flush(context.Context, time.Duration) bool { return true }

func (d *otlpImmediateDispatcher) shutdown(ctx context.Context) error { return d.exporter.Shutdown(ctx) }

// otlpBatchDispatcher is "OTLP batch mode": a bounded queue drained by
// one background worker, flushing on batch size, flush interval, or
// explicit flush request. Overflow drops the oldest *batch* — the
// entire queue is drained before the new span is enqueued — per
// spec.md §5 Backpressure.
type otlpBatchDispatcher struct {
	exporter      sdktrace.SpanExporter
	queue         chan sdktrace.ReadOnlySpan
	batchSize     int
	flushInterval time.Duration
	logger        *safelog.Logger
	metrics       *instrumentMetrics
	flushReq      chan chan bool // reply carries whether this flush cycle's export succeeded
	stop          chan struct{}
	stopped       chan struct{}
}

func newOTLPBatchDispatcher(exporter sdktrace.SpanExporter, batchSize int, flushInterval time.Duration, queueCap int, logger *safelog.Logger, metrics *instrumentMetrics) *otlpBatchDispatcher {
	if queueCap <= 0 {
		queueCap = 2048
	}
	if batchSize <= 0 {
		batchSize = 512
	}
	d := &otlpBatchDispatcher{
		exporter:      exporter,
		queue:         make(chan sdktrace.ReadOnlySpan, queueCap),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		metrics:       metrics,
		flushReq:      make(chan chan bool),
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *otlpBatchDispatcher) enqueueEvent(context.Context, *transport.Event) {}

func (d *otlpBatchDispatcher) enqueueSpan(_ context.Context, s sdktrace.ReadOnlySpan) {
	select {
	case d.queue <- s:
		return
	default:
	}

	drained := 0
drain:
	for {
		select {
		case <-d.queue:
			drained++
		default:
			break drain
		}
	}
	if drained > 0 {
		d.metrics.droppedBatches.Add(1)
		d.logger.Debugf("batch queue overflowed, dropped %d spans", drained)
	}
	select {
	case d.queue <- s:
	default:
	}
}

func (d *otlpBatchDispatcher) run() {
	defer close(d.stopped)
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()
	batch := make([]sdktrace.ReadOnlySpan, 0, d.batchSize)

	// failed records whether any export (size-, interval- or
	// flush-triggered) has failed since the last flush reply.
	failed := false

	// send reports whether this export cycle succeeded; together with
	// failed, a caller blocked on flush learns whether its spans were
	// actually accepted by the exporter rather than just dequeued
	// (spec.md §8 scenario 4: flush must report false when export keeps
	// failing).
	send := func() bool {
		if len(batch) == 0 {
			return true
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := d.exporter.ExportSpans(ctx, batch)
		cancel()
		if err != nil {
			d.metrics.droppedSpans.Add(int64(len(batch)))
			d.logger.Debugf("batch export failed: %v", err)
			failed = true
		}
		batch = batch[:0]
		return err == nil
	}

	for {
		select {
		case s := <-d.queue:
			batch = append(batch, s)
			if len(batch) >= d.batchSize {
				send()
			}
		case <-ticker.C:
			send()
		case reply := <-d.flushReq:
			// Drain whatever is already buffered so a flush
			// requested right after an enqueue never races the
			// worker's own queue-read branch of this select.
		drainBeforeFlush:
			for {
				select {
				case s := <-d.queue:
					batch = append(batch, s)
				default:
					break drainBeforeFlush
				}
			}
			ok := send() && !failed
			failed = false
			reply <- ok
		case <-d.stop:
			send()
			return
		}
	}
}

// flush blocks until the worker has drained and exported whatever was
// queued, or timeout/ctx expires first. The returned bool reports
// whether every export since the previous flush actually succeeded —
// a timed-out request and a failed export are both reported as false,
// but for distinct reasons (spec.md §8 scenario 4). A timeout of zero
// or less returns false without contacting the worker.
func (d *otlpBatchDispatcher) flush(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	expired := time.After(timeout)
	reply := make(chan bool, 1)
	select {
	case d.flushReq <- reply:
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
}

func (d *otlpBatchDispatcher) shutdown(ctx context.Context) error {
	select {
	case <-d.stop:
		// Already stopped: Tracer.Shutdown and its provider's Shutdown
		// both reach this dispatcher.
	default:
		close(d.stop)
	}
	select {
	case <-d.stopped:
	case <-time.After(5 * time.Second):
	}
	return d.exporter.Shutdown(ctx)
}
