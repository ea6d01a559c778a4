// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

// Package tracer ties the configuration resolver, safe logger, cache
// manager, DSL engine, baggage store, span processor, and provider
// strategy into one per-instance tracer, matching spec.md §2's
// dependency order (leaves first).
package tracer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	hhbaggage "github.com/honeyhiveai/tracer-go/baggage"
	"github.com/honeyhiveai/tracer-go/config"
	"github.com/honeyhiveai/tracer-go/dsl"
	"github.com/honeyhiveai/tracer-go/internal/cache"
	"github.com/honeyhiveai/tracer-go/internal/ids"
	"github.com/honeyhiveai/tracer-go/internal/safelog"
	"github.com/honeyhiveai/tracer-go/transport"
)

var sharedBundle *dsl.Bundle

func loadSharedBundle() (*dsl.Bundle, error) {
	// The DSL bundle is immutable and safe to share read-only across
	// every instance in the process (spec.md §4.4, §5).
	if sharedBundle != nil {
		return sharedBundle, nil
	}
	b, err := dsl.Load()
	if err != nil {
		return nil, err
	}
	sharedBundle = b
	return b, nil
}

// Tracer is one self-contained configuration + processor + exporter +
// context instance, spec.md §3's TracerInstance. Two Tracers never
// share mutable state (Invariant 2): each owns its logger, cache
// manager, baggage store, and (when Secondary) its own provider.
type Tracer struct {
	id      string
	cfg     *config.Config
	logger  *safelog.Logger
	caches  *cache.Manager
	bag     *hhbaggage.Store
	bundle  *dsl.Bundle
	metrics *instrumentMetrics

	strategy   integrationStrategy
	degraded   bool
	oteltracer oteltrace.Tracer
	provider   *sdktrace.TracerProvider // non-nil only for Main/Secondary/ConsoleFallback, never for an unmodified host provider

	processor *spanProcessor

	instanceLock *reentrantLock
	flushLock    *reentrantLock

	shutdownOnce doOnce
}

// doOnce is a tiny idempotence guard, used instead of sync.Once so
// Shutdown can report whether this call actually performed the work
// (spec.md §8 "shutdown(); shutdown() is a no-op on the second call").
type doOnce struct {
	done bool
}

func (o *doOnce) do(fn func()) bool {
	if o.done {
		return false
	}
	o.done = true
	fn()
	return true
}

// New resolves configuration, builds every leaf component in
// dependency order, detects the host's tracer provider, and attaches
// the span processor under exactly one integration strategy (spec.md
// §4.7). Construction either fully succeeds or returns a
// *tracer.Error — there is no partial-init state (Invariant 1).
func New(opts ...Option) (*Tracer, error) {
	var explicit config.Options
	explicit.RequiresNetwork = true
	for _, opt := range opts {
		opt(&explicit)
	}

	env := config.NewOSEnvironment()
	cfg, warnings, err := config.Resolve(explicit, env)
	if err != nil {
		return nil, newError(ErrConfiguration, "resolve configuration", err)
	}

	id := fmt.Sprintf("%s-%d", ids.New(), ids.NextInstanceSuffix())
	logger := safelog.New(id, cfg.Verbose)
	for _, w := range warnings {
		logger.Warnf("%s", w)
	}

	bundle, err := loadSharedBundle()
	if err != nil {
		return nil, newError(ErrConfiguration, "load translation bundle", err)
	}
	logger.Infof("translation bundle version %s loaded", bundle.Version())

	caches := cache.NewManager(cache.Config{
		Enabled:       cfg.CacheEnabled,
		MaxSize:       cfg.CacheMaxSize,
		SweepInterval: 60 * time.Second,
	})

	profile := resolveTimeoutProfile(env, cfg.HighConcurrency)

	t := &Tracer{
		id:           id,
		cfg:          cfg,
		logger:       logger,
		caches:       caches,
		bag:          hhbaggage.NewStore(),
		bundle:       bundle,
		metrics:      &instrumentMetrics{},
		instanceLock: newReentrantLock(profile.lifecycle),
		flushLock:    newReentrantLock(profile.flush),
	}
	if cfg.SessionID != "" {
		t.bag.SessionStart(cfg.SessionID)
	}
	t.bag.Set(hhbaggage.KeyProject, cfg.Project)
	t.bag.Set(hhbaggage.KeySource, cfg.Source)

	if err := t.attachProcessor(context.Background(), env, profile); err != nil {
		return nil, err
	}

	return t, nil
}

// attachProcessor runs the provider-detection and strategy-selection
// algorithm from spec.md §4.7, falling back to ConsoleFallback if
// building the chosen exporter fails outright.
func (t *Tracer) attachProcessor(ctx context.Context, env config.Environment, profile timeoutProfile) error {
	info := detectExistingProvider()
	strategy := selectStrategy(info)

	dispatch, useSpans, err := t.buildDispatcher(ctx, profile)
	if err != nil {
		t.logger.Warnf("exporter construction failed, falling back to console: %v", err)
		consoleExp, consoleErr := transport.NewConsoleExporter()
		if consoleErr != nil {
			return newError(ErrProviderIntegration, "build console fallback exporter", consoleErr)
		}
		dispatch = newOTLPBatchDispatcher(consoleExp, t.cfg.BatchSize, t.cfg.FlushInterval, 2048, t.logger, t.metrics)
		useSpans = true
		strategy = strategyConsoleFallback
		t.degraded = true
	}

	processor := &spanProcessor{
		tracerID: t.id,
		cfg:      t.cfg,
		bundle:   t.bundle,
		caches:   t.caches,
		bag:      t.bag,
		logger:   t.logger,
		metrics:  t.metrics,
		dispatch: dispatch,
		useSpans: useSpans,
	}

	res, _ := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", t.cfg.Project)))
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(processor), sdktrace.WithResource(res))

	tracerName := fmt.Sprintf("honeyhive/%s", t.id)
	switch strategy {
	case strategyMain:
		otel.SetTracerProvider(provider)
		t.oteltracer = provider.Tracer(tracerName)
	default:
		// Secondary and ConsoleFallback both use an isolated provider
		// that is never installed globally (spec.md §4.7).
		t.oteltracer = provider.Tracer(tracerName)
	}

	t.provider = provider
	t.processor = processor
	t.strategy = strategy
	return nil
}

// buildDispatcher chooses the exporter-dispatch mode from spec.md
// §4.6: client mode when OTLP is disabled, otherwise OTLP immediate or
// batch depending on disable_batch.
func (t *Tracer) buildDispatcher(ctx context.Context, profile timeoutProfile) (dispatcher, bool, error) {
	if t.cfg.TestMode {
		return newOTLPBatchDispatcher(noopExporter{}, t.cfg.BatchSize, t.cfg.FlushInterval, 2048, t.logger, t.metrics), true, nil
	}

	if !t.cfg.OTLPEnabled {
		client := transport.NewEventsClient(transport.ClientOptions{
			BaseURL:      t.cfg.ServerURL,
			APIKey:       t.cfg.APIKey,
			MaxIdleConns: poolSizeForProfile(profile),
		})
		return newClientDispatcher(client, t.logger, t.metrics, 8), false, nil
	}

	exporter, err := transport.NewOTLPHTTPExporter(ctx, t.cfg.ServerURL, t.cfg.APIKey, profile.exportCallTimeout)
	if err != nil {
		return nil, false, err
	}

	if t.cfg.DisableBatch {
		return &otlpImmediateDispatcher{exporter: exporter, timeout: profile.exportCallTimeout, logger: t.logger, metrics: t.metrics}, true, nil
	}
	return newOTLPBatchDispatcher(exporter, t.cfg.BatchSize, t.cfg.FlushInterval, 2048, t.logger, t.metrics), true, nil
}

// Tracer returns the OTel-compatible tracer handle host code and
// instrumentors should use to start spans (spec.md §6 "Public
// operations").
func (t *Tracer) Tracer() oteltrace.Tracer { return t.oteltracer }

// StartSpan is the convenience wrapper over Tracer() promised by
// SPEC_FULL.md §9 in place of a decorator: it attaches this instance's
// baggage to ctx before starting the span, so callers who don't need
// the raw OTel handle can start an enriched span in one call.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, oteltrace.Span) {
	var cfg spanStartConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx = t.ContextWithBaggage(ctx)
	ctx, span := t.oteltracer.Start(ctx, name)
	if cfg.eventType != "" {
		span.SetAttributes(attribute.String(dsl.AttrEventTypeRaw, cfg.eventType))
	}
	return ctx, span
}

// ContextWithBaggage attaches this instance's baggage snapshot to ctx
// so spans started from it flow through on_start enrichment.
func (t *Tracer) ContextWithBaggage(ctx context.Context) context.Context {
	return t.bag.ContextWithBaggage(ctx)
}

// ID returns the tracer instance's opaque identifier.
func (t *Tracer) ID() string { return t.id }

// Degraded reports whether this instance fell back to ConsoleFallback.
func (t *Tracer) Degraded() bool { return t.degraded }

// Metrics returns a point-in-time snapshot of this instance's
// degrade-path counters (spec.md §7, §8).
func (t *Tracer) Metrics() MetricsSnapshot { return t.metrics.snapshot() }

// Flush acquires the flush lock with the environment profile's
// timeout and drains the exporter. It returns false rather than
// blocking indefinitely (spec.md §4.7, §8).
func (t *Tracer) Flush(timeout time.Duration) bool {
	tok := t.flushLock.newToken()
	held, ok := t.flushLock.acquire(tok)
	if !ok {
		return false
	}
	defer t.flushLock.release(held)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return t.processor.dispatch.flush(ctx, timeout)
}

// Shutdown is idempotent: flushes first, then releases the exporter
// and background workers, swallowing errors and logging them (spec.md
// §4.7, §8 "shutdown(); shutdown() is a no-op on the second call").
func (t *Tracer) Shutdown() error {
	var result error
	t.shutdownOnce.do(func() {
		t.Flush(t.flushLock.timeout)

		tok := t.instanceLock.newToken()
		_, ok := t.instanceLock.acquire(tok)
		if ok {
			defer t.instanceLock.release(tok)
		} else {
			t.logger.Debugf("lifecycle lock timed out during shutdown, proceeding lock-free")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.processor.dispatch.shutdown(ctx); err != nil {
			t.logger.Debugf("dispatcher shutdown error: %v", err)
		}
		if t.provider != nil {
			if err := t.provider.Shutdown(ctx); err != nil {
				t.logger.Debugf("provider shutdown error: %v", err)
			}
		}
		t.caches.Close()
	})
	return result
}

// noopExporter is used in test_mode, where network I/O is disabled
// outright but the span pipeline must still run end to end.
type noopExporter struct{}

func (noopExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (noopExporter) Shutdown(context.Context) error                            { return nil }
