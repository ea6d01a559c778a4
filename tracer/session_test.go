// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"

	hhbaggage "github.com/honeyhiveai/tracer-go/baggage"
	"github.com/honeyhiveai/tracer-go/config"
	"github.com/honeyhiveai/tracer-go/internal/cache"
)

func noopSpanForTest() oteltrace.Span {
	return oteltrace.SpanFromContext(context.Background())
}

func newTestTracerShell() *Tracer {
	return &Tracer{
		id:           "test-tracer",
		cfg:          &config.Config{Project: "demo", Source: "dev"},
		bag:          hhbaggage.NewStore(),
		caches:       cache.NewManager(cache.Config{}),
		instanceLock: newReentrantLock(time.Second),
		flushLock:    newReentrantLock(time.Second),
	}
}

func TestSessionStartIsIdempotentAcrossCalls(t *testing.T) {
	tr := newTestTracerShell()
	sid1 := tr.SessionStart("first")
	sid2 := tr.SessionStart("second")
	assert.Equal(t, sid1, sid2)
}

func TestEnrichSpanRejectsInvalidEventID(t *testing.T) {
	tr := newTestTracerShell()
	err := tr.EnrichSpan(noopSpanForTest(), EnrichOptions{EventID: "not-a-uuid"})
	require.Error(t, err)
	var tracerErr *Error
	require.ErrorAs(t, err, &tracerErr)
	assert.Equal(t, ErrValidation, tracerErr.Kind)
}

func TestEnrichSpanAcceptsValidUUID(t *testing.T) {
	tr := newTestTracerShell()
	err := tr.EnrichSpan(noopSpanForTest(), EnrichOptions{EventID: "3f9e2c2e-5a2b-4f1a-9c7e-7a3b9d2f1234"})
	assert.NoError(t, err)
}

func TestBaggageSetGetRemoveThroughTracer(t *testing.T) {
	tr := newTestTracerShell()
	tr.SetBaggage("tenant", "acme")
	v, ok := tr.GetBaggage("tenant")
	assert.True(t, ok)
	assert.Equal(t, "acme", v)

	tr.RemoveBaggage("tenant")
	_, ok = tr.GetBaggage("tenant")
	assert.False(t, ok)
}
