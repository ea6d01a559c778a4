// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// enrichedSpan decorates a finished span with additional attributes
// before it reaches an OTLP exporter, without mutating the SDK's own
// read-only snapshot. This is how the OTLP dispatch modes carry the
// honeyhive.* enrichment and canonical-section summary that on_end
// computes, matching spec.md §4.6's "push the span (with enriched
// attributes)".
type enrichedSpan struct {
	sdktrace.ReadOnlySpan
	extra []attribute.KeyValue
}

func (e *enrichedSpan) Attributes() []attribute.KeyValue {
	base := e.ReadOnlySpan.Attributes()
	out := make([]attribute.KeyValue, 0, len(base)+len(e.extra))
	out = append(out, base...)
	out = append(out, e.extra...)
	return out
}
