// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import "sync/atomic"

// instrumentMetrics are the counters spec.md §7 and §8 require be
// incremented on every silent-degrade path: translation_failures,
// dropped batches/spans/events. They are per-instance, never global,
// matching Invariant 2.
type instrumentMetrics struct {
	translationFailures atomic.Int64
	droppedBatches      atomic.Int64
	droppedSpans        atomic.Int64
	droppedEvents       atomic.Int64
}

// MetricsSnapshot is a point-in-time read of this instance's degrade-path
// counters, useful for tests and host-side dashboards.
type MetricsSnapshot struct {
	TranslationFailures int64
	DroppedBatches      int64
	DroppedSpans        int64
	DroppedEvents       int64
}

func (m *instrumentMetrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TranslationFailures: m.translationFailures.Load(),
		DroppedBatches:      m.droppedBatches.Load(),
		DroppedSpans:        m.droppedSpans.Load(),
		DroppedEvents:       m.droppedEvents.Load(),
	}
}
