// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	hhbaggage "github.com/honeyhiveai/tracer-go/baggage"
	"github.com/honeyhiveai/tracer-go/dsl"
	"github.com/honeyhiveai/tracer-go/internal/ids"
)

// SessionStart generates or accepts a session UUID and stores it in
// baggage, idempotently until SessionEnd or Shutdown (spec.md §4.5).
func (t *Tracer) SessionStart(sessionName string) string {
	sid := t.bag.SessionStart(t.cfg.SessionID)
	if sessionName != "" {
		t.bag.SetTag("session", "name", sessionName)
	}
	return sid
}

// SessionEnd clears the session_id from baggage, ending the logical
// grouping future events on this instance would otherwise share.
func (t *Tracer) SessionEnd() { t.bag.SessionEnd() }

// EnrichOptions carries the optional fields EnrichSpan may attach.
type EnrichOptions struct {
	Metadata  map[string]any
	Metrics   map[string]any
	Feedback  map[string]any
	EventType string
	EventID   string
}

// EnrichSpan attaches structured data to an active or just-ended span
// (spec.md §4.5, §6). It is one of the two user-visible failure paths
// (spec.md §7): an invalid event_id surfaces a *tracer.Error instead
// of silently degrading.
func (t *Tracer) EnrichSpan(span oteltrace.Span, opts EnrichOptions) error {
	if opts.EventID != "" && !ids.Valid(opts.EventID) {
		return newError(ErrValidation, "enrich_span: event_id is not a valid UUID", nil)
	}

	attrs := make([]attribute.KeyValue, 0, 5)
	if opts.EventType != "" {
		attrs = append(attrs, attribute.String(dsl.AttrEventTypeRaw, opts.EventType))
	}
	if opts.EventID != "" {
		attrs = append(attrs, attribute.String("honeyhive.event_id", opts.EventID))
	}
	attrs = append(attrs, jsonKV("honeyhive.metadata", opts.Metadata)...)
	attrs = append(attrs, jsonKV("honeyhive.metrics", opts.Metrics)...)
	attrs = append(attrs, jsonKV("honeyhive.feedback", opts.Feedback)...)

	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return nil
}

func jsonKV(key string, m map[string]any) []attribute.KeyValue {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return []attribute.KeyValue{attribute.String(key, string(b))}
}

// baggage re-export so hosts never need to import the baggage package
// directly just to set/get a tag.
func (t *Tracer) SetBaggage(key, value string) { t.bag.Set(key, value) }

func (t *Tracer) GetBaggage(key string) (string, bool) { return t.bag.Get(key) }

func (t *Tracer) RemoveBaggage(key string) { t.bag.Remove(key) }

func (t *Tracer) Inject(carrier hhbaggage.TextMapCarrier) { t.bag.Inject(carrier) }

func (t *Tracer) Extract(carrier hhbaggage.TextMapCarrier) { t.bag.Extract(carrier) }
