// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	hhbaggage "github.com/honeyhiveai/tracer-go/baggage"
	"github.com/honeyhiveai/tracer-go/config"
	"github.com/honeyhiveai/tracer-go/dsl"
	"github.com/honeyhiveai/tracer-go/internal/cache"
	"github.com/honeyhiveai/tracer-go/internal/ids"
	"github.com/honeyhiveai/tracer-go/internal/safelog"
	"github.com/honeyhiveai/tracer-go/transport"
)

// spanProcessor is the hot path from spec.md §4.6. It implements
// sdktrace.SpanProcessor directly rather than wrapping the SDK's own
// BatchSpanProcessor, because export dispatch here has three distinct
// modes the SDK's default processor doesn't model.
type spanProcessor struct {
	tracerID string
	cfg      *config.Config
	bundle   *dsl.Bundle
	caches   *cache.Manager
	bag      *hhbaggage.Store
	logger   *safelog.Logger
	metrics  *instrumentMetrics
	dispatch dispatcher
	useSpans bool // true for OTLP modes: dispatch the enriched span, not the canonical event
}

var _ sdktrace.SpanProcessor = (*spanProcessor)(nil)

// OnStart stamps baggage-derived attributes. It never performs
// event-type detection — that information isn't settled until on_end
// (spec.md §9 "Timing discipline").
func (p *spanProcessor) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("recovered panic in on_start: %v", r)
		}
	}()

	bag, ok := hhbaggage.FromContext(ctx)
	if !ok {
		return
	}

	for k, v := range bag {
		if strings.HasPrefix(k, "honeyhive_experiment_") {
			s.SetAttributes(attribute.String(k, v))
		}
	}

	sessionID, hasSession := bag[hhbaggage.KeySessionID]
	if !hasSession || sessionID == "" {
		return
	}

	s.SetAttributes(
		attribute.String("honeyhive.session_id", sessionID),
		attribute.String("honeyhive.project", bag[hhbaggage.KeyProject]),
		attribute.String("honeyhive.source", bag[hhbaggage.KeySource]),
	)

	if up := p.bag.Tags("user_properties"); len(up) > 0 {
		if b, err := json.Marshal(up); err == nil {
			s.SetAttributes(attribute.String("honeyhive.user_properties", string(b)))
		}
	}
	for k, v := range p.bag.Tags("traceloop") {
		s.SetAttributes(attribute.String("traceloop.association.properties."+k, v))
	}
}

// OnEnd translates the finished span's attribute bag into a canonical
// event and dispatches it, per spec.md §4.6 steps 1-5. No error here
// ever propagates past this function: that is the strict no-throw
// boundary from spec.md §7.
func (p *spanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("recovered panic in on_end: %v", r)
		}
	}()

	attrs := attrsToMap(s.Attributes())
	eventType := p.bundle.DetectEventType(s.Name(), attrs)

	sections, translationStatus := p.translate(attrs)

	ev := p.buildEvent(s, attrs, eventType, sections, translationStatus)

	if p.useSpans {
		p.dispatch.enqueueSpan(context.Background(), p.enrich(s, ev))
		return
	}
	p.dispatch.enqueueEvent(context.Background(), ev)
}

// translate runs attrs through the DSL engine, falling back to a
// pass-through mapping on any failure (spec.md §4.6 step 3, §7
// Translation error kind).
func (p *spanProcessor) translate(attrs map[string]any) (*dsl.CanonicalSections, string) {
	provider, _ := p.bundle.DetectProvider(attrs)
	if provider == "" {
		p.metrics.translationFailures.Add(1)
		return passThroughSections(attrs), "unknown_provider"
	}

	extracted, err := p.bundle.Extract(provider, attrs)
	if err != nil {
		p.metrics.translationFailures.Add(1)
		p.logger.Debugf("extraction failed for provider %s: %v", provider, err)
		return passThroughSections(attrs), "transform_failed"
	}

	sections, err := p.bundle.MapToCanonical(provider, extracted)
	if err != nil {
		p.metrics.translationFailures.Add(1)
		p.logger.Debugf("mapping failed for provider %s: %v", provider, err)
		return passThroughSections(attrs), "missing_required_field"
	}

	return sections, "ok"
}

func passThroughSections(attrs map[string]any) *dsl.CanonicalSections {
	return &dsl.CanonicalSections{
		Inputs:   map[string]any{},
		Outputs:  attrs,
		Config:   map[string]any{},
		Metadata: map[string]any{},
	}
}

func (p *spanProcessor) buildEvent(s sdktrace.ReadOnlySpan, attrs map[string]any, eventType string, sections *dsl.CanonicalSections, translationStatus string) *transport.Event {
	eventID := s.SpanContext().SpanID().String()
	if explicit, ok := attrs["honeyhive.event_id"].(string); ok && explicit != "" {
		eventID = explicit
	} else if eventID == "" || eventID == "0000000000000000" {
		eventID = ids.New()
	}

	var parentID string
	if parent := s.Parent(); parent.IsValid() {
		parentID = parent.SpanID().String()
	}

	bag := p.bag.All()
	metadata := sections.Metadata
	if translationStatus != "ok" {
		metadata["translation_status"] = translationStatus
	}
	mergeJSONAttr(metadata, attrs, "honeyhive.metadata")
	metrics := map[string]any{}
	mergeJSONAttr(metrics, attrs, "honeyhive.metrics")
	feedback := map[string]any{}
	mergeJSONAttr(feedback, attrs, "honeyhive.feedback")

	errMsg := ""
	if st := s.Status(); st.Code.String() == "Error" {
		errMsg = st.Description
	}

	return &transport.Event{
		EventName: s.Name(),
		EventType: transport.EventType(eventType),
		Source:    p.cfg.Source,
		EventID:   eventID,
		SessionID: bag[hhbaggage.KeySessionID],
		Project:   p.cfg.Project,
		StartTime: float64(s.StartTime().UnixNano()) / float64(time.Millisecond),
		EndTime:   float64(s.EndTime().UnixNano()) / float64(time.Millisecond),
		ParentID:  parentID,
		Inputs:    sections.Inputs,
		Outputs:   sections.Outputs,
		Config:    sections.Config,
		Metadata:  metadata,
		Metrics:   metrics,
		Feedback:  feedback,
		Error:     errMsg,
	}
}

// mergeJSONAttr decodes a JSON-object attribute value (as written by
// EnrichSpan) into dest, ignoring anything malformed or absent.
func mergeJSONAttr(dest map[string]any, attrs map[string]any, key string) {
	raw, ok := attrs[key].(string)
	if !ok || raw == "" {
		return
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return
	}
	for k, v := range parsed {
		dest[k] = v
	}
}

// enrich wraps s with the event type, event ID and canonical-section
// summary as additional honeyhive.* attributes for the OTLP dispatch
// paths; section maps are JSON-stringified. These keys are the
// package's own, so they are not passed through normalizeKey (which
// renames honeyhive.* keys to attr_honeyhive.*).
func (p *spanProcessor) enrich(s sdktrace.ReadOnlySpan, ev *transport.Event) *enrichedSpan {
	extra := []attribute.KeyValue{
		attribute.String("honeyhive.event_type", string(ev.EventType)),
		attribute.String("honeyhive.event_id", ev.EventID),
	}
	extra = append(extra, jsonAttr("honeyhive.inputs", ev.Inputs)...)
	extra = append(extra, jsonAttr("honeyhive.outputs", ev.Outputs)...)
	extra = append(extra, jsonAttr("honeyhive.config", ev.Config)...)
	extra = append(extra, jsonAttr("honeyhive.metadata", ev.Metadata)...)
	return &enrichedSpan{ReadOnlySpan: s, extra: extra}
}

func jsonAttr(key string, section map[string]any) []attribute.KeyValue {
	if len(section) == 0 {
		return nil
	}
	b, err := json.Marshal(section)
	if err != nil {
		return nil
	}
	return []attribute.KeyValue{attribute.String(key, string(b))}
}

func attrsToMap(kvs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

// Shutdown and ForceFlush delegate to the tracer's dispatcher; the
// SDK calls these when the owning TracerProvider shuts down.
func (p *spanProcessor) Shutdown(ctx context.Context) error { return p.dispatch.shutdown(ctx) }

func (p *spanProcessor) ForceFlush(ctx context.Context) error {
	p.dispatch.flush(ctx, 30*time.Second)
	return nil
}
