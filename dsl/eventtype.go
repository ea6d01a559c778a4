// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package dsl

// Event type attribute keys a decorator or instrumentor may set
// explicitly on a span, checked before any pattern inference.
const (
	AttrEventTypeRaw = "honeyhive_event_type_raw"
	AttrEventType    = "honeyhive.event_type"
)

// DetectEventType implements spec.md §4.4's on_end-only priority
// sequence: explicit honeyhive_event_type_raw, then honeyhive.event_type,
// then a name-pattern inference table, then the bundle's default.
func (b *Bundle) DetectEventType(spanName string, attrs map[string]any) string {
	if v, ok := attrs[AttrEventTypeRaw]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if v, ok := attrs[AttrEventType]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	for _, p := range b.eventTypePatterns {
		if p.re.MatchString(spanName) {
			return p.eventType
		}
	}
	return b.defaultEventType
}
