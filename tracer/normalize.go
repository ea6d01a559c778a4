// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/honeyhiveai/tracer-go/internal/cache"
)

var nonIdentifierChar = regexp.MustCompile(`[^A-Za-z0-9_.]`)

// reservedKeyPrefixes collide with attributes this package itself
// stamps (honeyhive.*, traceloop.*) — a user-set key with the same
// prefix is renamed rather than silently overwritten (spec.md §4.6
// "Attribute normalization").
var reservedKeyPrefixes = []string{"honeyhive.", "traceloop.association.properties."}

// normalizeKey sanitizes a single attribute key, consulting and
// populating the attribute_normalization cache since the same key
// recurs across every span an instrumented call chain produces.
func (p *spanProcessor) normalizeKey(key string) string {
	c := p.caches.Cache(cache.AttributeNormalization)
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	normalized := normalizeKeyUncached(key)
	c.Put(key, normalized)
	return normalized
}

func normalizeKeyUncached(key string) string {
	cleaned := nonIdentifierChar.ReplaceAllString(key, "_")
	for _, prefix := range reservedKeyPrefixes {
		if strings.HasPrefix(cleaned, prefix) {
			return "attr_" + cleaned
		}
	}
	return cleaned
}

// normalizeValue converts v into something representable as an OTel
// attribute.Value or a JSON map value. Scalars and string slices pass
// through; anything else (nested maps, structs, mixed-type slices) is
// JSON-stringified per spec.md §4.6.
func normalizeValue(v any) any {
	switch v.(type) {
	case string, bool, int, int64, float64, float32:
		return v
	case []string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
