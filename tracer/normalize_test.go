// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/honeyhiveai/tracer-go/internal/cache"
)

func TestNormalizeKeyUncachedReplacesNonIdentifierChars(t *testing.T) {
	assert.Equal(t, "llm_model_name", normalizeKeyUncached("llm-model-name"))
	assert.Equal(t, "llm.model_name", normalizeKeyUncached("llm.model name"))
}

func TestNormalizeKeyUncachedPrefixesReservedCollisions(t *testing.T) {
	assert.Equal(t, "attr_honeyhive.session_id", normalizeKeyUncached("honeyhive.session_id"))
	assert.Equal(t, "attr_traceloop.association.properties.foo", normalizeKeyUncached("traceloop.association.properties.foo"))
}

func TestNormalizeValuePassesThroughScalars(t *testing.T) {
	assert.Equal(t, "hi", normalizeValue("hi"))
	assert.Equal(t, 3, normalizeValue(3))
	assert.Equal(t, true, normalizeValue(true))
}

func TestNormalizeValueJSONStringifiesComplexTypes(t *testing.T) {
	v := normalizeValue(map[string]any{"a": 1})
	assert.Equal(t, `{"a":1}`, v)
}

func TestNormalizeKeyIsCached(t *testing.T) {
	caches := cache.NewManager(cache.Config{Enabled: true, MaxSize: 100, SweepInterval: time.Minute})
	defer caches.Close()
	p := &spanProcessor{caches: caches}

	first := p.normalizeKey("odd key!")
	second := p.normalizeKey("odd key!")
	assert.Equal(t, first, second)

	c := caches.Cache(cache.AttributeNormalization)
	v, ok := c.Get("odd key!")
	assert.True(t, ok)
	assert.Equal(t, first, v)
}
