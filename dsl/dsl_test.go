// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load()
	require.NoError(t, err)
	return b
}

func TestDetectProviderIsDeterministic(t *testing.T) {
	b := loadTestBundle(t)
	attrs := map[string]any{
		"llm.model_name":              "gpt-4",
		"llm.output_messages.0.role":  "assistant",
		"llm.output_messages.0.content": "hi",
		"llm.token_count_prompt":      10.0,
		"llm.token_count_completion":  3.0,
	}
	p1, s1 := b.DetectProvider(attrs)
	p2, s2 := b.DetectProvider(attrs)
	assert.Equal(t, p1, p2)
	assert.Equal(t, s1, s2)
	assert.Equal(t, "openinference", p1)
}

func TestDetectProviderUnknownBelowThreshold(t *testing.T) {
	b := loadTestBundle(t)
	attrs := map[string]any{"unknown.vendor.x": 1, "unknown.vendor.y": "z"}
	p, _ := b.DetectProvider(attrs)
	assert.Equal(t, "", p)
}

func TestExtractAndMapOpenInferenceScenario(t *testing.T) {
	b := loadTestBundle(t)
	attrs := map[string]any{
		"llm.model_name":                 "gpt-4",
		"llm.output_messages.0.role":     "assistant",
		"llm.output_messages.0.content":  "hi",
		"llm.token_count_prompt":         10.0,
		"llm.token_count_completion":     3.0,
	}
	provider, score := b.DetectProvider(attrs)
	require.Equal(t, "openinference", provider)
	require.GreaterOrEqual(t, score, 0.8)

	extracted, err := b.Extract(provider, attrs)
	require.NoError(t, err)

	sections, err := b.MapToCanonical(provider, extracted)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4", sections.Config["model"])
	assert.Equal(t, "hi", sections.Outputs["content"])
	assert.Equal(t, 10.0, sections.Metadata["prompt_tokens"])
	assert.Equal(t, 3.0, sections.Metadata["completion_tokens"])
}

func TestMapToCanonicalMissingRequiredField(t *testing.T) {
	b := loadTestBundle(t)
	attrs := map[string]any{
		"llm.output_messages.0.role": "assistant",
		"llm.token_count_prompt":     1.0,
		// llm.model_name deliberately absent. Without it these attrs
		// would score 0 for openinference (model_patterns need the
		// model attribute), so the provider is named directly below.
		"llm.output_messages.0.content": "hi",
	}
	extracted, err := b.Extract("openinference", attrs)
	require.NoError(t, err)

	_, err = b.MapToCanonical("openinference", extracted)
	require.Error(t, err)
	var terr *TranslationError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrMissingRequiredField, terr.Kind)
}

func TestDetectEventTypePriority(t *testing.T) {
	b := loadTestBundle(t)

	assert.Equal(t, "chain", b.DetectEventType("my_span", map[string]any{
		AttrEventTypeRaw: "chain",
		AttrEventType:    "tool",
	}))
	assert.Equal(t, "tool", b.DetectEventType("my_span", map[string]any{
		AttrEventType: "tool",
	}))
	assert.Equal(t, "model", b.DetectEventType("chat_completion", map[string]any{}))
	assert.Equal(t, "tool", b.DetectEventType("totally_unmatched_name", map[string]any{}))
}

func TestBundleVersionRecorded(t *testing.T) {
	b := loadTestBundle(t)
	assert.NotEmpty(t, b.Version())
}

func TestArrayReconstructionPreservesOrder(t *testing.T) {
	b := loadTestBundle(t)
	attrs := map[string]any{
		"llm.model_name":                "gpt-4",
		"llm.output_messages.0.role":    "assistant",
		"llm.output_messages.0.content": "first",
		"llm.output_messages.1.role":    "assistant",
		"llm.output_messages.1.content": "second",
		"llm.token_count_prompt":        1.0,
	}
	extracted, err := b.Extract("openinference", attrs)
	require.NoError(t, err)
	msgs, ok := extracted["output_messages"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0]["content"])
	assert.Equal(t, "second", msgs[1]["content"])
}
