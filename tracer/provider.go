// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// providerKind classifies the host's current global tracer provider,
// matching spec.md §4.7's ProviderInfo.type enum.
type providerKind int

const (
	providerKindNoOp providerKind = iota
	providerKindTracerProvider
	providerKindCustom
)

// providerInfo is the detection result spec.md §3 calls ProviderInfo.
// It never leaves this package: callers only observe the strategy it
// produces.
type providerInfo struct {
	kind                   providerKind
	isFunctioning          bool
	supportsSpanProcessors bool
}

// integrationStrategy is the three mutually exclusive attachment modes
// from spec.md §4.7.
type integrationStrategy int

const (
	strategyMain integrationStrategy = iota
	strategySecondary
	strategyConsoleFallback
)

func (s integrationStrategy) String() string {
	switch s {
	case strategyMain:
		return "main"
	case strategySecondary:
		return "secondary"
	case strategyConsoleFallback:
		return "console_fallback"
	default:
		return "unknown"
	}
}

// detectExistingProvider inspects otel's current global provider. The
// SDK's own no-op provider type is unexported, so a provider that is
// not our own *sdktrace.TracerProvider is classified by behavior: a
// probe span that comes back non-recording means nothing is actually
// collecting spans (spec.md §4.7 "is_functioning").
func detectExistingProvider() providerInfo {
	current := otel.GetTracerProvider()

	if _, ok := current.(*sdktrace.TracerProvider); ok {
		return providerInfo{kind: providerKindTracerProvider, isFunctioning: true, supportsSpanProcessors: true}
	}

	probe := current.Tracer("honeyhive-provider-probe")
	_, span := probe.Start(context.Background(), "honeyhive-probe")
	recording := span.IsRecording()
	span.End()

	if !recording {
		return providerInfo{kind: providerKindNoOp, isFunctioning: false}
	}
	// Something is recording spans but isn't our SDK type (e.g. a
	// vendor-wrapped provider). Treat as functioning but assume it
	// will not accept a processor attached after the fact.
	return providerInfo{kind: providerKindCustom, isFunctioning: true, supportsSpanProcessors: false}
}

// selectStrategy is the deterministic mapping from detection to
// attachment mode (spec.md §4.7 "Strategy selection"). ConsoleFallback
// is never chosen here — it is the caller's fallback when building the
// Main or Secondary provider itself fails (e.g. a malformed OTLP
// endpoint), per spec.md §4.7's "attachment fails on both paths".
func selectStrategy(info providerInfo) integrationStrategy {
	if !info.isFunctioning {
		return strategyMain
	}
	return strategySecondary
}
