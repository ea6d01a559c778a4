// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package transport

import (
	"context"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewOTLPHTTPExporter builds an OTLP/HTTP span exporter authenticated
// with a bearer token, per spec.md §6. TLS is used only when endpoint's
// scheme is https; any other scheme is sent without TLS. timeout bounds every
// individual export call (the per-environment profile from spec.md
// §5 — 5s serverless, 30s otherwise).
func NewOTLPHTTPExporter(ctx context.Context, endpoint, apiKey string, timeout time.Duration) (sdktrace.SpanExporter, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(u.Host),
		otlptracehttp.WithURLPath(u.Path),
		otlptracehttp.WithHeaders(map[string]string{"Authorization": "Bearer " + apiKey}),
		otlptracehttp.WithTimeout(timeout),
	}
	if u.Scheme != "https" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	client := otlptracehttp.NewClient(opts...)
	return otlptrace.New(ctx, client)
}

// NewConsoleExporter builds a development-aid exporter that writes
// spans to stdout, used by the ConsoleFallback provider strategy when
// processor attachment fails on both other paths (spec.md §4.7).
func NewConsoleExporter() (sdktrace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}
