// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package tracer

import (
	"time"

	"github.com/honeyhiveai/tracer-go/config"
)

// Option configures a Tracer at construction. Each Option mutates the
// explicit-options layer the configuration resolver treats as highest
// precedence (spec.md §4.1).
type Option func(*config.Options)

func WithAPIKey(key string) Option { return func(o *config.Options) { o.APIKey = key } }

func WithProject(project string) Option { return func(o *config.Options) { o.Project = project } }

func WithSource(source string) Option { return func(o *config.Options) { o.Source = source } }

func WithServerURL(url string) Option { return func(o *config.Options) { o.ServerURL = url } }

func WithSessionName(name string) Option { return func(o *config.Options) { o.SessionName = name } }

func WithSessionID(id string) Option { return func(o *config.Options) { o.SessionID = id } }

func WithVerbose(v bool) Option { return func(o *config.Options) { o.Verbose = &v } }

func WithTestMode(v bool) Option { return func(o *config.Options) { o.TestMode = &v } }

func WithDisableBatch(v bool) Option { return func(o *config.Options) { o.DisableBatch = &v } }

func WithDisableHTTPTracing(v bool) Option {
	return func(o *config.Options) { o.DisableHTTPTracing = &v }
}

func WithOTLPEnabled(v bool) Option { return func(o *config.Options) { o.OTLPEnabled = &v } }

func WithCacheEnabled(v bool) Option { return func(o *config.Options) { o.CacheEnabled = &v } }

func WithCacheMaxSize(n int) Option { return func(o *config.Options) { o.CacheMaxSize = n } }

func WithBatchSize(n int) Option { return func(o *config.Options) { o.BatchSize = n } }

func WithFlushInterval(d time.Duration) Option {
	return func(o *config.Options) { o.FlushInterval = d }
}

func WithHighConcurrency(v bool) Option { return func(o *config.Options) { o.HighConcurrency = &v } }

// spanStartConfig carries the per-call options StartSpan accepts,
// separate from the constructor-level Option/config.Options above.
type spanStartConfig struct {
	eventType string
}

// SpanOption configures one StartSpan call, the Go-idiomatic stand-in
// for the decorator ergonomics spec.md §9 descopes (SPEC_FULL.md §9).
type SpanOption func(*spanStartConfig)

// WithEventType stamps the span's event type explicitly, taking
// priority over on_end's name-pattern inference (dsl.DetectEventType).
func WithEventType(eventType string) SpanOption {
	return func(c *spanStartConfig) { c.eventType = eventType }
}
