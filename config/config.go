// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

// Package config resolves a tracer's immutable configuration from
// three layered sources: explicit constructor options (highest
// precedence), environment variables (HH_* prefix), and defaults
// (lowest). A Config is never mutated after Resolve returns it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/honeyhiveai/tracer-go/internal/ids"
)

// ErrorKind classifies a ConfigError, matching spec.md §7's
// Configuration error kind.
type ErrorKind string

const (
	ErrMissingField ErrorKind = "missing_field"
	ErrInvalidValue ErrorKind = "invalid_value"
)

// ConfigError reports a fatal resolution failure: a required field
// missing, or a value that could not be parsed.
type ConfigError struct {
	Kind  ErrorKind
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s: %s", e.Kind, e.Field, e.Msg)
}

// Config is the fully resolved, immutable configuration for one tracer
// instance. Construct via Resolve; never mutate a Config's fields
// after creation — share it freely by value or pointer-to-const.
type Config struct {
	APIKey              string
	Project             string
	Source              string
	ServerURL           string
	SessionName         string
	SessionID           string
	Verbose             bool
	TestMode            bool
	DisableBatch        bool
	DisableHTTPTracing  bool
	OTLPEnabled         bool
	CacheEnabled        bool
	CacheMaxSize        int
	CacheTTL            time.Duration
	BatchSize           int
	FlushInterval       time.Duration
	HighConcurrency     bool
}

const (
	defaultSource        = "dev"
	defaultServerURL      = "https://api.honeyhive.ai"
	defaultBatchSize      = 512
	defaultFlushInterval  = 5 * time.Second
	defaultCacheMaxSize   = 1000
	defaultCacheTTL       = 5 * time.Minute
)

// Options carries the explicit, highest-precedence constructor
// arguments. Zero values mean "not specified" and fall through to the
// environment, then to defaults — so callers cannot distinguish
// "explicitly false" from "unset" for bool fields; use the pointer
// fields for those where that distinction matters.
type Options struct {
	APIKey             string
	Project            string
	Source             string
	ServerURL          string
	SessionName        string
	SessionID          string
	Verbose            *bool
	TestMode           *bool
	DisableBatch       *bool
	DisableHTTPTracing *bool
	OTLPEnabled        *bool
	CacheEnabled       *bool
	CacheMaxSize       int
	BatchSize          int
	FlushInterval      time.Duration
	HighConcurrency    *bool
	// RequiresNetwork signals that the caller intends to export spans
	// (as opposed to, say, running fully in test mode), so a missing
	// APIKey is fatal. The tracer constructor always sets it; Resolve
	// waives the APIKey requirement when test mode resolves true.
	RequiresNetwork bool
}

// Environment is a snapshot of environment variables, taken once by
// the caller before Resolve runs. The resolver never reads the
// process environment itself, so resolution is deterministic and
// repeatable for the lifetime of the instance (spec.md §4.1).
type Environment interface {
	Lookup(key string) (string, bool)
}

// OSEnvironment snapshots os.Environ() at construction time.
type OSEnvironment struct {
	vars map[string]string
}

// NewOSEnvironment takes a one-time snapshot of the process
// environment.
func NewOSEnvironment() *OSEnvironment {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				vars[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return &OSEnvironment{vars: vars}
}

func (e *OSEnvironment) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Resolve merges opts over env over defaults into a fully resolved
// Config. Numeric values out of range are clamped with a logged
// warning (returned via warnings, not failed); parse failures and
// missing required fields are fatal ConfigErrors.
func Resolve(opts Options, env Environment) (cfg *Config, warnings []string, err error) {
	cfg = &Config{}

	cfg.APIKey = firstNonEmpty(opts.APIKey, lookup(env, "HH_API_KEY"))
	cfg.Project = firstNonEmpty(opts.Project, lookup(env, "HH_PROJECT"))
	cfg.Source = firstNonEmpty(opts.Source, lookup(env, "HH_SOURCE"), defaultSource)
	cfg.ServerURL = firstNonEmpty(opts.ServerURL, lookup(env, "HH_API_URL"), defaultServerURL)
	cfg.SessionID = firstNonEmpty(opts.SessionID)

	cfg.SessionName = resolveSessionName(opts.SessionName)

	if v, err2 := resolveBool(opts.Verbose, env, "HH_VERBOSE", false); err2 != nil {
		return nil, warnings, err2
	} else {
		cfg.Verbose = v
	}
	if v, err2 := resolveBool(opts.TestMode, env, "HH_TEST_MODE", false); err2 != nil {
		return nil, warnings, err2
	} else {
		cfg.TestMode = v
	}
	if v, err2 := resolveBool(opts.DisableBatch, env, "HH_DISABLE_BATCH", false); err2 != nil {
		return nil, warnings, err2
	} else {
		cfg.DisableBatch = v
	}
	if v, err2 := resolveBool(opts.DisableHTTPTracing, env, "HH_DISABLE_HTTP_TRACING", false); err2 != nil {
		return nil, warnings, err2
	} else {
		cfg.DisableHTTPTracing = v
	}
	if v, err2 := resolveBool(opts.OTLPEnabled, env, "HH_OTLP_ENABLED", true); err2 != nil {
		return nil, warnings, err2
	} else {
		cfg.OTLPEnabled = v
	}
	if v, err2 := resolveBool(opts.CacheEnabled, env, "HH_CACHE_ENABLED", true); err2 != nil {
		return nil, warnings, err2
	} else {
		cfg.CacheEnabled = v
	}
	if v, err2 := resolveBool(opts.HighConcurrency, env, "HH_HIGH_CONCURRENCY", false); err2 != nil {
		return nil, warnings, err2
	} else {
		cfg.HighConcurrency = v
	}

	batchSize, w, err2 := resolveIntClamped(opts.BatchSize, env, "HH_BATCH_SIZE", defaultBatchSize, 1, 100000)
	if err2 != nil {
		return nil, warnings, err2
	}
	warnings = appendIf(warnings, w)
	cfg.BatchSize = batchSize

	cacheMaxSize, w, err2 := resolveIntClamped(opts.CacheMaxSize, env, "HH_CACHE_MAX_SIZE", defaultCacheMaxSize, 1, 1000000)
	if err2 != nil {
		return nil, warnings, err2
	}
	warnings = appendIf(warnings, w)
	cfg.CacheMaxSize = cacheMaxSize
	cfg.CacheTTL = defaultCacheTTL

	flushInterval, w, err2 := resolveDurationClamped(opts.FlushInterval, env, "HH_FLUSH_INTERVAL", defaultFlushInterval, time.Second, time.Hour)
	if err2 != nil {
		return nil, warnings, err2
	}
	warnings = appendIf(warnings, w)
	cfg.FlushInterval = flushInterval

	if cfg.Project == "" {
		return nil, warnings, &ConfigError{Kind: ErrMissingField, Field: "project", Msg: "project is required"}
	}
	if opts.RequiresNetwork && !cfg.TestMode && cfg.APIKey == "" {
		return nil, warnings, &ConfigError{Kind: ErrMissingField, Field: "api_key", Msg: "api_key is required for any network transport"}
	}

	return cfg, warnings, nil
}

func lookup(env Environment, key string) string {
	if env == nil {
		return ""
	}
	v, _ := env.Lookup(key)
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveSessionName implements the priority order from spec.md
// §4.1: explicit > inferred from the invoking script's filename
// (best-effort) > a UUID string.
func resolveSessionName(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if inferred := inferSessionNameFromArgs(); inferred != "" {
		return inferred
	}
	return ids.New()
}

func inferSessionNameFromArgs() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return ""
	}
	base := filepath.Base(os.Args[0])
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

func resolveBool(explicit *bool, env Environment, key string, def bool) (bool, error) {
	if explicit != nil {
		return *explicit, nil
	}
	raw, ok := env.Lookup(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ConfigError{Kind: ErrInvalidValue, Field: key, Msg: fmt.Sprintf("not a boolean: %q", raw)}
	}
	return v, nil
}

func resolveIntClamped(explicit int, env Environment, key string, def, min, max int) (int, string, error) {
	v := explicit
	if v == 0 {
		raw, ok := env.Lookup(key)
		if !ok || raw == "" {
			v = def
		} else {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return 0, "", &ConfigError{Kind: ErrInvalidValue, Field: key, Msg: fmt.Sprintf("not an integer: %q", raw)}
			}
			v = parsed
		}
	}
	if v < min {
		return min, fmt.Sprintf("%s: clamped %d up to minimum %d", key, v, min), nil
	}
	if v > max {
		return max, fmt.Sprintf("%s: clamped %d down to maximum %d", key, v, max), nil
	}
	return v, "", nil
}

func resolveDurationClamped(explicit time.Duration, env Environment, key string, def, min, max time.Duration) (time.Duration, string, error) {
	v := explicit
	if v == 0 {
		raw, ok := env.Lookup(key)
		if !ok || raw == "" {
			v = def
		} else {
			seconds, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, "", &ConfigError{Kind: ErrInvalidValue, Field: key, Msg: fmt.Sprintf("not a number of seconds: %q", raw)}
			}
			v = time.Duration(seconds * float64(time.Second))
		}
	}
	if v < min {
		return min, fmt.Sprintf("%s: clamped %s up to minimum %s", key, v, min), nil
	}
	if v > max {
		return max, fmt.Sprintf("%s: clamped %s down to maximum %s", key, v, max), nil
	}
	return v, "", nil
}

func appendIf(warnings []string, w string) []string {
	if w == "" {
		return warnings
	}
	return append(warnings, w)
}
