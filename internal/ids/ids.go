// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

// Package ids centralizes identifier generation and validation so the
// rest of the tracer never hand-rolls UUID parsing.
package ids

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// New returns a fresh UUID v4 string.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s parses as a UUID of any RFC 4122 version,
// used by EnrichSpan to reject caller-supplied event IDs (spec.md
// §4.5's "rejects non-UUID event_id with a validation error").
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// instanceSeq disambiguates tracer instances created within the same
// process, standing in for the source's use of an object identity to
// make the inner OTel tracer name unique per instance (spec.md §9,
// Open Question "provider_id in secondary strategy"). A monotonic
// counter gives uniqueness and stability for the instance's lifetime
// without exposing memory addresses.
var instanceSeq atomic.Uint64

// NextInstanceSuffix returns a process-unique, monotonically
// increasing suffix suitable for naming a tracer instance's isolated
// OTel tracer.
func NextInstanceSuffix() uint64 {
	return instanceSeq.Add(1)
}
