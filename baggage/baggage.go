// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

// Package baggage implements per-instance propagation of session,
// project, source, and user-defined tags across span boundaries,
// goroutines, and outbound HTTP requests. Every tracer instance owns
// its own Store; two instances never share one, even when their spans
// are created against the same context.Context chain.
package baggage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/honeyhiveai/tracer-go/internal/ids"
)

// Reserved keys cannot be removed by user code, only overwritten by
// SessionStart.
const (
	KeySessionID = "session_id"
	KeyProject   = "project"
	KeySource    = "source"
)

var reserved = map[string]bool{
	KeySessionID: true,
	KeyProject:   true,
	KeySource:    true,
}

// TextMapCarrier is the minimal carrier interface Inject/Extract
// operate against. It matches
// go.opentelemetry.io/otel/propagation.TextMapCarrier, so any OTel
// carrier (e.g. propagation.HeaderCarrier) can be passed to Inject and
// Extract without an adapter.
type TextMapCarrier interface {
	Get(key string) string
	Set(key, value string)
	Keys() []string
}

// Store is a per-instance baggage map plus a shallow-nested tag map.
// All methods are safe for concurrent use; writes are serialized by an
// internal mutex standing in for the spec's per-instance baggage lock.
type Store struct {
	mu     sync.Mutex
	values map[string]string
	tags   map[string]map[string]string
}

// NewStore returns an empty Store for one tracer instance.
func NewStore() *Store {
	return &Store{
		values: make(map[string]string),
		tags:   make(map[string]map[string]string),
	}
}

// Set stores key=value. Reserved keys may be overwritten here; use
// SessionStart if you want session_id's idempotence semantics.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Remove deletes key unless it is one of the reserved system keys, in
// which case Remove is a silent no-op (spec.md §4.5 invariant).
func (s *Store) Remove(key string) {
	if reserved[key] {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// All returns a shallow copy of the current baggage map, safe for the
// caller to mutate without affecting the Store.
func (s *Store) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// SetTag records a user-defined, one-level-nested tag.
func (s *Store) SetTag(namespace, key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.tags[namespace]
	if !ok {
		ns = make(map[string]string)
		s.tags[namespace] = ns
	}
	ns[key] = value
}

// Tags returns a shallow copy of namespace's tag map.
func (s *Store) Tags(namespace string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.tags[namespace]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(ns))
	for k, v := range ns {
		out[k] = v
	}
	return out
}

// SessionStart generates (or accepts, if name carries one already via
// seedSessionID) a session UUID, stores it under KeySessionID, and
// returns it. Calling SessionStart again before SessionEnd simply
// returns the already-active session_id, making it idempotent per the
// spec.
func (s *Store) SessionStart(seedSessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.values[KeySessionID]; ok && existing != "" {
		return existing
	}
	sid := seedSessionID
	if sid == "" || !ids.Valid(sid) {
		sid = ids.New()
	}
	s.values[KeySessionID] = sid
	return sid
}

// SessionEnd clears the active session_id so a subsequent SessionStart
// mints a new one.
func (s *Store) SessionEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, KeySessionID)
}

// Inject serializes the Store's baggage onto carrier using the
// W3C-style "baggage: k1=v1,k2=v2" key format (spec.md §6). Keys and
// values containing ',', ';', or '=' are percent-encoded so Extract
// can split pairs back out unambiguously.
func (s *Store) Inject(carrier TextMapCarrier) {
	all := s.All()
	if len(all) == 0 {
		return
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", encodeValue(k), encodeValue(all[k])))
	}
	carrier.Set("baggage", strings.Join(pairs, ","))
}

// Extract parses carrier's "baggage" header back into this Store,
// overwriting any keys present in the header.
func (s *Store) Extract(carrier TextMapCarrier) {
	header := carrier.Get("baggage")
	if header == "" {
		return
	}
	for _, pair := range strings.Split(header, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, err := decodeValue(strings.TrimSpace(kv[0]))
		if err != nil {
			continue
		}
		value, err := decodeValue(kv[1])
		if err != nil {
			continue
		}
		s.Set(key, value)
	}
}

// encodeValue percent-encodes v if it contains any character that
// would otherwise be misread while splitting the "baggage" header's
// "k1=v1,k2=v2" pairs on ',' and '=' — used for both keys and values,
// since a key is just as capable of containing either as a value is.
func encodeValue(v string) string {
	if strings.ContainsAny(v, ",;=") {
		return url.QueryEscape(v)
	}
	return v
}

func decodeValue(v string) (string, error) {
	return url.QueryUnescape(v)
}

// contextKey is the single key type used to attach a Store's snapshot
// to a context.Context. Using a snapshot (not the Store pointer)
// means downstream readers see a stable view even if the Store is
// mutated concurrently by other goroutines on the owning instance.
type contextKey struct{}

// ContextWithBaggage returns a context carrying a snapshot of this
// Store's current baggage, for consumption by the span processor's
// on_start hook.
func (s *Store) ContextWithBaggage(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, s.All())
}

// FromContext returns the baggage snapshot attached to ctx, if any.
func FromContext(ctx context.Context) (map[string]string, bool) {
	v, ok := ctx.Value(contextKey{}).(map[string]string)
	return v, ok
}
