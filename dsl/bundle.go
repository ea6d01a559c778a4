// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package dsl

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed bundles/*.yaml
var bundledFS embed.FS

// Bundle is the compiled, immutable translation DSL. A single shared
// Bundle is safe to use across every tracer instance in the process
// (spec.md §4.4 Loading).
type Bundle struct {
	version             string
	confidenceThreshold float64
	defaultEventType    string
	eventTypePatterns   []compiledEventTypePattern
	providers           map[string]*ProviderDef
	providerNames       []string // sorted, for deterministic tie-break
}

type compiledEventTypePattern struct {
	re        *regexp.Regexp
	eventType string
}

// Version reports the bundle version recorded in meta.yaml, logged at
// tracer startup per spec.md §4.4.
func (b *Bundle) Version() string { return b.version }

// Load compiles the embedded YAML fixtures into a Bundle. Safe to call
// more than once; each call returns an independent, equally immutable
// Bundle (callers typically call it once at package init and share the
// result).
func Load() (*Bundle, error) {
	return loadFS(bundledFS)
}

func loadFS(fsys embed.FS) (*Bundle, error) {
	metaBytes, err := fsys.ReadFile("bundles/meta.yaml")
	if err != nil {
		return nil, fmt.Errorf("dsl: reading meta.yaml: %w", err)
	}
	var m meta
	if err := yaml.Unmarshal(metaBytes, &m); err != nil {
		return nil, fmt.Errorf("dsl: parsing meta.yaml: %w", err)
	}
	if m.ConfidenceThreshold == 0 {
		m.ConfidenceThreshold = 0.8
	}
	if m.DefaultEventType == "" {
		m.DefaultEventType = "tool"
	}

	b := &Bundle{
		version:             m.Version,
		confidenceThreshold: m.ConfidenceThreshold,
		defaultEventType:    m.DefaultEventType,
		providers:           make(map[string]*ProviderDef),
	}
	for _, p := range m.EventTypePatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("dsl: compiling event type pattern %q: %w", p.Pattern, err)
		}
		b.eventTypePatterns = append(b.eventTypePatterns, compiledEventTypePattern{re: re, eventType: p.EventType})
	}

	entries, err := fsys.ReadDir("bundles")
	if err != nil {
		return nil, fmt.Errorf("dsl: listing bundles: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == "meta.yaml" || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		raw, err := fsys.ReadFile("bundles/" + name)
		if err != nil {
			return nil, fmt.Errorf("dsl: reading %s: %w", name, err)
		}
		var def ProviderDef
		if err := yaml.Unmarshal(raw, &def); err != nil {
			return nil, fmt.Errorf("dsl: parsing %s: %w", name, err)
		}
		if def.Name == "" {
			return nil, fmt.Errorf("dsl: %s missing provider name", name)
		}
		b.providers[def.Name] = &def
		b.providerNames = append(b.providerNames, def.Name)
	}
	sort.Strings(b.providerNames)

	return b, nil
}

// DetectProvider runs the O(1)-per-provider scoring algorithm from
// spec.md §4.4 and returns the winning provider name (empty string for
// unknown_provider) and its score.
func (b *Bundle) DetectProvider(attrs map[string]any) (string, float64) {
	best := ""
	bestScore := -1.0

	for _, name := range b.providerNames {
		def := b.providers[name]
		score := b.scoreProvider(def, attrs)
		if score > bestScore {
			best, bestScore = name, score
		}
		// providerNames is already lexicographically sorted, so the
		// first max we see on a tie is the deterministic winner; a
		// strictly later equal score must not overwrite it.
	}

	if bestScore < b.confidenceThreshold {
		return "", bestScore
	}
	return best, bestScore
}

func (b *Bundle) scoreProvider(def *ProviderDef, attrs map[string]any) float64 {
	if len(def.SignatureFields) == 0 {
		return 0
	}
	matched := 0
	for _, field := range def.SignatureFields {
		if _, ok := attrs[field]; ok {
			matched++
		}
	}
	score := float64(matched) / float64(len(def.SignatureFields)) * def.ConfidenceWeight

	if len(def.ModelPatterns) > 0 {
		modelValue, ok := attrs[def.ModelAttribute]
		if !ok {
			return score * 0.0
		}
		s, ok := modelValue.(string)
		if !ok {
			return score * 0.0
		}
		matched := false
		for _, pat := range def.ModelPatterns {
			if ok, _ := regexp.MatchString(pat, s); ok {
				matched = true
				break
			}
		}
		if !matched {
			return score * 0.0
		}
		return score * 1.0
	}
	return score
}

// Providers returns the provider names known to the bundle, sorted.
func (b *Bundle) Providers() []string {
	out := make([]string, len(b.providerNames))
	copy(out, b.providerNames)
	return out
}
