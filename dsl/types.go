// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

// Package dsl implements the translation DSL engine: a declarative,
// data-driven mapping from provider-specific span attributes onto the
// canonical 4-section event schema. Provider behavior lives entirely
// in the compiled Bundle (built from the YAML fixtures under
// dsl/bundles/), not in Go branches — adding a provider is adding
// data, per spec.md §9.
package dsl

// Section names for the canonical event's four semantic buckets.
const (
	SectionInputs   = "inputs"
	SectionOutputs  = "outputs"
	SectionConfig   = "config"
	SectionMetadata = "metadata"
)

// Sections lists the canonical sections in their declaration order,
// used wherever a stable iteration order matters (e.g. warning
// messages).
var Sections = []string{SectionInputs, SectionOutputs, SectionConfig, SectionMetadata}

// NavigationRule describes how to pull one logical field out of a flat
// attribute bag. Path is the literal attribute key direct_copy reads;
// '*' wildcard segments are not interpreted. array_reconstruction and
// string_extraction instead collect keys of the form
// "prefix.N.field", using Prefix (or Path when Prefix is empty).
type NavigationRule struct {
	Path     string `yaml:"path"`
	Method   string `yaml:"method"`
	Fallback any    `yaml:"fallback"`

	// array_reconstruction: Prefix + Fields rebuild an array of
	// objects from flattened keys like "prefix.0.field".
	Prefix              string   `yaml:"prefix"`
	Fields              []string `yaml:"fields"`
	PreserveJSONStrings []string `yaml:"preserve_json_strings"`

	// string_extraction: filter a role-tagged message list and join
	// the content of matching roles.
	RoleKey     string   `yaml:"role_key"`
	ContentKey  string   `yaml:"content_key"`
	FilterRoles []string `yaml:"filter_roles"`
	Join        string   `yaml:"join"`

	// numeric_calculation: sum or pick across a set of flattened keys.
	NumericFields []string `yaml:"numeric_fields"`
	Op            string   `yaml:"op"`
}

// Extraction methods referenced by NavigationRule.Method.
const (
	MethodDirectCopy          = "direct_copy"
	MethodArrayReconstruction = "array_reconstruction"
	MethodStringExtraction    = "string_extraction"
	MethodNumericCalculation  = "numeric_calculation"
)

// FieldMapping places one navigation rule's extracted value into a
// canonical key within one of the four sections.
type FieldMapping struct {
	CanonicalKey string `yaml:"canonical_key"`
	Rule         string `yaml:"rule"`
	Required     bool   `yaml:"required"`
}

// ProviderDef is one provider's complete detection signature,
// navigation rules, and field mappings.
type ProviderDef struct {
	Name             string                    `yaml:"name"`
	SignatureFields  []string                  `yaml:"signature_fields"`
	ConfidenceWeight float64                   `yaml:"confidence_weight"`
	ModelAttribute   string                    `yaml:"model_attribute"`
	ModelPatterns    []string                  `yaml:"model_patterns"`
	NavigationRules  map[string]NavigationRule `yaml:"navigation_rules"`
	FieldMappings    map[string][]FieldMapping `yaml:"field_mappings"`
}

// eventTypePattern pairs a compiled-at-load-time name-matching regex
// with the canonical event type it implies.
type eventTypePattern struct {
	Pattern   string `yaml:"pattern"`
	EventType string `yaml:"event_type"`
}

// meta holds engine-wide tuning read from bundles/meta.yaml.
type meta struct {
	Version              string             `yaml:"version"`
	ConfidenceThreshold  float64            `yaml:"confidence_threshold"`
	EventTypePatterns    []eventTypePattern `yaml:"event_type_patterns"`
	DefaultEventType     string             `yaml:"default_event_type"`
}

// Extracted holds one value per navigation rule name, keyed the same
// way the provider's navigation_rules map is keyed.
type Extracted map[string]any

// CanonicalSections is the DSL engine's output: the four open
// key/value maps that become an event's inputs/outputs/config/metadata.
type CanonicalSections struct {
	Inputs   map[string]any
	Outputs  map[string]any
	Config   map[string]any
	Metadata map[string]any
}

func newCanonicalSections() *CanonicalSections {
	return &CanonicalSections{
		Inputs:   map[string]any{},
		Outputs:  map[string]any{},
		Config:   map[string]any{},
		Metadata: map[string]any{},
	}
}

func (c *CanonicalSections) section(name string) map[string]any {
	switch name {
	case SectionInputs:
		return c.Inputs
	case SectionOutputs:
		return c.Outputs
	case SectionConfig:
		return c.Config
	default:
		return c.Metadata
	}
}

// ErrorKind classifies a TranslationError (spec.md §4.4, §7).
type ErrorKind string

const (
	ErrUnknownProvider     ErrorKind = "unknown_provider"
	ErrMissingRequiredField ErrorKind = "missing_required_field"
	ErrTransformFailed     ErrorKind = "transform_failed"
)

// TranslationError is always non-fatal to the caller: the span
// processor catches it and falls back to a pass-through event.
type TranslationError struct {
	Kind    ErrorKind
	Detail  string
}

func (e *TranslationError) Error() string {
	return "dsl: " + string(e.Kind) + ": " + e.Detail
}
