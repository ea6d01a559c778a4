// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package dsl

import "fmt"

// MapToCanonical places extracted values into the four canonical
// sections according to provider's field mapping tables. Multiple
// source rules may target the same canonical key; the first non-nil
// value wins, in the bundle's declaration order (spec.md §4.4
// Mapping). A required canonical key with no value from any of its
// rules is a missing_required_field TranslationError.
func (b *Bundle) MapToCanonical(provider string, extracted Extracted) (*CanonicalSections, error) {
	def, ok := b.providers[provider]
	if !ok {
		return nil, &TranslationError{Kind: ErrUnknownProvider, Detail: provider}
	}

	out := newCanonicalSections()
	for _, section := range Sections {
		mappings := def.FieldMappings[section]
		dest := out.section(section)

		resolved := map[string]bool{}
		required := map[string]bool{}
		for _, fm := range mappings {
			if fm.Required {
				required[fm.CanonicalKey] = true
			}
			if resolved[fm.CanonicalKey] {
				continue // a value already won for this key (first non-null wins)
			}
			value, ruleFound := extracted[fm.Rule]
			if ruleFound && value != nil {
				dest[fm.CanonicalKey] = value
				resolved[fm.CanonicalKey] = true
			}
		}

		for key := range required {
			if !resolved[key] {
				return nil, &TranslationError{
					Kind:   ErrMissingRequiredField,
					Detail: fmt.Sprintf("%s.%s.%s", provider, section, key),
				}
			}
		}
	}
	return out, nil
}
