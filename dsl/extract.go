// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at HoneyHive (https://honeyhive.ai/).
// Copyright 2024 HoneyHive, Inc.

package dsl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Extract runs every navigation rule declared for provider against
// attrs and returns one value per rule name. Missing paths fall back
// to the rule's Fallback; a required rule with neither a value nor a
// fallback is reported by MapToCanonical, not here (a navigation rule
// may feed an optional field too, so "required" is a mapping-level
// concept).
func (b *Bundle) Extract(provider string, attrs map[string]any) (Extracted, error) {
	def, ok := b.providers[provider]
	if !ok {
		return nil, &TranslationError{Kind: ErrUnknownProvider, Detail: provider}
	}

	out := make(Extracted, len(def.NavigationRules))
	names := make([]string, 0, len(def.NavigationRules))
	for name := range def.NavigationRules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rule := def.NavigationRules[name]
		value, err := extractOne(rule, attrs)
		if err != nil {
			return nil, &TranslationError{Kind: ErrTransformFailed, Detail: fmt.Sprintf("%s.%s: %v", provider, name, err)}
		}
		out[name] = value
	}
	return out, nil
}

func extractOne(rule NavigationRule, attrs map[string]any) (any, error) {
	switch rule.Method {
	case MethodDirectCopy, "":
		return directCopy(rule, attrs), nil
	case MethodArrayReconstruction:
		return arrayReconstruction(rule, attrs)
	case MethodStringExtraction:
		return stringExtraction(rule, attrs), nil
	case MethodNumericCalculation:
		return numericCalculation(rule, attrs), nil
	default:
		return nil, fmt.Errorf("unknown extraction method %q", rule.Method)
	}
}

func directCopy(rule NavigationRule, attrs map[string]any) any {
	if v, ok := attrs[rule.Path]; ok {
		return v
	}
	return rule.Fallback
}

// arrayReconstruction rebuilds an array of objects from flattened keys
// of the form "prefix.0.field", "prefix.1.field", preserving any
// fields listed in PreserveJSONStrings as raw JSON-decoded values
// rather than strings, per spec.md §4.4.
func arrayReconstruction(rule NavigationRule, attrs map[string]any) (any, error) {
	byIndex := map[int]map[string]any{}
	prefix := rule.Prefix
	if prefix == "" {
		prefix = rule.Path
	}
	preserve := map[string]bool{}
	for _, f := range rule.PreserveJSONStrings {
		preserve[f] = true
	}

	for key, value := range attrs {
		if !strings.HasPrefix(key, prefix+".") {
			continue
		}
		rest := strings.TrimPrefix(key, prefix+".")
		dot := strings.Index(rest, ".")
		if dot < 0 {
			continue
		}
		idxStr, field := rest[:dot], rest[dot+1:]
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}
		if len(rule.Fields) > 0 {
			keep := false
			for _, f := range rule.Fields {
				if f == field {
					keep = true
					break
				}
			}
			if !keep {
				continue
			}
		}
		obj, ok := byIndex[idx]
		if !ok {
			obj = map[string]any{}
			byIndex[idx] = obj
		}
		if preserve[field] {
			if s, ok := value.(string); ok {
				var decoded any
				if err := json.Unmarshal([]byte(s), &decoded); err == nil {
					obj[field] = decoded
					continue
				}
			}
		}
		obj[field] = value
	}

	if len(byIndex) == 0 {
		return rule.Fallback, nil
	}
	indices := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	result := make([]map[string]any, 0, len(indices))
	for _, idx := range indices {
		result = append(result, byIndex[idx])
	}
	return result, nil
}

// stringExtraction filters a role-tagged message list (rebuilt the
// same way arrayReconstruction does) down to roles in FilterRoles and
// joins their content with Join.
func stringExtraction(rule NavigationRule, attrs map[string]any) any {
	arrRule := NavigationRule{Prefix: rule.Prefix, Path: rule.Path}
	raw, err := arrayReconstruction(arrRule, attrs)
	if err != nil {
		return rule.Fallback
	}
	items, ok := raw.([]map[string]any)
	if !ok {
		return rule.Fallback
	}

	roleKey := rule.RoleKey
	if roleKey == "" {
		roleKey = "role"
	}
	contentKey := rule.ContentKey
	if contentKey == "" {
		contentKey = "content"
	}
	allow := map[string]bool{}
	for _, r := range rule.FilterRoles {
		allow[r] = true
	}

	var parts []string
	for _, item := range items {
		role, _ := item[roleKey].(string)
		if len(allow) > 0 && !allow[role] {
			continue
		}
		content, _ := item[contentKey].(string)
		if content != "" {
			parts = append(parts, content)
		}
	}
	if len(parts) == 0 {
		return rule.Fallback
	}
	return strings.Join(parts, rule.Join)
}

// numericCalculation sums or picks the first present value across
// NumericFields.
func numericCalculation(rule NavigationRule, attrs map[string]any) any {
	op := rule.Op
	if op == "" {
		op = "sum"
	}
	switch op {
	case "pick":
		for _, f := range rule.NumericFields {
			if v, ok := attrs[f]; ok {
				if n, ok := toFloat(v); ok {
					return n
				}
			}
		}
		return rule.Fallback
	default: // "sum"
		sum := 0.0
		found := false
		for _, f := range rule.NumericFields {
			if v, ok := attrs[f]; ok {
				if n, ok := toFloat(v); ok {
					sum += n
					found = true
				}
			}
		}
		if !found {
			return rule.Fallback
		}
		return sum
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
