// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package deepmerge merges JSON-shaped trees (map[string]any, []any and
// scalars as produced by encoding/json).
package deepmerge

import "encoding/json"

// Merge returns a new tree holding every key of base overlaid with incoming.
// Where both sides hold an object the merge recurses; in every other case
// (arrays, scalars, object vs scalar) the incoming value wins outright.
// Neither argument is modified.
func Merge(base, incoming map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(incoming))
	for k, v := range base {
		out[k] = Clone(v)
	}
	for k, v := range incoming {
		if bv, ok := out[k].(map[string]any); ok {
			if iv, ok := v.(map[string]any); ok {
				out[k] = Merge(bv, iv)
				continue
			}
		}
		out[k] = Clone(v)
	}
	return out
}

// Clone deep-copies a JSON-shaped value.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = Clone(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = Clone(e)
		}
		return s
	default:
		return v
	}
}

// ToMap converts a struct into its JSON object form.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// FromMap decodes a JSON object tree into out.
func FromMap(m map[string]any, out any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// MergeInto merges incoming over base (both structs or maps) and decodes the
// result into out.
func MergeInto(base, incoming, out any) error {
	bm, err := ToMap(base)
	if err != nil {
		return err
	}
	im, err := ToMap(incoming)
	if err != nil {
		return err
	}
	return FromMap(Merge(bm, im), out)
}
