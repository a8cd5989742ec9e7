// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package preferences

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the type of a preference leaf.
type Kind int

const (
	KindBool Kind = iota + 1
	KindNumber
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Value is a preference leaf: exactly one of a bool, a number or an enum
// string. The zero Value is invalid.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

// Bool makes a boolean leaf value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number makes a numeric leaf value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Enum makes an enumerated leaf value.
func Enum(s string) Value { return Value{kind: KindEnum, s: s} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsValid() bool { return v.kind != 0 }
func (v Value) Bool() bool { return v.b }
func (v Value) Number() float64 { return v.n }
func (v Value) Enum() string { return v.s }

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindEnum:
		return v.s
	default:
		return "<invalid>"
	}
}

// raw converts to the JSON-shaped form kept in the tree.
func (v Value) raw() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	default:
		return v.s
	}
}

// valueOf converts a JSON-shaped leaf to a Value. Objects, arrays and null
// are not leaves.
func valueOf(raw any) (Value, bool) {
	switch t := raw.(type) {
	case bool:
		return Bool(t), true
	case float64:
		return Number(t), true
	case int:
		return Number(float64(t)), true
	case string:
		return Enum(t), true
	default:
		return Value{}, false
	}
}

// ParseValue interprets text typed by a user as a value of kind k.
func ParseValue(k Kind, text string) (Value, error) {
	text = strings.TrimSpace(text)
	switch k {
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as bool: %w", text, err)
		}
		return Bool(b), nil
	case KindNumber:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse %q as number: %w", text, err)
		}
		return Number(n), nil
	case KindEnum:
		return Enum(text), nil
	default:
		return Value{}, fmt.Errorf("unknown kind %d", k)
	}
}

// truthy mirrors the loose boolean reading used by toggling: false, 0, ""
// and missing values are false.
func truthy(raw any) bool {
	switch t := raw.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// Path addresses a leaf in the preference tree.
type Path []string

// ParsePath splits a dot-delimited path. Empty segments are dropped, so
// ParsePath("") is the empty path.
func ParsePath(s string) Path {
	var p Path
	for _, seg := range strings.Split(s, ".") {
		if seg = strings.TrimSpace(seg); seg != "" {
			p = append(p, seg)
		}
	}
	return p
}

func (p Path) String() string { return strings.Join(p, ".") }

// BoolKey names a boolean leaf.
type BoolKey struct{ Path Path }

// NumberKey names a numeric leaf.
type NumberKey struct{ Path Path }

// EnumKey names an enumerated leaf and its allowed values.
type EnumKey struct {
	Path    Path
	Allowed []string
}
