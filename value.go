// seehuhn.de/go/mapscript - an interpreter for a map drawing language
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package mapscript

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
)

// Kind identifies the variant held by a [Value].
type Kind int

// These are the value kinds.
const (
	KindNumeric Kind = iota
	KindString
	KindMap
	KindGeometry
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindString:
		return "string"
	case KindMap:
		return "map"
	case KindGeometry:
		return "geometry"
	case KindVariable:
		return "variable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is the data type of the scripting language.
// The concrete type is one of *Numeric, *String, *Map, Geometry or VarRef.
type Value interface {
	Kind() Kind

	// String returns the serialized form of the value.
	String() string

	isValue()
}

// Numeric is a floating point number.
// The string form is computed on first use and then kept.
type Numeric struct {
	val     float64
	text    string
	hasText bool
}

// NewNumeric returns a new numeric value.
func NewNumeric(x float64) *Numeric {
	return &Numeric{val: x}
}

// Float returns the number.
func (n *Numeric) Float() float64 {
	return n.val
}

// Kind implements the [Value] interface.
func (n *Numeric) Kind() Kind { return KindNumeric }

func (n *Numeric) String() string {
	if !n.hasText {
		n.text = FormatNumber(n.val)
		n.hasText = true
	}
	return n.text
}

func (*Numeric) isValue() {}

// String is a text value.  Conversion to a number is attempted on first
// use and then kept; text which does not parse as a number converts to 0.
type String struct {
	text   string
	num    float64
	hasNum bool
}

// NewString returns a new string value.
func NewString(s string) *String {
	return &String{text: s}
}

// Kind implements the [Value] interface.
func (s *String) Kind() Kind { return KindString }

func (s *String) String() string {
	return s.text
}

// Float returns the numeric interpretation of the string, or 0 if the
// string is not a number.
func (s *String) Float() float64 {
	if !s.hasNum {
		x, err := strconv.ParseFloat(strings.TrimSpace(s.text), 64)
		if err != nil {
			x = 0
		}
		s.num = x
		s.hasNum = true
	}
	return s.num
}

func (*String) isValue() {}

// VarRef is the name of a variable.
type VarRef string

// Kind implements the [Value] interface.
func (VarRef) Kind() Kind { return KindVariable }

func (v VarRef) String() string { return string(v) }

func (VarRef) isValue() {}

// Map is an associative array with string keys.
//
// Copies made with Clone share their entries with the original map.
type Map struct {
	entries map[string]Value
}

// NewMap returns a new, empty map.
func NewMap() *Map {
	return &Map{entries: make(map[string]Value)}
}

// Kind implements the [Value] interface.
func (m *Map) Kind() Kind { return KindMap }

func (*Map) isValue() {}

// Len returns the number of entries in the map.
func (m *Map) Len() int {
	return len(m.entries)
}

// Get returns the entry for key, or an empty string if there is no
// such entry.
func (m *Map) Get(key string) Value {
	v, ok := m.entries[key]
	if !ok {
		return NewString("")
	}
	return v
}

// Lookup returns the entry for key.
func (m *Map) Lookup(key string) (Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Set stores an entry in the map, replacing any previous entry for key.
func (m *Map) Set(key string, v Value) {
	m.entries[key] = v
}

// Delete removes an entry from the map.
func (m *Map) Delete(key string) {
	delete(m.entries, key)
}

// Clone returns a shallow copy of m.
func (m *Map) Clone() *Map {
	return &Map{entries: maps.Clone(m.entries)}
}

// Keys returns the keys of the map in a deterministic order: numerically
// ascending if every key is an integer, lexicographic otherwise.
func (m *Map) Keys() []string {
	keys := maps.Keys(m.entries)

	allInt := true
	ints := make(map[string]int64, len(keys))
	for _, key := range keys {
		i, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			allInt = false
			break
		}
		ints[key] = i
	}

	if allInt {
		sort.Slice(keys, func(i, j int) bool {
			ii, ij := ints[keys[i]], ints[keys[j]]
			if ii != ij {
				return ii < ij
			}
			return keys[i] < keys[j]
		})
	} else {
		sort.Strings(keys)
	}
	return keys
}

func (m *Map) String() string {
	var sb strings.Builder
	for _, key := range m.Keys() {
		sb.WriteString(key)
		sb.WriteByte(' ')
		sb.WriteString(m.entries[key].String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatNumber converts a number to a string.  Very small and very large
// magnitudes use scientific notation, everything else is written as a
// plain decimal.  The output does not depend on the locale.
func FormatNumber(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}

	abs := math.Abs(x)
	if abs != 0 && (abs < 0.01 || abs > 1e7) {
		s := strconv.FormatFloat(x, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		e, _ := strconv.Atoi(exp)
		return mant + "E" + strconv.Itoa(e)
	}

	// at most 16 fraction digits, so that 0.1 + 0.2 prints as 0.3
	s := strconv.FormatFloat(x, 'f', 16, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}

// NumericValue returns the numeric interpretation of v.
// Strings which are not numbers give 0; maps and geometries cannot be
// converted and give an error.
func NumericValue(v Value) (float64, error) {
	switch v := v.(type) {
	case *Numeric:
		return v.val, nil
	case *String:
		return v.Float(), nil
	case *Map:
		return 0, errEval("map used where a number is expected")
	case Geometry:
		return 0, errEval("geometry used where a number is expected")
	case VarRef:
		return 0, errEval("variable name %q used where a number is expected", string(v))
	default:
		return 0, errEval("invalid value %T", v)
	}
}

// isNumber reports whether v is of numeric kind, or is a string holding a
// number.
func isNumber(v Value) bool {
	switch v := v.(type) {
	case *Numeric:
		return true
	case *String:
		_, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		return err == nil
	default:
		return false
	}
}

// boolValue converts a truth value to a number.
func boolValue(b bool) *Numeric {
	if b {
		return NewNumeric(1)
	}
	return NewNumeric(0)
}

// copyValue returns the value to store in a variable.  Maps are copied,
// so that assigning a map gives an independent set of keys.
func copyValue(v Value) Value {
	if m, ok := v.(*Map); ok {
		return m.Clone()
	}
	return v
}
