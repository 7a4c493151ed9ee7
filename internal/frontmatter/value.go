package frontmatter

import (
	"strconv"
	"strings"
)

// Kind enumerates the value types a front matter line can carry.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindStrings
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStrings:
		return "strings"
	default:
		return "unknown"
	}
}

// Value is a typed front matter value. The zero Value is the empty string.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
}

func StringValue(s string) Value { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }
func StringsValue(l []string) Value { return Value{kind: KindStrings, list: append([]string{}, l...)} }

func (v Value) Kind() Kind { return v.kind }

// Text returns the string payload when the value is a string.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindString
}

// Float returns the numeric payload when the value is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Bool returns the boolean payload when the value is a boolean.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// List returns a copy of the array payload when the value is an array.
func (v Value) List() ([]string, bool) {
	if v.kind != KindStrings {
		return nil, false
	}
	return append([]string{}, v.list...), true
}

// Interface returns the payload as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindStrings:
		return append([]string{}, v.list...)
	default:
		return v.str
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStrings:
		return "[" + strings.Join(v.list, ", ") + "]"
	default:
		return v.str
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindStrings:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return v.str == o.str
	}
}

// Metadata maps front matter keys to their typed values.
type Metadata map[string]Value

// String returns the value of key when it holds a string.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return v.Text()
}

// Strings returns the value of key as a list. A plain string is treated as a
// single element list.
func (m Metadata) Strings(key string) ([]string, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	if list, ok := v.List(); ok {
		return list, true
	}
	if s, ok := v.Text(); ok && s != "" {
		return []string{s}, true
	}
	return nil, false
}

// Number returns the value of key when it holds a number.
func (m Metadata) Number(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Bool returns the value of key when it holds a boolean.
func (m Metadata) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	return v.Bool()
}
