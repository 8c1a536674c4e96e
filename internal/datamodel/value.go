package datamodel

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a data model value: a string, number, boolean or string-keyed map.
// Lists are maps keyed by stringified index. The zero Value is invalid and is
// never stored.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
	m    map[string]Value
}

func String(s string) Value  { return Value{kind: KindString, s: s} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

// Map wraps m without copying it. A nil map becomes an empty map.
func Map(m map[string]Value) Value {
	if m == nil {
		m = make(map[string]Value)
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) Num() (float64, bool) {
	return v.n, v.kind == KindNumber
}

func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Fields returns the map entries. Callers must not mutate the result.
func (v Value) Fields() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	if v.kind != KindMap {
		return v
	}
	out := make(map[string]Value, len(v.m))
	for k, vv := range v.m {
		out[k] = vv.Clone()
	}
	return Value{kind: KindMap, m: out}
}

// Equal reports deep equality. Values of different kinds are never equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindBool:
		return v.b == o.b
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, vv := range v.m {
			ov, ok := o.m[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Interface converts v to plain Go values: string, float64, bool or
// map[string]any. An invalid value converts to nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, vv := range v.m {
			out[k] = vv.Interface()
		}
		return out
	default:
		return nil
	}
}

// String formats v for display. Maps render as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		b, err := json.Marshal(v)
		if err != nil {
			return "{}"
		}
		return string(b)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// FromInterface converts decoded JSON into a Value. Arrays become maps keyed
// by index; null is rejected.
func FromInterface(x any) (Value, error) {
	switch t := x.(type) {
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case bool:
		return Bool(t), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, vv := range t {
			cv, err := FromInterface(vv)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = cv
		}
		return Map(m), nil
	case []any:
		m := make(map[string]Value, len(t))
		for i, vv := range t {
			cv, err := FromInterface(vv)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			m[strconv.Itoa(i)] = cv
		}
		return Map(m), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// SortKeys orders map keys so that stringified indices come first in numeric
// order, followed by the remaining keys lexically.
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}
