package domain

import (
	"bytes"
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindNull is the zero Value.
	KindNull Kind = iota
	// KindString holds a string.
	KindString
	// KindNumber holds a float64.
	KindNumber
	// KindBool holds a bool.
	KindBool
	// KindList holds an ordered list of values.
	KindList
	// KindMap holds a string-keyed map of values.
	KindMap
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Value is an attribute value: null, string, number, bool, list or map.
// Accessors report false instead of panicking when the kind does not match.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

// Attributes is the opaque payload of a cache entry.
type Attributes map[string]Value

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a number value. NaN and infinities have no JSON encoding
// and are held as their string form instead.
func Number(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return String(strconv.FormatFloat(n, 'g', -1, 64))
	}
	return Value{kind: KindNumber, num: n}
}

// Bool returns a bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list value.
func List(items ...Value) Value {
	return Value{kind: KindList, list: slices.Clone(items)}
}

// Map returns a map value.
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, m: maps.Clone(m)}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string held by v.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Num returns the number held by v.
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Boolean returns the bool held by v.
func (v Value) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Items returns a copy of the list held by v.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// Fields returns a copy of the map held by v.
func (v Value) Fields() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return maps.Clone(v.m), true
}

// Get returns the field named key when v is a map.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.m[key]
	return f, ok
}

// Path walks nested maps along keys.
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Equal reports whether v and o hold the same data.
func (v Value) Equal(o Value) bool {
	return bytes.Equal(v.Canonical(), o.Canonical())
}

// Canonical returns a deterministic JSON encoding of v.
// Map keys are sorted by encoding/json.
func (v Value) Canonical() []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// Compare orders values by their canonical encoding.
func (v Value) Compare(o Value) int {
	return bytes.Compare(v.Canonical(), o.Canonical())
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = item.Clone()
		}
		return Value{kind: KindList, list: out}
	case KindMap:
		out := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			out[k] = item.Clone()
		}
		return Value{kind: KindMap, m: out}
	default:
		return v
	}
}

// FromAny converts decoded YAML or JSON data into a Value.
// Unsupported types become their string representation.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case []any:
		out := make([]Value, len(t))
		for i, item := range t {
			out[i] = FromAny(item)
		}
		return Value{kind: KindList, list: out}
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, item := range t {
			out[k] = FromAny(item)
		}
		return Value{kind: KindMap, m: out}
	case map[any]any:
		out := make(map[string]Value, len(t))
		for k, item := range t {
			ks, ok := k.(string)
			if !ok {
				ks = toString(k)
			}
			out[ks] = FromAny(item)
		}
		return Value{kind: KindMap, m: out}
	default:
		return String(toString(t))
	}
}

// Any converts v back into plain Go data.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Any()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Any()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromJSON(raw)
	return nil
}

func fromJSON(x any) Value {
	switch t := x.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case []any:
		out := make([]Value, len(t))
		for i, item := range t {
			out[i] = fromJSON(item)
		}
		return Value{kind: KindList, list: out}
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, item := range t {
			out[k] = fromJSON(item)
		}
		return Value{kind: KindMap, m: out}
	default:
		return FromAny(t)
	}
}

func toString(x any) string {
	b, err := json.Marshal(x)
	if err != nil {
		return ""
	}
	var s string
	if json.Unmarshal(b, &s) == nil {
		return s
	}
	return string(b)
}

// Clone returns a deep copy of the attributes.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v.Clone()
	}
	return out
}

// Str returns the string attribute named key.
func (a Attributes) Str(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	return v.Str()
}
