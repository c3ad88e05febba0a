package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
)

// Value is a tagged-variant representation of free-form alert metadata and
// rule condition values. Keeping an explicit kind lets path resolution report
// "path not found" separately from "value is null", which untyped maps cannot.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	m    map[string]Value
	l    []Value
}

func Null() Value                 { return Value{kind: KindNull} }
func String(s string) Value       { return Value{kind: KindString, str: s} }
func Number(n float64) Value      { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }
func List(l []Value) Value        { return Value{kind: KindList, l: l} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

// FromAny converts a decoded-JSON style interface{} tree into a Value.
// Unsupported types map to null.
func FromAny(x interface{}) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = FromAny(e)
		}
		return Map(m)
	case []interface{}:
		l := make([]Value, 0, len(t))
		for _, e := range t {
			l = append(l, FromAny(e))
		}
		return List(l)
	default:
		return Null()
	}
}

// ToAny converts a Value back into a plain interface{} tree for JSON encoding.
func (v Value) ToAny() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			out[k] = e.ToAny()
		}
		return out
	case KindList:
		out := make([]interface{}, 0, len(v.l))
		for _, e := range v.l {
			out = append(out, e.ToAny())
		}
		return out
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// AsString returns the string form of the value. Numbers and booleans are
// formatted; maps, lists and null report ok=false.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	default:
		return "", false
	}
}

// AsNumber returns the numeric form of the value. Numeric strings are parsed
// so rule authors can write thresholds either way.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Equals compares two values structurally. Number/string comparisons are
// coerced through AsNumber so `"24"` equals `24`.
func (v Value) Equals(other Value) bool {
	if v.kind == KindNull || other.kind == KindNull {
		return v.kind == other.kind
	}
	if a, ok := v.AsNumber(); ok {
		if b, ok2 := other.AsNumber(); ok2 {
			return a == b
		}
	}
	switch v.kind {
	case KindString:
		s, ok := other.AsString()
		return ok && v.str == s
	case KindBool:
		return other.kind == KindBool && v.b == other.b
	case KindMap:
		if other.kind != KindMap || len(v.m) != len(other.m) {
			return false
		}
		for k, e := range v.m {
			o, ok := other.m[k]
			if !ok || !e.Equals(o) {
				return false
			}
		}
		return true
	case KindList:
		if other.kind != KindList || len(v.l) != len(other.l) {
			return false
		}
		for i, e := range v.l {
			if !e.Equals(other.l[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Contains reports substring match for strings and element match for lists.
func (v Value) Contains(needle Value) bool {
	switch v.kind {
	case KindString:
		s, ok := needle.AsString()
		return ok && strings.Contains(v.str, s)
	case KindList:
		for _, e := range v.l {
			if e.Equals(needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Resolution is the outcome of a field-path lookup. Found=false means the
// path did not exist, which is distinct from a path that exists and holds an
// explicit null.
type Resolution struct {
	Value Value
	Found bool
}

// ResolvePath walks a dot-separated path into a map-valued tree. Numeric
// segments index into lists.
func ResolvePath(root Value, path string) Resolution {
	if path == "" {
		return Resolution{Value: root, Found: true}
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		switch cur.kind {
		case KindMap:
			next, ok := cur.m[seg]
			if !ok {
				return Resolution{}
			}
			cur = next
		case KindList:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(cur.l) {
				return Resolution{}
			}
			cur = cur.l[idx]
		default:
			return Resolution{}
		}
	}
	return Resolution{Value: cur, Found: true}
}

// Metadata is the free-form key→value tree attached to an alert event.
type Metadata map[string]Value

func (m Metadata) Value() Value {
	if m == nil {
		return Map(map[string]Value{})
	}
	return Map(map[string]Value(m))
}

// MetadataFromAny builds Metadata from a decoded-JSON map.
func MetadataFromAny(raw map[string]interface{}) Metadata {
	if raw == nil {
		return nil
	}
	m := make(Metadata, len(raw))
	for k, e := range raw {
		m[k] = FromAny(e)
	}
	return m
}
