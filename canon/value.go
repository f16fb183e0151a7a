// Package canon implements the canonical byte encoding required before
// any hashing: sorted object keys, insertion-ordered arrays, fixed
// separators, deterministic numeric and string encoding. The contract
// never reflects over a generic map — it dispatches over the small
// Value algebra below, the same way the teacher's CBOR codec
// (massifs/cborcodec.go) dispatches per-type rather than reflecting.
package canon

import "fmt"

// Kind discriminates the variants of Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindBytes
)

// Value is a structured value ready for canonicalization: an object,
// array, or scalar. Construct one with the constructors below (Null,
// Bool, Int, Float, String, RawBytes, Array, Object), or with FromGo
// when starting from loosely-typed Go data.
type Value struct {
	kind   Kind
	b      bool
	num    float64
	isInt  bool
	i      int64
	str    string
	arr    []Value
	obj    map[string]Value
	bytes_ []byte
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindNumber, isInt: true, i: i} }
func Float(f float64) Value      { return Value{kind: KindNumber, num: f} }
func String(s string) Value      { return Value{kind: KindString, str: s} }
func RawBytes(b []byte) Value    { return Value{kind: KindBytes, bytes_: append([]byte(nil), b...)} }
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

func Object(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindObject, obj: cp}
}

// FromGo converts loosely-typed Go data (as produced by encoding/json
// unmarshaling into interface{}, or assembled by hand with map[string]any
// and []any) into a Value. It is the one place that walks a generic
// interface{}, at the boundary between caller-supplied payloads and the
// typed Value algebra.
func FromGo(v interface{}) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case []byte:
		return RawBytes(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint64:
		return Int(int64(t)), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			cv, err := FromGo(e)
			if err != nil {
				return Value{}, err
			}
			items = append(items, cv)
		}
		return Array(items...), nil
	case []Value:
		return Array(t...), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			cv, err := FromGo(e)
			if err != nil {
				return Value{}, err
			}
			fields[k] = cv
		}
		return Object(fields), nil
	case map[string]Value:
		return Object(t), nil
	case Value:
		return t, nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported Go type %T", ErrEncoding, v)
	}
}
