package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Value is a decoded JSON document of unknown shape.
// The zero Value is JSON null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Decode parses raw JSON into a Value.
func Decode(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, err
	}
	return FromAny(raw), nil
}

// FromAny converts the output of encoding/json's generic decoding into a Value.
// Unsupported Go types become null.
func FromAny(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Value{}
	case bool:
		return Value{kind: KindBool, b: v}
	case float64:
		return Value{kind: KindNumber, n: v}
	case int:
		return Value{kind: KindNumber, n: float64(v)}
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Value{kind: KindString, s: v.String()}
		}
		return Value{kind: KindNumber, n: f}
	case string:
		return Value{kind: KindString, s: v}
	case []any:
		arr := make([]Value, len(v))
		for i, item := range v {
			arr[i] = FromAny(item)
		}
		return Value{kind: KindArray, arr: arr}
	case map[string]any:
		obj := make(map[string]Value, len(v))
		for key, item := range v {
			obj[key] = FromAny(item)
		}
		return Value{kind: KindObject, obj: obj}
	default:
		return Value{}
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsObject() bool { return v.kind == KindObject }

// Field returns the named member of an object value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// Array returns the elements of an array value, or nil for any other kind.
func (v Value) Array() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// ArrayField returns the array stored at the first of names that holds one.
func (v Value) ArrayField(names ...string) ([]Value, bool) {
	for _, name := range names {
		f, ok := v.Field(name)
		if ok && f.kind == KindArray {
			return f.arr, true
		}
	}
	return nil, false
}

// Keys returns object member names in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Value) Number() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.n, true
}

func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// TextField returns a string member, trimmed, or "" when absent or not a string.
func (v Value) TextField(name string) string {
	f, ok := v.Field(name)
	if !ok {
		return ""
	}
	s, _ := f.Text()
	return strings.TrimSpace(s)
}

// Interface converts the value back into plain Go values.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// JSON returns the compact serialized form. Object keys are sorted and
// &, < and > are left unescaped so filter text matches verbatim.
func (v Value) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v.Interface()); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Walk visits v and every nested value depth-first, parents before children.
// Object members are visited in sorted key order. Returning false from visit
// stops the walk.
func Walk(v Value, visit func(Value) bool) {
	walk(v, visit)
}

func walk(v Value, visit func(Value) bool) bool {
	if !visit(v) {
		return false
	}
	switch v.kind {
	case KindArray:
		for _, item := range v.arr {
			if !walk(item, visit) {
				return false
			}
		}
	case KindObject:
		for _, k := range v.Keys() {
			if !walk(v.obj[k], visit) {
				return false
			}
		}
	}
	return true
}
