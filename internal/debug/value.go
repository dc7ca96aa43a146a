package debug

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"notification-bridge/pkg/models"
)

// Kind tags the variant held by a Value
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

// Value is one entry of a debug event's data. Keeping payloads in a closed
// set of kinds makes summaries and exports deterministic.
type Value struct {
	kind   Kind
	str    string
	num    int64
	flt    float64
	b      bool
	list   []Value
	fields Fields
}

// Fields is the data bag attached to a debug event
type Fields map[string]Value

func Null() Value { return Value{kind: KindNull} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Int(n int64) Value { return Value{kind: KindInt, num: n} }
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }
func Map(fields Fields) Value { return Value{kind: KindMap, fields: fields} }

// Kind returns the variant tag
func (v Value) Kind() Kind {
	return v.kind
}

// FromAny converts a decoded JSON-like value into a Value. Types outside the
// JSON model are rendered with fmt.
func FromAny(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Null()
	case Value:
		return val
	case Fields:
		return Map(val)
	case string:
		return String(val)
	case bool:
		return Bool(val)
	case int:
		return Int(int64(val))
	case int32:
		return Int(int64(val))
	case int64:
		return Int(val)
	case uint32:
		return Int(int64(val))
	case float32:
		return Float(float64(val))
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Int(int64(val))
		}
		return Float(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n)
		}
		if f, err := val.Float64(); err == nil {
			return Float(f)
		}
		return String(val.String())
	case []interface{}:
		items := make([]Value, 0, len(val))
		for _, item := range val {
			items = append(items, FromAny(item))
		}
		return List(items...)
	case []string:
		items := make([]Value, 0, len(val))
		for _, item := range val {
			items = append(items, String(item))
		}
		return List(items...)
	case models.Payload:
		return Map(FieldsFrom(val))
	case map[string]interface{}:
		return Map(FieldsFrom(val))
	case map[string]string:
		fields := make(Fields, len(val))
		for k, item := range val {
			fields[k] = String(item)
		}
		return Map(fields)
	default:
		return String(fmt.Sprintf("%v", val))
	}
}

// FieldsFrom converts a generic map into Fields
func FieldsFrom(m map[string]interface{}) Fields {
	fields := make(Fields, len(m))
	for k, v := range m {
		fields[k] = FromAny(v)
	}
	return fields
}

// String renders the value for summaries: scalars as plain text, lists and
// maps as compact JSON
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList, KindMap:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(data)
	default:
		return "null"
	}
}

// Interface converts the value back into plain Go values
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.b
	case KindList:
		items := make([]interface{}, len(v.list))
		for i, item := range v.list {
			items[i] = item.Interface()
		}
		return items
	case KindMap:
		return v.fields.Interface()
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return json.Marshal(v.num)
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			return json.Marshal(strconv.FormatFloat(v.flt, 'f', -1, 64))
		}
		return json.Marshal(v.flt)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.fields == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(map[string]Value(v.fields))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// Interface converts the fields into a plain map
func (f Fields) Interface() map[string]interface{} {
	m := make(map[string]interface{}, len(f))
	for k, v := range f {
		m[k] = v.Interface()
	}
	return m
}

// Keys returns the field names in sorted order
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies the fields
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v.clone()
	}
	return out
}

func (v Value) clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.clone()
		}
		return List(items...)
	case KindMap:
		return Map(v.fields.Clone())
	default:
		return v
	}
}
