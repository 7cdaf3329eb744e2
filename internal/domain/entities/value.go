package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ValueKind identifies the scalar type held by a Value
type ValueKind string

const (
	ValueKindString ValueKind = "string"
	ValueKindNumber ValueKind = "number"
	ValueKindBool   ValueKind = "bool"
	ValueKindDate   ValueKind = "date"
)

// Value is a typed scalar used for subscriber attributes and automation conditions.
// Two values are equal only when both kind and content match, so "1" never equals 1.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	date time.Time
}

// StringValue creates a string Value
func StringValue(s string) Value { return Value{kind: ValueKindString, str: s} }

// NumberValue creates a number Value
func NumberValue(n float64) Value { return Value{kind: ValueKindNumber, num: n} }

// BoolValue creates a boolean Value
func BoolValue(b bool) Value { return Value{kind: ValueKindBool, b: b} }

// DateValue creates a date Value. The time is normalized to UTC.
func DateValue(t time.Time) Value { return Value{kind: ValueKindDate, date: t.UTC()} }

// Kind returns the kind of the value
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether the value was never set
func (v Value) IsZero() bool { return v.kind == "" }

// String returns the value rendered as text
func (v Value) String() string {
	switch v.kind {
	case ValueKindString:
		return v.str
	case ValueKindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueKindBool:
		return strconv.FormatBool(v.b)
	case ValueKindDate:
		return v.date.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueKindString:
		return v.str == other.str
	case ValueKindNumber:
		return v.num == other.num
	case ValueKindBool:
		return v.b == other.b
	case ValueKindDate:
		return v.date.Equal(other.date)
	default:
		return true
	}
}

// MarshalJSON encodes the value as a plain JSON scalar. Dates are RFC 3339 strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueKindString:
		return json.Marshal(v.str)
	case ValueKindNumber:
		return json.Marshal(v.num)
	case ValueKindBool:
		return json.Marshal(v.b)
	case ValueKindDate:
		return json.Marshal(v.date.Format(time.RFC3339Nano))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Strings in RFC 3339 form decode as dates.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}

	parsed, ok := ValueFrom(raw)
	if !ok {
		return fmt.Errorf("unsupported value %s: only strings, numbers, booleans and dates are allowed", string(data))
	}
	*v = parsed
	return nil
}

// ValueFrom converts a decoded JSON value into a Value.
// It returns false for nil, objects, arrays and other non-scalar input.
func ValueFrom(raw interface{}) (Value, bool) {
	switch x := raw.(type) {
	case Value:
		return x, !x.IsZero()
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return DateValue(t), true
		}
		return StringValue(x), true
	case bool:
		return BoolValue(x), true
	case float64:
		return NumberValue(x), true
	case float32:
		return NumberValue(float64(x)), true
	case int:
		return NumberValue(float64(x)), true
	case int64:
		return NumberValue(float64(x)), true
	case int32:
		return NumberValue(float64(x)), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, false
		}
		return NumberValue(f), true
	case time.Time:
		return DateValue(x), true
	default:
		return Value{}, false
	}
}

// Values is a set of named typed scalars
type Values map[string]Value

// Clone returns a copy of the map
func (vs Values) Clone() Values {
	if vs == nil {
		return nil
	}
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = v
	}
	return out
}

// Contains reports whether every entry of want is present in vs with an equal value
func (vs Values) Contains(want Values) bool {
	for k, w := range want {
		got, ok := vs[k]
		if !ok || !got.Equal(w) {
			return false
		}
	}
	return true
}

// ValuesFromMap converts free-form data into Values, dropping non-scalar entries
func ValuesFromMap(data map[string]interface{}) Values {
	out := make(Values, len(data))
	for k, raw := range data {
		if v, ok := ValueFrom(raw); ok {
			out[k] = v
		}
	}
	return out
}
