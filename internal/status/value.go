package status

import (
	"encoding/json"
	"strconv"
)

// Kind tags the dynamic type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Value is a status field value: exactly one of an integer, a boolean or a string.
type Value struct {
	kind Kind
	i    int
	b    bool
	s    string
}

// IntValue wraps an integer.
func IntValue(i int) Value { return Value{kind: KindInt, i: i} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the tag.
func (v Value) Kind() Kind { return v.kind }

// AsInt returns the integer and whether the value holds one.
func (v Value) AsInt() (int, bool) { return v.i, v.kind == KindInt }

// AsBool returns the boolean and whether the value holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string and whether the value holds one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// String renders the value the way it would appear in a status block.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.Itoa(v.i)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// MarshalJSON encodes the value as its native JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON decodes a JSON number, boolean or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case bool:
		*v = BoolValue(x)
	case float64:
		*v = IntValue(int(x))
	case string:
		*v = StringValue(x)
	default:
		*v = StringValue(string(data))
	}
	return nil
}
