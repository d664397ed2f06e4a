package tag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Value errors.
var (
	ErrNilValue        = errors.New("nil value")
	ErrUnsupportedType = errors.New("unsupported value type")
	ErrValueOverflow   = errors.New("value overflows int64")
	ErrUnknownKind     = errors.New("unknown value kind")
)

// Kind identifies which scalar a Value holds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// ParseKind parses a kind name as produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return KindInt, nil
	case "float", "double":
		return KindFloat, nil
	case "bool", "boolean":
		return KindBool, nil
	case "string":
		return KindString, nil
	default:
		return KindInvalid, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Value is an immutable scalar tagged with its Kind.
// The zero Value is invalid and reports IsValid() == false.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a floating point value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// FromAny converts a dynamically typed source value into a Value.
func FromAny(v any) (Value, error) {
	switch n := v.(type) {
	case nil:
		return Value{}, ErrNilValue
	case Value:
		if !n.IsValid() {
			return Value{}, ErrNilValue
		}
		return n, nil
	case int:
		return Int(int64(n)), nil
	case int8:
		return Int(int64(n)), nil
	case int16:
		return Int(int64(n)), nil
	case int32:
		return Int(int64(n)), nil
	case int64:
		return Int(n), nil
	case uint:
		return fromUint64(uint64(n))
	case uint8:
		return Int(int64(n)), nil
	case uint16:
		return Int(int64(n)), nil
	case uint32:
		return Int(int64(n)), nil
	case uint64:
		return fromUint64(n)
	case float32:
		return Float(float64(n)), nil
	case float64:
		return Float(n), nil
	case bool:
		return Bool(n), nil
	case string:
		return String(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
		}
		return Float(f), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

func fromUint64(n uint64) (Value, error) {
	if n > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: %d", ErrValueOverflow, n)
	}
	return Int(int64(n)), nil
}

// Kind returns the value kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid returns true if the value holds one of the supported kinds.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// AsInt returns the integer and true if the value is KindInt.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float and true if the value is KindFloat.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the bool and true if the value is KindBool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string and true if the value is KindString.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// Number returns the value as float64 for numeric kinds.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Any returns the underlying Go value (int64, float64, bool, string or nil).
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindString:
		return v.s
	default:
		return nil
	}
}

// Equal reports whether both values have the same kind and content.
// NaN floats compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		if math.IsNaN(v.f) && math.IsNaN(o.f) {
			return true
		}
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	default:
		return true
	}
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return strconv.Quote(v.s)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the value as its native JSON scalar.
// Non-finite floats are encoded as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes a JSON scalar. Numbers without a fraction or
// exponent decode as integers; null decodes as the invalid Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*v = Value{}
		return nil
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// cborValue is the wire shape of a Value: [kind, scalar].
type cborValue struct {
	_     struct{} `cbor:",toarray"`
	Kind  Kind
	Value cbor.RawMessage
}

// MarshalCBOR encodes the value as a two-element array so the kind
// survives decoding on the other side.
func (v Value) MarshalCBOR() ([]byte, error) {
	raw, err := cbor.Marshal(v.Any())
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(cborValue{Kind: v.kind, Value: raw})
}

// UnmarshalCBOR decodes a value produced by MarshalCBOR.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var w cborValue
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Kind {
	case KindInvalid:
		*v = Value{}
		return nil
	case KindInt:
		var n int64
		if err := cbor.Unmarshal(w.Value, &n); err != nil {
			return err
		}
		*v = Int(n)
	case KindFloat:
		var f float64
		if err := cbor.Unmarshal(w.Value, &f); err != nil {
			return err
		}
		*v = Float(f)
	case KindBool:
		var b bool
		if err := cbor.Unmarshal(w.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case KindString:
		var s string
		if err := cbor.Unmarshal(w.Value, &s); err != nil {
			return err
		}
		*v = String(s)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, w.Kind)
	}
	return nil
}
