package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/gridlink/tagbridge/pkg/tag"
)

// Access flags for nodes.
type Access uint8

const (
	// AccessRead allows reading the node value.
	AccessRead Access = 1 << iota

	// AccessWrite allows writing the node value.
	AccessWrite

	// AccessSubscribe allows subscribing to changes.
	AccessSubscribe

	// Common access combinations.

	// AccessReadOnly is read and subscribe.
	AccessReadOnly = AccessRead | AccessSubscribe

	// AccessReadWrite is read, write, and subscribe.
	AccessReadWrite = AccessRead | AccessWrite | AccessSubscribe
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// CanSubscribe returns true if subscribing is allowed.
func (a Access) CanSubscribe() bool { return a&AccessSubscribe != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if a.CanSubscribe() {
		s += "S"
	}
	if s == "" {
		return "-"
	}
	return s
}

// ParseAccess parses "read" or "read-write".
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "read", "r", "read-only":
		return AccessReadOnly, nil
	case "read-write", "rw":
		return AccessReadWrite, nil
	default:
		return 0, fmt.Errorf("unknown access %q", s)
	}
}

// DataType is the declared type of a node.
type DataType uint8

const (
	DataTypeUnknown DataType = iota
	DataTypeBool
	DataTypeInt8
	DataTypeInt16
	DataTypeInt32
	DataTypeInt64
	DataTypeUint8
	DataTypeUint16
	DataTypeUint32
	DataTypeFloat32
	DataTypeFloat64
	DataTypeString
)

var dataTypeNames = []string{
	"unknown", "bool", "int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "float32", "float64", "string",
}

// String returns the data type name.
func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return "unknown"
}

// ParseDataType parses a data type name. The usual DA/UA spellings
// (Double, Float, Int32, Boolean, Byte, ...) are accepted as aliases.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return DataTypeBool, nil
	case "int8", "sbyte":
		return DataTypeInt8, nil
	case "int16":
		return DataTypeInt16, nil
	case "int32":
		return DataTypeInt32, nil
	case "int64":
		return DataTypeInt64, nil
	case "uint8", "byte":
		return DataTypeUint8, nil
	case "uint16":
		return DataTypeUint16, nil
	case "uint32":
		return DataTypeUint32, nil
	case "float32", "float":
		return DataTypeFloat32, nil
	case "float64", "double":
		return DataTypeFloat64, nil
	case "string":
		return DataTypeString, nil
	default:
		return DataTypeUnknown, fmt.Errorf("%w: unknown data type %q", ErrInvalidDeclaration, s)
	}
}

// Kind returns the value kind nodes of this type hold.
func (d DataType) Kind() tag.Kind {
	switch d {
	case DataTypeBool:
		return tag.KindBool
	case DataTypeInt8, DataTypeInt16, DataTypeInt32, DataTypeInt64,
		DataTypeUint8, DataTypeUint16, DataTypeUint32:
		return tag.KindInt
	case DataTypeFloat32, DataTypeFloat64:
		return tag.KindFloat
	case DataTypeString:
		return tag.KindString
	default:
		return tag.KindInvalid
	}
}

// Zero returns the initial value of a node of this type.
func (d DataType) Zero() tag.Value {
	switch d.Kind() {
	case tag.KindBool:
		return tag.Bool(false)
	case tag.KindInt:
		return tag.Int(0)
	case tag.KindFloat:
		return tag.Float(0)
	case tag.KindString:
		return tag.String("")
	default:
		return tag.Value{}
	}
}

// Check validates that v may be written to a node of this type.
// Float nodes accept integers.
func (d DataType) Check(v tag.Value) error {
	_, err := d.Coerce(v)
	return err
}

// Coerce validates v against the type and converts it to the kind nodes
// of this type hold. Integers written to float nodes become floats.
func (d DataType) Coerce(v tag.Value) (tag.Value, error) {
	if !v.IsValid() {
		return tag.Value{}, ErrNodeValueType
	}

	want := d.Kind()
	switch {
	case v.Kind() == want:
	case want == tag.KindFloat && v.Kind() == tag.KindInt:
		n, _ := v.AsInt()
		v = tag.Float(float64(n))
	default:
		return tag.Value{}, fmt.Errorf("%w: %s node cannot hold %s", ErrNodeValueType, d, v.Kind())
	}

	if n, ok := v.AsInt(); ok {
		if lo, hi, bounded := d.intRange(); bounded && (n < lo || n > hi) {
			return tag.Value{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrNodeOutOfRange, n, lo, hi)
		}
	}
	if f, ok := v.AsFloat(); ok && d == DataTypeFloat32 && math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
		return tag.Value{}, fmt.Errorf("%w: %g exceeds float32", ErrNodeOutOfRange, f)
	}
	return v, nil
}

// intRange returns the representable range of integer types.
func (d DataType) intRange() (lo, hi int64, bounded bool) {
	switch d {
	case DataTypeInt8:
		return math.MinInt8, math.MaxInt8, true
	case DataTypeInt16:
		return math.MinInt16, math.MaxInt16, true
	case DataTypeInt32:
		return math.MinInt32, math.MaxInt32, true
	case DataTypeUint8:
		return 0, math.MaxUint8, true
	case DataTypeUint16:
		return 0, math.MaxUint16, true
	case DataTypeUint32:
		return 0, math.MaxUint32, true
	default:
		return 0, 0, false
	}
}
