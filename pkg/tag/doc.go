// Package tag defines the values that flow through the bridge.
//
// A tag is a named process variable. Its current state is a Sample: a
// Value, the timestamp the source attached to it, and a Quality.
//
// # Values
//
// Value is a tagged variant over the scalar kinds the bridge supports:
//
//	KindInt     int64   (all signed and unsigned integer sources)
//	KindFloat   float64 (float32 and float64 sources)
//	KindBool    bool
//	KindString  string
//
// The kind is kept through every hop (store, address space, wire), so an
// integer read from the source is still an integer when a northbound client
// reads it.
//
// # Quality
//
// Quality uses the classic DA quality bit layout in the top two bits:
//
//	0xC0  good
//	0x40  uncertain
//	0x00  bad
//
// The zero Quality is bad, so an uninitialized Sample never looks trustworthy.
package tag
