// Package model implements the address space exposed to northbound clients.
//
// # Hierarchy
//
// The address space is a two-level tree below an implicit root:
//
//	AddressSpace (namespace 2)
//	└── Folder "DA_Data"
//	    ├── Node ns=2;s=numeric.random.double
//	    └── Node ns=2;s=numeric.random.int32
//
// Every Node is bound to exactly one tag ID for its whole lifetime. The
// binding is the node's identity: the NodeID string part is the tag ID.
//
// # Synthesis
//
// Synthesize builds the tree from a fixed list of tag declarations while
// holding the address space lock, then seals it. A sealed address space
// rejects further nodes, so no binding can dangle or change after startup.
// Duplicate tag IDs fail the whole synthesis before anything is added.
//
// # Node values
//
// A node keeps its own copy of the last written value, source timestamp,
// server timestamp and quality. Writes are checked against the node's
// declared DataType; the value keeps its tag.Kind. Until the first write a
// node reports the zero value of its type with bad quality.
//
// # Access
//
// Nodes carry access flags (read, write, subscribe). Bridged tags are
// read and subscribe by default; the bridge never writes back south.
package model
