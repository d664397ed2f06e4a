// Package natssource implements a southbound adapter that receives tag
// updates from NATS. Each tag is published on its own subject:
//
//	<prefix>.<tagID>
//
// Payloads are JSON or CBOR maps carrying value, timestamp and quality.
// Timestamp and quality may be omitted; they default to the receive time
// and good quality.
//
// The connection does not reconnect by itself. A lost connection ends the
// session and the supervisor decides when to connect again.
package natssource
