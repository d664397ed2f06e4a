// Package supervisor runs a southbound adapter's session lifecycle on its
// own goroutine and contains every failure inside it.
//
// # State Machine
//
//	IDLE -> CONNECTING -> SUBSCRIBING -> RUNNING
//	            ^              |            |
//	            |              v            v
//	            +---------- BACKOFF <-------+
//
// Any state moves to STOPPED on Stop.
//
// Connect errors, subscription errors, dropped sessions and panics raised
// by the adapter all lead to BACKOFF. They are logged and counted but never
// returned to the caller. Values already in the store are left alone, so
// the northbound side keeps serving the last known state.
//
// # Backoff
//
// Reconnect delays grow exponentially with jitter:
//
//	1s, 2s, 4s, 8s, 16s, 32s, 60s (max)
//
// The backoff resets once a session reaches RUNNING.
package supervisor
