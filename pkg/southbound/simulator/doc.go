// Package simulator implements a southbound adapter that generates tag
// values locally. Item names follow the usual simulation server layout:
//
//	numeric.random.double   uniform random float in [0, 100)
//	numeric.random.int32    random non-negative int32
//	numeric.sin.int64       sine wave in [-100, 100], 60s period
//	numeric.saw.double      ramp from 0 to 100 every 10s
//	bool.toggle             flips on every update
//	text.clock              wall clock time as HH:MM:SS
//
// All subscribed items are refreshed once per update rate. Fault
// injection makes the first connects fail or drops the session after a
// fixed duration, which exercises the supervisor's reconnect path.
package simulator
