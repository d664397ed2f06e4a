// Package southbound defines the contract between the bridge and a tag
// source that pushes value changes through a subscription callback.
//
// An Adapter is driven by the supervisor through one session at a time:
//
//	Connect -> Subscribe -> Wait -> Disconnect
//
// Wait blocks while the session is alive and returns the reason it ended.
// Callbacks may arrive on any goroutine and may carry several updates per
// invocation. Updates for the same tag arrive in the order the source
// produced them; there is no ordering across tags.
//
// Implementations:
//   - simulator: generated values with optional fault injection
//   - natssource: updates published on NATS subjects
package southbound
