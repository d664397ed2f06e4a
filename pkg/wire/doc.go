// Package wire defines the frames streamed to northbound subscribers and
// the payload encodings shared with southbound sources.
//
// Frames are encoded either as JSON text or as CBOR (RFC 8949) with
// integer keys. The encoding is chosen per websocket connection.
//
// # Frame Types
//
//   - subscribed: sent once after a subscription is created
//   - priming: current values of every subscribed node
//   - change: values that changed since the last frame
//   - heartbeat: sent when nothing changed within the maximum interval
//   - error: the request could not be served; the connection closes
package wire
