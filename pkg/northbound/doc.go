// Package northbound exposes the synthesized address space to clients.
//
// The Server implements the Notifier contract the sync scheduler calls
// after every node write. Changes are fed into a subscription manager that
// coalesces them per subscriber and streams frames over websockets.
//
// # Endpoints
//
//	GET /api/nodes                list every node
//	GET /api/nodes/{tagId}        read one node
//	GET /api/subscribe            websocket; ?nodes=a,b&min=1s&max=60s&encoding=json|cbor
//	GET /healthz                  liveness and southbound state
//	GET /metrics                  Prometheus metrics, when configured
package northbound
