// Package server serves dragula bags to browser clients over WebSocket.
//
// Each connection gets a Session that owns a Workspace: a board holding the
// containers of every configured bag, the event bus the bags publish on,
// and the dragula service that keeps the board's models in step with the
// server-side drag engines.
//
// # Session Lifecycle
//
// The client opens /ws and sends a ClientHello. The server answers with a
// ServerHello listing the bags, then one render frame holding every
// container. After that the session runs three goroutines:
//   - ReadLoop: decodes action and control frames and queues actions
//   - EventLoop: applies actions, runs dispatched callbacks, ticks the frame clock
//   - WriteLoop: sends heartbeat pings
//
// # Action Processing
//
// When a client reports a pointer action:
//  1. ReadLoop decodes the action frame and queues it
//  2. EventLoop resolves the bag and the HIDs it names
//  3. The bag's drake moves nodes and raises lifecycle events
//  4. The dragula service updates the bound models; every bus emission is
//     forwarded to the client as an event frame
//  5. The board redraws from the models and the changed containers are sent
//     as a render frame
//
// A move between containers inserts into the target list at once and
// removes from the source list a few frames later, so the source keeps
// showing the item until the frame clock releases the removal.
//
// # HTTP Endpoints
//
//	GET  /ws                    WebSocket upgrade
//	GET  /healthz               liveness and session count
//	GET  /metrics               Prometheus metrics, when enabled
//	GET  /sessions              session statistics
//	GET  /sessions/{id}/models  current models of a session
//	POST /sessions/{id}/snapshot save a session's models to the snapshot store
//	GET  /snapshots             stored snapshot IDs
//	GET  /snapshots/{id}        one stored snapshot
//
// With Tracing on or a Registerer set, every request except the upgrade is
// traced and counted by the middleware package.
package server
