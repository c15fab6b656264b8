// Package engine runs the pretender proxy.
//
// # Request flow
//
//	client ──▶ access log ──▶ recover ──▶ Dispatcher
//	                                         │
//	              CONNECT ◀──────────────────┤ tunnel, or intercept and re-dispatch
//	              noise ◀────────────────────┤ 404 Not Found
//	              rule store ─┬─ rejected ───┤ 401
//	                          ├─ matched ────┤ render now, or after the scheduled delay
//	                          └─ no match ───┘ forward upstream
//
// Every response carries Connection: close, so each client connection is
// answered exactly once.
//
// The package provides:
//   - Dispatcher: the http.Handler that classifies and answers one request
//   - Server: builds every component from a config.ServerConfiguration and
//     owns the proxy and metrics listeners
//   - Chain: the middleware stack (access log, panic recovery)
package engine
