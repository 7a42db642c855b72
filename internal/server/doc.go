// Package server is the HTTP transport layer in front of the dispatch engine.
//
// Endpoints:
//
//	GET  /                     HTML status page
//	GET  /healthz              liveness probe with registry counts
//	GET  /services             registered service summaries
//	GET  /tools?service=ID     registered tool summaries, optionally scoped
//	GET  /executions?limit=N   recent execution audit entries
//	POST /execute              {"tool_name": ..., "params": {...}} -> envelope
//	POST /{service}/{tool}     params as body -> envelope
//
// Every execution response is a result envelope; the HTTP status code is
// derived from the envelope's error kind (200, 400, 404, 502, 500).
package server
