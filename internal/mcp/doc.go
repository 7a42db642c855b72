// Package mcp exposes the registered tools over the Model Context Protocol.
//
// The server implements the MCP Streamable HTTP transport: a single /mcp
// endpoint accepting JSON-RPC 2.0 messages via POST. Supported methods are
// initialize, ping, tools/list, and tools/call.
//
// Tools are advertised under their qualified names (service.tool), so a
// client can always address a specific service's tool even when two services
// declare the same bare name. tools/call routes through the dispatch engine,
// which means MCP callers get the same validation, timeout, and error
// classification behavior as the plain HTTP API.
//
// Execution failures are reported in-band as tool results with isError set;
// only lookup failures and malformed requests become JSON-RPC errors.
package mcp
