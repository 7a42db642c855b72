// Package dispatch executes tool calls against the registry and normalizes
// every outcome into a uniform result envelope.
//
// Execution runs in five steps: resolve the tool, validate the parameters
// against its input schema, invoke the handler inside a timeout and panic
// boundary, wrap the returned value, or classify the failure. No error value
// or panic ever escapes the engine unwrapped; callers always receive an
// Envelope carrying either data or exactly one of the five error kinds
// (validation_error, tool_not_found, service_not_found, upstream_error,
// internal_error).
//
// Internal failures deliberately hide their detail from the caller. The
// envelope carries only a generic message plus a ref_id; the full error is
// logged server-side under the same ref_id.
package dispatch
