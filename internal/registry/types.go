// ABOUTME: Core data model for services and tools exposed through the gateway.
// ABOUTME: Definitions are immutable after registration; handlers live on the tool.

package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handler executes a single tool call. It receives the raw JSON parameters
// (already validated against the tool's input schema) and returns the result
// value, or an error. Backend failures should be reported as *UpstreamError
// so the dispatch engine can classify them; any other error is treated as
// internal.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Tool describes one invocable capability contributed by a service.
type Tool struct {
	// Name is unique within the owning service. The registry addresses tools
	// by the qualified key "<serviceID>.<name>"; bare names resolve through
	// the alias map (see Registry).
	Name        string
	Description string

	// InputSchema is a JSON Schema document describing accepted parameters.
	// It is compiled once at registration time.
	InputSchema json.RawMessage

	// ServiceID is a back-reference to the owning service, filled in by the
	// registry during registration.
	ServiceID string

	// Timeout overrides the engine's default execution timeout when non-zero.
	Timeout time.Duration

	Handler Handler

	compiled *jsonschema.Schema
}

// QualifiedName returns the canonical "<serviceID>.<name>" key for the tool.
func (t *Tool) QualifiedName() string {
	return t.ServiceID + "." + t.Name
}

// CompiledSchema returns the compiled input schema, or nil if the tool
// declares no input contract.
func (t *Tool) CompiledSchema() *jsonschema.Schema {
	return t.compiled
}

// Service describes one backend integration and the tools it contributes.
type Service struct {
	// ID uniquely identifies the service across the registry (e.g. "github").
	ID          string
	Name        string
	Description string

	// BaseURL is the backend's API endpoint, informational for clients.
	BaseURL string

	// CredentialRef is an opaque credential handle for the adapter's own use.
	// It is never logged and never serialized to clients.
	CredentialRef string

	Tools []*Tool
}

// Adapter is the capability contract every backend integration satisfies.
// Describe returns the service definition including its tools and handlers;
// the registry never looks past this contract into adapter internals.
type Adapter interface {
	Describe() *Service
}
