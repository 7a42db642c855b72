// ABOUTME: Error taxonomy and result envelope returned for every tool execution.
// ABOUTME: Five stable kinds are the only error vocabulary crossing the dispatch boundary.

package dispatch

import "fmt"

// Kind is the stable discriminator for execution failures. Exactly these five
// values ever reach a caller, independent of which backend produced the
// failure.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindToolNotFound    Kind = "tool_not_found"
	KindServiceNotFound Kind = "service_not_found"
	KindUpstream        Kind = "upstream_error"
	KindInternal        Kind = "internal_error"
)

// HTTPStatus maps an error kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return 400
	case KindToolNotFound, KindServiceNotFound:
		return 404
	case KindUpstream:
		return 502
	default:
		return 500
	}
}

// Error is the structured error carried inside a failed envelope.
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`

	// RefID correlates an internal_error envelope with the server-side log
	// entry holding the full detail.
	RefID string `json:"ref_id,omitempty"`
}

// Envelope is the uniform result shape for every tool execution. Data is
// present iff Success is true; Error is present iff Success is false.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

func successEnvelope(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func failureEnvelope(kind Kind, message string) Envelope {
	return Envelope{Success: false, Error: &Error{Kind: kind, Message: message}}
}

// UpstreamError tags a handler failure as coming from the backend service.
// Adapters return it (usually wrapped) so the engine can preserve the
// backend's detail while classifying the failure as upstream_error.
type UpstreamError struct {
	Service string // owning service ID
	Code    string // backend-specific error code, if any
	Message string // backend-provided detail
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream %s error [%s]: %s", e.Service, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream %s error: %s", e.Service, e.Message)
}
