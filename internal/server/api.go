// ABOUTME: JSON API handlers for listing services/tools and executing tool calls.
// ABOUTME: Envelope errors map to HTTP status codes via the dispatch taxonomy.

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/toolgate/internal/dispatch"
	"github.com/2389/toolgate/internal/registry"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// ServiceResponse is one entry in the GET /services listing.
// Credential handles are deliberately absent.
type ServiceResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	BaseURL     string   `json:"base_url"`
	Tools       []string `json:"tools"`
}

// ToolResponse is one entry in the GET /tools listing.
type ToolResponse struct {
	Name          string          `json:"name"`
	QualifiedName string          `json:"qualified_name"`
	Service       string          `json:"service"`
	Description   string          `json:"description"`
	InputSchema   json.RawMessage `json:"input_schema,omitempty"`
}

// ExecuteRequest is the JSON request body for POST /execute.
type ExecuteRequest struct {
	ToolName string          `json:"tool_name"`
	Params   json.RawMessage `json:"params"`
}

// ExecutionResponse is one entry in the GET /executions listing.
type ExecutionResponse struct {
	ID         string `json:"id"`
	Service    string `json:"service,omitempty"`
	Tool       string `json:"tool"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	StartedAt  string `json:"started_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"services": len(s.registry.ListServices()),
		"tools":    len(s.registry.ListTools()),
	})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	services := s.registry.ListServices()

	response := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		toolNames := make([]string, 0, len(svc.Tools))
		for _, tool := range svc.Tools {
			toolNames = append(toolNames, tool.Name)
		}
		response = append(response, ServiceResponse{
			ID:          svc.ID,
			Name:        svc.Name,
			Description: svc.Description,
			BaseURL:     svc.BaseURL,
			Tools:       toolNames,
		})
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	var tools []*registry.Tool
	if serviceID := r.URL.Query().Get("service"); serviceID != "" {
		listed, err := s.registry.ListServiceTools(serviceID)
		if err != nil {
			s.writeEnvelope(w, dispatch.Envelope{Success: false, Error: &dispatch.Error{
				Kind:    dispatch.KindServiceNotFound,
				Message: "service " + serviceID + " not found",
			}})
			return
		}
		tools = listed
	} else {
		tools = s.registry.ListTools()
	}

	response := make([]ToolResponse, 0, len(tools))
	for _, tool := range tools {
		response = append(response, ToolResponse{
			Name:          tool.Name,
			QualifiedName: tool.QualifiedName(),
			Service:       tool.ServiceID,
			Description:   tool.Description,
			InputSchema:   tool.InputSchema,
		})
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		s.writeValidationError(w, "failed to read request body")
		return
	}

	var req ExecuteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeValidationError(w, "request body is not valid JSON")
		return
	}
	if req.ToolName == "" {
		s.writeValidationError(w, "tool_name is required")
		return
	}

	env := s.engine.Execute(r.Context(), req.ToolName, req.Params)
	s.writeEnvelope(w, env)
}

func (s *Server) handleExecuteService(w http.ResponseWriter, r *http.Request) {
	serviceID := r.PathValue("service")
	toolName := r.PathValue("tool")

	params, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		s.writeValidationError(w, "failed to read request body")
		return
	}

	env := s.engine.ExecuteService(r.Context(), serviceID, toolName, params)
	s.writeEnvelope(w, env)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	if s.executions == nil {
		http.Error(w, "execution log disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeValidationError(w, "limit must be an integer")
			return
		}
		limit = n
	}

	execs, err := s.executions.ListExecutions(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing executions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	response := make([]ExecutionResponse, 0, len(execs))
	for _, exec := range execs {
		response = append(response, ExecutionResponse{
			ID:         exec.ID,
			Service:    exec.ServiceID,
			Tool:       exec.Tool,
			Outcome:    exec.Outcome,
			Message:    exec.Message,
			DurationMs: exec.Duration.Milliseconds(),
			StartedAt:  exec.StartedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeValidationError(w http.ResponseWriter, message string) {
	s.writeEnvelope(w, dispatch.Envelope{Success: false, Error: &dispatch.Error{
		Kind:    dispatch.KindValidation,
		Message: message,
	}})
}

// writeEnvelope serializes a result envelope with the status code implied by
// its error kind (200 on success).
func (s *Server) writeEnvelope(w http.ResponseWriter, env dispatch.Envelope) {
	status := http.StatusOK
	if !env.Success {
		status = env.Error.Kind.HTTPStatus()
	}
	s.writeJSON(w, status, env)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		s.logger.Error("encoding response", "error", err)
	}
}
