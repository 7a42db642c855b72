// ABOUTME: Dispatch engine resolving tool names to handlers and running them.
// ABOUTME: Validates input, bounds execution with a timeout, normalizes all failures.

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/toolgate/internal/registry"
)

// DefaultTimeout bounds handler execution when neither the engine config nor
// the tool definition sets one.
const DefaultTimeout = 30 * time.Second

// Execution describes one completed dispatch for audit recording.
type Execution struct {
	ID        string
	ServiceID string
	Tool      string
	Outcome   string // "success" or an error Kind
	Message   string // error message, empty on success
	Duration  time.Duration
	StartedAt time.Time
}

// Recorder receives a record of every execution. Implementations must not
// block dispatch for long; recording failures are logged and swallowed.
type Recorder interface {
	RecordExecution(ctx context.Context, exec Execution) error
}

// Engine resolves tool names through the registry and invokes handlers,
// converting every outcome into a result Envelope.
type Engine struct {
	registry *registry.Registry
	logger   *slog.Logger
	timeout  time.Duration
	recorder Recorder
}

// Config contains configuration options for the Engine.
type Config struct {
	Registry *registry.Registry
	Logger   *slog.Logger
	Timeout  time.Duration
	Recorder Recorder // optional
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Engine{
		registry: cfg.Registry,
		logger:   logger.With("component", "dispatch"),
		timeout:  timeout,
		recorder: cfg.Recorder,
	}
}

// Execute resolves toolName (bare or qualified) and runs the tool.
// It never panics and never returns a partial result: the envelope carries
// either data or exactly one structured error.
func (e *Engine) Execute(ctx context.Context, toolName string, params json.RawMessage) Envelope {
	tool, err := e.registry.LookupTool(toolName)
	if err != nil {
		e.logger.Debug("tool not found", "tool", toolName)
		env := failureEnvelope(KindToolNotFound, fmt.Sprintf("tool %q not found", toolName))
		e.record(ctx, "", toolName, time.Now(), 0, env)
		return env
	}
	return e.run(ctx, tool, params)
}

// ExecuteService resolves a tool within a specific service, distinguishing
// an unknown service from an unknown tool.
func (e *Engine) ExecuteService(ctx context.Context, serviceID, toolName string, params json.RawMessage) Envelope {
	tool, err := e.registry.LookupServiceTool(serviceID, toolName)
	if err != nil {
		var env Envelope
		if errors.Is(err, registry.ErrServiceNotFound) {
			env = failureEnvelope(KindServiceNotFound, fmt.Sprintf("service %q not found", serviceID))
		} else {
			env = failureEnvelope(KindToolNotFound, fmt.Sprintf("tool %q not found in service %q", toolName, serviceID))
		}
		e.record(ctx, serviceID, toolName, time.Now(), 0, env)
		return env
	}
	return e.run(ctx, tool, params)
}

func (e *Engine) run(ctx context.Context, tool *registry.Tool, params json.RawMessage) Envelope {
	started := time.Now()
	env := e.invoke(ctx, tool, params)
	e.record(ctx, tool.ServiceID, tool.Name, started, time.Since(started), env)
	return env
}

func (e *Engine) invoke(ctx context.Context, tool *registry.Tool, params json.RawMessage) Envelope {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}

	// Validate before the handler ever sees the input.
	if schema := tool.CompiledSchema(); schema != nil {
		var decoded any
		if err := json.Unmarshal(params, &decoded); err != nil {
			return failureEnvelope(KindValidation, "parameters are not valid JSON")
		}
		if err := schema.Validate(decoded); err != nil {
			return failureEnvelope(KindValidation, fmt.Sprintf("invalid parameters: %v", err))
		}
	}

	timeout := e.timeout
	if tool.Timeout > 0 {
		timeout = tool.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.logger.Info("→ dispatching",
		"tool", tool.Name,
		"service", tool.ServiceID,
	)

	type outcome struct {
		value any
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- outcome{err: fmt.Errorf("handler panic: %v", p)}
			}
		}()
		value, err := tool.Handler(ctx, params)
		ch <- outcome{value: value, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return e.classify(tool, out.err)
		}
		e.logger.Info("← handler succeeded",
			"tool", tool.Name,
			"service", tool.ServiceID,
		)
		return successEnvelope(out.value)
	case <-ctx.Done():
		// The handler goroutine is abandoned here; cancellation has been
		// propagated through ctx and the buffered channel lets it exit.
		refID := uuid.New().String()
		e.logger.Error("handler timed out or cancelled",
			"tool", tool.Name,
			"service", tool.ServiceID,
			"timeout", timeout,
			"ref_id", refID,
			"error", ctx.Err(),
		)
		return Envelope{Success: false, Error: &Error{
			Kind:    KindInternal,
			Message: "tool execution did not complete",
			RefID:   refID,
		}}
	}
}

// classify converts a handler error into the envelope's error taxonomy.
// Backend-tagged failures keep their detail; everything else is reported as
// internal_error with the detail suppressed from the caller.
func (e *Engine) classify(tool *registry.Tool, err error) Envelope {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		e.logger.Warn("upstream failure",
			"tool", tool.Name,
			"service", tool.ServiceID,
			"code", upstream.Code,
			"error", upstream.Message,
		)
		env := failureEnvelope(KindUpstream, upstream.Error())
		env.Error.Detail = map[string]any{"service": tool.ServiceID}
		if upstream.Code != "" {
			env.Error.Detail["code"] = upstream.Code
		}
		return env
	}

	refID := uuid.New().String()
	e.logger.Error("internal failure executing tool",
		"tool", tool.Name,
		"service", tool.ServiceID,
		"ref_id", refID,
		"error", err,
	)
	return Envelope{Success: false, Error: &Error{
		Kind:    KindInternal,
		Message: "internal error executing tool",
		RefID:   refID,
	}}
}

func (e *Engine) record(ctx context.Context, serviceID, toolName string, started time.Time, duration time.Duration, env Envelope) {
	if e.recorder == nil {
		return
	}

	exec := Execution{
		ID:        uuid.New().String(),
		ServiceID: serviceID,
		Tool:      toolName,
		Outcome:   "success",
		Duration:  duration,
		StartedAt: started,
	}
	if !env.Success {
		exec.Outcome = string(env.Error.Kind)
		exec.Message = env.Error.Message
	}

	if err := e.recorder.RecordExecution(ctx, exec); err != nil {
		e.logger.Warn("recording execution failed",
			"tool", toolName,
			"error", err,
		)
	}
}
