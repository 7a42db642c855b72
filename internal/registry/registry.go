// ABOUTME: Thread-safe registry mapping service IDs and tool names to definitions.
// ABOUTME: Registration is atomic; bare-name collisions rebind deterministically.

package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrDuplicateService indicates a service with the same ID is already registered.
var ErrDuplicateService = errors.New("service already registered")

// ErrDuplicateTool indicates a service declares the same tool name twice.
var ErrDuplicateTool = errors.New("duplicate tool name")

// ErrServiceNotFound indicates the specified service is not registered.
var ErrServiceNotFound = errors.New("service not found")

// ErrToolNotFound indicates the specified tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// Registry maintains the set of registered services and their tools.
//
// Tools are stored under qualified keys "<serviceID>.<toolName>", which are
// collision-free because service IDs are unique and tool names are unique
// within a service. A second flat map of bare tool names supports
// backward-compatible name-only lookup; when two services declare the same
// bare name, the alias binds to the most recently registered service and a
// warning is logged. Both tools stay reachable via their qualified names.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*Service
	order    []string         // service IDs in registration order
	tools    map[string]*Tool // qualified name -> tool
	aliases  map[string]*Tool // bare name -> tool
	logger   *slog.Logger
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		services: make(map[string]*Service),
		tools:    make(map[string]*Tool),
		aliases:  make(map[string]*Tool),
		logger:   logger.With("component", "registry"),
	}
}

// Register validates the adapter's service definition and adds it to the
// registry atomically: either the service and every tool it declares become
// visible together, or nothing does.
//
// Returns ErrDuplicateService if the service ID is taken and ErrDuplicateTool
// if the service declares the same tool name twice. Input schemas are
// compiled here; a malformed schema rejects the whole registration.
func (r *Registry) Register(adapter Adapter) error {
	svc := adapter.Describe()
	if svc == nil {
		return errors.New("adapter returned nil service")
	}
	if err := validateService(svc); err != nil {
		return err
	}

	// Compile schemas before touching registry state so a bad schema cannot
	// leave a partial registration behind.
	for _, tool := range svc.Tools {
		if len(tool.InputSchema) == 0 {
			continue
		}
		schema, err := jsonschema.CompileString(
			fmt.Sprintf("toolgate://%s.%s/input.json", svc.ID, tool.Name),
			string(tool.InputSchema),
		)
		if err != nil {
			return fmt.Errorf("compiling input schema for tool %q: %w", tool.Name, err)
		}
		tool.compiled = schema
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[svc.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateService, svc.ID)
	}

	seen := make(map[string]struct{}, len(svc.Tools))
	for _, tool := range svc.Tools {
		if _, dup := seen[tool.Name]; dup {
			return fmt.Errorf("%w: service %q declares %q twice", ErrDuplicateTool, svc.ID, tool.Name)
		}
		seen[tool.Name] = struct{}{}
	}

	for _, tool := range svc.Tools {
		tool.ServiceID = svc.ID
		r.tools[tool.QualifiedName()] = tool

		if prev, exists := r.aliases[tool.Name]; exists {
			r.logger.Warn("tool name collision, rebinding bare name",
				"tool", tool.Name,
				"previous_service", prev.ServiceID,
				"service", svc.ID,
			)
		}
		r.aliases[tool.Name] = tool
	}

	r.services[svc.ID] = svc
	r.order = append(r.order, svc.ID)

	r.logger.Info("service registered",
		"service", svc.ID,
		"tool_count", len(svc.Tools),
		"total_services", len(r.services),
		"total_tools", len(r.tools),
	)
	return nil
}

// Unregister removes a service and every tool it contributed.
// Bare names owned by the removed service are rebound to the most recently
// registered remaining service that declares them, if any.
func (r *Registry) Unregister(serviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, exists := r.services[serviceID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
	}

	for _, tool := range svc.Tools {
		delete(r.tools, tool.QualifiedName())
		if alias, ok := r.aliases[tool.Name]; ok && alias.ServiceID == serviceID {
			delete(r.aliases, tool.Name)
			if next := r.latestDeclarerLocked(tool.Name, serviceID); next != nil {
				r.aliases[tool.Name] = next
			}
		}
	}

	delete(r.services, serviceID)
	for i, id := range r.order {
		if id == serviceID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Info("service unregistered",
		"service", serviceID,
		"total_services", len(r.services),
		"total_tools", len(r.tools),
	)
	return nil
}

// latestDeclarerLocked finds the tool for a bare name from the most recently
// registered service other than skipID. Caller must hold at least r.mu read.
func (r *Registry) latestDeclarerLocked(name, skipID string) *Tool {
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		if id == skipID {
			continue
		}
		if tool, ok := r.tools[id+"."+name]; ok {
			return tool
		}
	}
	return nil
}

// LookupTool resolves a tool by name with O(1) map access. Qualified names
// ("<serviceID>.<toolName>") hit the canonical map; bare names resolve
// through the alias map. Returns ErrToolNotFound on a miss.
func (r *Registry) LookupTool(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if strings.Contains(name, ".") {
		if tool, ok := r.tools[name]; ok {
			return tool, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if tool, ok := r.aliases[name]; ok {
		return tool, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

// LookupServiceTool resolves a tool within a specific service, distinguishing
// an unknown service from an unknown tool.
func (r *Registry) LookupServiceTool(serviceID, toolName string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.services[serviceID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
	}
	if tool, ok := r.tools[serviceID+"."+toolName]; ok {
		return tool, nil
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrToolNotFound, serviceID, toolName)
}

// GetService returns a service by ID, or ErrServiceNotFound.
func (r *Registry) GetService(serviceID string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if svc, ok := r.services[serviceID]; ok {
		return svc, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
}

// ListServices returns all registered services in registration order.
func (r *Registry) ListServices() []*Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]*Service, 0, len(r.order))
	for _, id := range r.order {
		services = append(services, r.services[id])
	}
	return services
}

// ListTools returns all registered tools, grouped by service in registration
// order and by declaration order within each service.
func (r *Registry) ListTools() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*Tool, 0, len(r.tools))
	for _, id := range r.order {
		tools = append(tools, r.services[id].Tools...)
	}
	return tools
}

// ListServiceTools returns the tools declared by one service in declaration
// order, or ErrServiceNotFound.
func (r *Registry) ListServiceTools(serviceID string) ([]*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[serviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
	}
	tools := make([]*Tool, len(svc.Tools))
	copy(tools, svc.Tools)
	return tools, nil
}

// Close clears all registry state. Intended for graceful shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := len(r.services)
	r.services = make(map[string]*Service)
	r.tools = make(map[string]*Tool)
	r.aliases = make(map[string]*Tool)
	r.order = nil

	r.logger.Info("registry closed", "services_cleared", count)
}

func validateService(svc *Service) error {
	if svc.ID == "" {
		return errors.New("service ID is required")
	}
	if strings.Contains(svc.ID, ".") {
		return fmt.Errorf("service ID %q must not contain '.'", svc.ID)
	}
	for _, tool := range svc.Tools {
		if tool.Name == "" {
			return fmt.Errorf("service %q declares a tool with no name", svc.ID)
		}
		if strings.Contains(tool.Name, ".") {
			return fmt.Errorf("tool name %q must not contain '.'", tool.Name)
		}
		if tool.Handler == nil {
			return fmt.Errorf("tool %q has no handler", tool.Name)
		}
	}
	return nil
}
