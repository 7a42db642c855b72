// ABOUTME: Tests for service registration, atomicity, collision handling, and lookup.
// ABOUTME: Validates thread-safe operations and registration-order listing.

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
)

// stubAdapter wraps a Service so tests can register arbitrary definitions.
type stubAdapter struct {
	svc *Service
}

func (a *stubAdapter) Describe() *Service { return a.svc }

// newTestService builds a service with the given tools, each with a trivial
// handler and an open input schema.
func newTestService(id string, toolNames ...string) *Service {
	svc := &Service{
		ID:          id,
		Name:        id,
		Description: "test service " + id,
		BaseURL:     "https://example.invalid/" + id,
	}
	for _, name := range toolNames {
		svc.Tools = append(svc.Tools, &Tool{
			Name:        name,
			Description: "test tool " + name,
			InputSchema: json.RawMessage(`{"type": "object"}`),
			Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
				return nil, nil
			},
		})
	}
	return svc
}

func TestRegister(t *testing.T) {
	t.Run("registers service and tools", func(t *testing.T) {
		r := New(slog.Default())
		svc := newTestService("github", "list_repos", "list_issues")

		if err := r.Register(&stubAdapter{svc}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := r.GetService("github")
		if err != nil {
			t.Fatalf("GetService: %v", err)
		}
		if got.ID != "github" {
			t.Errorf("expected ID 'github', got %q", got.ID)
		}
		if len(r.ListTools()) != 2 {
			t.Errorf("expected 2 tools, got %d", len(r.ListTools()))
		}
	})

	t.Run("lookup returns the registered tool", func(t *testing.T) {
		r := New(slog.Default())
		svc := newTestService("github", "list_issues")

		if err := r.Register(&stubAdapter{svc}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tool, err := r.LookupTool("list_issues")
		if err != nil {
			t.Fatalf("LookupTool: %v", err)
		}
		if tool != svc.Tools[0] {
			t.Error("expected lookup to return the exact registered tool")
		}
		if tool.ServiceID != "github" {
			t.Errorf("expected owner 'github', got %q", tool.ServiceID)
		}

		qualified, err := r.LookupTool("github.list_issues")
		if err != nil {
			t.Fatalf("qualified LookupTool: %v", err)
		}
		if qualified != tool {
			t.Error("qualified and bare lookup should return the same tool")
		}
	})

	t.Run("rejects duplicate service ID without partial mutation", func(t *testing.T) {
		r := New(slog.Default())
		first := newTestService("github", "list_repos")
		if err := r.Register(&stubAdapter{first}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second := newTestService("github", "other_tool")
		err := r.Register(&stubAdapter{second})
		if !errors.Is(err, ErrDuplicateService) {
			t.Fatalf("expected ErrDuplicateService, got %v", err)
		}

		// Original registration is untouched and the rejected tools are absent.
		if _, err := r.LookupTool("list_repos"); err != nil {
			t.Errorf("original tool should still resolve: %v", err)
		}
		if _, err := r.LookupTool("other_tool"); !errors.Is(err, ErrToolNotFound) {
			t.Errorf("rejected tool must not be visible, got %v", err)
		}
	})

	t.Run("rejects service declaring a tool twice", func(t *testing.T) {
		r := New(slog.Default())
		svc := newTestService("github", "sync", "sync")

		err := r.Register(&stubAdapter{svc})
		if !errors.Is(err, ErrDuplicateTool) {
			t.Fatalf("expected ErrDuplicateTool, got %v", err)
		}
		if _, err := r.GetService("github"); !errors.Is(err, ErrServiceNotFound) {
			t.Error("rejected registration must not be visible")
		}
	})

	t.Run("rejects malformed input schema atomically", func(t *testing.T) {
		r := New(slog.Default())
		svc := newTestService("github", "good_tool")
		svc.Tools = append(svc.Tools, &Tool{
			Name:        "bad_tool",
			InputSchema: json.RawMessage(`{"type": 42}`),
			Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
				return nil, nil
			},
		})

		if err := r.Register(&stubAdapter{svc}); err == nil {
			t.Fatal("expected schema compile error")
		}
		if _, err := r.LookupTool("good_tool"); !errors.Is(err, ErrToolNotFound) {
			t.Error("no tool from the rejected service may be visible")
		}
	})

	t.Run("rejects invalid definitions", func(t *testing.T) {
		r := New(slog.Default())

		cases := []struct {
			name string
			svc  *Service
		}{
			{"empty service ID", newTestService("", "tool")},
			{"dot in service ID", newTestService("git.hub", "tool")},
			{"dot in tool name", newTestService("github", "ns.tool")},
		}
		for _, tc := range cases {
			if err := r.Register(&stubAdapter{tc.svc}); err == nil {
				t.Errorf("%s: expected error", tc.name)
			}
		}

		noHandler := newTestService("github")
		noHandler.Tools = []*Tool{{Name: "orphan"}}
		if err := r.Register(&stubAdapter{noHandler}); err == nil {
			t.Error("expected error for tool without handler")
		}
	})
}

func TestCollisionPolicy(t *testing.T) {
	t.Run("bare name follows most recent registrant", func(t *testing.T) {
		r := New(slog.Default())
		a := newTestService("serviceA", "sync")
		b := newTestService("serviceB", "sync")

		if err := r.Register(&stubAdapter{a}); err != nil {
			t.Fatalf("register serviceA: %v", err)
		}
		if err := r.Register(&stubAdapter{b}); err != nil {
			t.Fatalf("register serviceB: %v", err)
		}

		tool, err := r.LookupTool("sync")
		if err != nil {
			t.Fatalf("LookupTool: %v", err)
		}
		if tool.ServiceID != "serviceB" {
			t.Errorf("bare name should bind to serviceB, got %q", tool.ServiceID)
		}

		// Both remain reachable by qualified name.
		for _, name := range []string{"serviceA.sync", "serviceB.sync"} {
			if _, err := r.LookupTool(name); err != nil {
				t.Errorf("LookupTool(%q): %v", name, err)
			}
		}
	})

	t.Run("unregister rebinds the bare name", func(t *testing.T) {
		r := New(slog.Default())
		if err := r.Register(&stubAdapter{newTestService("serviceA", "sync")}); err != nil {
			t.Fatalf("register serviceA: %v", err)
		}
		if err := r.Register(&stubAdapter{newTestService("serviceB", "sync")}); err != nil {
			t.Fatalf("register serviceB: %v", err)
		}

		if err := r.Unregister("serviceB"); err != nil {
			t.Fatalf("Unregister: %v", err)
		}

		tool, err := r.LookupTool("sync")
		if err != nil {
			t.Fatalf("LookupTool after unregister: %v", err)
		}
		if tool.ServiceID != "serviceA" {
			t.Errorf("bare name should rebind to serviceA, got %q", tool.ServiceID)
		}
		if _, err := r.LookupTool("serviceB.sync"); !errors.Is(err, ErrToolNotFound) {
			t.Errorf("removed tool must not resolve, got %v", err)
		}
	})
}

func TestUnregister(t *testing.T) {
	t.Run("removes service and all its tools", func(t *testing.T) {
		r := New(slog.Default())
		if err := r.Register(&stubAdapter{newTestService("github", "list_repos", "list_issues")}); err != nil {
			t.Fatalf("register: %v", err)
		}

		if err := r.Unregister("github"); err != nil {
			t.Fatalf("Unregister: %v", err)
		}
		if len(r.ListServices()) != 0 {
			t.Error("expected no services after unregister")
		}
		if len(r.ListTools()) != 0 {
			t.Error("expected no tools after unregister")
		}
	})

	t.Run("unknown service", func(t *testing.T) {
		r := New(slog.Default())
		if err := r.Unregister("nope"); !errors.Is(err, ErrServiceNotFound) {
			t.Fatalf("expected ErrServiceNotFound, got %v", err)
		}
	})
}

func TestListing(t *testing.T) {
	t.Run("registration order is preserved", func(t *testing.T) {
		r := New(slog.Default())
		if err := r.Register(&stubAdapter{newTestService("github", "list_issues")}); err != nil {
			t.Fatalf("register github: %v", err)
		}
		if err := r.Register(&stubAdapter{newTestService("linear", "list_tickets")}); err != nil {
			t.Fatalf("register linear: %v", err)
		}

		services := r.ListServices()
		if len(services) != 2 || services[0].ID != "github" || services[1].ID != "linear" {
			t.Fatalf("unexpected service order: %v", services)
		}

		tools := r.ListTools()
		if len(tools) != 2 {
			t.Fatalf("expected 2 tools, got %d", len(tools))
		}
		if tools[0].Name != "list_issues" || tools[0].ServiceID != "github" {
			t.Errorf("unexpected first tool: %s owned by %s", tools[0].Name, tools[0].ServiceID)
		}
		if tools[1].Name != "list_tickets" || tools[1].ServiceID != "linear" {
			t.Errorf("unexpected second tool: %s owned by %s", tools[1].Name, tools[1].ServiceID)
		}
	})

	t.Run("tool count matches declared totals", func(t *testing.T) {
		r := New(slog.Default())
		declared := 0
		for i := 0; i < 5; i++ {
			svc := newTestService(fmt.Sprintf("svc%d", i),
				fmt.Sprintf("tool%d_a", i), fmt.Sprintf("tool%d_b", i))
			declared += len(svc.Tools)
			if err := r.Register(&stubAdapter{svc}); err != nil {
				t.Fatalf("register svc%d: %v", i, err)
			}
		}
		if got := len(r.ListTools()); got != declared {
			t.Errorf("expected %d tools, got %d", declared, got)
		}
	})

	t.Run("filter by service", func(t *testing.T) {
		r := New(slog.Default())
		if err := r.Register(&stubAdapter{newTestService("github", "list_issues", "create_issue")}); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := r.Register(&stubAdapter{newTestService("linear", "list_teams")}); err != nil {
			t.Fatalf("register: %v", err)
		}

		tools, err := r.ListServiceTools("github")
		if err != nil {
			t.Fatalf("ListServiceTools: %v", err)
		}
		if len(tools) != 2 {
			t.Errorf("expected 2 github tools, got %d", len(tools))
		}

		if _, err := r.ListServiceTools("jira"); !errors.Is(err, ErrServiceNotFound) {
			t.Errorf("expected ErrServiceNotFound, got %v", err)
		}
	})
}

func TestLookupServiceTool(t *testing.T) {
	r := New(slog.Default())
	if err := r.Register(&stubAdapter{newTestService("github", "list_issues")}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := r.LookupServiceTool("github", "list_issues"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := r.LookupServiceTool("jira", "list_issues"); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound, got %v", err)
	}
	if _, err := r.LookupServiceTool("github", "nope"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New(slog.Default())
	if err := r.Register(&stubAdapter{newTestService("github", "list_issues")}); err != nil {
		t.Fatalf("register: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = r.Register(&stubAdapter{newTestService(fmt.Sprintf("svc%d", n), "tool")})
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = r.LookupTool("list_issues")
				_ = r.ListTools()
				_ = r.ListServices()
			}
		}()
	}
	wg.Wait()

	if _, err := r.LookupTool("list_issues"); err != nil {
		t.Errorf("lookup after concurrent churn: %v", err)
	}
}
