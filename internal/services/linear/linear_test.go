// ABOUTME: Tests for the Linear adapter's tool handlers and service definition.
// ABOUTME: Covers filtering, lookups, creation defaults, and upstream error tagging.

package linear

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/2389/toolgate/internal/dispatch"
	"github.com/2389/toolgate/internal/registry"
)

func testAdapter() *Adapter {
	return New("", "test-key", slog.Default())
}

func findTool(t *testing.T, svc *registry.Service, name string) *registry.Tool {
	t.Helper()
	for _, tool := range svc.Tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not declared", name)
	return nil
}

func TestDescribe(t *testing.T) {
	svc := testAdapter().Describe()

	if svc.ID != ServiceID {
		t.Errorf("expected ID %q, got %q", ServiceID, svc.ID)
	}
	if len(svc.Tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(svc.Tools))
	}
}

func TestListTeams(t *testing.T) {
	tool := findTool(t, testAdapter().Describe(), "list_teams")

	result, err := tool.Handler(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if teams := result.([]Team); len(teams) != 3 {
		t.Errorf("expected 3 teams, got %d", len(teams))
	}
}

func TestListIssues(t *testing.T) {
	tool := findTool(t, testAdapter().Describe(), "list_issues")

	cases := []struct {
		name   string
		params string
		want   int
	}{
		{"no filter", `{}`, 4},
		{"by team", `{"team_id": "team1"}`, 2},
		{"by state", `{"state": "todo"}`, 2},
		{"by assignee", `{"assignee_id": "user1"}`, 2},
		{"by priority", `{"priority": 0}`, 1},
		{"priority zero is not ignored", `{"priority": 3}`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := tool.Handler(context.Background(), json.RawMessage(tc.params))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if issues := result.([]Issue); len(issues) != tc.want {
				t.Errorf("expected %d issues, got %d", tc.want, len(issues))
			}
		})
	}
}

func TestGetUser(t *testing.T) {
	tool := findTool(t, testAdapter().Describe(), "get_user")

	t.Run("by email", func(t *testing.T) {
		result, err := tool.Handler(context.Background(), json.RawMessage(`{"email": "bob@example.com"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user := result.(User); user.ID != "user2" {
			t.Errorf("expected user2, got %q", user.ID)
		}
	})

	t.Run("missing user is an upstream error", func(t *testing.T) {
		_, err := tool.Handler(context.Background(), json.RawMessage(`{"user_id": "nobody"}`))
		var upstream *dispatch.UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
	})
}

func TestCreateIssue(t *testing.T) {
	tool := findTool(t, testAdapter().Describe(), "create_issue")

	t.Run("defaults priority to 2", func(t *testing.T) {
		result, err := tool.Handler(context.Background(), json.RawMessage(`{"team_id": "team1", "title": "New task"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		issue := result.(Issue)
		if issue.Priority != 2 || issue.State != "todo" {
			t.Errorf("unexpected issue defaults: %+v", issue)
		}
	})

	t.Run("unknown team is an upstream error", func(t *testing.T) {
		_, err := tool.Handler(context.Background(), json.RawMessage(`{"team_id": "team9", "title": "x"}`))
		var upstream *dispatch.UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if upstream.Service != ServiceID {
			t.Errorf("expected service %q, got %q", ServiceID, upstream.Service)
		}
	})
}

func TestRegistersCleanly(t *testing.T) {
	r := registry.New(slog.Default())
	if err := r.Register(testAdapter()); err != nil {
		t.Fatalf("adapter must register without error: %v", err)
	}
}
