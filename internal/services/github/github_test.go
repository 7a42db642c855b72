// ABOUTME: Tests for the GitHub adapter's tool handlers and service definition.
// ABOUTME: Covers filtering, lookups, creation, and upstream error tagging.

package github

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
	if svc.CredentialRef != "test-key" {
		t.Error("credential ref should carry the configured key")
	}
	if len(svc.Tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(svc.Tools))
	}
	for _, tool := range svc.Tools {
		if tool.Handler == nil {
			t.Errorf("tool %q has no handler", tool.Name)
		}
		if len(tool.InputSchema) == 0 {
			t.Errorf("tool %q has no input schema", tool.Name)
		}
	}
}

func TestListRepos(t *testing.T) {
	a := testAdapter()
	tool := findTool(t, a.Describe(), "list_repos")

	t.Run("excludes private by default", func(t *testing.T) {
		result, err := tool.Handler(context.Background(), json.RawMessage(`{}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		repos := result.([]Repo)
		if len(repos) != 2 {
			t.Errorf("expected 2 public repos, got %d", len(repos))
		}
		for _, repo := range repos {
			if repo.Private {
				t.Errorf("private repo %q leaked", repo.Name)
			}
		}
	})

	t.Run("includes private when asked", func(t *testing.T) {
		result, err := tool.Handler(context.Background(), json.RawMessage(`{"include_private": true}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if repos := result.([]Repo); len(repos) != 3 {
			t.Errorf("expected 3 repos, got %d", len(repos))
		}
	})
}

func TestListIssues(t *testing.T) {
	a := testAdapter()
	tool := findTool(t, a.Describe(), "list_issues")

	cases := []struct {
		name   string
		params string
		want   int
	}{
		{"no filter", `{}`, 4},
		{"by repo", `{"repo_id": 1}`, 2},
		{"by state", `{"state": "open"}`, 3},
		{"by label", `{"labels": ["security"]}`, 2},
		{"combined", `{"repo_id": 1, "state": "closed"}`, 1},
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
	a := testAdapter()
	tool := findTool(t, a.Describe(), "get_user")

	t.Run("by id", func(t *testing.T) {
		result, err := tool.Handler(context.Background(), json.RawMessage(`{"user_id": 201}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user := result.(User); user.Username != "admin" {
			t.Errorf("expected admin, got %q", user.Username)
		}
	})

	t.Run("by username", func(t *testing.T) {
		result, err := tool.Handler(context.Background(), json.RawMessage(`{"username": "developer"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user := result.(User); user.ID != 202 {
			t.Errorf("expected user 202, got %d", user.ID)
		}
	})

	t.Run("missing user is an upstream error", func(t *testing.T) {
		_, err := tool.Handler(context.Background(), json.RawMessage(`{"username": "ghost"}`))
		var upstream *dispatch.UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if upstream.Service != ServiceID {
			t.Errorf("expected service %q, got %q", ServiceID, upstream.Service)
		}
	})
}

func TestCreateIssue(t *testing.T) {
	a := testAdapter()
	tool := findTool(t, a.Describe(), "create_issue")

	t.Run("creates and assigns next ID", func(t *testing.T) {
		result, err := tool.Handler(context.Background(), json.RawMessage(`{"repo_id": 1, "title": "New bug"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		issue := result.(Issue)
		if issue.ID != 105 || issue.State != "open" {
			t.Errorf("unexpected issue: %+v", issue)
		}

		// Created issue is visible to list_issues
		listTool := findTool(t, a.Describe(), "list_issues")
		listed, err := listTool.Handler(context.Background(), json.RawMessage(`{"repo_id": 1}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if issues := listed.([]Issue); len(issues) != 3 {
			t.Errorf("expected 3 issues after create, got %d", len(issues))
		}
	})

	t.Run("unknown repo is an upstream error", func(t *testing.T) {
		_, err := tool.Handler(context.Background(), json.RawMessage(`{"repo_id": 99, "title": "x"}`))
		var upstream *dispatch.UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
	})
}

func TestRegistersCleanly(t *testing.T) {
	r := registry.New(slog.Default())
	if err := r.Register(testAdapter()); err != nil {
		t.Fatalf("adapter must register without error: %v", err)
	}
	if len(r.ListTools()) != 4 {
		t.Errorf("expected 4 registered tools, got %d", len(r.ListTools()))
	}
}
