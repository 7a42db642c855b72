// ABOUTME: GitHub service adapter contributing repository and issue tools.
// ABOUTME: Serves a fixture dataset; backend failures surface as upstream errors.

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/toolgate/internal/dispatch"
	"github.com/2389/toolgate/internal/registry"
)

// ServiceID is the registry identifier for this adapter.
const ServiceID = "github"

// Repo is a GitHub repository record.
type Repo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Private     bool   `json:"private"`
	Description string `json:"description"`
}

// Issue is a GitHub issue record.
type Issue struct {
	ID     int      `json:"id"`
	RepoID int      `json:"repo_id"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
	State  string   `json:"state"`
}

// User is a GitHub user record.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Adapter implements the registry capability contract for GitHub.
// The dataset is held per-adapter and guarded by its own mutex, since the
// dispatch engine runs handlers concurrently without per-tool exclusion.
type Adapter struct {
	baseURL string
	apiKey  string
	logger  *slog.Logger

	mu     sync.RWMutex
	repos  []Repo
	issues []Issue
	users  []User
	nextID int
}

// New creates the GitHub adapter. apiKey is the opaque credential handle for
// the upstream API; it is carried on the service definition and never logged.
func New(baseURL, apiKey string, logger *slog.Logger) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger.With("component", "github"),
		repos: []Repo{
			{ID: 1, Name: "security-project", Private: false, Description: "A project about security"},
			{ID: 2, Name: "private-repo", Private: true, Description: "Contains sensitive data"},
			{ID: 3, Name: "public-apis", Private: false, Description: "Collection of public APIs"},
		},
		issues: []Issue{
			{ID: 101, RepoID: 1, Title: "Security vulnerability found", Body: "Found a critical security issue in the authentication module", Labels: []string{"security", "critical"}, State: "open"},
			{ID: 102, RepoID: 1, Title: "Update documentation", Body: "Documentation needs to be updated for the new features", Labels: []string{"documentation"}, State: "closed"},
			{ID: 103, RepoID: 2, Title: "API Keys exposed", Body: "The API keys for production are exposed in the code", Labels: []string{"security", "critical", "confidential"}, State: "open"},
			{ID: 104, RepoID: 3, Title: "Add new API endpoints", Body: "Need to add endpoints for the new features", Labels: []string{"enhancement"}, State: "open"},
		},
		users: []User{
			{ID: 201, Username: "admin", Email: "admin@example.com", Role: "admin"},
			{ID: 202, Username: "developer", Email: "dev@example.com", Role: "developer"},
			{ID: 203, Username: "guest", Email: "guest@example.com", Role: "guest"},
		},
		nextID: 105,
	}
}

// Describe returns the service definition with all contributed tools.
func (a *Adapter) Describe() *registry.Service {
	return &registry.Service{
		ID:            ServiceID,
		Name:          "GitHub",
		Description:   "GitHub API service for **repository management**: repositories, issues, and users.",
		BaseURL:       a.baseURL,
		CredentialRef: a.apiKey,
		Tools: []*registry.Tool{
			{
				Name:        "list_repos",
				Description: "List GitHub repositories",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"include_private": {"type": "boolean", "description": "Whether to include private repositories"}
					},
					"additionalProperties": false
				}`),
				Handler: a.listRepos,
			},
			{
				Name:        "list_issues",
				Description: "List GitHub issues",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"repo_id": {"type": "integer", "description": "Repository ID to filter issues by"},
						"state": {"type": "string", "enum": ["open", "closed"], "description": "Issue state"},
						"labels": {"type": "array", "items": {"type": "string"}, "description": "Labels to filter issues by"}
					},
					"additionalProperties": false
				}`),
				Handler: a.listIssues,
			},
			{
				Name:        "get_user",
				Description: "Get a GitHub user by ID or username",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"user_id": {"type": "integer", "description": "User ID"},
						"username": {"type": "string", "description": "Username"}
					},
					"additionalProperties": false
				}`),
				Handler: a.getUser,
			},
			{
				Name:        "create_issue",
				Description: "Create a new GitHub issue",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"repo_id": {"type": "integer", "description": "Repository ID"},
						"title": {"type": "string", "minLength": 1, "description": "Issue title"},
						"body": {"type": "string", "description": "Issue body"},
						"labels": {"type": "array", "items": {"type": "string"}, "description": "Issue labels"}
					},
					"required": ["repo_id", "title"],
					"additionalProperties": false
				}`),
				Handler: a.createIssue,
			},
		},
	}
}

func (a *Adapter) listRepos(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		IncludePrivate bool `json:"include_private"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	repos := make([]Repo, 0, len(a.repos))
	for _, repo := range a.repos {
		if repo.Private && !p.IncludePrivate {
			continue
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func (a *Adapter) listIssues(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		RepoID *int     `json:"repo_id"`
		State  string   `json:"state"`
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	issues := make([]Issue, 0, len(a.issues))
	for _, issue := range a.issues {
		if p.RepoID != nil && issue.RepoID != *p.RepoID {
			continue
		}
		if p.State != "" && issue.State != p.State {
			continue
		}
		if len(p.Labels) > 0 && !hasAnyLabel(issue.Labels, p.Labels) {
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func (a *Adapter) getUser(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		UserID   *int   `json:"user_id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, user := range a.users {
		if p.UserID != nil && user.ID == *p.UserID {
			return user, nil
		}
		if p.Username != "" && user.Username == p.Username {
			return user, nil
		}
	}
	return nil, &dispatch.UpstreamError{Service: ServiceID, Code: "not_found", Message: "user not found"}
}

func (a *Adapter) createIssue(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		RepoID int      `json:"repo_id"`
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	repoExists := false
	for _, repo := range a.repos {
		if repo.ID == p.RepoID {
			repoExists = true
			break
		}
	}
	if !repoExists {
		return nil, &dispatch.UpstreamError{
			Service: ServiceID,
			Code:    "not_found",
			Message: fmt.Sprintf("repository %d not found", p.RepoID),
		}
	}

	issue := Issue{
		ID:     a.nextID,
		RepoID: p.RepoID,
		Title:  p.Title,
		Body:   p.Body,
		Labels: p.Labels,
		State:  "open",
	}
	a.nextID++
	a.issues = append(a.issues, issue)

	a.logger.Info("issue created", "issue_id", issue.ID, "repo_id", issue.RepoID)
	return issue, nil
}

func hasAnyLabel(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
