// ABOUTME: Linear service adapter contributing team and issue tracking tools.
// ABOUTME: Serves a fixture dataset; backend failures surface as upstream errors.

package linear

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
const ServiceID = "linear"

// Team is a Linear team record.
type Team struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

// Issue is a Linear issue record.
type Issue struct {
	ID          string   `json:"id"`
	TeamID      string   `json:"team_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	State       string   `json:"state"`
	Priority    int      `json:"priority"`
	Labels      []string `json:"labels"`
	AssigneeID  string   `json:"assignee_id,omitempty"`
}

// User is a Linear user record.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

// Adapter implements the registry capability contract for Linear.
type Adapter struct {
	baseURL string
	apiKey  string
	logger  *slog.Logger

	mu     sync.RWMutex
	teams  []Team
	issues []Issue
	users  []User
	nextID int
}

// New creates the Linear adapter.
func New(baseURL, apiKey string, logger *slog.Logger) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.linear.app"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger.With("component", "linear"),
		teams: []Team{
			{ID: "team1", Name: "Engineering", Key: "ENG", Description: "Engineering team"},
			{ID: "team2", Name: "Product", Key: "PROD", Description: "Product team"},
			{ID: "team3", Name: "Security", Key: "SEC", Description: "Security team"},
		},
		issues: []Issue{
			{ID: "issue1", TeamID: "team1", Title: "Implement new feature", Description: "Implement the new user profile feature", State: "todo", Priority: 1, Labels: []string{"feature", "frontend"}, AssigneeID: "user1"},
			{ID: "issue2", TeamID: "team1", Title: "Fix login bug", Description: "Users can't log in with certain email domains", State: "in_progress", Priority: 2, Labels: []string{"bug", "critical"}, AssigneeID: "user2"},
			{ID: "issue3", TeamID: "team3", Title: "Security audit findings", Description: "Address security findings from the recent audit", State: "todo", Priority: 0, Labels: []string{"security", "urgent"}, AssigneeID: "user1"},
			{ID: "issue4", TeamID: "team2", Title: "Update pricing page", Description: "Update the pricing page with new plans", State: "done", Priority: 3, Labels: []string{"marketing"}, AssigneeID: "user3"},
		},
		users: []User{
			{ID: "user1", Name: "Alice Smith", Email: "alice@example.com", Active: true},
			{ID: "user2", Name: "Bob Johnson", Email: "bob@example.com", Active: true},
			{ID: "user3", Name: "Charlie Brown", Email: "charlie@example.com", Active: false},
		},
		nextID: 5,
	}
}

// Describe returns the service definition with all contributed tools.
// Note list_issues, get_user, and create_issue share names with the GitHub
// adapter; they stay addressable as "linear.list_issues" etc.
func (a *Adapter) Describe() *registry.Service {
	return &registry.Service{
		ID:            ServiceID,
		Name:          "Linear",
		Description:   "Linear API service for **issue tracking**: teams, issues, and users.",
		BaseURL:       a.baseURL,
		CredentialRef: a.apiKey,
		Tools: []*registry.Tool{
			{
				Name:        "list_teams",
				Description: "List Linear teams",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {},
					"additionalProperties": false
				}`),
				Handler: a.listTeams,
			},
			{
				Name:        "list_issues",
				Description: "List Linear issues",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"team_id": {"type": "string", "description": "Team ID to filter issues by"},
						"state": {"type": "string", "enum": ["todo", "in_progress", "done"], "description": "Issue state"},
						"assignee_id": {"type": "string", "description": "Assignee ID to filter issues by"},
						"priority": {"type": "integer", "minimum": 0, "maximum": 3, "description": "Priority to filter issues by"}
					},
					"additionalProperties": false
				}`),
				Handler: a.listIssues,
			},
			{
				Name:        "get_user",
				Description: "Get a Linear user by ID or email",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"user_id": {"type": "string", "description": "User ID"},
						"email": {"type": "string", "description": "User email"}
					},
					"additionalProperties": false
				}`),
				Handler: a.getUser,
			},
			{
				Name:        "create_issue",
				Description: "Create a new Linear issue",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"properties": {
						"team_id": {"type": "string", "description": "Team ID"},
						"title": {"type": "string", "minLength": 1, "description": "Issue title"},
						"description": {"type": "string", "description": "Issue description"},
						"priority": {"type": "integer", "minimum": 0, "maximum": 3, "description": "Issue priority"},
						"assignee_id": {"type": "string", "description": "Assignee ID"}
					},
					"required": ["team_id", "title"],
					"additionalProperties": false
				}`),
				Handler: a.createIssue,
			},
		},
	}
}

func (a *Adapter) listTeams(ctx context.Context, params json.RawMessage) (any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	teams := make([]Team, len(a.teams))
	copy(teams, a.teams)
	return teams, nil
}

func (a *Adapter) listIssues(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		TeamID     string `json:"team_id"`
		State      string `json:"state"`
		AssigneeID string `json:"assignee_id"`
		Priority   *int   `json:"priority"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	issues := make([]Issue, 0, len(a.issues))
	for _, issue := range a.issues {
		if p.TeamID != "" && issue.TeamID != p.TeamID {
			continue
		}
		if p.State != "" && issue.State != p.State {
			continue
		}
		if p.AssigneeID != "" && issue.AssigneeID != p.AssigneeID {
			continue
		}
		if p.Priority != nil && issue.Priority != *p.Priority {
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func (a *Adapter) getUser(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, user := range a.users {
		if p.UserID != "" && user.ID == p.UserID {
			return user, nil
		}
		if p.Email != "" && user.Email == p.Email {
			return user, nil
		}
	}
	return nil, &dispatch.UpstreamError{Service: ServiceID, Code: "not_found", Message: "user not found"}
}

func (a *Adapter) createIssue(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		TeamID      string `json:"team_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    *int   `json:"priority"`
		AssigneeID  string `json:"assignee_id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	teamExists := false
	for _, team := range a.teams {
		if team.ID == p.TeamID {
			teamExists = true
			break
		}
	}
	if !teamExists {
		return nil, &dispatch.UpstreamError{
			Service: ServiceID,
			Code:    "not_found",
			Message: fmt.Sprintf("team %q not found", p.TeamID),
		}
	}

	priority := 2
	if p.Priority != nil {
		priority = *p.Priority
	}

	issue := Issue{
		ID:          fmt.Sprintf("issue%d", a.nextID),
		TeamID:      p.TeamID,
		Title:       p.Title,
		Description: p.Description,
		State:       "todo",
		Priority:    priority,
		Labels:      []string{},
		AssigneeID:  p.AssigneeID,
	}
	a.nextID++
	a.issues = append(a.issues, issue)

	a.logger.Info("issue created", "issue_id", issue.ID, "team_id", issue.TeamID)
	return issue, nil
}
