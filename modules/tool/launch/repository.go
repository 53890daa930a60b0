package launch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/tool"
)

// createRepositoryTool creates a source repository on the forge backend.
type createRepositoryTool struct {
	client  *apiClient
	baseURL string
}

func (t *createRepositoryTool) Name() string { return "create_repository" }
func (t *createRepositoryTool) Category() string { return "" }
func (t *createRepositoryTool) Destructive() bool { return false }
func (t *createRepositoryTool) Description() string {
	return "Create a source repository for the venture."
}

func (t *createRepositoryTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Repository name"},
			"description": {"type": "string", "description": "Short repository description"},
			"private": {"type": "boolean", "description": "Whether the repository is private"}
		},
		"required": ["name"]
	}`)
}

func (t *createRepositoryTool) Execute(ctx context.Context, args json.RawMessage, inv tool.Invocation) (tool.Result, error) {
	var params struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return tool.Failure("invalid arguments: " + err.Error()), nil
	}
	if params.Name == "" {
		return tool.Failure("name is required"), nil
	}

	body, err := t.client.do(ctx, http.MethodPost, t.baseURL+"/repos", map[string]any{
		"name":        params.Name,
		"description": params.Description,
		"private":     params.Private,
		"entity":      inv.EntityID,
	})
	if err != nil {
		return tool.Failure(err.Error()), nil
	}
	return tool.Result{Success: true, Data: body}, nil
}

// deleteRepositoryTool removes a repository. Irreversible, so it is
// approval-gated.
type deleteRepositoryTool struct {
	client    *apiClient
	baseURL   string
	approvals entity.Store
}

func (t *deleteRepositoryTool) Name() string { return "delete_repository" }
func (t *deleteRepositoryTool) Category() string { return "repository" }
func (t *deleteRepositoryTool) Destructive() bool { return true }
func (t *deleteRepositoryTool) Description() string {
	return "Permanently delete a repository. Irreversible and requires approval."
}

func (t *deleteRepositoryTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Repository name to delete"}
		},
		"required": ["name"]
	}`)
}

func (t *deleteRepositoryTool) Execute(ctx context.Context, args json.RawMessage, inv tool.Invocation) (tool.Result, error) {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return tool.Failure("invalid arguments: " + err.Error()), nil
	}
	if params.Name == "" {
		return tool.Failure("name is required"), nil
	}

	prompt := fmt.Sprintf("Permanently delete the repository %s? This cannot be undone.", params.Name)
	if pending, err := checkApproval(ctx, t.approvals, inv, t.Category(), prompt); err != nil {
		return tool.Result{}, err
	} else if pending != nil {
		return *pending, nil
	}

	body, err := t.client.do(ctx, http.MethodDelete, t.baseURL+"/repos/"+url.PathEscape(params.Name), nil)
	if err != nil {
		return tool.Failure(err.Error()), nil
	}
	return tool.Result{Success: true, Data: body}, nil
}
