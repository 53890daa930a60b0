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

// createChatServerTool provisions a community chat server for the
// venture.
type createChatServerTool struct {
	client  *apiClient
	baseURL string
}

func (t *createChatServerTool) Name() string { return "create_chat_server" }
func (t *createChatServerTool) Category() string { return "" }
func (t *createChatServerTool) Destructive() bool { return false }
func (t *createChatServerTool) Description() string {
	return "Create a community chat server for the venture."
}

func (t *createChatServerTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Server name"}
		},
		"required": ["name"]
	}`)
}

func (t *createChatServerTool) Execute(ctx context.Context, args json.RawMessage, inv tool.Invocation) (tool.Result, error) {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return tool.Failure("invalid arguments: " + err.Error()), nil
	}
	if params.Name == "" {
		return tool.Failure("name is required"), nil
	}

	body, err := t.client.do(ctx, http.MethodPost, t.baseURL+"/servers", map[string]string{
		"name":   params.Name,
		"entity": inv.EntityID,
	})
	if err != nil {
		return tool.Failure(err.Error()), nil
	}
	return tool.Result{Success: true, Data: body}, nil
}

// deleteChatServerTool tears down a chat server. Irreversible, so it is
// approval-gated.
type deleteChatServerTool struct {
	client    *apiClient
	baseURL   string
	approvals entity.Store
}

func (t *deleteChatServerTool) Name() string { return "delete_chat_server" }
func (t *deleteChatServerTool) Category() string { return "chat-server" }
func (t *deleteChatServerTool) Destructive() bool { return true }
func (t *deleteChatServerTool) Description() string {
	return "Permanently delete a chat server and all its channels. Irreversible and requires approval."
}

func (t *deleteChatServerTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Server name to delete"}
		},
		"required": ["name"]
	}`)
}

func (t *deleteChatServerTool) Execute(ctx context.Context, args json.RawMessage, inv tool.Invocation) (tool.Result, error) {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return tool.Failure("invalid arguments: " + err.Error()), nil
	}
	if params.Name == "" {
		return tool.Failure("name is required"), nil
	}

	prompt := fmt.Sprintf("Permanently delete the chat server %s and everything in it?", params.Name)
	if pending, err := checkApproval(ctx, t.approvals, inv, t.Category(), prompt); err != nil {
		return tool.Result{}, err
	} else if pending != nil {
		return *pending, nil
	}

	body, err := t.client.do(ctx, http.MethodDelete, t.baseURL+"/servers/"+url.PathEscape(params.Name), nil)
	if err != nil {
		return tool.Failure(err.Error()), nil
	}
	return tool.Result{Success: true, Data: body}, nil
}
