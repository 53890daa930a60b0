package launch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/foundryhq/foundry/internal/tool"
)

// webSearchTool queries the search backend. Read-only, never gated.
type webSearchTool struct {
	client  *apiClient
	baseURL string
}

func (t *webSearchTool) Name() string { return "web_search" }
func (t *webSearchTool) Category() string { return "" }
func (t *webSearchTool) Destructive() bool { return false }
func (t *webSearchTool) Description() string {
	return "Search the web and return a short list of results."
}

func (t *webSearchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Search query"},
			"limit": {"type": "integer", "description": "Maximum number of results, default 5"}
		},
		"required": ["query"]
	}`)
}

func (t *webSearchTool) Execute(ctx context.Context, args json.RawMessage, _ tool.Invocation) (tool.Result, error) {
	var params struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return tool.Failure("invalid arguments: " + err.Error()), nil
	}
	if params.Query == "" {
		return tool.Failure("query is required"), nil
	}
	if params.Limit <= 0 {
		params.Limit = 5
	}

	q := url.Values{}
	q.Set("q", params.Query)
	q.Set("limit", strconv.Itoa(params.Limit))

	body, err := t.client.do(ctx, http.MethodGet, t.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return tool.Failure(err.Error()), nil
	}
	return tool.Result{Success: true, Data: body}, nil
}
