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

// registerDomainTool registers a domain name through the registrar
// backend. Registration costs money, so it is approval-gated.
type registerDomainTool struct {
	client    *apiClient
	baseURL   string
	approvals entity.Store
}

func (t *registerDomainTool) Name() string { return "register_domain" }
func (t *registerDomainTool) Category() string { return "domain" }
func (t *registerDomainTool) Destructive() bool { return false }
func (t *registerDomainTool) Description() string {
	return "Register a domain name for the venture. Costs money and requires approval."
}

func (t *registerDomainTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Fully qualified domain name to register"}
		},
		"required": ["name"]
	}`)
}

func (t *registerDomainTool) Execute(ctx context.Context, args json.RawMessage, inv tool.Invocation) (tool.Result, error) {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return tool.Failure("invalid arguments: " + err.Error()), nil
	}
	if params.Name == "" {
		return tool.Failure("name is required"), nil
	}

	prompt := fmt.Sprintf("Register the domain %s? This incurs a registration fee.", params.Name)
	if pending, err := checkApproval(ctx, t.approvals, inv, t.Category(), prompt); err != nil {
		return tool.Result{}, err
	} else if pending != nil {
		return *pending, nil
	}

	body, err := t.client.do(ctx, http.MethodPost, t.baseURL+"/domains", map[string]string{
		"name":   params.Name,
		"entity": inv.EntityID,
	})
	if err != nil {
		return tool.Failure(err.Error()), nil
	}
	return tool.Result{Success: true, Data: body}, nil
}

// domainLookupTool checks availability and records for a domain name.
// Read-only, never gated.
type domainLookupTool struct {
	client  *apiClient
	baseURL string
}

func (t *domainLookupTool) Name() string { return "domain_lookup" }
func (t *domainLookupTool) Category() string { return "" }
func (t *domainLookupTool) Destructive() bool { return false }
func (t *domainLookupTool) Description() string {
	return "Look up availability and registration details for a domain name."
}

func (t *domainLookupTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Domain name to look up"}
		},
		"required": ["name"]
	}`)
}

func (t *domainLookupTool) Execute(ctx context.Context, args json.RawMessage, _ tool.Invocation) (tool.Result, error) {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return tool.Failure("invalid arguments: " + err.Error()), nil
	}
	if params.Name == "" {
		return tool.Failure("name is required"), nil
	}

	body, err := t.client.do(ctx, http.MethodGet, t.baseURL+"/domains/"+url.PathEscape(params.Name), nil)
	if err != nil {
		return tool.Failure(err.Error()), nil
	}
	return tool.Result{Success: true, Data: body}, nil
}
