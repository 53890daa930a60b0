package launch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/tool"
)

// checkPaymentsTool reads payment activity for the venture. Financial
// data access is approval-gated.
type checkPaymentsTool struct {
	client    *apiClient
	baseURL   string
	approvals entity.Store
}

func (t *checkPaymentsTool) Name() string { return "check_payments" }
func (t *checkPaymentsTool) Category() string { return "payments" }
func (t *checkPaymentsTool) Destructive() bool { return false }
func (t *checkPaymentsTool) Description() string {
	return "Check payment activity and balance for the venture. Requires approval."
}

func (t *checkPaymentsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"period": {"type": "string", "description": "Reporting period, e.g. 30d. Defaults to 30d."}
		}
	}`)
}

func (t *checkPaymentsTool) Execute(ctx context.Context, args json.RawMessage, inv tool.Invocation) (tool.Result, error) {
	var params struct {
		Period string `json:"period"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return tool.Failure("invalid arguments: " + err.Error()), nil
		}
	}
	if params.Period == "" {
		params.Period = "30d"
	}

	prompt := "Access payment records for this venture?"
	if pending, err := checkApproval(ctx, t.approvals, inv, t.Category(), prompt); err != nil {
		return tool.Result{}, err
	} else if pending != nil {
		return *pending, nil
	}

	q := url.Values{}
	q.Set("period", params.Period)
	if inv.EntityID != "" {
		q.Set("entity", inv.EntityID)
	}

	body, err := t.client.do(ctx, http.MethodGet, t.baseURL+"/payments?"+q.Encode(), nil)
	if err != nil {
		return tool.Failure(err.Error()), nil
	}
	return tool.Result{Success: true, Data: body}, nil
}
