package launch

import (
	"context"

	"github.com/foundryhq/foundry/internal/entity"
	"github.com/foundryhq/foundry/internal/tool"
)

// checkApproval consults the standing approvals for a gated resource
// category. It returns a needs-approval Result when the category is not
// authorized, or nil when execution may proceed. Without an entity
// store all gated actions require the per-turn override.
func checkApproval(ctx context.Context, approvals entity.Store, inv tool.Invocation, category, prompt string) (*tool.Result, error) {
	approved, err := entity.Authorize(ctx, approvals, inv.EntityID, category, inv.Approved)
	if err != nil {
		return nil, err
	}
	if !approved {
		return &tool.Result{NeedsApproval: true, ApprovalPrompt: prompt}, nil
	}
	return nil, nil
}
