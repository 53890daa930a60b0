package entity

import "context"

// Authorize decides whether a gated action may run against an entity.
// A per-turn approval override always wins; otherwise the decision
// falls to the entity's standing approvals. A missing entity counts as
// unapproved, not as an error, so that tools degrade to an approval
// prompt rather than a failure.
func Authorize(ctx context.Context, store Store, entityID, action string, override bool) (bool, error) {
	if override {
		return true, nil
	}
	if store == nil || entityID == "" {
		return false, nil
	}
	e, err := store.Get(ctx, entityID)
	if err != nil {
		if err == ErrNotFound || err == ErrEmptyID {
			return false, nil
		}
		return false, err
	}
	return e.HasApproval(action), nil
}
