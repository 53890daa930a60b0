// Package entity tracks the business entities the assistant creates and
// manages, and the standing approvals granted on them.
package entity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("entity: not found")

	// ErrEmptyID is returned when an entity ID is blank.
	ErrEmptyID = errors.New("entity: empty id")
)

// StandingApproval records a durable grant for one gated action on an
// entity. Once granted it persists until explicitly revoked by an
// operator; the assistant never revokes approvals on its own.
type StandingApproval struct {
	Approved   bool      `json:"approved"`
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

// BusinessEntity is one venture the assistant operates on behalf of a
// user: a domain, a repository, a chat server, and so on.
type BusinessEntity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Approvals is keyed by resource category ("domain", "payments",
	// "repository", "chat-server").
	Approvals map[string]StandingApproval `json:"approvals"`
}

// Approval returns the standing approval for action, if one exists.
func (e *BusinessEntity) Approval(action string) (StandingApproval, bool) {
	if e == nil || e.Approvals == nil {
		return StandingApproval{}, false
	}
	sa, ok := e.Approvals[action]
	return sa, ok
}

// HasApproval reports whether a granted standing approval exists for action.
func (e *BusinessEntity) HasApproval(action string) bool {
	sa, ok := e.Approval(action)
	return ok && sa.Approved
}

// Store persists business entities.
type Store interface {
	// Get returns the entity with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*BusinessEntity, error)

	// Put inserts or replaces an entity.
	Put(ctx context.Context, e *BusinessEntity) error

	// Grant records a standing approval for an action on an entity,
	// creating the entity if it does not exist.
	Grant(ctx context.Context, id, action, approvedBy string) error

	// List returns all known entities.
	List(ctx context.Context) ([]*BusinessEntity, error)
}
