package entity

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store. It backs tests and deployments that
// do not configure a durable store module.
type MemStore struct {
	mu       sync.RWMutex
	entities map[string]*BusinessEntity

	now func() time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		entities: make(map[string]*BusinessEntity),
		now:      time.Now,
	}
}

func (s *MemStore) Get(_ context.Context, id string) (*BusinessEntity, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEntity(e), nil
}

func (s *MemStore) Put(_ context.Context, e *BusinessEntity) error {
	if e == nil || e.ID == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = cloneEntity(e)
	return nil
}

func (s *MemStore) Grant(_ context.Context, id, action, approvedBy string) error {
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		e = &BusinessEntity{ID: id, CreatedAt: s.now()}
		s.entities[id] = e
	}
	if e.Approvals == nil {
		e.Approvals = make(map[string]StandingApproval)
	}
	e.Approvals[action] = StandingApproval{
		Approved:   true,
		ApprovedBy: approvedBy,
		ApprovedAt: s.now(),
	}
	return nil
}

func (s *MemStore) List(_ context.Context) ([]*BusinessEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*BusinessEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, cloneEntity(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneEntity(e *BusinessEntity) *BusinessEntity {
	c := *e
	if e.Approvals != nil {
		c.Approvals = make(map[string]StandingApproval, len(e.Approvals))
		for k, v := range e.Approvals {
			c.Approvals[k] = v
		}
	}
	return &c
}
