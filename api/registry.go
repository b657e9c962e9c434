package api

import (
	"context"
	"sync"

	"agenda-api/agenda"
)

// Registry keeps one planner per user, loading state through the gateway on
// first touch. Planners stay resident for the life of the process; the
// collection is a single in-process writer per user.
type Registry struct {
	store agenda.Store

	mu       sync.Mutex
	planners map[string]*agenda.Planner
}

// NewRegistry creates a registry backed by the given gateway.
func NewRegistry(store agenda.Store) *Registry {
	if store == nil {
		panic("api.NewRegistry: store is required")
	}
	return &Registry{store: store, planners: make(map[string]*agenda.Planner)}
}

// Planner returns the user's planner, creating and loading it on first use.
func (r *Registry) Planner(ctx context.Context, userID string) *agenda.Planner {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.planners[userID]; ok {
		return p
	}
	p := agenda.NewPlanner(ctx, userID, r.store)
	r.planners[userID] = p
	return p
}
