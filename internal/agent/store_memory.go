package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	"repute/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store used in development mode and unit
// tests. A single mutex serializes ApplyEvent's read-modify-write, giving
// the same atomicity the PostgreSQL store gets from row locks.
type MemoryStore struct {
	mu     sync.RWMutex
	agents map[string]*Agent            // by DID
	events map[string][]*Event          // by DID, append order
	refs   map[string]map[string]*Event // by DID, then reference
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents: make(map[string]*Agent),
		events: make(map[string][]*Event),
		refs:   make(map[string]map[string]*Event),
	}
}

func (s *MemoryStore) Create(_ context.Context, a *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[a.DID]; exists {
		return sentinel.ErrConflict
	}
	cp := *a
	s.agents[a.DID] = &cp
	s.refs[a.DID] = make(map[string]*Event)
	return nil
}

func (s *MemoryStore) FindByDID(_ context.Context, did string) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Agent, 0, len(s.agents))
	for _, a := range s.agents {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListEvents(_ context.Context, did string, limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.agents[did]; !ok {
		return nil, sentinel.ErrNotFound
	}
	evs := s.events[did]
	out := make([]*Event, 0, len(evs))
	// Events are appended in arrival order; newest first for history views.
	for i := len(evs) - 1; i >= 0; i-- {
		cp := *evs[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) FindEvent(_ context.Context, did, reference string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byRef, ok := s.refs[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	ev, ok := byRef[reference]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (s *MemoryStore) ApplyEvent(_ context.Context, did string, ev *Event, compute func(current float64) float64, now time.Time) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if _, exists := s.refs[did][ev.Reference]; exists {
		return nil, sentinel.ErrDuplicate
	}

	a.Reputation = compute(a.Reputation)
	a.UpdatedAt = now

	cp := *ev
	cp.AgentID = a.ID
	s.events[did] = append(s.events[did], &cp)
	s.refs[did][ev.Reference] = &cp

	result := *a
	return &result, nil
}
