package escalation

import (
	"fmt"
	"sort"
	"sync"
)

// Store persists escalation records. Implementations must be safe for
// concurrent use by the manager and the timeout handler.
type Store interface {
	Create(esc *Escalation) error
	Get(id string) (*Escalation, error)
	Update(esc *Escalation) error
	// List returns escalations filtered by status. An empty filter
	// returns everything, newest first.
	List(statuses ...Status) ([]*Escalation, error)
	Close() error
}

// MemoryStore keeps escalations in process memory. Used by tests and as
// the default backend when no database path is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]*Escalation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]*Escalation)}
}

func (m *MemoryStore) Create(esc *Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[esc.ID]; ok {
		return fmt.Errorf("escalation %s already exists", esc.ID)
	}
	cp := *esc
	m.recs[esc.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(id string) (*Escalation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, fmt.Errorf("escalation %s: %w", id, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) Update(esc *Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[esc.ID]; !ok {
		return fmt.Errorf("escalation %s: %w", esc.ID, ErrNotFound)
	}
	cp := *esc
	m.recs[esc.ID] = &cp
	return nil
}

func (m *MemoryStore) List(statuses ...Status) ([]*Escalation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Escalation
	for _, rec := range m.recs {
		if matchesStatus(rec.Status, statuses) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func matchesStatus(s Status, filter []Status) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if s == f {
			return true
		}
	}
	return false
}
