package registry

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory deployment registry for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]Deployment // id -> record
	closed bool
}

// NewMemoryStore creates a new in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Deployment),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(d Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy tags to avoid retaining the caller's slice
	stored := d
	stored.Tags = append([]string(nil), d.Tags...)
	m.data[d.ID] = stored
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(id string) (Deployment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Deployment{}, ErrStoreClosed
	}

	d, ok := m.data[id]
	if !ok {
		return Deployment{}, ErrNotFound
	}
	d.Tags = append([]string(nil), d.Tags...)
	return d, nil
}

// List implements Store.
func (m *MemoryStore) List(flowName string) ([]Deployment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Deployment, 0, len(m.data))
	for _, d := range m.data {
		if flowName != "" && d.FlowName != flowName {
			continue
		}
		d.Tags = append([]string(nil), d.Tags...)
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, id)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of records. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
