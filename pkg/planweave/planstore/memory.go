package planstore

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory plan store for testing and single-process
// use. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]storedPlan // workflow -> planID -> plan
	closed bool
}

type storedPlan struct {
	doc     []byte
	created time.Time
}

// NewMemoryStore creates an in-memory plan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]storedPlan),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(workflow, planID string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[workflow] == nil {
		m.data[workflow] = make(map[string]storedPlan)
	}

	// Copy to avoid retaining the caller's slice.
	stored := make([]byte, len(doc))
	copy(stored, doc)

	m.data[workflow][planID] = storedPlan{
		doc:     stored,
		created: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(workflow, planID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	plans, ok := m.data[workflow]
	if !ok {
		return nil, ErrNotFound
	}
	p, ok := plans[planID]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(p.doc))
	copy(out, p.doc)
	return out, nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(workflow string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	var latest *storedPlan
	for _, p := range m.data[workflow] {
		if latest == nil || p.created.After(latest.created) {
			p := p
			latest = &p
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}

	out := make([]byte, len(latest.doc))
	copy(out, latest.doc)
	return out, nil
}

// List implements Store.
func (m *MemoryStore) List(workflow string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	plans, ok := m.data[workflow]
	if !ok {
		return nil, nil
	}

	infos := make([]Info, 0, len(plans))
	for planID, p := range plans {
		infos = append(infos, Info{
			Workflow: workflow,
			PlanID:   planID,
			Created:  p.created,
			Size:     int64(len(p.doc)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].PlanID < infos[j].PlanID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(workflow, planID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if plans, ok := m.data[workflow]; ok {
		delete(plans, planID)
	}
	return nil
}

// DeleteWorkflow implements Store.
func (m *MemoryStore) DeleteWorkflow(workflow string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, workflow)
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

// Len returns the total number of stored plans across all workflows.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, plans := range m.data {
		count += len(plans)
	}
	return count
}
