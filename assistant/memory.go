package assistant

import (
	"context"
	"sync"
)

var _ Store = &MemoryStore{}

// MemoryStore keeps assistants in a map. Used by tests and local runs
// without MongoDB.
type MemoryStore struct {
	mu         sync.RWMutex
	assistants map[string]Assistant
}

func NewMemoryStore(seed ...Assistant) *MemoryStore {
	m := &MemoryStore{assistants: make(map[string]Assistant, len(seed))}
	for _, a := range seed {
		if a.WhatsappConnectionStatus == "" {
			a.WhatsappConnectionStatus = StatusNotConnected
		}
		m.assistants[a.ID] = a
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, assistantID string) (*Assistant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assistants[assistantID]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryStore) GetByBusiness(_ context.Context, businessID string) (*Assistant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.assistants {
		if a.BusinessID == businessID {
			out := a
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Connect(_ context.Context, assistantID, businessID string, b Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assistants[assistantID]
	if !ok || a.BusinessID != businessID {
		return ErrNotFound
	}
	for id, other := range m.assistants {
		if id != assistantID && other.PhoneNumberID != nil && *other.PhoneNumberID == b.PhoneNumberID {
			other.clear()
			m.assistants[id] = other
		}
	}
	a.apply(b)
	m.assistants[assistantID] = a
	return nil
}

func (m *MemoryStore) Disconnect(_ context.Context, assistantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assistants[assistantID]
	if !ok {
		return ErrNotFound
	}
	a.clear()
	m.assistants[assistantID] = a
	return nil
}
