package storage

import (
	"context"
	"sync"
)

// Memory is a map-backed Gateway. It doubles as the test fake and as the
// empty-state seed when no other gateway is configured.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, userID, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[userID+"/"+key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

func (m *Memory) Save(_ context.Context, userID, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[userID+"/"+key] = append([]byte(nil), data...)
}

// Delete drops a stored blob; used by tests to simulate lost remote state.
func (m *Memory) Delete(userID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, userID+"/"+key)
}

// Len reports how many blobs are stored.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
