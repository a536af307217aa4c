package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process payload store used in tests
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailDelete makes Delete fail for the listed keys, to exercise
	// the sweep's retry path.
	FailDelete map[string]bool
}

// NewMemory creates an empty in-memory payload store
func NewMemory() *Memory {
	return &Memory{
		objects:    make(map[string][]byte),
		FailDelete: make(map[string]bool),
	}
}

func (m *Memory) Store(_ context.Context, data []byte, _, ownerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s/%s.jpg", ownerID, uuid.New().String())
	m.objects[key] = data
	return key, nil
}

func (m *Memory) Fetch(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("payload %s not found", key)
	}
	return data, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete[key] {
		return fmt.Errorf("simulated delete failure for %s", key)
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) PublicURL(key string) string {
	return "mem://" + key
}

// Len reports how many payloads are currently stored
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// Has reports whether a payload exists
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
