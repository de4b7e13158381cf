package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/matsen/scout/internal/agent"
)

// InMemoryStore keeps threads in process memory. Reads and writes copy.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]agent.Message
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string][]agent.Message)}
}

// Load returns a copy of the thread's messages.
func (s *InMemoryStore) Load(_ context.Context, threadID string) ([]agent.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return agent.CloneMessages(s.threads[threadID]), nil
}

// Save replaces the thread's messages with a copy of msgs.
func (s *InMemoryStore) Save(_ context.Context, threadID string, msgs []agent.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = agent.CloneMessages(msgs)
	return nil
}

// Clear removes the thread.
func (s *InMemoryStore) Clear(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

// Threads returns stored thread ids in sorted order.
func (s *InMemoryStore) Threads(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }
