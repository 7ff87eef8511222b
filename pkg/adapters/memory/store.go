package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/webflow/pkg/domain"
)

// Store implements ports.ConversationStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Conversation
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Conversation),
	}
}

// Save stores a deep copy of the conversation, similar to serialization.
func (s *Store) Save(ctx context.Context, c *domain.Conversation) error {
	copied := c.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[c.ID] = copied
	return nil
}

// Load returns a copy so callers can't mutate the stored conversation by pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return c.Clone(), nil
}

// Delete removes the conversation.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored conversation IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
