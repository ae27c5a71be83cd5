// Package carttest provides an in-process cart store for service and handler tests.
package carttest

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront-backend/internal/cart"
)

// MemoryStore keeps serialized carts in a map, the way RedisStore keeps them under sf:cart:<session>.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*cart.Cart, error) {
	s.mu.Lock()
	raw, ok := s.data[sessionID]
	s.mu.Unlock()
	if !ok {
		return &cart.Cart{}, nil
	}
	return cart.Decode([]byte(raw))
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, c *cart.Cart) error {
	payload, err := cart.Encode(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[sessionID] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.data, sessionID)
	s.mu.Unlock()
	return nil
}

// Raw returns the serialized cart for sessionID.
func (s *MemoryStore) Raw(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[sessionID]
	return raw, ok
}
