package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/capitalize-ai/formbot/internal/model"
)

type memoryEntry struct {
	state   model.ConversationState
	expires time.Time
}

// MemoryStore keeps states in process memory. Used when Redis is not
// configured; states are lost on restart.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an in-memory store. ttl <= 0 keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the state for a conversation.
func (s *MemoryStore) Get(ctx context.Context, conversationID string) (model.ConversationState, error) {
	s.mu.RLock()
	e, ok := s.entries[conversationID]
	s.mu.RUnlock()

	if !ok || (!e.expires.IsZero() && s.now().After(e.expires)) {
		return model.ConversationState{}, ErrNotFound
	}
	return e.state, nil
}

// Put stores a state, resetting its TTL.
func (s *MemoryStore) Put(ctx context.Context, st model.ConversationState) error {
	if st.ConversationID == "" {
		return errors.New("conversation id is required")
	}
	e := memoryEntry{state: st}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[st.ConversationID] = e
	s.mu.Unlock()
	return nil
}

// Delete removes a state. Deleting an absent state is not an error.
func (s *MemoryStore) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	delete(s.entries, conversationID)
	s.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
