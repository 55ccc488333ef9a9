package auth

import (
	"context"
	"sync"
)

// newMemorySessionStore returns a SessionStore backed by a map, for tests.
func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{tokens: make(map[string]string)}
}

// memorySessionStore implements SessionStore in memory.
type memorySessionStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// Save replaces the user's refresh token.
func (s *memorySessionStore) Save(_ context.Context, userID, refreshToken string) error {
	s.mu.Lock()
	s.tokens[userID] = refreshToken
	s.mu.Unlock()
	return nil
}

// Rotate swaps presented for next when presented is current.
func (s *memorySessionStore) Rotate(_ context.Context, userID, presented, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.tokens[userID]; !ok || current != presented {
		return ErrSessionNotFound
	}
	s.tokens[userID] = next
	return nil
}

// Clear removes the user's refresh token.
func (s *memorySessionStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.tokens, userID)
	s.mu.Unlock()
	return nil
}

// Token returns the stored token for a user. Useful for tests.
func (s *memorySessionStore) Token(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[userID]
	return token, ok
}
