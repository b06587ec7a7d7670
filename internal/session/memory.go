package session

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	m.sessions[s.ID] = *s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) deleteWhere(match func(*Session) bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.sessions {
		if match(&s) {
			delete(m.sessions, id)
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) ([]string, error) {
	return m.deleteWhere(func(s *Session) bool { return s.Expired(now) }), nil
}

func (m *MemoryStore) DeleteForUser(_ context.Context, userID int64) ([]string, error) {
	return m.deleteWhere(func(s *Session) bool { return s.User.ID == userID }), nil
}
