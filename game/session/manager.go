// Package session stores the active game sessions, keyed by game id. The
// dispatcher owns every stored session; the store itself only does lookup
// and lifecycle bookkeeping.
package session

import (
	"errors"
	"sync"

	"github.com/memorymatch/server/game/engine"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyExists = errors.New("session already exists")
)

// Manager is a concurrency-safe map from game id to session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*engine.Session
}

// NewManager creates an empty session store.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*engine.Session)}
}

// Put stores a new session under its game id.
func (m *Manager) Put(s *engine.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.GameID]; exists {
		return ErrAlreadyExists
	}
	m.sessions[s.GameID] = s
	return nil
}

// Get retrieves a session by game id.
func (m *Manager) Get(gameID string) (*engine.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[gameID]
	if !exists {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete tears a session down. The generation bump invalidates any flip-back
// continuation still scheduled against the old life of this game id.
func (m *Manager) Delete(gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.sessions[gameID]
	if !exists {
		return ErrNotFound
	}
	s.Generation++
	delete(m.sessions, gameID)
	return nil
}

// List returns all stored sessions in unspecified order.
func (m *Manager) List() []*engine.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*engine.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	return result
}

// ForConn returns the sessions in which the given connection holds a seat.
func (m *Manager) ForConn(connID string) []*engine.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*engine.Session
	for _, s := range m.sessions {
		if s.SeatOf(connID) != 0 {
			result = append(result, s)
		}
	}
	return result
}

// Count returns the number of stored sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
