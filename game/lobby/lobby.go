// Package lobby holds the set of open game invitations awaiting a second
// player. Entries are ephemeral: they live only as long as their creator's
// connection and are consumed by the first successful join.
package lobby

import (
	"sort"
	"sync"
	"time"

	"github.com/memorymatch/server/game/engine"
)

// Entry is an open invitation. The game id is foreign to the persisted game
// record created by the backend before the invitation is announced.
type Entry struct {
	GameID    string          `json:"gameId"`
	Player1   engine.Identity `json:"player1"`
	CreatedAt time.Time       `json:"createdAt"`

	// Creator's connection id, transport-level.
	Conn1 string `json:"-"`
}

// Match is the result of a successful join: both players and their
// connections, ready to be promoted into a game session.
type Match struct {
	GameID  string
	Player1 engine.Identity
	Conn1   string
	Player2 engine.Identity
	Conn2   string
}

// Manager is the lobby state. Reads may come from outside the dispatcher
// loop (the HTTP debug surface), so access is guarded.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewManager creates an empty lobby.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*Entry)}
}

// AddGame stores a new invitation. A creator may hold at most one open
// invitation at a time.
func (m *Manager) AddGame(creator engine.Identity, connID, gameID string) (*Entry, *engine.RuleError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[gameID]; exists {
		return nil, engine.ErrDuplicateEntry
	}
	for _, entry := range m.entries {
		if entry.Player1.ID == creator.ID {
			return nil, engine.ErrDuplicateEntry
		}
	}

	entry := &Entry{
		GameID:    gameID,
		Player1:   creator,
		Conn1:     connID,
		CreatedAt: time.Now(),
	}
	m.entries[gameID] = entry
	return entry, nil
}

// RemoveGame deletes an invitation. Removing an absent id is a no-op.
func (m *Manager) RemoveGame(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, gameID)
}

// Get returns the invitation for a game id.
func (m *Manager) Get(gameID string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[gameID]
	return entry, ok
}

// Games returns a snapshot of all open invitations in creation order.
func (m *Manager) Games() []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	games := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		games = append(games, entry)
	}
	sort.Slice(games, func(i, j int) bool {
		if games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].GameID < games[j].GameID
		}
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games
}

// JoinGame attaches a second player to an invitation, removing it from the
// open set. An entry can be joined at most once.
func (m *Manager) JoinGame(joiner engine.Identity, connID, gameID string) (*Match, *engine.RuleError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[gameID]
	if !ok {
		return nil, engine.ErrNotFound
	}
	if entry.Player1.ID == joiner.ID {
		return nil, engine.ErrSelfJoin
	}
	delete(m.entries, gameID)

	return &Match{
		GameID:  entry.GameID,
		Player1: entry.Player1,
		Conn1:   entry.Conn1,
		Player2: joiner,
		Conn2:   connID,
	}, nil
}

// LeaveLobby removes every invitation created by the given connection and
// returns what was removed. Called on disconnect so stale entries never
// survive their creator.
func (m *Manager) LeaveLobby(connID string) []*Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []*Entry
	for id, entry := range m.entries {
		if entry.Conn1 == connID {
			removed = append(removed, entry)
			delete(m.entries, id)
		}
	}
	return removed
}

// Len reports the number of open invitations.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
