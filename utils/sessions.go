package utils

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Session is one named betting round running alongside the global one.
// Its bets live in the ledger under the session id as scope, and its
// scheduler update id is the session id as well.
type Session struct {
	ID    string
	Round *RoundState
}

// SessionManager tracks the named concurrent betting sessions. Session
// ids are normalized so lookups are case- and whitespace-insensitive.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager returns an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// NormalizeSessionID canonicalizes a user-supplied session name.
func NormalizeSessionID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Open creates a session between two contestants. The id must be unused,
// not reserved, and the active-session limit not reached.
func (m *SessionManager) Open(id, name1, name2 string) (*Session, error) {
	id = NormalizeSessionID(id)
	if id == "" || id == DefaultUpdateID {
		return nil, fmt.Errorf("invalid session name %q", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session %q is already open", id)
	}
	if len(m.sessions) >= MaxActiveSessions {
		return nil, fmt.Errorf("session limit of %d reached", MaxActiveSessions)
	}

	round := NewRoundState()
	round.Open(name1, name2)
	sess := &Session{ID: id, Round: round}
	m.sessions[id] = sess
	return sess, nil
}

// Get looks a session up by name.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[NormalizeSessionID(id)]
	return sess, ok
}

// Remove drops a settled session.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, NormalizeSessionID(id))
	m.mu.Unlock()
}

// ResolveLiveMessage finds the session whose live message is messageID.
func (m *SessionManager) ResolveLiveMessage(messageID string) (*Session, bool) {
	if messageID == "" {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sess := range m.sessions {
		if sess.Round.IsLiveMessage(messageID) {
			return sess, true
		}
	}
	return nil, false
}

// List returns the active sessions sorted by id.
func (m *SessionManager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of active sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
