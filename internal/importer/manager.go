package importer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cvazzz/guiadocs/internal/mapper"
)

// Manager owns the live import sessions. Sessions expire after a TTL
// so an abandoned upload does not pin file bytes in memory forever.
type Manager struct {
	backend Backend
	catalog *mapper.Catalog
	ttl     time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*managedSession
}

type managedSession struct {
	session *Session
	expire  *time.Timer
}

// NewManager builds a session manager. ttl zero means 30 minutes.
func NewManager(backend Backend, catalog *mapper.Catalog, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		backend:  backend,
		catalog:  catalog,
		ttl:      ttl,
		sessions: make(map[uuid.UUID]*managedSession),
	}
}

// Catalog returns the field catalog sessions map against.
func (m *Manager) Catalog() *mapper.Catalog {
	return m.catalog
}

// Create starts a new session for user and schedules its expiry.
func (m *Manager) Create(user string) *Session {
	s := NewSession(m.backend, m.catalog, user)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &managedSession{
		session: s,
		expire: time.AfterFunc(m.ttl, func() {
			m.Remove(s.ID)
		}),
	}
	return s
}

// Get looks up a live session and pushes its expiry out.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found or expired", id)
	}
	ms.expire.Reset(m.ttl)
	return ms.session, nil
}

// Remove closes and forgets a session. Safe to call twice.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		ms.expire.Stop()
		ms.session.Close()
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Remove(id)
	}
}
