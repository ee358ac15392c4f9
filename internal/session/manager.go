package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge/internal/domain"
)

// ErrSessionNotFound is returned when a session id is unknown, expired, or
// owned by a different user. Ownership misses are deliberately
// indistinguishable from absence.
var ErrSessionNotFound = errors.New("session not found")

// sweepEvery bounds how often lookups trigger an expiry scan.
const sweepEvery = 512

// StartParams carries everything needed to open a refinement session.
type StartParams struct {
	EntryID        string
	ContentType    string
	SelectedFields []string
	Mode           domain.GenerationMode
	Record         domain.ContentRecord
	MaxIterations  int
}

// Manager owns all live sessions in memory, keyed by a random UUID. Sessions
// that have seen no activity within ttl are evicted opportunistically during
// lookups; there is no background goroutine to manage.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	sweepN   int
	now      func() time.Time
}

// NewManager builds a Manager evicting sessions idle longer than ttl.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Start opens a session for userID over the given record and returns it in
// StateIdle at iteration 0.
func (m *Manager) Start(userID string, p StartParams) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		id:            uuid.NewString(),
		userID:        userID,
		entryID:       p.EntryID,
		contentType:   p.ContentType,
		mode:          p.Mode,
		selected:      append([]string(nil), p.SelectedFields...),
		original:      p.Record.Clone(),
		current:       p.Record.Clone(),
		maxIterations: p.MaxIterations,
		state:         StateIdle,
		now:           m.now,
	}
	s.lastActive = m.now()
	m.sessions[s.id] = s
	m.maybeSweep()
	return s
}

// Get returns the session with the given id if it belongs to userID and has
// not expired.
func (m *Manager) Get(id, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.maybeSweep()
	s, ok := m.sessions[id]
	if !ok || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	if m.expired(s) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove discards a session, typically after Accept.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports the number of live sessions. Exposed for metrics.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) expired(s *Session) bool {
	s.mu.Lock()
	last := s.lastActive
	s.mu.Unlock()
	return m.ttl > 0 && m.now().Sub(last) > m.ttl
}

// maybeSweep drops expired sessions every sweepEvery lookups. Caller holds
// the manager lock.
func (m *Manager) maybeSweep() {
	m.sweepN++
	if m.sweepN < sweepEvery {
		return
	}
	m.sweepN = 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
		}
	}
}
