package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stuartshay/walkroute/internal/heading"
)

// Manager creates and looks up sessions
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	headingOpts heading.Options
	now         func() time.Time
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock overrides the time source handed to new sessions
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager whose sessions use the given heading options
func NewManager(headingOpts heading.Options, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		headingOpts: headingOpts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session with a fresh tracker and heading filter
func (m *Manager) Create() *Session {
	s := newSession(uuid.New().String(), m.headingOpts, m.now)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Info().Str("session_id", s.ID).Msg("Session created")
	return s
}

// Get returns the session with the given ID
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove ends a session and closes its observers
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.closeObservers()
	log.Info().Str("session_id", id).Msg("Session removed")
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
