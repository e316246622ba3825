package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"wardrobeapi/models"
)

type managedSession struct {
	session  *Session
	lastSeen time.Time
}

// Manager owns the live sessions, one per identity key.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*managedSession
	collab   Collaborators
	opts     Options
	log      *logrus.Logger
	now      func() time.Time
}

func NewManager(collab Collaborators, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		sessions: map[string]*managedSession{},
		collab:   collab,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// Open returns the live session for identity, creating and restoring it on
// first use. Guests start empty and never touch the store. Concurrent calls
// for the same key all wait for the one restore.
func (m *Manager) Open(ctx context.Context, identity models.Identity) (*Session, error) {
	key := identity.SessionKey()

	m.mu.Lock()
	entry, ok := m.sessions[key]
	if !ok {
		entry = &managedSession{session: New(identity, m.collab, m.opts)}
		m.sessions[key] = entry
	}
	entry.lastSeen = m.now()
	s := entry.session
	m.mu.Unlock()

	if err := s.Restore(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// Get returns the live session without creating one.
func (m *Manager) Get(identity models.Identity) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[identity.SessionKey()]
	if !ok {
		return nil, false
	}
	entry.lastSeen = m.now()
	return entry.session, true
}

// Close flushes and drops the session of identity, as on logout.
func (m *Manager) Close(identity models.Identity) bool {
	m.mu.Lock()
	entry, ok := m.sessions[identity.SessionKey()]
	delete(m.sessions, identity.SessionKey())
	m.mu.Unlock()
	if !ok {
		return false
	}
	entry.session.Close()
	return true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle flushes and drops every session not opened for longer than
// Options.IdleTimeout. Signed-in users get theirs back from the store on the
// next request; guest sessions are gone for good. A zero timeout evicts
// nothing.
func (m *Manager) EvictIdle() int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var idle []*Session
	for key, entry := range m.sessions {
		if entry.lastSeen.Before(cutoff) {
			idle = append(idle, entry.session)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	closeAll(idle)
	if len(idle) > 0 {
		m.log.WithField("sessions", len(idle)).Info("Evicted idle sessions")
	}
	return len(idle)
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) {
	if m.opts.IdleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// Shutdown closes every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for key, entry := range m.sessions {
		sessions = append(sessions, entry.session)
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	closeAll(sessions)
}

func closeAll(sessions []*Session) {
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
}
