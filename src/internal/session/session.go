// FILE: src/internal/session/session.go
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session tracks one producer connection to a receiver
type Session struct {
	ID         string
	RemoteAddr string
	Transport  string // "tcp", "http"
	CreatedAt  time.Time

	subject      atomic.Value // string
	lastActivity atomic.Int64 // unix nanos
	records      atomic.Uint64
}

// Subject is the authenticated token subject, empty when unauthenticated
func (s *Session) Subject() string {
	v, _ := s.subject.Load().(string)
	return v
}

func (s *Session) SetSubject(subject string) {
	s.subject.Store(subject)
}

func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Records returns the number of records accepted on this session
func (s *Session) Records() uint64 {
	return s.records.Load()
}

// Manager owns sessions and expires idle ones
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	maxIdleTime time.Duration
	now         func() time.Time
	done        chan struct{}
	stopOnce    sync.Once

	onExpire func(*Session)
}

// NewManager starts a manager; onExpire runs for each idle session removed
// and may be nil
func NewManager(maxIdleTime time.Duration, onExpire func(*Session)) *Manager {
	if maxIdleTime <= 0 {
		maxIdleTime = 30 * time.Minute
	}

	m := &Manager{
		sessions:    make(map[string]*Session),
		maxIdleTime: maxIdleTime,
		now:         time.Now,
		done:        make(chan struct{}),
		onExpire:    onExpire,
	}
	go m.cleanupLoop(cleanupInterval(maxIdleTime))
	return m
}

func cleanupInterval(maxIdle time.Duration) time.Duration {
	interval := maxIdle / 4
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

// Create registers a new session under a random id
func (m *Manager) Create(remoteAddr, transport string) *Session {
	return m.CreateWithID(uuid.NewString(), remoteAddr, transport)
}

// CreateWithID registers a session under a caller-chosen id, replacing any
// existing session with that id
func (m *Manager) CreateWithID(id, remoteAddr, transport string) *Session {
	now := m.now()
	s := &Session{
		ID:         id,
		RemoteAddr: remoteAddr,
		Transport:  transport,
		CreatedAt:  now,
	}
	s.lastActivity.Store(now.UnixNano())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Touch records activity; accepted counts records taken on this call
func (m *Manager) Touch(s *Session, accepted int) {
	s.lastActivity.Store(m.now().UnixNano())
	if accepted > 0 {
		s.records.Add(uint64(accepted))
	}
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetStats returns session counts by transport
func (m *Manager) GetStats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byTransport := make(map[string]int)
	var records uint64
	for _, s := range m.sessions {
		byTransport[s.Transport]++
		records += s.records.Load()
	}
	return map[string]any{
		"total_sessions":        len(m.sessions),
		"sessions_by_transport": byTransport,
		"records_in_sessions":   records,
		"max_idle_time":         m.maxIdleTime.String(),
	}
}

// Stop ends the cleanup loop
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Manager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.expireIdle()
		case <-m.done:
			return
		}
	}
}

func (m *Manager) expireIdle() {
	cutoff := m.now().Add(-m.maxIdleTime).UnixNano()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.lastActivity.Load() < cutoff {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	if m.onExpire != nil {
		for _, s := range expired {
			m.onExpire(s)
		}
	}
}
