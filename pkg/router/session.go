package router

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/liveregister/pkg/core"
	"github.com/gabrielmiguelok/liveregister/pkg/transport"
)

var (
	ErrNotJoined          = errors.New("live session not joined")
	ErrTooManySessions    = errors.New("too many live sessions")
	ErrTooManyConnections = errors.New("too many live connections from this address")
)

// Session ties one connected page to its component.
type Session struct {
	ID        string
	SocketID  string
	Topic     string
	Component core.Component
	Socket    *core.Socket
	Transport transport.Transport
	Params    core.Params
	Session   core.Session
	RemoteIP  string
	CreatedAt time.Time

	mu           sync.RWMutex
	joinRef      string
	mounted      bool
	lastActivity time.Time
	version      uint64
	slotHashes   map[string]uint64
}

func newSession(socketID string, comp core.Component, params core.Params, session core.Session) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		SocketID:     socketID,
		Topic:        "lv:" + socketID,
		Component:    comp,
		Params:       params,
		Session:      session,
		CreatedAt:    now,
		lastActivity: now,
	}
}

// UpdateActivity marks the session as active now.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// LastActivity returns the time of the last received message.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// SetMounted records whether Mount has run.
func (s *Session) SetMounted(mounted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = mounted
}

// IsMounted reports whether Mount has run.
func (s *Session) IsMounted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted
}

// SetJoinRef stores the ref of the join message.
func (s *Session) SetJoinRef(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinRef = ref
}

// JoinRef returns the ref of the join message.
func (s *Session) JoinRef() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joinRef
}

// NextVersion returns the next diff version.
func (s *Session) NextVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	return s.version
}

// SlotHashes returns the slot hashes of the last render.
func (s *Session) SlotHashes() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slotHashes
}

// SetSlotHashes replaces the slot hashes.
func (s *Session) SetSlotHashes(hashes map[string]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slotHashes = hashes
}

// SessionManagerConfig configures a SessionManager.
type SessionManagerConfig struct {
	// MaxSessions caps concurrent sessions. Zero means the default.
	MaxSessions int
	// SessionTTL is the idle time after which a session expires.
	SessionTTL time.Duration
}

// DefaultSessionManagerConfig returns the default limits.
func DefaultSessionManagerConfig() SessionManagerConfig {
	return SessionManagerConfig{
		MaxSessions: 10000,
		SessionTTL:  30 * time.Minute,
	}
}

// SessionManager indexes live sessions by ID and socket ID.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	bySocket map[string]*Session
	config   SessionManagerConfig
}

// NewSessionManager creates a manager. Zero fields of config use defaults.
func NewSessionManager(config SessionManagerConfig) *SessionManager {
	def := DefaultSessionManagerConfig()
	if config.MaxSessions <= 0 {
		config.MaxSessions = def.MaxSessions
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = def.SessionTTL
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		bySocket: make(map[string]*Session),
		config:   config,
	}
}

// Create registers a new session.
func (m *SessionManager) Create(socketID string, comp core.Component, params core.Params, session core.Session) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.config.MaxSessions {
		return nil, ErrTooManySessions
	}
	s := newSession(socketID, comp, params, session)
	m.sessions[s.ID] = s
	m.bySocket[socketID] = s
	return s, nil
}

// Get looks up a session by ID.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetBySocket looks up a session by socket ID.
func (m *SessionManager) GetBySocket(socketID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.bySocket[socketID]
	return s, ok
}

// Remove deletes a session and reports whether it was present.
func (m *SessionManager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	delete(m.bySocket, s.SocketID)
	delete(m.sessions, id)
	return true
}

// Count returns the number of sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Max returns the session cap.
func (m *SessionManager) Max() int {
	return m.config.MaxSessions
}

// All returns every session.
func (m *SessionManager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Expired returns the sessions idle longer than the TTL without removing them.
func (m *SessionManager) Expired() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-m.config.SessionTTL)
	var out []*Session
	for _, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}
