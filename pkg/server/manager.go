package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// SessionManager manages all active sessions.
// It handles session creation, lookup, and shutdown.
type SessionManager struct {
	// Sessions map protected by RWMutex
	sessions map[string]*Session
	mu       sync.RWMutex

	config      *SessionConfig
	maxSessions int

	// Metrics
	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakSessions int

	logger *slog.Logger
	base   *slog.Logger // Parent of session loggers
}

// NewSessionManager creates a session manager. maxSessions of 0 means no
// limit.
func NewSessionManager(config *SessionConfig, maxSessions int, logger *slog.Logger) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		config:      config,
		maxSessions: maxSessions,
		logger:      logger.With("component", "session_manager"),
		base:        logger.With("component", "session"),
	}
}

// Create creates and tracks a new session over conn. The session is removed
// from the manager when its event loop stops.
func (sm *SessionManager) Create(conn *websocket.Conn) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		return nil, ErrMaxSessionsReached
	}

	s := newSession(conn, sm.config, sm.base)
	s.onClose = func(s *Session) { sm.remove(s.ID) }
	sm.sessions[s.ID] = s
	sm.totalCreated.Add(1)
	if len(sm.sessions) > sm.peakSessions {
		sm.peakSessions = len(sm.sessions)
	}
	return s, nil
}

// Get returns the session with the given ID, or nil.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

func (sm *SessionManager) remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sessions[id]; ok {
		delete(sm.sessions, id)
		sm.totalClosed.Add(1)
	}
}

// Close closes and removes the session with the given ID.
func (sm *SessionManager) Close(id string) {
	s := sm.Get(id)
	if s == nil {
		return
	}
	s.Close()
	sm.remove(id)
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ForEach calls fn for every session until fn returns false.
func (sm *SessionManager) ForEach(fn func(*Session) bool) {
	sm.mu.RLock()
	list := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		list = append(list, s)
	}
	sm.mu.RUnlock()

	for _, s := range list {
		if !fn(s) {
			return
		}
	}
}

// Shutdown closes every session and waits up to timeout for their event
// loops to finish.
func (sm *SessionManager) Shutdown(timeout time.Duration) {
	var wg sync.WaitGroup
	sm.ForEach(func(s *Session) bool {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
		return true
	})
	wg.Wait()

	deadline := time.Now().Add(timeout)
	for sm.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	sm.mu.Lock()
	for id := range sm.sessions {
		delete(sm.sessions, id)
		sm.totalClosed.Add(1)
	}
	sm.mu.Unlock()
	sm.logger.Info("sessions shut down")
}

// Stats returns manager statistics.
func (sm *SessionManager) Stats() ManagerStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return ManagerStats{
		Active:       len(sm.sessions),
		Peak:         sm.peakSessions,
		TotalCreated: sm.totalCreated.Load(),
		TotalClosed:  sm.totalClosed.Load(),
	}
}

// ManagerStats contains session manager statistics.
type ManagerStats struct {
	Active       int    `json:"active"`
	Peak         int    `json:"peak"`
	TotalCreated uint64 `json:"totalCreated"`
	TotalClosed  uint64 `json:"totalClosed"`
}
