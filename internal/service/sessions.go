package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one user's controller plus the device locator its browser feeds
type Session struct {
	ID         string
	Controller *Controller
	Location   *ReportedLocation

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// ControllerFactory builds a controller whose device location comes from device
type ControllerFactory func(device DeviceLocator) *Controller

// SessionStore keeps sessions in memory and expires idle ones.
// Nothing is persisted; a restart starts every user over.
type SessionStore struct {
	newController ControllerFactory
	idleTTL       time.Duration
	log           *zap.Logger
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty store. idleTTL <= 0 disables expiry.
func NewSessionStore(factory ControllerFactory, idleTTL time.Duration, log *zap.Logger) *SessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionStore{
		newController: factory,
		idleTTL:       idleTTL,
		log:           log,
		now:           time.Now,
		sessions:      make(map[string]*Session),
	}
}

// Create starts a new session with an empty state
func (s *SessionStore) Create() *Session {
	location := NewReportedLocation()
	sess := &Session{
		ID:         uuid.NewString(),
		Controller: s.newController(location),
		Location:   location,
		lastSeen:   s.now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	total := len(s.sessions)
	s.mu.Unlock()

	s.log.Info("session created", zap.String("session_id", sess.ID), zap.Int("sessions", total))
	return sess
}

// Get returns the session and marks it as recently used
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.touch(s.now())
	return sess, true
}

// Delete removes a session; it reports whether one existed
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		s.log.Info("session deleted", zap.String("session_id", id))
	}
	return ok
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many went
func (s *SessionStore) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.idleTTL {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		s.log.Info("expired idle sessions", zap.Int("count", len(expired)), zap.Strings("session_ids", expired))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}
