package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clubmap/core-go/internal/mapview"
	"clubmap/core-go/internal/metrics"
)

// session is one mounted map. Its mutex serializes gestures, standing in for
// the single interaction thread of the canvas.
type session struct {
	id  string
	hub *hub

	mu       sync.Mutex
	state    *mapview.State
	lastSeen time.Time
}

type sessionStore struct {
	mu      sync.Mutex
	items   map[string]*session
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

func newSessionStore(ttl time.Duration, m *metrics.Metrics) *sessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &sessionStore{
		items:   make(map[string]*session),
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
	}
}

func (s *sessionStore) newSession() *session {
	return &session{id: uuid.NewString(), hub: newHub()}
}

func (s *sessionStore) put(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.lastSeen = s.now()
	s.items[sess.id] = sess
	s.metrics.SetActiveSessions(len(s.items))
}

func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	return sess, ok
}

func (s *sessionStore) remove(id string) bool {
	s.mu.Lock()
	sess, ok := s.items[id]
	if ok {
		delete(s.items, id)
	}
	n := len(s.items)
	s.mu.Unlock()

	if ok {
		sess.hub.close()
		s.metrics.SetActiveSessions(n)
	}
	return ok
}

// touch records activity; callers hold sess.mu.
func (s *sessionStore) touch(sess *session) {
	sess.lastSeen = s.now()
}

// evictExpired drops sessions idle for longer than the ttl.
func (s *sessionStore) evictExpired() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*session
	for id, sess := range s.items {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			expired = append(expired, sess)
			delete(s.items, id)
		}
	}
	n := len(s.items)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.hub.close()
	}
	if len(expired) > 0 {
		s.metrics.SetActiveSessions(n)
	}
	return len(expired)
}

func (s *sessionStore) runJanitor(ctx context.Context, interval time.Duration) int {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	total := 0
	for {
		select {
		case <-ctx.Done():
			return total
		case <-ticker.C:
			total += s.evictExpired()
		}
	}
}
