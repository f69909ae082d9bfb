package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps the live sessions in memory.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (s *Store) Add(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Store) Get(id uuid.UUID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, exists := s.sessions[id]
	return sess, exists
}

func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ByOwner returns every session owned by the given user.
func (s *Store) ByOwner(owner uuid.UUID) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Session
	for _, sess := range s.sessions {
		if sess.OwnerID == owner {
			out = append(out, sess)
		}
	}
	return out
}

// Sweep drops sessions idle for longer than maxIdle and returns their IDs.
func (s *Store) Sweep(maxIdle time.Duration, now time.Time) []uuid.UUID {
	s.mu.Lock()
	candidates := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.Unlock()

	var removed []uuid.UUID
	for _, sess := range candidates {
		if now.Sub(sess.LastSeen()) > maxIdle {
			s.Delete(sess.ID)
			removed = append(removed, sess.ID)
		}
	}
	return removed
}
