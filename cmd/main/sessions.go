package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/google/uuid"
)

// ErrTooManySessions is returned when the live session cap is reached.
var ErrTooManySessions = errors.New("too many live manual sessions")

// manualSession is one API-owned ngram.Session. Its mutex serializes the
// requests that touch it.
type manualSession struct {
	mu       sync.Mutex
	id       string
	corpus   string
	session  *ngram.Session
	created  time.Time
	lastUsed time.Time
}

// SessionStore keeps live manual sessions in memory and expires the ones
// that have been idle for longer than the TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*manualSession
	ttl      time.Duration
	max      int
	now      func() time.Time
}

// NewSessionStore creates a store that holds at most max sessions, each
// expiring after ttl without use.
func NewSessionStore(ttl time.Duration, max int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*manualSession),
		ttl:      ttl,
		max:      max,
		now:      time.Now,
	}
}

// Create registers a session for corpus and returns it with a fresh id.
// Expired sessions are swept first so they do not count against the cap.
func (s *SessionStore) Create(corpus string, session *ngram.Session) (*manualSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	if len(s.sessions) >= s.max {
		return nil, ErrTooManySessions
	}

	now := s.now()
	ms := &manualSession{
		id:       uuid.NewString(),
		corpus:   corpus,
		session:  session,
		created:  now,
		lastUsed: now,
	}
	s.sessions[ms.id] = ms
	return ms, nil
}

// Get returns a live session and marks it used. Expired sessions are removed
// and reported as missing.
func (s *SessionStore) Get(id string) (*manualSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(ms.lastUsed) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	ms.lastUsed = now
	return ms, true
}

// Delete removes a session. It reports whether the session existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of sessions currently held, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *SessionStore) sweepLocked() int {
	now := s.now()
	removed := 0
	for id, ms := range s.sessions {
		if now.Sub(ms.lastUsed) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done. onSweep, if
// not nil, is called after each sweep with the number of live sessions.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration, onSweep func(live int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
			if onSweep != nil {
				onSweep(s.Len())
			}
		}
	}
}
