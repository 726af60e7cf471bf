package services

import (
	"log"
	"sync"
	"time"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
)

// SessionStore keeps live conversation sessions in memory. Voice sessions
// live exactly as long as their call; text sessions expire after a sliding
// idle window and are removed by Sweep.
//
// A session processes one turn at a time: Acquire marks it busy and a
// second Acquire for the same key fails with ErrStillProcessing until
// Release. Turns are webhook-driven, so the hold is always short.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	textTTL  time.Duration
}

type sessionEntry struct {
	session *models.ConversationSession
	busy    bool
}

// NewSessionStore creates the store with the given text-thread idle TTL
func NewSessionStore(textTTL time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		textTTL:  textTTL,
	}
}

// Acquire returns the session for key, creating it with create() when
// absent, and marks it busy. Callers must Release when the turn is done.
// A create() that returns nil means the caller cannot start a session for
// this key; Acquire returns ErrNotFound and stores nothing.
func (s *SessionStore) Acquire(key string, create func() *models.ConversationSession) (*models.ConversationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.sessions[key]
	if !exists {
		session := create()
		if session == nil {
			return nil, models.ErrNotFound
		}
		entry = &sessionEntry{session: session}
		s.sessions[key] = entry
	}

	if entry.busy {
		return nil, models.ErrStillProcessing
	}

	entry.busy = true
	return entry.session, nil
}

// Release clears the busy mark set by Acquire
func (s *SessionStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, exists := s.sessions[key]; exists {
		entry.busy = false
	}
}

// Peek returns the session for key without acquiring it, or nil.
func (s *SessionStore) Peek(key string) *models.ConversationSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, exists := s.sessions[key]; exists {
		return entry.session
	}
	return nil
}

// End discards the session for key. Used when a call disconnects; any
// un-finalized cart is gone with it.
func (s *SessionStore) End(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes idle text sessions past the TTL. Voice sessions are ended
// by the call-status webhook; sweeping only catches threads that went
// quiet. Returns the number of sessions removed.
func (s *SessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.sessions {
		if entry.busy {
			continue
		}
		if entry.session.Channel == models.ChannelText && entry.session.IdleSince(now) > s.textTTL {
			delete(s.sessions, key)
			removed++
		}
	}

	if removed > 0 {
		log.Printf("🧹 Swept %d idle text sessions (%d remaining)", removed, len(s.sessions))
	}

	return removed
}
