package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iotcafe/backoffice/internal/form"
	"github.com/iotcafe/backoffice/internal/notify"
)

// Session is the state kept for one browser between requests: toasts waiting
// to be shown and the drafts of forms it has open.
type Session struct {
	ID string

	mu       sync.Mutex
	toasts   []notify.Toast
	drafts   map[string]*form.Form
	lastSeen time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:       id,
		drafts:   make(map[string]*form.Form),
		lastSeen: now,
	}
}

// Flash queues a toast for the next rendered page
func (s *Session) Flash(t notify.Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, t)
}

// TakeToasts returns and clears the queued toasts
func (s *Session) TakeToasts() []notify.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	toasts := s.toasts
	s.toasts = nil
	return toasts
}

// Draft returns the draft stored under key, creating it with create if absent
func (s *Session) Draft(key string, create func() *form.Form) *form.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.drafts[key]; ok {
		return f
	}
	f := create()
	s.drafts[key] = f
	return f
}

// DiscardDraft drops the draft stored under key
func (s *Session) DiscardDraft(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
}

// KeepOnlyDraft drops every draft except the one under key. An empty key drops them all.
func (s *Session) KeepOnlyDraft(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.drafts {
		if k != key {
			delete(s.drafts, k)
		}
	}
}

// LookupDraft returns the draft stored under key without creating one
func (s *Session) LookupDraft(key string) (*form.Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.drafts[key]
	return f, ok
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store keeps sessions in memory
type Store struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	now      func() time.Time
}

func New() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Start creates and stores a session with a fresh id
func (s *Store) Start() *Session {
	sess := newSession(uuid.NewString(), s.now())
	s.Set(sess.ID, sess)
	return sess
}

// Get returns the session and marks it as seen
func (s *Store) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	sess, exists := s.sessions[sessionID]
	s.mu.RUnlock()
	if exists {
		sess.touch(s.now())
	}
	return sess, exists
}

func (s *Store) Set(sessionID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sess
}

// Prune removes sessions idle for longer than ttl and returns how many were removed
func (s *Store) Prune(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
