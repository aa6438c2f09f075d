package services

import (
	"sync"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
)

// Session owns one authenticated identity and broadcasts its changes.
// Subscribers receive a fresh snapshot on every refresh and nil when the
// session is closed.
type Session struct {
	mu     sync.RWMutex
	user   *models.User
	subs   map[int]chan *models.User
	nextID int
	closed bool
}

func newSession(user *models.User) *Session {
	return &Session{user: user.Clone(), subs: make(map[int]chan *models.User)}
}

// Current returns a snapshot of the identity, or nil once the session is closed
func (s *Session) Current() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Subscribe returns a channel of identity updates and a function to stop
// receiving them. Only the latest update is buffered; slow readers skip
// intermediate snapshots.
func (s *Session) Subscribe() (<-chan *models.User, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *models.User, 1)
	if s.closed {
		ch <- nil
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) update(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.user = user.Clone()
	for _, ch := range s.subs {
		publish(ch, s.user.Clone())
	}
}

// Close tears the session down and notifies subscribers with nil
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.user = nil
	for id, ch := range s.subs {
		publish(ch, nil)
		close(ch)
		delete(s.subs, id)
	}
}

// publish replaces any unread value so the channel always holds the latest snapshot
func publish(ch chan *models.User, u *models.User) {
	select {
	case <-ch:
	default:
	}
	ch <- u
}

// SessionRegistry tracks the live session of every logged-in user
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Open starts a session for the user, or refreshes the existing one
func (r *SessionRegistry) Open(user *models.User) *Session {
	r.mu.Lock()
	s, ok := r.sessions[user.Email]
	if !ok {
		s = newSession(user)
		r.sessions[user.Email] = s
	}
	r.mu.Unlock()

	if ok {
		s.update(user)
	}
	return s
}

// Get returns the live session for email
func (r *SessionRegistry) Get(email string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[email]
	return s, ok
}

// Refresh broadcasts a new snapshot if the user has a live session
func (r *SessionRegistry) Refresh(user *models.User) {
	if user == nil {
		return
	}
	if s, ok := r.Get(user.Email); ok {
		s.update(user)
	}
}

// Close ends the user's session. It reports whether one was open.
func (r *SessionRegistry) Close(email string) bool {
	r.mu.Lock()
	s, ok := r.sessions[email]
	delete(r.sessions, email)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}
