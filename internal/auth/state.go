// Package auth holds the process-wide signed-in identity.
package auth

import (
	"strings"
	"sync"

	"spendmate/internal/log"
)

// Identity is the signed-in user. The zero value means signed out.
type Identity struct {
	UserID string
	Email  string
}

func (i Identity) SignedIn() bool { return i.UserID != "" }

// State is created once in main and shared by every consumer.
type State struct {
	mu        sync.Mutex
	current   Identity
	listeners []listener
	nextID    int
	logger    *log.Logger
}

type listener struct {
	id int
	fn func(prev, next Identity)
}

func NewState(logger *log.Logger) *State {
	return &State{logger: logger.WithComponent(log.ComponentAuth)}
}

// Current returns the signed-in identity.
func (s *State) Current() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SignIn switches to id. Signing in as the current user is a no-op.
func (s *State) SignIn(userID, email string) {
	s.set(Identity{UserID: strings.TrimSpace(userID), Email: strings.TrimSpace(email)})
}

func (s *State) SignOut() {
	s.set(Identity{})
}

// Watch registers fn for identity changes and returns a function that
// removes it. Listeners run synchronously, in registration order, before
// SignIn or SignOut returns.
func (s *State) Watch(fn func(prev, next Identity)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *State) set(next Identity) {
	s.mu.Lock()
	prev := s.current
	if prev.UserID == next.UserID {
		s.current = next
		s.mu.Unlock()
		return
	}
	s.current = next
	listeners := append([]listener(nil), s.listeners...)
	s.mu.Unlock()

	if next.SignedIn() {
		s.logger.Info("Signed in", log.FieldUserID, next.UserID)
	} else {
		s.logger.Info("Signed out", log.FieldUserID, prev.UserID)
	}
	for _, l := range listeners {
		l.fn(prev, next)
	}
}
