// Package session keeps the client-side login state, including an admin
// temporarily acting as one of the users.
package session

import (
	"sync"

	"github.com/BearBump/CargoBox/internal/identity"
	"github.com/pkg/errors"
)

var (
	ErrNoSession            = errors.New("not signed in")
	ErrAlreadyImpersonating = errors.New("already acting as another user")
	ErrNotImpersonating     = errors.New("not acting as another user")
)

type State int

const (
	StateSignedOut State = iota
	StateNormal
	StateImpersonating
)

// Impersonation is what the client remembers while the admin acts as a user.
type Impersonation struct {
	Ticket     string
	UserName   string
	ClientCode string
}

// Stack holds at most two levels: the own session and, on top of it, the
// impersonated one. The admin session itself is not kept: coming back goes
// through the server with the ticket and yields a fresh admin session.
type Stack struct {
	mu      sync.Mutex
	current *identity.Session
	imp     *Impersonation
}

func (s *Stack) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.current == nil:
		return StateSignedOut
	case s.imp != nil:
		return StateImpersonating
	default:
		return StateNormal
	}
}

func (s *Stack) Current() *identity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Impersonating returns the ticket info, nil in the normal state.
func (s *Stack) Impersonating() *Impersonation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imp == nil {
		return nil
	}
	cp := *s.imp
	return &cp
}

// SignIn replaces whatever was there with a normal session.
func (s *Stack) SignIn(sess *identity.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
	s.imp = nil
}

// Replace swaps the tokens after a refresh, keeping the state.
func (s *Stack) Replace(sess *identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	s.current = sess
	return nil
}

// Impersonate pushes the user's session on top of the admin's one.
func (s *Stack) Impersonate(userSession *identity.Session, imp Impersonation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoSession
	}
	if s.imp != nil {
		return ErrAlreadyImpersonating
	}
	s.current = userSession
	s.imp = &imp
	return nil
}

// Restore pops the impersonated session, adminSession comes from restore-admin-session.
func (s *Stack) Restore(adminSession *identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imp == nil {
		return ErrNotImpersonating
	}
	s.current = adminSession
	s.imp = nil
	return nil
}

func (s *Stack) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.imp = nil
}
