// internal/pkg/identity/identity.go
package identity

import (
	"fmt"

	xerrors "pillflow-service/internal/pkg/errors"
)

type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateFailed         State = "failed"
)

var transitions = map[State][]State{
	StateAnonymous:      {StateAuthenticating},
	StateAuthenticating: {StateAuthenticated, StateFailed},
}

// Session tracks who is making a request. It only moves forward:
// anonymous, authenticating, then authenticated or failed. Data access
// requires the authenticated state.
type Session struct {
	state     State
	accountID string
	reason    error
}

func NewSession() *Session {
	return &Session{state: StateAnonymous}
}

func (s *Session) State() State { return s.state }

// Begin marks that credentials were presented.
func (s *Session) Begin() error {
	return s.move(StateAuthenticating)
}

// Succeed binds the session to an account.
func (s *Session) Succeed(accountID string) error {
	if accountID == "" {
		return s.Fail(xerrors.ErrUnauthorized)
	}
	if err := s.move(StateAuthenticated); err != nil {
		return err
	}
	s.accountID = accountID
	return nil
}

// Fail records why authentication did not complete.
func (s *Session) Fail(reason error) error {
	if err := s.move(StateFailed); err != nil {
		return err
	}
	if reason == nil {
		reason = xerrors.ErrUnauthorized
	}
	s.reason = reason
	return nil
}

// Reason is the failure cause, nil unless the session failed.
func (s *Session) Reason() error { return s.reason }

// AccountID returns the bound account or an authorization error for any
// state other than authenticated.
func (s *Session) AccountID() (string, error) {
	if s.state != StateAuthenticated {
		return "", xerrors.NewAuthorizationError("", fmt.Sprintf("data while %s", s.state))
	}
	return s.accountID, nil
}

func (s *Session) move(to State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("invalid session transition %s -> %s", s.state, to)
}
