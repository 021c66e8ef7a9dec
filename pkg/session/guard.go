// Package session interprets the administrator's bearer token: where it is
// stored, what its claims say, and whether it currently grants access.
//
// Nothing is cached. Every predicate re-reads the store and re-evaluates the
// claims against the clock, and any failure along the way resolves to "no
// session".
package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoSession means no token is stored.
	ErrNoSession = errors.New("no session")
	// ErrExpiredSession means the token decodes but exp is not in the future.
	ErrExpiredSession = errors.New("session expired")
	// ErrMissingRole means the token is valid but carries no admin role.
	ErrMissingRole = errors.New("admin role required")
)

// State is the guard's evaluation of the stored token at one instant.
type State int

const (
	StateAbsent State = iota
	StateInvalid
	StateExpired
	StateValidNonAdmin
	StateValidAdmin
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateInvalid:
		return "invalid"
	case StateExpired:
		return "expired"
	case StateValidNonAdmin:
		return "valid (not admin)"
	case StateValidAdmin:
		return "valid (admin)"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// User is the normalized identity carried by the token.
type User struct {
	SubjectID string `json:"subject_id" yaml:"subject_id"`
	Name      string `json:"name" yaml:"name"`
	Email     string `json:"email" yaml:"email"`
	Role      string `json:"role" yaml:"role"`
}

// Guard answers session questions from a Store without any network call.
type Guard struct {
	store Store
	now   func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// NewGuard returns a guard reading from store.
func NewGuard(store Store, opts ...Option) *Guard {
	g := &Guard{store: store, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// GetToken returns the persisted token verbatim.
func (g *Guard) GetToken() (string, bool) {
	return g.store.Get()
}

// SetToken persists token without validating it.
func (g *Guard) SetToken(token string) error {
	if err := g.store.Set(token); err != nil {
		return fmt.Errorf("session.SetToken: %w", err)
	}
	return nil
}

// RemoveToken erases the persisted token. Calling it again is a no-op.
func (g *Guard) RemoveToken() error {
	if err := g.store.Remove(); err != nil {
		return fmt.Errorf("session.RemoveToken: %w", err)
	}
	return nil
}

// Decode parses token's claims. See the package-level Decode.
func (g *Guard) Decode(token string) (Claims, error) {
	return Decode(token)
}

// Check evaluates the stored token. It returns the claims when the token is
// valid and one of ErrNoSession, *DecodeError, ErrExpiredSession or
// ErrMissingRole otherwise. ErrMissingRole comes with the decoded claims.
func (g *Guard) Check() (Claims, error) {
	tok, ok := g.store.Get()
	if !ok {
		return Claims{}, ErrNoSession
	}
	return g.Evaluate(tok)
}

// Evaluate applies Check's rules to token without touching the store.
func (g *Guard) Evaluate(token string) (Claims, error) {
	c, err := Decode(token)
	if err != nil {
		return Claims{}, err
	}
	if c.ExpiredAt(g.now()) {
		return Claims{}, ErrExpiredSession
	}
	if !c.IsAdmin() {
		return c, ErrMissingRole
	}
	return c, nil
}

// State classifies the stored token.
func (g *Guard) State() State {
	_, err := g.Check()
	var decErr *DecodeError
	switch {
	case err == nil:
		return StateValidAdmin
	case errors.Is(err, ErrMissingRole):
		return StateValidNonAdmin
	case errors.Is(err, ErrExpiredSession):
		return StateExpired
	case errors.As(err, &decErr):
		return StateInvalid
	default:
		return StateAbsent
	}
}

// IsAuthenticated reports a present, decodable, unexpired token.
func (g *Guard) IsAuthenticated() bool {
	_, err := g.Check()
	return err == nil || errors.Is(err, ErrMissingRole)
}

// IsAdmin reports an authenticated token whose role claim contains admin.
func (g *Guard) IsAdmin() bool {
	_, err := g.Check()
	return err == nil
}

// CurrentUser returns the identity in an authenticated token.
func (g *Guard) CurrentUser() (User, bool) {
	c, err := g.Check()
	if err != nil && !errors.Is(err, ErrMissingRole) {
		return User{}, false
	}
	return c.User(), true
}

// User returns the identity carried by c. Role is the first resolved role.
func (c Claims) User() User {
	u := User{SubjectID: c.SubjectID, Name: c.Name, Email: c.Email}
	if len(c.Roles) > 0 {
		u.Role = c.Roles[0]
	}
	return u
}
