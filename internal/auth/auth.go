// Package auth signs the administrator in and out. It exchanges credentials
// with the API and only keeps tokens that grant admin access.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/byway-lms/byway-admin/pkg/session"
)

var (
	// ErrEmptyCredentials is returned before any request when email or password is blank.
	ErrEmptyCredentials = errors.New("email and password are required")
	// ErrEmptyIDToken is returned when federated login is attempted without an ID token.
	ErrEmptyIDToken = errors.New("google id token is required")
	// ErrInvalidTokenFormat means the API answered with something that is not a JWT.
	ErrInvalidTokenFormat = errors.New("invalid token format")
)

// API is the part of the REST client the login flows need.
type API interface {
	Login(ctx context.Context, email, password string) (string, error)
	GoogleAuth(ctx context.Context, idToken string) (string, error)
}

// Service binds the API's token exchange to the session guard.
type Service struct {
	api   API
	guard *session.Guard
	log   zerolog.Logger
}

// NewService creates a Service.
func NewService(api API, guard *session.Guard, log zerolog.Logger) *Service {
	return &Service{api: api, guard: guard, log: log}
}

// Login exchanges email and password for a token and stores it when it
// carries the admin role.
func (s *Service) Login(ctx context.Context, email, password string) (session.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.User{}, ErrEmptyCredentials
	}
	tok, err := s.api.Login(ctx, email, password)
	if err != nil {
		return session.User{}, fmt.Errorf("auth.Login: %w", err)
	}
	u, err := s.adopt(tok)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("login rejected")
		return session.User{}, fmt.Errorf("auth.Login: %w", err)
	}
	s.log.Info().Str("email", u.Email).Msg("signed in")
	return u, nil
}

// GoogleLogin exchanges a Google ID token for an API token under the same
// rules as Login.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (session.User, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return session.User{}, ErrEmptyIDToken
	}
	tok, err := s.api.GoogleAuth(ctx, idToken)
	if err != nil {
		return session.User{}, fmt.Errorf("auth.GoogleLogin: %w", err)
	}
	u, err := s.adopt(tok)
	if err != nil {
		s.log.Warn().Err(err).Msg("google login rejected")
		return session.User{}, fmt.Errorf("auth.GoogleLogin: %w", err)
	}
	s.log.Info().Str("email", u.Email).Msg("signed in with google")
	return u, nil
}

// Logout forgets the stored token. Calling it without a session is not an error.
func (s *Service) Logout() error {
	if err := s.guard.RemoveToken(); err != nil {
		return fmt.Errorf("auth.Logout: %w", err)
	}
	s.log.Info().Msg("signed out")
	return nil
}

// adopt stores tok only if it decodes, has not expired and grants admin.
func (s *Service) adopt(tok string) (session.User, error) {
	claims, err := s.guard.Evaluate(tok)
	var decErr *session.DecodeError
	switch {
	case errors.As(err, &decErr):
		return session.User{}, fmt.Errorf("%w: %w", ErrInvalidTokenFormat, err)
	case err != nil:
		return session.User{}, err
	}
	if err := s.guard.SetToken(tok); err != nil {
		return session.User{}, err
	}
	return claims.User(), nil
}
