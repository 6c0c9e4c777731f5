// Package service: authentication business logic.
//
// AuthService is the business logic layer for accounts and login sessions.
// It sits between the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt)     ↘ SessionRepository (DB or Redis)
//	                   ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Register: validate, hash the password, insert the user
//   - Authenticate: check the password, store a session, sign a cookie token
//   - ResolveSession: turn a cookie token back into an auth.Identity
//   - Logout: revoke the session so its cookie stops working
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/auth"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/repository"
	"github.com/sakif/qa-forum/internal/validation"
)

// DefaultSessionTTL is used when NewAuthService is given a non-positive TTL.
const DefaultSessionTTL = 24 * time.Hour

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository     → read/write user records
//   - sessions   repository.SessionRepository  → server-side login sessions
//   - tokens     *auth.TokenService            → sign/verify cookie tokens
//   - passwords  *auth.PasswordService         → bcrypt hashing
//   - logger     *slog.Logger                  → structured logging
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	validate   *validation.Validator
	logger     *slog.Logger
	sessionTTL time.Duration

	now       func() time.Time
	sessionID func() string
}

var _ auth.SessionResolver = (*AuthService)(nil)

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		passwords:  passwords,
		validate:   validation.New(),
		logger:     logger,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
		// xid ids are 20 URL-safe characters, globally unique without
		// coordination, and sortable by creation time.
		sessionID: func() string { return xid.New().String() },
	}
}

// AuthResult is returned by Authenticate.
// It bundles the user, the stored session, and the signed token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User    *model.User
	Session *model.Session
	Token   string
}

// registration carries the validation rules for Register. The form tags name
// fields the way the HTML form does, so errors point at the right input.
type registration struct {
	Name     string `form:"name" validate:"notblank,max=150"`
	Email    string `form:"email" validate:"required,email,max=150"`
	Password string `form:"password" validate:"required,max=72"`
}

// Register creates a new account.
//
// EMAIL NORMALISATION:
// Emails are trimmed and lowercased before validation and storage, so
// " Alice@X.com" and "alice@x.com" are the same account. One account per
// email is enforced by the store's UNIQUE constraint, including under
// concurrent registrations.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	in := registration{
		Name:     strings.TrimSpace(name),
		Email:    normalizeEmail(email),
		Password: password,
	}
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Authenticate checks an email/password pair and opens a session.
//
// An unknown email and a wrong password produce the same
// apperror.ErrInvalidCredentials, so the login form cannot be used to find
// out which emails have accounts. No session is stored on failure.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.Int64("userID", user.ID))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password for user %d: %w", user.ID, err)
	}

	now := s.now()
	session := &model.Session{
		ID:        s.sessionID(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: storing session: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.Int64("userID", user.ID),
		slog.String("sessionID", session.ID),
	)
	return &AuthResult{User: user, Session: session, Token: token}, nil
}

// ResolveSession implements auth.SessionResolver.
//
// CHECKS, CHEAPEST FIRST:
//  1. Token signature, issuer and expiry (no I/O)
//  2. Session exists in the store
//  3. Session belongs to the user named in the token
//  4. Session is neither revoked nor past its expiry
//
// Every failure is apperror.ErrUnauthorized; store outages are wrapped
// separately so they are not mistaken for a bad cookie.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*auth.Identity, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthorized("invalid session token")
	}

	session, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("session not found")
		}
		return nil, fmt.Errorf("service/auth: loading session: %w", err)
	}

	if session.UserID != claims.UserID {
		return nil, apperror.Unauthorized("session does not match token")
	}
	if !sessionActive(session, s.now()) {
		return nil, apperror.Unauthorized("session expired or logged out")
	}

	return &auth.Identity{UserID: session.UserID, SessionID: session.ID}, nil
}

// Logout revokes the session. Logging out of a session that no longer
// exists is not an error: the caller ends up logged out either way.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.RevokeSession(ctx, sessionID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/auth: revoking session: %w", err)
	}

	s.logger.Info("user logged out", slog.String("sessionID", sessionID))
	return nil
}

// LogoutToken is Logout for callers that only hold the raw cookie. A token
// that fails verification has no session to revoke.
func (s *AuthService) LogoutToken(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}
	return s.Logout(ctx, claims.SessionID)
}

// GetUserByID returns the user for the given id, or apperror.ErrNotFound.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

func sessionActive(session *model.Session, now time.Time) bool {
	return session.RevokedAt == nil && now.Before(session.ExpiresAt)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
