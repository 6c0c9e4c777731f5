// Package auth provides password hashing, the signed session cookie, and the
// middleware that turns that cookie into a request identity.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User submits POST /login with email and password
//  2. AuthService verifies the bcrypt hash and stores a Session row
//  3. The server signs a JWT that points at that session and stores it in an
//     HttpOnly cookie
//  4. On later requests, middleware reads the cookie, verifies the JWT, loads
//     the session, and puts an Identity in the request context
//  5. POST /logout revokes the session; the cookie stops working at once
//
// WHY A JWT *AND* A SESSION ROW?
// A bare JWT is stateless: the server cannot take it back before it expires.
// A bare random session id needs a lookup but gives nothing to verify first.
// Signing the session id gives both: forged or tampered cookies are rejected
// without touching the store, and real ones can still be revoked.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<user id>","jti":"<session id>","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "qa-forum"

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. Tokens signed
// by one process only validate in processes that share the same secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Claims is what a valid session token says about its bearer.
type Claims struct {
	UserID    int64
	SessionID string
	ExpiresAt time.Time
}

// Issue signs a token for the given session.
//
// The token expires together with the session it points at, so a browser
// never holds a cookie that outlives the server-side record.
//
// CLAIM MAPPING:
//   - "sub" (Subject)  → user id, as a decimal string (JWT subjects are strings)
//   - "jti" (JWT ID)   → session id
//   - "exp"            → session expiry
func (s *TokenService) Issue(userID int64, sessionID string, expiresAt time.Time) (string, error) {
	if sessionID == "" {
		return "", errors.New("auth: session id must not be empty")
	}

	c := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    issuer,
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "qa-forum" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. Passing jwt.WithValidMethods prevents this.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("auth: token subject %q is not a user id", c.Subject)
	}
	if c.ID == "" {
		return nil, errors.New("auth: token has no session id")
	}

	return &Claims{
		UserID:    userID,
		SessionID: c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
