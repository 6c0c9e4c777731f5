package auth

import (
	"context"
	"net/http"
	"time"
)

// CookieName is the HttpOnly cookie that carries the signed session token.
const CookieName = "token"

// LoginPath is where RequireAuth sends anonymous browsers.
const LoginPath = "/login"

// Identity is the authenticated state of a request: who the user is and
// which login session vouched for them. Handlers need the session id to log
// that exact session out.
type Identity struct {
	UserID    int64
	SessionID string
}

// SessionResolver turns a raw cookie value into an Identity, or an error if
// the token is forged, expired, or points at a revoked session.
// service.AuthService implements it.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*Identity, error)
}

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "identity", id), ANY package that knows the string
// can read or shadow your value. A package-private type prevents collisions:
// only THIS package can create a key of type contextKey.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth is a middleware for browser routes that need a logged-in user.
//
// It reads the session cookie, resolves it, and stores the Identity in the
// request context. Anonymous requests are answered with 303 See Other to
// /login, so a GET on a protected page and a POST of a protected form both
// land on the login form.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware is a function that takes an http.Handler and returns a new
// http.Handler. The new handler "wraps" the original:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	        // ... do stuff after the handler ...
//	    })
//	}
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFromRequest(r, resolver)
			if err != nil {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *identity)))
		})
	}
}

// RequireAuthAPI is RequireAuth for JSON routes: instead of a redirect the
// client gets 401 with a JSON error body.
func RequireAuthAPI(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFromRequest(r, resolver)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *identity)))
		})
	}
}

// OptionalAuth extracts the identity if a valid session cookie is present,
// but does NOT block the request if it's missing or invalid.
//
// Public pages use it to show "logged in as" navigation while still serving
// anonymous visitors.
func OptionalAuth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity, err := identityFromRequest(r, resolver); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), *identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated identity from the request
// context. Returns false for anonymous requests.
//
// Usage in handlers:
//
//	identity, ok := auth.IdentityFromContext(r.Context())
//	if !ok {
//	    // anonymous user
//	}
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != 0
}

// SetSessionCookie stores the token in an HttpOnly cookie that expires with
// the session.
//
// COOKIE FLAGS:
//   - HttpOnly: JavaScript cannot read it, so XSS cannot steal the session
//   - SameSite=Lax: not sent on cross-site POSTs, which blunts CSRF
//   - Secure: only sent over HTTPS; off for local development
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionToken returns the raw cookie value, or "" if there is none.
func SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// identityFromRequest is shared by the three middlewares.
func identityFromRequest(r *http.Request, resolver SessionResolver) (*Identity, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie: anonymous, not a failure
		return nil, err
	}
	return resolver.ResolveSession(r.Context(), cookie.Value)
}
