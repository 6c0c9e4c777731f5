package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/auth"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/service"
)

// maxFormBytes caps every form body. The largest legitimate form is a
// question with a 20,000 character body.
const maxFormBytes = 1 << 20

// Authenticator is the slice of the auth service the handlers use.
//
// WHY AN INTERFACE HERE?
// The handler only needs three methods. Declaring them where they are USED
// (not where they are implemented) lets tests pass a small fake instead of
// wiring a database, bcrypt, and JWT signing.
type Authenticator interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*service.AuthResult, error)
	LogoutToken(ctx context.Context, token string) error
}

// AuthHandler serves registration, login, and logout.
type AuthHandler struct {
	pages
	auth         Authenticator
	secureCookie bool
}

// NewAuthHandler creates an AuthHandler. secureCookie sets the Secure flag on
// the session cookie and should be true whenever the site is served over HTTPS.
func NewAuthHandler(authn Authenticator, renderer Renderer, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		pages:        pages{renderer: renderer, logger: logger},
		auth:         authn,
		secureCookie: secureCookie,
	}
}

// ShowRegister handles GET /register.
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, ViewRegister, Page{Title: "Register"})
}

// HandleRegister handles POST /register.
//
// POST/REDIRECT/GET:
// On success we answer with 303 See Other to /login. The browser follows it
// with a GET, so refreshing the next page can't resubmit the form.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.renderForm(w, r, ViewRegister, "Register", err, nil, nil)
		return
	}

	name := r.PostFormValue("name")
	email := r.PostFormValue("email")
	form := map[string]string{"name": name, "email": email}

	if _, err := h.auth.Register(r.Context(), name, email, r.PostFormValue("password")); err != nil {
		h.renderForm(w, r, ViewRegister, "Register", err, form, nil)
		return
	}

	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// ShowLogin handles GET /login.
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, ViewLogin, Page{Title: "Log in"})
}

// HandleLogin handles POST /login.
// A successful login sets the session cookie and redirects to the user's
// dashboard. Wrong credentials re-render the form with 401 and the same
// message whether the email or the password was wrong.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.renderForm(w, r, ViewLogin, "Log in", err, nil, nil)
		return
	}

	email := r.PostFormValue("email")
	result, err := h.auth.Authenticate(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		h.renderForm(w, r, ViewLogin, "Log in", err, map[string]string{"email": email}, nil)
		return
	}

	auth.SetSessionCookie(w, result.Token, result.Session.ExpiresAt, h.secureCookie)
	http.Redirect(w, r, dashboardPath(result.User.ID), http.StatusSeeOther)
}

// HandleLogout handles POST /logout.
//
// Logout always clears the cookie and redirects home, even when the token
// is missing, expired, or already revoked. Only a storage failure while
// revoking is reported.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.SessionToken(r); token != "" {
		if err := h.auth.LogoutToken(r.Context(), token); err != nil {
			h.renderError(w, r, err)
			return
		}
	}

	auth.ClearSessionCookie(w, h.secureCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseForm reads a urlencoded or multipart form body with a size cap.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("", "form is too large")
		}
		return apperror.ValidationFailed("", "could not read the submitted form")
	}
	return nil
}

func dashboardPath(userID int64) string {
	return "/dashboard/" + strconv.FormatInt(userID, 10)
}
