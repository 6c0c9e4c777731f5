package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/auth"
	"github.com/sakif/qa-forum/internal/model"
)

// UserLookup loads a user by id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler serves the read-only JSON API.
//
// JSON API vs HTML PAGES:
// The same services back both. The API never redirects: an anonymous
// request to a protected endpoint gets 401 JSON (see auth.RequireAuthAPI),
// and every error uses the ErrorResponse shape.
type APIHandler struct {
	forum  Forum
	search Searcher
	users  UserLookup
	health []Pinger
	logger *slog.Logger
}

// NewAPIHandler creates an APIHandler. Every pinger is checked by /healthz.
func NewAPIHandler(forum Forum, search Searcher, users UserLookup, logger *slog.Logger, health ...Pinger) *APIHandler {
	return &APIHandler{
		forum:  forum,
		search: search,
		users:  users,
		health: health,
		logger: logger,
	}
}

// HandleListQuestions handles GET /api/questions.
//
// Response: 200 OK with a JSON array, newest first. An empty forum returns
// [] rather than null, which is easier for clients to iterate.
func (h *APIHandler) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.forum.ListQuestions(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// HandleGetQuestion handles GET /api/questions/{id}.
//
// Response: 200 OK with the question, its author, categories, tags, and
// answers. A non-numeric id is a 400; an unknown id is a 404.
func (h *APIHandler) HandleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	detail, err := h.forum.GetQuestion(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleSearch handles GET /api/search?q=...
func (h *APIHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	questions, err := h.search.SearchQuestions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// HandleMe handles GET /api/me and returns the logged-in user.
// The password hash never leaves the server: model.User tags it json:"-".
func (h *APIHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.users.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// HandleHealth handles GET /healthz.
// It answers 200 when every backing store responds to a ping within two
// seconds and 503 otherwise.
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, p := range h.health {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
