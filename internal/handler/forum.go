package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/qa-forum/internal/auth"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/service"
)

// Forum is the content side of the application: questions, answers, the
// category/tag vocabulary, and per-user dashboards.
type Forum interface {
	CreateQuestion(ctx context.Context, authorID int64, title, body string, categoryIDs, tagIDs []int64) (*model.Question, error)
	ListQuestions(ctx context.Context) ([]model.Question, error)
	GetQuestion(ctx context.Context, id int64) (*service.QuestionDetail, error)
	CreateAnswer(ctx context.Context, authorID, questionID int64, body string) (*model.Answer, error)
	Vocabulary(ctx context.Context) (*service.Vocabulary, error)
	Dashboard(ctx context.Context, userID int64) (*service.Dashboard, error)
}

// Searcher finds questions by title.
type Searcher interface {
	SearchQuestions(ctx context.Context, query string) ([]model.Question, error)
}

// ForumHandler serves the HTML pages for browsing and posting content.
type ForumHandler struct {
	pages
	forum  Forum
	search Searcher
}

// NewForumHandler creates a ForumHandler.
func NewForumHandler(forum Forum, search Searcher, renderer Renderer, logger *slog.Logger) *ForumHandler {
	return &ForumHandler{
		pages:  pages{renderer: renderer, logger: logger},
		forum:  forum,
		search: search,
	}
}

// QuestionForm is the view data for the new-question page.
type QuestionForm struct {
	Vocabulary *service.Vocabulary

	// Selected records which checkboxes to keep ticked after a failed
	// submission, keyed by "c<id>" for categories and "t<id>" for tags.
	Selected map[string]bool
}

// HandleIndex handles GET /: the public question list.
func (h *ForumHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	questions, err := h.forum.ListQuestions(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, ViewIndex, Page{Title: "Questions", Data: questions})
}

// HandleDashboard handles GET /dashboard/{userId}.
//
// URL PARAMETERS:
// chi.URLParam reads the {userId} segment declared in the route pattern.
// A value that isn't a positive integer is a 404: no such page exists.
func (h *ForumHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID("userId", chi.URLParam(r, "userId"))
	if err != nil {
		h.renderNotFound(w, r)
		return
	}

	dashboard, err := h.forum.Dashboard(r.Context(), userID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, ViewDashboard, Page{Title: dashboard.User.Name, Data: dashboard})
}

// ShowNewQuestion handles GET /question/new.
func (h *ForumHandler) ShowNewQuestion(w http.ResponseWriter, r *http.Request) {
	vocab, err := h.forum.Vocabulary(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, ViewQuestionNew, Page{
		Title: "Ask a question",
		Data:  QuestionForm{Vocabulary: vocab},
	})
}

// HandleNewQuestion handles POST /question/new.
//
// MULTI-VALUE FORM FIELDS:
// Checkboxes with the same name submit one value each, so
// r.PostForm["category_ids"] is a []string, not a single string.
func (h *ForumHandler) HandleNewQuestion(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := parseForm(w, r); err != nil {
		h.renderError(w, r, err)
		return
	}

	title := r.PostFormValue("title")
	body := r.PostFormValue("body")
	categoryIDs := parseIDs(r.PostForm["category_ids"])
	tagIDs := parseIDs(r.PostForm["tag_ids"])

	_, err := h.forum.CreateQuestion(r.Context(), identity.UserID, title, body, categoryIDs, tagIDs)
	if err != nil {
		vocab, vErr := h.forum.Vocabulary(r.Context())
		if vErr != nil {
			h.renderError(w, r, vErr)
			return
		}
		h.renderForm(w, r, ViewQuestionNew, "Ask a question", err,
			map[string]string{"title": title, "body": body},
			QuestionForm{Vocabulary: vocab, Selected: selected(categoryIDs, tagIDs)},
		)
		return
	}

	http.Redirect(w, r, dashboardPath(identity.UserID), http.StatusSeeOther)
}

// HandleQuestion handles GET /question/{id}.
func (h *ForumHandler) HandleQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.renderNotFound(w, r)
		return
	}

	detail, err := h.forum.GetQuestion(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, ViewQuestion, Page{Title: detail.Question.Title, Data: detail})
}

// ShowNewAnswer handles GET /answer/new?question_id=N.
// The question is loaded so the page can show what is being answered.
func (h *ForumHandler) ShowNewAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("question_id", r.URL.Query().Get("question_id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	detail, err := h.forum.GetQuestion(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, ViewAnswerNew, Page{Title: "Answer", Data: detail})
}

// HandleNewAnswer handles POST /answer/new.
func (h *ForumHandler) HandleNewAnswer(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := parseForm(w, r); err != nil {
		h.renderError(w, r, err)
		return
	}

	questionID, err := parseID("question_id", r.PostFormValue("question_id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	body := r.PostFormValue("body")

	if _, err := h.forum.CreateAnswer(r.Context(), identity.UserID, questionID, body); err != nil {
		// A missing question has no form to go back to.
		detail, gErr := h.forum.GetQuestion(r.Context(), questionID)
		if gErr != nil {
			h.renderError(w, r, err)
			return
		}
		h.renderForm(w, r, ViewAnswerNew, "Answer", err, map[string]string{"body": body}, detail)
		return
	}

	http.Redirect(w, r, dashboardPath(identity.UserID), http.StatusSeeOther)
}

// SearchResults is the view data for the search page.
type SearchResults struct {
	Query     string
	Questions []model.Question
}

// HandleSearch handles GET /search?q=... and shows matching questions.
// An empty query shows the search box with no results.
func (h *ForumHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	questions, err := h.search.SearchQuestions(r.Context(), query)
	if err != nil {
		h.renderForm(w, r, ViewSearch, "Search", err, nil, SearchResults{Query: query, Questions: []model.Question{}})
		return
	}
	h.render(w, r, http.StatusOK, ViewSearch, Page{
		Title: "Search",
		Data:  SearchResults{Query: query, Questions: questions},
	})
}

// NotFound renders the 404 page for routes chi doesn't know.
func (h *ForumHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderNotFound(w, r)
}

func (p pages) renderNotFound(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusNotFound, ViewError, Page{
		Title: http.StatusText(http.StatusNotFound),
		Error: "The page you were looking for doesn't exist.",
		Data:  http.StatusNotFound,
	})
}

func selected(categoryIDs, tagIDs []int64) map[string]bool {
	m := make(map[string]bool, len(categoryIDs)+len(tagIDs))
	for _, id := range categoryIDs {
		m["c"+strconv.FormatInt(id, 10)] = true
	}
	for _, id := range tagIDs {
		m["t"+strconv.FormatInt(id, 10)] = true
	}
	return m
}
