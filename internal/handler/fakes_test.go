package handler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/handler"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/service"
)

// recordingRenderer captures what a handler asked to render instead of
// executing templates, so tests can assert on the view and its data.
type recordingRenderer struct {
	view string
	page handler.Page
	err  error
}

func (r *recordingRenderer) Render(w io.Writer, view string, data any) error {
	if r.err != nil {
		return r.err
	}
	r.view = view
	r.page, _ = data.(handler.Page)
	_, err := fmt.Fprintf(w, "view:%s", view)
	return err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =========================================================================
// fakeAuth
// =========================================================================

type fakeAuth struct {
	registerErr error
	registered  []string

	authResult *service.AuthResult
	authErr    error

	logoutErr error
	loggedOut []string
	users     map[int64]*model.User
}

func (f *fakeAuth) Register(_ context.Context, name, email, password string) (*model.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, name+"|"+email+"|"+password)
	return &model.User{ID: 1, Name: name, Email: email}, nil
}

func (f *fakeAuth) Authenticate(_ context.Context, email, password string) (*service.AuthResult, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.authResult, nil
}

func (f *fakeAuth) LogoutToken(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return f.logoutErr
}

func (f *fakeAuth) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

// =========================================================================
// fakeForum
// =========================================================================

type createdQuestion struct {
	authorID    int64
	title, body string
	categoryIDs []int64
	tagIDs      []int64
}

type createdAnswer struct {
	authorID, questionID int64
	body                 string
}

type fakeForum struct {
	questions []model.Question
	details   map[int64]*service.QuestionDetail
	vocab     *service.Vocabulary
	listErr   error

	createQuestionErr error
	createdQuestions  []createdQuestion

	createAnswerErr error
	createdAnswers  []createdAnswer
}

func newFakeForum() *fakeForum {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := model.Question{ID: 3, Title: "Why is the sky blue?", Body: "Asking for a friend.", UserID: 5, CreatedAt: now}
	return &fakeForum{
		questions: []model.Question{q},
		details: map[int64]*service.QuestionDetail{
			3: {
				Question:   q,
				AuthorName: "Alice",
				Categories: []model.Category{{ID: 1, Name: "General"}},
				Tags:       []model.Tag{},
				Answers:    []service.AnswerDetail{},
			},
		},
		vocab: &service.Vocabulary{
			Categories: []model.Category{{ID: 1, Name: "General"}, {ID: 2, Name: "Databases"}},
			Tags:       []model.Tag{{ID: 1, Name: "go"}},
		},
	}
}

func (f *fakeForum) CreateQuestion(_ context.Context, authorID int64, title, body string, categoryIDs, tagIDs []int64) (*model.Question, error) {
	if f.createQuestionErr != nil {
		return nil, f.createQuestionErr
	}
	f.createdQuestions = append(f.createdQuestions, createdQuestion{authorID, title, body, categoryIDs, tagIDs})
	return &model.Question{ID: 10, Title: title, Body: body, UserID: authorID}, nil
}

func (f *fakeForum) ListQuestions(context.Context) ([]model.Question, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.questions, nil
}

func (f *fakeForum) GetQuestion(_ context.Context, id int64) (*service.QuestionDetail, error) {
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, apperror.NotFound("question", id)
}

func (f *fakeForum) CreateAnswer(_ context.Context, authorID, questionID int64, body string) (*model.Answer, error) {
	if f.createAnswerErr != nil {
		return nil, f.createAnswerErr
	}
	if _, ok := f.details[questionID]; !ok {
		return nil, apperror.NotFound("question", questionID)
	}
	f.createdAnswers = append(f.createdAnswers, createdAnswer{authorID, questionID, body})
	return &model.Answer{ID: 1, Body: body, UserID: authorID, QuestionID: questionID}, nil
}

func (f *fakeForum) Vocabulary(context.Context) (*service.Vocabulary, error) {
	return f.vocab, nil
}

func (f *fakeForum) Dashboard(_ context.Context, userID int64) (*service.Dashboard, error) {
	if userID != 5 {
		return nil, apperror.NotFound("user", userID)
	}
	return &service.Dashboard{User: &model.User{ID: 5, Name: "Alice"}, Questions: f.questions}, nil
}

// =========================================================================
// fakeSearch
// =========================================================================

type fakeSearch struct {
	questions []model.Question
}

func (f *fakeSearch) SearchQuestions(_ context.Context, query string) ([]model.Question, error) {
	query = strings.TrimSpace(query)
	if len(query) > service.MaxTitleLength {
		return nil, apperror.ValidationFailed("q", "search query is too long")
	}
	found := []model.Question{}
	if query == "" {
		return found, nil
	}
	for _, q := range f.questions {
		if strings.Contains(strings.ToLower(q.Title), strings.ToLower(query)) {
			found = append(found, q)
		}
	}
	return found, nil
}

// fakePinger reports err from every Ping.
type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }
