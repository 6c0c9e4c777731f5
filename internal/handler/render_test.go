package handler_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/qa-forum/internal/handler"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/service"
	"github.com/sakif/qa-forum/web"
)

// These tests execute the real embedded templates, so a typo in a field
// name or a broken {{define}} fails here rather than in a browser.
func TestTemplateRenderer_Views(t *testing.T) {
	renderer, err := handler.NewTemplateRenderer(web.Templates())
	require.NoError(t, err)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	question := model.Question{ID: 3, Title: "Why <b>bold</b>?", Body: "Body text", UserID: 5, CreatedAt: created}
	alice := &model.User{ID: 5, Name: "Alice", Email: "a@x.com", CreatedAt: created}
	detail := &service.QuestionDetail{
		Question:   question,
		AuthorName: "Alice",
		Categories: []model.Category{{ID: 1, Name: "Databases"}},
		Tags:       []model.Tag{{ID: 2, Name: "sql"}},
		Answers: []service.AnswerDetail{
			{Answer: model.Answer{ID: 1, Body: "Use JOIN.", UserID: 5, QuestionID: 3, CreatedAt: created}, AuthorName: "Alice"},
		},
	}
	vocab := &service.Vocabulary{
		Categories: []model.Category{{ID: 1, Name: "Databases"}},
		Tags:       []model.Tag{{ID: 2, Name: "sql"}},
	}

	tests := []struct {
		view string
		page handler.Page
		want []string
	}{
		{
			view: handler.ViewIndex,
			page: handler.Page{Title: "Questions", Data: []model.Question{question}},
			want: []string{"/question/3", "Why &lt;b&gt;bold&lt;/b&gt;?", "Log in"},
		},
		{
			view: handler.ViewIndex,
			page: handler.Page{Title: "Questions", Data: []model.Question{}},
			want: []string{"No questions yet."},
		},
		{
			view: handler.ViewRegister,
			page: handler.Page{Title: "Register", Error: "an account with email a@x.com already exists",
				ErrorField: "email", Form: map[string]string{"name": "Alice", "email": "a@x.com"}},
			want: []string{`value="Alice"`, `aria-invalid="true"`, "already exists"},
		},
		{
			view: handler.ViewLogin,
			page: handler.Page{Title: "Log in"},
			want: []string{`action="/login"`, `name="password"`},
		},
		{
			view: handler.ViewDashboard,
			page: handler.Page{Title: "Alice", CurrentUserID: 5,
				Data: &service.Dashboard{User: alice, Questions: []model.Question{question}}},
			want: []string{"<h1>Alice</h1>", "/answer/new?question_id=3", "Log out", "/dashboard/5"},
		},
		{
			view: handler.ViewQuestionNew,
			page: handler.Page{Title: "Ask", CurrentUserID: 5,
				Data: handler.QuestionForm{Vocabulary: vocab, Selected: map[string]bool{"c1": true}}},
			want: []string{`name="category_ids" value="1"`, "checked", `name="tag_ids" value="2"`},
		},
		{
			view: handler.ViewQuestion,
			page: handler.Page{Title: question.Title, Data: detail},
			want: []string{"Asked by Alice", "Use JOIN.", "1 answer<", "#sql", "Databases"},
		},
		{
			view: handler.ViewAnswerNew,
			page: handler.Page{Title: "Answer", CurrentUserID: 5, Data: detail},
			want: []string{`name="question_id" value="3"`, `action="/answer/new"`},
		},
		{
			view: handler.ViewSearch,
			page: handler.Page{Title: "Search", Data: handler.SearchResults{Query: "bold", Questions: []model.Question{question}}},
			want: []string{`value="bold"`, "/question/3"},
		},
		{
			view: handler.ViewSearch,
			page: handler.Page{Title: "Search", Data: handler.SearchResults{Query: "rust", Questions: []model.Question{}}},
			want: []string{"No questions match"},
		},
		{
			view: handler.ViewError,
			page: handler.Page{Title: "Not Found", Error: "question not found with id 9", Data: 404},
			want: []string{"404", "question not found with id 9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderer.Render(&buf, tt.view, tt.page))

			html := buf.String()
			assert.Contains(t, html, "<!DOCTYPE html>")
			for _, want := range tt.want {
				assert.Contains(t, html, want)
			}
		})
	}
}

func TestTemplateRenderer_UnknownView(t *testing.T) {
	renderer, err := handler.NewTemplateRenderer(web.Templates())
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Error(t, renderer.Render(&buf, "missing", handler.Page{}))
}
