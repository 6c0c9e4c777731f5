// Package handler contains the HTTP request handlers for the forum.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, a function with the right signature (http.HandlerFunc).
// Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming HTTP request (path params, query, form body)
//  2. Call the service layer
//  3. Write the HTTP response: a rendered page, a redirect, or JSON
//
// Handlers should NOT contain business logic. They are the glue between HTTP
// and the services.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/qa-forum/internal/auth"
)

// Renderer turns a view name and its data into a response body.
// TemplateRenderer is the production implementation; handler tests use a
// recording fake so they can assert on WHAT was rendered without parsing HTML.
type Renderer interface {
	Render(w io.Writer, view string, data any) error
}

// Views rendered by the handlers. Each one is a templates/<name>.html file
// that fills the "content" block of templates/base.html.
const (
	ViewIndex       = "index"
	ViewRegister    = "register"
	ViewLogin       = "login"
	ViewDashboard   = "dashboard"
	ViewQuestionNew = "question_new"
	ViewQuestion    = "question"
	ViewAnswerNew   = "answer_new"
	ViewSearch      = "search"
	ViewError       = "error"
)

var allViews = []string{
	ViewIndex, ViewRegister, ViewLogin, ViewDashboard, ViewQuestionNew,
	ViewQuestion, ViewAnswerNew, ViewSearch, ViewError,
}

// TemplateRenderer renders html/template views parsed once at startup.
//
// TEMPLATE COMPOSITION:
// Every view is parsed into its OWN template set together with base.html:
//   - base.html defines the page shell with {{template "content" .}}
//   - <view>.html defines {{define "content"}}...{{end}}
//
// One set per view is needed because every page defines the same "content"
// name; parsing them all into one set would let the last file win.
type TemplateRenderer struct {
	views map[string]*template.Template
}

// NewTemplateRenderer parses base.html plus every view from fsys. fsys is
// rooted at the templates directory (see web.Templates).
func NewTemplateRenderer(fsys fs.FS) (*TemplateRenderer, error) {
	funcs := template.FuncMap{
		"fmtTime": func(t time.Time) string { return t.Format("2 Jan 2006 15:04") },
	}

	views := make(map[string]*template.Template, len(allViews))
	for _, name := range allViews {
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(fsys, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("handler: parsing view %s: %w", name, err)
		}
		views[name] = tmpl
	}
	return &TemplateRenderer{views: views}, nil
}

// Render executes the "base" template of the named view.
func (r *TemplateRenderer) Render(w io.Writer, view string, data any) error {
	tmpl, ok := r.views[view]
	if !ok {
		return fmt.Errorf("handler: unknown view %q", view)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Page is the data every view receives. Views read their own payload from
// Data; the layout reads the rest.
type Page struct {
	Title string

	// CurrentUserID is 0 for anonymous visitors; the layout shows login
	// links or a logout button based on it.
	CurrentUserID int64

	// Error is a user-facing message shown above the form, and ErrorField
	// names the input it refers to (may be empty).
	Error      string
	ErrorField string

	// Form echoes submitted values back after a failed POST so the user
	// doesn't have to retype them. Passwords are never echoed.
	Form map[string]string

	Data any
}

// pages bundles what every HTML handler needs to render a response.
type pages struct {
	renderer Renderer
	logger   *slog.Logger
}

// render writes a full page with the given status.
//
// BUFFERED RENDERING:
// The template is executed into a buffer first. If execution fails halfway,
// nothing has been sent yet, so the client gets a clean 500 instead of half
// a page with a 200 status.
func (p pages) render(w http.ResponseWriter, r *http.Request, status int, view string, page Page) {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		page.CurrentUserID = identity.UserID
	}

	var buf bytes.Buffer
	if err := p.renderer.Render(&buf, view, page); err != nil {
		p.logger.Error("failed to render template",
			slog.String("view", view),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError shows the error page for err with the mapped status code.
func (p pages) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := p.classify(r, err)
	p.render(w, r, status, ViewError, Page{
		Title: http.StatusText(status),
		Error: message,
		Data:  status,
	})
}

// renderForm re-renders a form view after a failed submission, keeping the
// user's input and pointing at the offending field.
func (p pages) renderForm(w http.ResponseWriter, r *http.Request, view, title string, err error, form map[string]string, data any) {
	status, message := p.classify(r, err)
	p.render(w, r, status, view, Page{
		Title:      title,
		Error:      message,
		ErrorField: errorField(err),
		Form:       form,
		Data:       data,
	})
}

// classify maps err to a status and message and logs unexpected failures,
// which are the only ones whose detail is hidden from the user.
func (p pages) classify(r *http.Request, err error) (int, string) {
	status, _, message := classifyError(err)
	if status == http.StatusInternalServerError {
		p.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	return status, message
}
