package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/auth"
	"github.com/sakif/qa-forum/internal/model"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is an in-memory implementation of every repository interface.
// A hand-written fake keeps the tests readable: you can see exactly what
// "the database" does. Each *Err field simulates a store failure for the
// method it names.

type fakeStore struct {
	mu sync.Mutex

	users      map[int64]*model.User
	questions  map[int64]*model.Question
	answers    []model.Answer
	categories []model.Category
	tags       []model.Tag
	qCats      []model.QuestionCategory
	qTags      []model.QuestionTag
	sessions   map[string]*model.Session
	nextID     int64

	createUserErr    error
	listQuestionsErr error
	createSessionErr error
	getSessionErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[int64]*model.User),
		questions: make(map[int64]*model.Question),
		sessions:  make(map[string]*model.Session),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

// --- users ---

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createUserErr != nil {
		return f.createUserErr
	}
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperror.DuplicateEmail(u.Email)
		}
	}
	u.ID = f.id()
	u.CreatedAt = time.Now().UTC()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

// --- questions ---

func (f *fakeStore) CreateQuestion(_ context.Context, q *model.Question, categoryIDs, tagIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[q.UserID]; !ok {
		return apperror.NotFound("user", q.UserID)
	}
	q.ID = f.id()
	q.CreatedAt = time.Now().UTC()
	stored := *q
	f.questions[q.ID] = &stored

	for _, cid := range categoryIDs {
		if f.hasCategory(cid) && !f.linkedCategory(q.ID, cid) {
			f.qCats = append(f.qCats, model.QuestionCategory{QuestionID: q.ID, CategoryID: cid})
		}
	}
	for _, tid := range tagIDs {
		if f.hasTag(tid) && !f.linkedTag(q.ID, tid) {
			f.qTags = append(f.qTags, model.QuestionTag{QuestionID: q.ID, TagID: tid})
		}
	}
	return nil
}

func (f *fakeStore) hasCategory(id int64) bool {
	for _, c := range f.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (f *fakeStore) hasTag(id int64) bool {
	for _, t := range f.tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (f *fakeStore) linkedCategory(qid, cid int64) bool {
	for _, l := range f.qCats {
		if l.QuestionID == qid && l.CategoryID == cid {
			return true
		}
	}
	return false
}

func (f *fakeStore) linkedTag(qid, tid int64) bool {
	for _, l := range f.qTags {
		if l.QuestionID == qid && l.TagID == tid {
			return true
		}
	}
	return false
}

func (f *fakeStore) GetQuestionByID(_ context.Context, id int64) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, apperror.NotFound("question", id)
	}
	result := *q
	return &result, nil
}

func (f *fakeStore) ListQuestions(_ context.Context) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listQuestionsErr != nil {
		return nil, f.listQuestionsErr
	}
	return f.sortedQuestions(func(model.Question) bool { return true }), nil
}

func (f *fakeStore) SearchQuestionsByTitle(_ context.Context, substring string) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	needle := strings.ToLower(substring)
	return f.sortedQuestions(func(q model.Question) bool {
		return strings.Contains(strings.ToLower(q.Title), needle)
	}), nil
}

// sortedQuestions returns matching questions newest first (highest id).
func (f *fakeStore) sortedQuestions(keep func(model.Question) bool) []model.Question {
	out := []model.Question{}
	for _, q := range f.questions {
		if keep(*q) {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeStore) ListQuestionCategories(_ context.Context, qid int64) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Category
	for _, c := range f.categories {
		if f.linkedCategory(qid, c.ID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListQuestionTags(_ context.Context, qid int64) ([]model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Tag
	for _, t := range f.tags {
		if f.linkedTag(qid, t.ID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- answers ---

func (f *fakeStore) CreateAnswer(_ context.Context, a *model.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.questions[a.QuestionID]; !ok {
		return apperror.NotFound("question", a.QuestionID)
	}
	if _, ok := f.users[a.UserID]; !ok {
		return apperror.NotFound("user", a.UserID)
	}
	a.ID = f.id()
	a.CreatedAt = time.Now().UTC()
	f.answers = append(f.answers, *a)
	return nil
}

func (f *fakeStore) ListAnswersByQuestion(_ context.Context, qid int64) ([]model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Answer{}
	for _, a := range f.answers {
		if a.QuestionID == qid {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- vocabulary ---

func (f *fakeStore) SeedVocabulary(_ context.Context, categories, tags []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var inserted int64
	for _, name := range categories {
		if !containsName(f.categories, name, func(c model.Category) string { return c.Name }) {
			f.categories = append(f.categories, model.Category{ID: f.id(), Name: name})
			inserted++
		}
	}
	for _, name := range tags {
		if !containsName(f.tags, name, func(t model.Tag) string { return t.Name }) {
			f.tags = append(f.tags, model.Tag{ID: f.id(), Name: name})
			inserted++
		}
	}
	return inserted, nil
}

func containsName[T any](items []T, name string, nameOf func(T) string) bool {
	for _, item := range items {
		if nameOf(item) == name {
			return true
		}
	}
	return false
}

func (f *fakeStore) ListCategories(_ context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Category(nil), f.categories...), nil
}

func (f *fakeStore) ListTags(_ context.Context) ([]model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Tag(nil), f.tags...), nil
}

// --- sessions ---

func (f *fakeStore) CreateSession(_ context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createSessionErr != nil {
		return f.createSessionErr
	}
	stored := *s
	f.sessions[s.ID] = &stored
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	result := *s
	return &result, nil
}

func (f *fakeStore) RevokeSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return apperror.NotFound("session", id)
	}
	if s.RevokedAt == nil {
		now := time.Now().UTC()
		s.RevokedAt = &now
	}
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

// discardLogger drops everything; service tests assert on return values.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAuthService wires an AuthService to store with a fixed JWT secret
// and the minimum bcrypt cost.
func newTestAuthService(t *testing.T, store *fakeStore) *AuthService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	ps := auth.NewPasswordServiceWithCost(bcrypt.MinCost)
	return NewAuthService(store, store, ts, ps, time.Hour, discardLogger())
}

func newTestContentService(store *fakeStore) *ContentService {
	return NewContentService(store, store, store, store, discardLogger())
}

// mustRegister registers a user and fails the test if it errors.
func mustRegister(t *testing.T, svc *AuthService, name, email string) *model.User {
	t.Helper()
	u, err := svc.Register(context.Background(), name, email, "password123")
	if err != nil {
		t.Fatalf("Register(%q) error = %v", email, err)
	}
	return u
}
