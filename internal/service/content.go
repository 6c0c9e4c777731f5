// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
// In a well-structured Go web app, code is organised into three layers:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// WHY A SEPARATE SERVICE LAYER?
//
//  1. TESTING: business rules are tested with plain Go function calls and
//     in-memory fakes, no HTTP requests or database needed.
//
//  2. SEPARATION: handlers only know about HTTP (status codes, forms, JSON).
//     Services only know about forum rules. Neither knows SQL.
//
// DEPENDENCY INJECTION:
// Services take repository interfaces, NOT a *sqlite.DB. In production one
// *sqlite.DB satisfies all of them; tests pass fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/repository"
	"github.com/sakif/qa-forum/internal/validation"
)

// Validation limits.
const (
	MaxTitleLength = 200
	MaxBodyLength  = 20000
)

// DefaultCategories and DefaultTags are seeded at startup unless the
// configuration overrides them.
var (
	DefaultCategories = []string{"General", "Programming", "Databases", "Web Development", "DevOps"}
	DefaultTags       = []string{"beginner", "go", "python", "sql", "performance", "security"}
)

// ContentService handles questions, answers, and the category/tag vocabulary.
type ContentService struct {
	users      repository.UserRepository
	questions  repository.QuestionRepository
	answers    repository.AnswerRepository
	vocabulary repository.VocabularyRepository
	validate   *validation.Validator
	logger     *slog.Logger
}

// NewContentService creates a ContentService.
func NewContentService(
	users repository.UserRepository,
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	vocabulary repository.VocabularyRepository,
	logger *slog.Logger,
) *ContentService {
	return &ContentService{
		users:      users,
		questions:  questions,
		answers:    answers,
		vocabulary: vocabulary,
		validate:   validation.New(),
		logger:     logger,
	}
}

// QuestionDetail is everything the question page shows. Authors appear by
// display name only; the detail is served to anonymous visitors.
type QuestionDetail struct {
	Question   model.Question   `json:"question"`
	AuthorName string           `json:"authorName"`
	Categories []model.Category `json:"categories"`
	Tags       []model.Tag      `json:"tags"`
	Answers    []AnswerDetail   `json:"answers"`
}

// AnswerDetail is an answer plus its author's display name.
type AnswerDetail struct {
	model.Answer
	AuthorName string `json:"authorName"`
}

// Vocabulary is the full list of categories and tags, used to build the
// new-question form.
type Vocabulary struct {
	Categories []model.Category `json:"categories"`
	Tags       []model.Tag      `json:"tags"`
}

// Dashboard is a user's landing page after login.
type Dashboard struct {
	User      *model.User      `json:"user"`
	Questions []model.Question `json:"questions"`
}

type newQuestion struct {
	Title string `form:"title" validate:"notblank,max=200"`
	Body  string `form:"body" validate:"notblank,max=20000"`
}

type newAnswer struct {
	Body string `form:"body" validate:"notblank,max=20000"`
}

// CreateQuestion validates and saves a question with its categories and tags.
//
// Category and tag ids that don't exist are dropped rather than rejected, and
// repeated ids count once. The question and all its join rows are written in
// one transaction by the repository.
//
// Returns apperror.ErrValidation for a blank title or body and
// apperror.ErrNotFound if authorID is not a user.
func (s *ContentService) CreateQuestion(ctx context.Context, authorID int64, title, body string, categoryIDs, tagIDs []int64) (*model.Question, error) {
	in := newQuestion{Title: strings.TrimSpace(title), Body: strings.TrimSpace(body)}
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	q := &model.Question{
		Title:  in.Title,
		Body:   in.Body,
		UserID: authorID,
	}
	if err := s.questions.CreateQuestion(ctx, q, categoryIDs, tagIDs); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/content: creating question: %w", err)
	}

	s.logger.Info("question created",
		slog.Int64("questionID", q.ID),
		slog.Int64("userID", authorID),
		slog.Int("categories", len(categoryIDs)),
		slog.Int("tags", len(tagIDs)),
	)
	return q, nil
}

// ListQuestions returns every question, newest first. An empty forum yields
// an empty slice, never nil.
func (s *ContentService) ListQuestions(ctx context.Context) ([]model.Question, error) {
	questions, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/content: listing questions: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// GetQuestion loads a question with its author, categories, tags, and
// answers (oldest first).
func (s *ContentService) GetQuestion(ctx context.Context, id int64) (*QuestionDetail, error) {
	q, err := s.questions.GetQuestionByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/content: getting question %d: %w", id, err)
	}

	author, err := s.users.GetUserByID(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/content: getting author of question %d: %w", id, err)
	}

	categories, err := s.questions.ListQuestionCategories(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/content: %w", err)
	}
	tags, err := s.questions.ListQuestionTags(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/content: %w", err)
	}
	answers, err := s.answers.ListAnswersByQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/content: %w", err)
	}

	// Threads usually have a handful of distinct authors; look each up once.
	names := map[int64]string{author.ID: author.Name}
	details := make([]AnswerDetail, 0, len(answers))
	for _, a := range answers {
		name, ok := names[a.UserID]
		if !ok {
			u, err := s.users.GetUserByID(ctx, a.UserID)
			if err != nil {
				return nil, fmt.Errorf("service/content: getting author of answer %d: %w", a.ID, err)
			}
			name = u.Name
			names[a.UserID] = name
		}
		details = append(details, AnswerDetail{Answer: a, AuthorName: name})
	}

	return &QuestionDetail{
		Question:   *q,
		AuthorName: author.Name,
		Categories: nonNil(categories),
		Tags:       nonNil(tags),
		Answers:    details,
	}, nil
}

// CreateAnswer validates and saves an answer.
//
// Returns apperror.ErrNotFound when the question or the author does not
// exist. The existence checks run inside the insert transaction, so a
// missing question never leaves an orphaned answer behind.
func (s *ContentService) CreateAnswer(ctx context.Context, authorID, questionID int64, body string) (*model.Answer, error) {
	in := newAnswer{Body: strings.TrimSpace(body)}
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	a := &model.Answer{
		Body:       in.Body,
		UserID:     authorID,
		QuestionID: questionID,
	}
	if err := s.answers.CreateAnswer(ctx, a); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/content: creating answer: %w", err)
	}

	s.logger.Info("answer created",
		slog.Int64("answerID", a.ID),
		slog.Int64("questionID", questionID),
		slog.Int64("userID", authorID),
	)
	return a, nil
}

// SeedVocabulary inserts any category and tag names that are not already
// present. Running it again with the same names changes nothing.
func (s *ContentService) SeedVocabulary(ctx context.Context, categories, tags []string) error {
	inserted, err := s.vocabulary.SeedVocabulary(ctx, categories, tags)
	if err != nil {
		return fmt.Errorf("service/content: seeding vocabulary: %w", err)
	}

	s.logger.Info("vocabulary seeded",
		slog.Int64("inserted", inserted),
		slog.Int("categories", len(categories)),
		slog.Int("tags", len(tags)),
	)
	return nil
}

// Vocabulary returns all categories and tags, each ordered by name.
func (s *ContentService) Vocabulary(ctx context.Context) (*Vocabulary, error) {
	categories, err := s.vocabulary.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/content: %w", err)
	}
	tags, err := s.vocabulary.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/content: %w", err)
	}
	return &Vocabulary{Categories: nonNil(categories), Tags: nonNil(tags)}, nil
}

// Dashboard returns the user together with every question in the forum.
func (s *ContentService) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/content: getting user %d: %w", userID, err)
	}

	questions, err := s.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{User: user, Questions: questions}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
