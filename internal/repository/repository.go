// Package repository declares the storage contracts the services depend on.
//
// Implementations live in sub-packages (sqlite for everything, redis for
// sessions). Every write method is atomic: it either commits all of its rows
// or none of them.
package repository

import (
	"context"

	"github.com/sakif/qa-forum/internal/model"
)

type UserRepository interface {
	// CreateUser inserts the user and fills in ID and CreatedAt.
	// Returns apperror.ErrDuplicateEmail if the email is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type QuestionRepository interface {
	// CreateQuestion inserts the question plus one join row per category/tag
	// id that resolves to an existing row. Unknown ids are skipped.
	CreateQuestion(ctx context.Context, q *model.Question, categoryIDs, tagIDs []int64) error
	GetQuestionByID(ctx context.Context, id int64) (*model.Question, error)
	ListQuestions(ctx context.Context) ([]model.Question, error)
	SearchQuestionsByTitle(ctx context.Context, substring string) ([]model.Question, error)
	ListQuestionCategories(ctx context.Context, questionID int64) ([]model.Category, error)
	ListQuestionTags(ctx context.Context, questionID int64) ([]model.Tag, error)
}

type AnswerRepository interface {
	// CreateAnswer returns apperror.ErrNotFound when the question or the
	// author does not exist; no row is written in that case.
	CreateAnswer(ctx context.Context, a *model.Answer) error
	ListAnswersByQuestion(ctx context.Context, questionID int64) ([]model.Answer, error)
}

type VocabularyRepository interface {
	// SeedVocabulary inserts every name that is not already present and
	// reports how many rows were added.
	SeedVocabulary(ctx context.Context, categories, tags []string) (int64, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, s *model.Session) error
	// GetSession returns apperror.ErrNotFound for unknown or purged ids.
	GetSession(ctx context.Context, id string) (*model.Session, error)
	RevokeSession(ctx context.Context, id string) error
}
