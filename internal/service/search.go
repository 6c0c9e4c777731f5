package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/repository"
)

// SearchService looks questions up by title.
type SearchService struct {
	questions repository.QuestionRepository
	logger    *slog.Logger
}

func NewSearchService(questions repository.QuestionRepository, logger *slog.Logger) *SearchService {
	return &SearchService{questions: questions, logger: logger}
}

// SearchQuestions returns the questions whose title contains query, newest
// first.
//
// MATCHING RULES:
//   - Case-insensitive for ASCII letters ("GO" finds "Go channels")
//   - % and _ are literal characters, not wildcards
//   - Leading and trailing spaces are ignored
//   - A blank query matches nothing and returns an empty slice
func (s *SearchService) SearchQuestions(ctx context.Context, query string) ([]model.Question, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Question{}, nil
	}
	if utf8.RuneCountInString(query) > MaxTitleLength {
		return nil, apperror.ValidationFailed("q",
			fmt.Sprintf("search text must be %d characters or less", MaxTitleLength))
	}

	results, err := s.questions.SearchQuestionsByTitle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("service/search: searching %q: %w", query, err)
	}

	s.logger.Debug("search",
		slog.String("query", query),
		slog.Int("results", len(results)),
	)
	return nonNil(results), nil
}
