package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/repository"
)

var _ repository.QuestionRepository = (*DB)(nil)

const questionColumns = `id, title, body, user_id, created_at`

// CreateQuestion inserts a question and its category/tag associations in a
// single transaction, so a question is never visible without its join rows.
//
// RESOLVING IDS:
// The join rows are written with INSERT ... SELECT from the vocabulary table.
// An id with no matching category or tag selects zero rows and therefore
// inserts nothing, which is how unknown ids get dropped without an error.
// Duplicate ids are removed first; the composite primary key would reject
// them otherwise.
func (db *DB) CreateQuestion(ctx context.Context, q *model.Question, categoryIDs, tagIDs []int64) error {
	q.CreatedAt = db.now()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO questions (title, body, user_id, created_at)
			 VALUES (?, ?, ?, ?)`,
			q.Title,
			q.Body,
			q.UserID,
			q.CreatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", q.UserID)
			}
			return fmt.Errorf("sqlite: inserting question: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading question id: %w", err)
		}

		for _, link := range categoryLinks(id, categoryIDs) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO question_categories (question_id, category_id)
				 SELECT ?, id FROM categories WHERE id = ?`,
				link.QuestionID, link.CategoryID,
			); err != nil {
				return fmt.Errorf("sqlite: linking question %d to category %d: %w", id, link.CategoryID, err)
			}
		}

		for _, link := range tagLinks(id, tagIDs) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO question_tags (question_id, tag_id)
				 SELECT ?, id FROM tags WHERE id = ?`,
				link.QuestionID, link.TagID,
			); err != nil {
				return fmt.Errorf("sqlite: linking question %d to tag %d: %w", id, link.TagID, err)
			}
		}

		q.ID = id
		return nil
	})
}

// GetQuestionByID returns apperror.ErrNotFound if the question does not exist.
func (db *DB) GetQuestionByID(ctx context.Context, id int64) (*model.Question, error) {
	var q model.Question
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.Title, &q.Body, &q.UserID, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %d: %w", id, err)
	}
	return &q, nil
}

// ListQuestions returns every question, newest first. Ties on created_at
// fall back to id so the order is stable.
func (db *DB) ListQuestions(ctx context.Context) ([]model.Question, error) {
	return db.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions
		 ORDER BY created_at DESC, id DESC`)
}

// SearchQuestionsByTitle returns questions whose title contains substring.
//
// LIKE is case-insensitive for ASCII letters in SQLite, so "why" matches
// "Why?". The substring is escaped so that % and _ typed by a user are
// matched literally instead of acting as wildcards.
func (db *DB) SearchQuestionsByTitle(ctx context.Context, substring string) ([]model.Question, error) {
	pattern := "%" + escapeLike(substring) + "%"
	return db.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE title LIKE ? ESCAPE '\'
		 ORDER BY created_at DESC, id DESC`,
		pattern,
	)
}

func (db *DB) queryQuestions(ctx context.Context, query string, args ...any) ([]model.Question, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Title, &q.Body, &q.UserID, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}

	return questions, nil
}

// ListQuestionCategories returns the categories linked to a question, by name.
func (db *DB) ListQuestionCategories(ctx context.Context, questionID int64) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.name
		 FROM categories c
		 JOIN question_categories qc ON qc.category_id = c.id
		 WHERE qc.question_id = ?
		 ORDER BY c.name`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories of question %d: %w", questionID, err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListQuestionTags returns the tags linked to a question, by name.
func (db *DB) ListQuestionTags(ctx context.Context, questionID int64) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.name
		 FROM tags t
		 JOIN question_tags qt ON qt.tag_id = t.id
		 WHERE qt.question_id = ?
		 ORDER BY t.name`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags of question %d: %w", questionID, err)
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// categoryLinks builds the join records for a new question, one per
// distinct category id.
func categoryLinks(questionID int64, categoryIDs []int64) []model.QuestionCategory {
	ids := uniqueIDs(categoryIDs)
	links := make([]model.QuestionCategory, 0, len(ids))
	for _, id := range ids {
		links = append(links, model.QuestionCategory{QuestionID: questionID, CategoryID: id})
	}
	return links
}

func tagLinks(questionID int64, tagIDs []int64) []model.QuestionTag {
	ids := uniqueIDs(tagIDs)
	links := make([]model.QuestionTag, 0, len(ids))
	for _, id := range ids {
		links = append(links, model.QuestionTag{QuestionID: questionID, TagID: id})
	}
	return links
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
