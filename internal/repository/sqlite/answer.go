package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/repository"
)

var _ repository.AnswerRepository = (*DB)(nil)

// CreateAnswer inserts an answer after confirming, inside the same
// transaction, that both the question and the author exist.
//
// The explicit checks let us say WHICH reference is missing. The foreign keys
// still guard the insert, and a violation there is reported as the question
// being missing since that is the only reference a client chooses freely.
func (db *DB) CreateAnswer(ctx context.Context, a *model.Answer) error {
	a.CreatedAt = db.now()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := rowExists(ctx, tx, `SELECT 1 FROM questions WHERE id = ?`, a.QuestionID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("question", a.QuestionID)
			}
			return fmt.Errorf("sqlite: checking question %d: %w", a.QuestionID, err)
		}
		if err := rowExists(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, a.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("user", a.UserID)
			}
			return fmt.Errorf("sqlite: checking user %d: %w", a.UserID, err)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO answers (body, user_id, question_id, created_at)
			 VALUES (?, ?, ?, ?)`,
			a.Body,
			a.UserID,
			a.QuestionID,
			a.CreatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("question", a.QuestionID)
			}
			return fmt.Errorf("sqlite: inserting answer: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading answer id: %w", err)
		}
		a.ID = id
		return nil
	})
}

// ListAnswersByQuestion returns a question's answers, oldest first, so a
// thread reads top to bottom.
func (db *DB) ListAnswersByQuestion(ctx context.Context, questionID int64) ([]model.Answer, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, body, user_id, question_id, created_at
		 FROM answers
		 WHERE question_id = ?
		 ORDER BY created_at ASC, id ASC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers of question %d: %w", questionID, err)
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.Body, &a.UserID, &a.QuestionID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer row: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}

	return answers, nil
}

func rowExists(ctx context.Context, tx *sql.Tx, query string, id int64) error {
	var one int
	return tx.QueryRowContext(ctx, query, id).Scan(&one)
}
