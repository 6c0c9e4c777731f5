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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, email, password_hash, created_at`

// CreateUser inserts a new user and fills in ID and CreatedAt. Both are set
// only once the insert has committed; on error user is left as it was.
//
// Uniqueness is left to the UNIQUE constraint on users.email instead of a
// SELECT-then-INSERT: with two concurrent registrations both SELECTs could
// see no row, but only one INSERT can commit.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	createdAt := db.now()

	var id int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO users (name, email, password_hash, created_at)
			 VALUES (?, ?, ?, ?)`,
			user.Name,
			user.Email,
			user.PasswordHash,
			createdAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.DuplicateEmail(user.Email)
			}
			return fmt.Errorf("sqlite: inserting user: %w", err)
		}

		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading user id: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	user.ID = id
	user.CreatedAt = createdAt
	return nil
}

// GetUserByID retrieves a user by ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail looks a user up by email. The column is COLLATE NOCASE, so
// the match ignores ASCII case.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("user not found with email %s", email),
			}
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
