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

var _ repository.SessionRepository = (*DB)(nil)

// CreateSession stores a new login session. ID, UserID and ExpiresAt are
// chosen by the caller; CreatedAt is filled in here if unset.
func (db *DB) CreateSession(ctx context.Context, s *model.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = db.now()
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, user_id, created_at, expires_at)
			 VALUES (?, ?, ?, ?)`,
			s.ID,
			s.UserID,
			s.CreatedAt,
			s.ExpiresAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("user", s.UserID)
			}
			if isUniqueViolation(err) {
				return apperror.DuplicateEntry("session", s.ID)
			}
			return fmt.Errorf("sqlite: inserting session: %w", err)
		}
		return nil
	})
}

func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var (
		s         model.Session
		revokedAt sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at, revoked_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	return &s, nil
}

// RevokeSession marks a session as logged out. Revoking an already revoked
// session keeps the original revocation time.
func (db *DB) RevokeSession(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE sessions SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
			db.now(), id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: revoking session: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("session", id)
		}
		return nil
	})
}
