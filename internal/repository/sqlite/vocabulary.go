package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/qa-forum/internal/model"
	"github.com/sakif/qa-forum/internal/repository"
)

var _ repository.VocabularyRepository = (*DB)(nil)

// SeedVocabulary inserts the given category and tag names, skipping any that
// already exist. ON CONFLICT DO NOTHING turns a duplicate name into a no-op
// instead of an error, which makes seeding safe to repeat on every start and
// safe against another process seeding at the same time.
//
// Blank names are ignored. The returned count is the number of rows actually
// inserted.
func (db *DB) SeedVocabulary(ctx context.Context, categories, tags []string) (int64, error) {
	var inserted int64

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		n, err := seedNames(ctx, tx, "categories", categories)
		if err != nil {
			return err
		}
		inserted += n

		n, err = seedNames(ctx, tx, "tags", tags)
		if err != nil {
			return err
		}
		inserted += n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// seedNames only ever receives the two table names above, never user input.
func seedNames(ctx context.Context, tx *sql.Tx, table string, names []string) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, table))
	if err != nil {
		return 0, fmt.Errorf("sqlite: preparing %s seed: %w", table, err)
	}
	defer stmt.Close()

	var inserted int64
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		result, err := stmt.ExecContext(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("sqlite: seeding %s %q: %w", table, name, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

// ListCategories returns all categories ordered by name.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
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

// ListTags returns all tags ordered by name.
func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
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
