// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the forum builds without a C
// toolchain and tests can run against a real engine (":memory:" or a temp
// file) instead of fakes.
//
// CONNECTION SETTINGS:
// PRAGMAs such as foreign_keys are per-connection in SQLite, and database/sql
// keeps a pool of connections. Running "PRAGMA foreign_keys=ON" once after
// sql.Open would only configure whichever connection happened to run it.
// Passing them as _pragma DSN parameters makes the driver apply them to every
// connection it opens.
//
// _txlock=immediate makes BeginTx issue BEGIN IMMEDIATE, so a transaction
// takes the write lock up front. Combined with busy_timeout, two concurrent
// registrations for the same email queue up on the lock instead of failing
// with SQLITE_BUSY; the second one then sees the first one's row and hits the
// UNIQUE constraint.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface except the Redis session store.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/forum.db" → file-based database
//   - ":memory:"      → in-memory database, used by tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is its own empty database, so an
	// in-memory store must never hand out a second connection.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func dsn(dbPath string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	if !isMemory(dbPath) {
		params.Add("_pragma", "journal_mode(WAL)")
	}
	params.Set("_txlock", "immediate")
	return dbPath + "?" + params.Encode()
}

func isMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// withTx runs fn inside a single transaction and commits only if fn returns
// nil. Everything fn does must go through tx: with an in-memory database the
// pool has one connection, and tx is holding it.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_questions_user_id ON questions(user_id);
		CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at);

		CREATE TABLE IF NOT EXISTS answers (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			body        TEXT NOT NULL,
			user_id     INTEGER NOT NULL REFERENCES users(id),
			question_id INTEGER NOT NULL REFERENCES questions(id),
			created_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers(question_id);
	`)
	if err != nil {
		return fmt.Errorf("creating content tables: %w", err)
	}

	// Join tables have no identity of their own: the pair is the key.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS tags (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS question_categories (
			question_id INTEGER NOT NULL REFERENCES questions(id),
			category_id INTEGER NOT NULL REFERENCES categories(id),
			PRIMARY KEY (question_id, category_id)
		) WITHOUT ROWID;
		CREATE TABLE IF NOT EXISTS question_tags (
			question_id INTEGER NOT NULL REFERENCES questions(id),
			tag_id      INTEGER NOT NULL REFERENCES tags(id),
			PRIMARY KEY (question_id, tag_id)
		) WITHOUT ROWID;
	`)
	if err != nil {
		return fmt.Errorf("creating vocabulary tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			revoked_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}
