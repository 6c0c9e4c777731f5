package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sakif/qa-forum/internal/apperror"
	"github.com/sakif/qa-forum/internal/model"
)

// newTestDB returns a fresh in-memory database that is closed when the test
// ends. Each call gets its own database, so tests never see each other's rows.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, name, email string) *model.User {
	t.Helper()
	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$04$notarealhashbutlongenoughforthetests",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Name: "Alice", Email: "a@x.com", PasswordHash: "hash"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == 0 {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
}

func TestCreateUser_IDsIncrement(t *testing.T) {
	db := newTestDB(t)

	first := createTestUser(t, db, "Alice", "a@x.com")
	second := createTestUser(t, db, "Bob", "b@x.com")

	if second.ID <= first.ID {
		t.Errorf("second ID = %d, want greater than first ID %d", second.ID, first.ID)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "Alice", "a@x.com")

	impostor := &model.User{Name: "Impostor", Email: "a@x.com", PasswordHash: "hash"}
	err := db.CreateUser(context.Background(), impostor)
	if !errors.Is(err, apperror.ErrDuplicateEmail) {
		t.Fatalf("CreateUser() error = %v, want ErrDuplicateEmail", err)
	}
	// A rejected insert leaves the record untouched.
	if impostor.ID != 0 || !impostor.CreatedAt.IsZero() {
		t.Errorf("after failed CreateUser: ID = %d, CreatedAt = %v, want both zero", impostor.ID, impostor.CreatedAt)
	}
}

func TestCreateUser_DuplicateEmailIgnoresCase(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "Alice", "a@x.com")

	err := db.CreateUser(context.Background(), &model.User{
		Name: "Alice again", Email: "A@X.COM", PasswordHash: "hash",
	})
	if !errors.Is(err, apperror.ErrDuplicateEmail) {
		t.Fatalf("CreateUser() error = %v, want ErrDuplicateEmail", err)
	}
}

// TestCreateUser_ConcurrentSameEmail races several registrations for one
// email against a file-backed database (an in-memory one only has a single
// connection, which would serialize the goroutines before they reach SQLite).
// Exactly one must win; every other caller must see ErrDuplicateEmail.
func TestCreateUser_ConcurrentSameEmail(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "forum.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		others    []error
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := db.CreateUser(context.Background(), &model.User{
				Name:         fmt.Sprintf("writer-%d", i),
				Email:        "race@x.com",
				PasswordHash: "hash",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			others = append(others, err)
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	for _, err := range others {
		if !errors.Is(err, apperror.ErrDuplicateEmail) {
			t.Errorf("losing writer error = %v, want ErrDuplicateEmail", err)
		}
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "Alice", "a@x.com")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Name != "Alice" {
		t.Errorf("Name = %q, want %q", found.Name, "Alice")
	}
	if found.PasswordHash != created.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", found.PasswordHash, created.PasswordHash)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), 999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "Alice", "a@x.com")

	found, err := db.GetUserByEmail(context.Background(), "A@x.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "nobody@x.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}
