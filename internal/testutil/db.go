package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/padelhq/clubserver/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// CreateClub inserts a club row and returns its id.
func CreateClub(t *testing.T, database *db.DB, name string) int64 {
	t.Helper()

	result, err := database.ExecContext(context.Background(),
		"INSERT INTO clubs (name, slug) VALUES (?, ?)", name, name)
	if err != nil {
		t.Fatalf("insert club: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("club id: %v", err)
	}
	return id
}

// CreateCourt inserts a court row for the club and returns its id.
func CreateCourt(t *testing.T, database *db.DB, clubID int64, number int64) int64 {
	t.Helper()

	result, err := database.ExecContext(context.Background(),
		"INSERT INTO courts (club_id, court_number, name) VALUES (?, ?, ?)",
		clubID, number, "")
	if err != nil {
		t.Fatalf("insert court: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("court id: %v", err)
	}
	return id
}

// CreateUser inserts a user row and returns its id.
func CreateUser(t *testing.T, database *db.DB, name string) int64 {
	t.Helper()

	result, err := database.ExecContext(context.Background(),
		"INSERT INTO users (name) VALUES (?)", name)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	return id
}

// FixedClock is a deterministic time source for lifecycle tests.
type FixedClock struct {
	Time time.Time
}

func (c *FixedClock) Now() time.Time { return c.Time }
