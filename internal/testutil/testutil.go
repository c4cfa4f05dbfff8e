package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/remlyo/remlyo/internal/domain/user"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/migrations"
	_ "modernc.org/sqlite"
)

var dbCounter atomic.Int64

// NewTestDB creates an in-memory SQLite database with the real schema applied
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each test gets its own named shared-cache database
	dsn := fmt.Sprintf("file:remlyo_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	files, err := migrations.GetFS("sqlite")
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}

	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(files, name)
		if err != nil {
			t.Fatalf("Failed to read migration %s: %v", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			t.Fatalf("Failed to apply migration %s: %v", name, err)
		}
	}

	return db
}

// CleanupDB closes the test database
func CleanupDB(db *sql.DB) {
	if db != nil {
		db.Close()
	}
}

// NewTestLogger returns a logger that discards output
func NewTestLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, "error")
}

// InsertUser adds a user row directly and returns its id
func InsertUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()

	now := time.Now().Unix()
	var id int64
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO users (email, username, password_hash, role, subscription_status, created_at, updated_at)
		VALUES ($1, '', 'x', $2, $3, $4, $4)
		RETURNING id
	`, email, user.RoleUser, user.SubscriptionNone, now).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	return id
}
