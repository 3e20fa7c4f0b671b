// Package testutil provides stores and accessors for tests.
package testutil

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deppfellow/platform-user/internal/config"
	"github.com/deppfellow/platform-user/internal/database"
	"github.com/deppfellow/platform-user/internal/script"
)

// OpenInMemoryDB opens a named in-memory SQLite database and applies the migrations.
// The database is closed through t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()

	// Shared cache keeps every pooled connection on the same in-memory database.
	d, err := sql.Open(config.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	d.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = d.Close() })

	logger := zerolog.Nop()
	if err := database.MigrateSQL(&logger, d, config.DriverSQLite); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return d
}

// NewDatabase wraps OpenInMemoryDB in a *database.Database.
func NewDatabase(t *testing.T, name string) *database.Database {
	t.Helper()

	logger := zerolog.Nop()
	return database.NewFromSQL(OpenInMemoryDB(t, name), config.DriverSQLite, &logger, 0)
}

// InsertUser adds a platform_user row directly and returns its id.
func InsertUser(t *testing.T, db *sql.DB, name, loginName string) int64 {
	t.Helper()

	res, err := db.Exec("INSERT INTO platform_user (name, login_name) VALUES (?, ?)", name, loginName)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

// Statement is one call recorded by RecordingDB.
type Statement struct {
	Query string
	Args  []any
}

// RecordingDB is a script.DB that records statements and replays scripted results.
type RecordingDB struct {
	mu         sync.Mutex
	Statements []Statement

	// Rows is returned by every Query call.
	Rows []script.Row
	// Err, when set, is returned by every call after it is recorded.
	Err error
}

func (r *RecordingDB) record(query string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Statements = append(r.Statements, Statement{Query: query, Args: args})
}

// Execute records the statement and returns Err.
func (r *RecordingDB) Execute(_ context.Context, query string, args ...any) error {
	r.record(query, args)
	return r.Err
}

// Query records the statement and returns Rows, or Err when set.
func (r *RecordingDB) Query(_ context.Context, query string, args ...any) ([]script.Row, error) {
	r.record(query, args)
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Rows, nil
}

// Calls returns a copy of the recorded statements.
func (r *RecordingDB) Calls() []Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Statement(nil), r.Statements...)
}
