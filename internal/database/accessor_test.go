package database_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/deppfellow/platform-user/internal/config"
	"github.com/deppfellow/platform-user/internal/database"
	"github.com/deppfellow/platform-user/internal/testutil"
)

func TestSQLAccessorRoundTrip(t *testing.T) {
	db := testutil.NewDatabase(t, "accessor_round_trip")
	accessor := db.Accessor()
	ctx := context.Background()

	if err := accessor.Execute(ctx, "INSERT INTO platform_user (name, login_name) VALUES (?, ?)", "Alice", "alice"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := accessor.Query(ctx, "SELECT * FROM platform_user WHERE login_name = ?", "alice")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	row := rows[0]
	if id, ok := row["id"].(int64); !ok || id <= 0 {
		t.Errorf("id = %#v, want positive int64", row["id"])
	}
	if row["name"] != "Alice" {
		t.Errorf("name = %#v, want %q", row["name"], "Alice")
	}
	if row["login_name"] != "alice" {
		t.Errorf("login_name = %#v, want %q", row["login_name"], "alice")
	}
}

func TestSQLAccessorEmptyResult(t *testing.T) {
	db := testutil.NewDatabase(t, "accessor_empty")

	rows, err := db.Accessor().Query(context.Background(), "SELECT * FROM platform_user WHERE id = ?", 42)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("rows = %#v, want empty non-nil slice", rows)
	}
}

func TestSQLAccessorPropagatesErrors(t *testing.T) {
	db := testutil.NewDatabase(t, "accessor_errors")

	err := db.Accessor().Execute(context.Background(), "INSERT INTO missing_table (x) VALUES (?)", 1)
	if err == nil {
		t.Fatal("expected error for unknown table")
	}
}

func TestMigrateSQLIsIdempotent(t *testing.T) {
	sqlDB := testutil.OpenInMemoryDB(t, "migrate_idempotent")
	logger := zerolog.Nop()

	if err := database.MigrateSQL(&logger, sqlDB, config.DriverSQLite); err != nil {
		t.Fatalf("second migration run: %v", err)
	}

	if _, err := sqlDB.Exec("INSERT INTO platform_user (name, login_name) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("schema missing after migration: %v", err)
	}
}

func TestMigrateSQLRejectsMySQLHandle(t *testing.T) {
	sqlDB := testutil.OpenInMemoryDB(t, "migrate_reject")
	logger := zerolog.Nop()

	if err := database.MigrateSQL(&logger, sqlDB, config.DriverMySQL); err == nil {
		t.Fatal("expected MigrateSQL to reject mysql")
	}
}

func TestDatabaseMigrateSQLite(t *testing.T) {
	db := testutil.NewDatabase(t, "database_migrate")

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
