package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"

	"github.com/deppfellow/platform-user/internal/config"
)

// migrations holds one directory per driver:
//   - postgres: tern files (NNN_name.sql)
//   - mysql, sqlite3: golang-migrate pairs (NNNNNN_name.up.sql / .down.sql)
//
//go:embed migrations
var migrations embed.FS

// Migrate applies the embedded schema migrations for this store.
func (db *Database) Migrate(ctx context.Context) error {
	switch db.Driver {
	case config.DriverPostgres:
		conn, err := db.Pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquiring migration connection: %w", err)
		}
		defer conn.Release()
		return migratePostgres(ctx, db.log, conn.Conn())

	case config.DriverMySQL:
		// The mysql driver pins a connection until the migrator is closed,
		// so it gets a handle of its own.
		migrationDB, err := sql.Open(config.DriverMySQL, db.dsn)
		if err != nil {
			return fmt.Errorf("opening migration connection: %w", err)
		}
		driver, err := migratemysql.WithInstance(migrationDB, &migratemysql.Config{})
		if err != nil {
			_ = migrationDB.Close()
			return fmt.Errorf("constructing mysql migration driver: %w", err)
		}
		return runMigrate(db.log, config.DriverMySQL, driver, true)

	case config.DriverSQLite:
		return MigrateSQL(db.log, db.SQL, config.DriverSQLite)

	default:
		return fmt.Errorf("unsupported database driver %q", db.Driver)
	}
}

// migratePostgres runs tern against conn, tracking versions in schema_version.
func migratePostgres(ctx context.Context, logger *zerolog.Logger, conn *pgx.Conn) error {
	m, err := tern.NewMigrator(ctx, conn, "schema_version")
	if err != nil {
		return fmt.Errorf("constructing database migrator: %w", err)
	}

	subtree, err := fs.Sub(migrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("retrieving database migrations subtree: %w", err)
	}
	if err := m.LoadMigrations(subtree); err != nil {
		return fmt.Errorf("loading database migrations: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("retrieving current database migration version: %w", err)
	}

	if err := m.Migrate(ctx); err != nil {
		return err
	}

	if from == int32(len(m.Migrations)) {
		logger.Info().Msgf("database schema up to date, version %d", len(m.Migrations))
	} else {
		logger.Info().Msgf("migrated database schema, from %d to %d", from, len(m.Migrations))
	}
	return nil
}

// MigrateSQL applies the embedded migrations for driver to an open handle.
// The handle stays open afterwards. Only sqlite3 is supported here, since the
// mysql driver holds a connection until closed.
func MigrateSQL(logger *zerolog.Logger, sqlDB *sql.DB, driverName string) error {
	if driverName != config.DriverSQLite {
		return fmt.Errorf("MigrateSQL: unsupported driver %q", driverName)
	}

	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("constructing sqlite3 migration driver: %w", err)
	}
	return runMigrate(logger, driverName, driver, false)
}

func runMigrate(logger *zerolog.Logger, driverName string, driver migratedb.Driver, closeAfter bool) error {
	source, err := iofs.New(migrations, "migrations/"+driverName)
	if err != nil {
		if closeAfter {
			_ = driver.Close()
		}
		return fmt.Errorf("retrieving database migrations subtree: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		if closeAfter {
			_ = driver.Close()
		}
		return fmt.Errorf("constructing database migrator: %w", err)
	}
	if closeAfter {
		defer m.Close()
	}

	from, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("retrieving current database migration version: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info().Msgf("database schema up to date, version %d", from)
		return nil
	case err != nil:
		return err
	}

	to, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("retrieving migrated database version: %w", err)
	}
	logger.Info().Msgf("migrated database schema, from %d to %d", from, to)
	return nil
}
