// Package database connects to the configured store and exposes the
// accessor handed to handler scripts.
//
// It handles:
//   - building a DSN from config for postgres, mysql or sqlite3
//   - creating a pgx pool (postgres) or a database/sql handle (mysql, sqlite3)
//   - wiring query tracing/logging (pgx tracelog, New Relic)
//   - running the embedded schema migrations
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/deppfellow/platform-user/internal/config"
	loggerConfig "github.com/deppfellow/platform-user/internal/logger"
	"github.com/deppfellow/platform-user/internal/script"
)

// DatabasePingTimeout is the number of seconds to wait for the first ping.
const DatabasePingTimeout = 10

// StatementTimeout bounds a single statement when the caller set no deadline.
const StatementTimeout = 10 * time.Second

// Database owns the store connection. Exactly one of Pool and SQL is set.
type Database struct {
	Driver string
	Pool   *pgxpool.Pool
	SQL    *sql.DB

	dsn       string
	log       *zerolog.Logger
	slowQuery time.Duration
}

// multiTracer lets the New Relic tracer and the local tracelog share pgx's single tracer slot.
type multiTracer struct {
	tracers []any
}

func (mt *multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(pgx.QueryTracer); ok {
			ctx = t.TraceQueryStart(ctx, conn, data)
		}
	}
	return ctx
}

func (mt *multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, tracer := range mt.tracers {
		if t, ok := tracer.(pgx.QueryTracer); ok {
			t.TraceQueryEnd(ctx, conn, data)
		}
	}
}

// New connects to the store selected by cfg.Database.Driver and pings it.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres, "":
		return newPostgres(cfg, logger, loggerService)
	case config.DriverMySQL:
		return newSQL(cfg, config.DriverMySQL, MySQLDSN(cfg.Database), logger)
	case config.DriverSQLite:
		return newSQL(cfg, config.DriverSQLite, SQLiteDSN(cfg.Database), logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func newPostgres(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	dsn := PostgresDSN(cfg.Database)

	pgxPoolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}

	pgxPoolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgxPoolConfig.MaxConnLifetime = time.Duration(cfg.Database.ConnMaxLifetime) * time.Second
	pgxPoolConfig.MaxConnIdleTime = time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second

	if loggerService.GetApplication() != nil {
		pgxPoolConfig.ConnConfig.Tracer = nrpgx5.NewTracer()
	}

	// SQL logging through tracelog is noisy, so only local runs get it.
	if cfg.IsLocal() {
		globalLevel := logger.GetLevel()
		localTracer := &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(loggerConfig.NewPgxLogger(*logger, globalLevel)),
			LogLevel: tracelog.LogLevel(loggerConfig.GetPgxTraceLogLevel(globalLevel)),
		}

		if pgxPoolConfig.ConnConfig.Tracer != nil {
			pgxPoolConfig.ConnConfig.Tracer = &multiTracer{
				tracers: []any{pgxPoolConfig.ConnConfig.Tracer, localTracer},
			}
		} else {
			pgxPoolConfig.ConnConfig.Tracer = localTracer
		}
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	database := &Database{
		Driver:    config.DriverPostgres,
		Pool:      pool,
		dsn:       dsn,
		log:       logger,
		slowQuery: cfg.Observability.Logging.SlowQueryThreshold,
	}

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Str("driver", database.Driver).Msg("connected to the database")

	return database, nil
}

func newSQL(cfg *config.Config, driver, dsn string, logger *zerolog.Logger) (*Database, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second)

	database := NewFromSQL(sqlDB, driver, logger, cfg.Observability.Logging.SlowQueryThreshold)
	database.dsn = dsn

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Str("driver", driver).Msg("connected to the database")

	return database, nil
}

// NewFromSQL wraps an already opened database/sql handle.
func NewFromSQL(sqlDB *sql.DB, driver string, logger *zerolog.Logger, slowQuery time.Duration) *Database {
	return &Database{
		Driver:    driver,
		SQL:       sqlDB,
		log:       logger,
		slowQuery: slowQuery,
	}
}

// Accessor returns the script.DB bound to this store.
func (db *Database) Accessor() script.DB {
	obs := observer{log: db.log, slowQuery: db.slowQuery}
	if db.Pool != nil {
		return &PgxAccessor{pool: db.Pool, observer: obs}
	}
	return NewSQLAccessor(db.SQL, db.Driver, obs)
}

// Ping checks connectivity.
func (db *Database) Ping(ctx context.Context) error {
	if db.Pool != nil {
		return db.Pool.Ping(ctx)
	}
	return db.SQL.PingContext(ctx)
}

// Close releases the pool or handle.
func (db *Database) Close() error {
	db.log.Info().Str("driver", db.Driver).Msg("closing database connection")
	if db.Pool != nil {
		db.Pool.Close()
		return nil
	}
	return db.SQL.Close()
}
