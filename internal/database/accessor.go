package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/platform-user/internal/config"
	"github.com/deppfellow/platform-user/internal/script"
)

// PgxAccessor serves scripts from a pgx pool. Statement tracing comes from
// the pool's tracer (nrpgx5, tracelog).
type PgxAccessor struct {
	pool *pgxpool.Pool
	observer
}

// Execute runs a write statement, rebinding ? placeholders for postgres.
func (a *PgxAccessor) Execute(ctx context.Context, query string, args ...any) (err error) {
	defer func(started time.Time) { a.done(ctx, query, started, err) }(time.Now())

	ctx, cancel := withStatementTimeout(ctx)
	defer cancel()

	_, err = a.pool.Exec(ctx, Rebind(query), args...)
	return err
}

// Query runs a read statement and returns every row as a column map.
func (a *PgxAccessor) Query(ctx context.Context, query string, args ...any) (result []script.Row, err error) {
	defer func(started time.Time) { a.done(ctx, query, started, err) }(time.Now())

	ctx, cancel := withStatementTimeout(ctx)
	defer cancel()

	rows, err := a.pool.Query(ctx, Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}

	result = make([]script.Row, 0, len(maps))
	for _, m := range maps {
		result = append(result, script.Row(m))
	}
	return result, nil
}

// SQLAccessor serves scripts from a database/sql handle (mysql, sqlite3).
// Each statement is recorded as a New Relic datastore segment when the
// context carries a transaction.
type SQLAccessor struct {
	db      *sql.DB
	product newrelic.DatastoreProduct
	observer
}

// NewSQLAccessor wraps a database/sql handle opened for driver.
func NewSQLAccessor(db *sql.DB, driver string, obs observer) *SQLAccessor {
	product := newrelic.DatastoreSQLite
	if driver == config.DriverMySQL {
		product = newrelic.DatastoreMySQL
	}
	return &SQLAccessor{db: db, product: product, observer: obs}
}

func (a *SQLAccessor) segment(ctx context.Context, query string) *newrelic.DatastoreSegment {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}

	operation, collection := statementInfo(query)
	return &newrelic.DatastoreSegment{
		StartTime:          txn.StartSegmentNow(),
		Product:            a.product,
		Operation:          operation,
		Collection:         collection,
		ParameterizedQuery: query,
	}
}

// Execute runs a write statement inside a New Relic datastore segment.
func (a *SQLAccessor) Execute(ctx context.Context, query string, args ...any) (err error) {
	defer func(started time.Time) { a.done(ctx, query, started, err) }(time.Now())
	if seg := a.segment(ctx, query); seg != nil {
		defer seg.End()
	}

	ctx, cancel := withStatementTimeout(ctx)
	defer cancel()

	_, err = a.db.ExecContext(ctx, query, args...)
	return err
}

// Query runs a read statement and returns every row as a column map.
func (a *SQLAccessor) Query(ctx context.Context, query string, args ...any) (result []script.Row, err error) {
	defer func(started time.Time) { a.done(ctx, query, started, err) }(time.Now())
	if seg := a.segment(ctx, query); seg != nil {
		defer seg.End()
	}

	ctx, cancel := withStatementTimeout(ctx)
	defer cancel()

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// scanRows reads every row into a column-keyed map.
func scanRows(rows *sql.Rows) ([]script.Row, error) {
	columns, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	result := []script.Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(script.Row, len(columns))
		for i, col := range columns {
			row[col.Name()] = normalizeValue(col, values[i])
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// normalizeValue turns driver byte slices into strings, or integers for integer columns.
func normalizeValue(col *sql.ColumnType, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}

	if isIntegerType(col.DatabaseTypeName()) {
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n
		}
	}
	return string(b)
}

func isIntegerType(name string) bool {
	name = strings.ToUpper(name)
	return strings.Contains(name, "INT") && !strings.Contains(name, "POINT") && !strings.Contains(name, "INTERVAL")
}
