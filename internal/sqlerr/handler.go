package sqlerr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrCode reports the Code of err, or Other when it is not a database error.
func ErrCode(err error) Code {
	if classified := Classify(err); classified != nil {
		return classified.Code
	}
	return Other
}

// Classify maps err onto an *Error. It returns nil when err is nil or does
// not come from a database driver.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ConvertPgError(pgErr)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return ConvertMySQLError(mysqlErr)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return ConvertSQLiteError(sqliteErr)
	}

	var connectErr *pgconn.ConnectError
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		return &Error{Code: NoRows, Message: "no rows in result set", driverErr: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: Timeout, Message: "statement deadline exceeded", driverErr: err}
	case errors.As(err, &connectErr), errors.Is(err, driver.ErrBadConn), errors.Is(err, mysql.ErrInvalidConn), errors.Is(err, sql.ErrConnDone):
		return &Error{Code: Connection, Message: err.Error(), driverErr: err}
	}

	return nil
}

// ConvertPgError maps a postgres error by SQLSTATE.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapPgCode(src.Code),
		Driver:         "postgres",
		DatabaseCode:   src.Code,
		Message:        src.Message,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// MapPgCode maps a postgres SQLSTATE onto a Code.
func MapPgCode(code string) Code {
	switch code {
	case "23505":
		return UniqueViolation
	case "23503":
		return ForeignKeyViolation
	case "23502":
		return NotNullViolation
	case "23514":
		return CheckViolation
	case "57014":
		return Timeout
	}
	if strings.HasPrefix(code, "08") {
		return Connection
	}
	return Other
}

// ConvertMySQLError maps a mysql server error by error number.
func ConvertMySQLError(src *mysql.MySQLError) *Error {
	return &Error{
		Code:         MapMySQLNumber(src.Number),
		Driver:       "mysql",
		DatabaseCode: strconv.Itoa(int(src.Number)),
		Message:      src.Message,
		driverErr:    src,
	}
}

// MapMySQLNumber maps a mysql error number onto a Code.
func MapMySQLNumber(number uint16) Code {
	switch number {
	case 1062:
		return UniqueViolation
	case 1216, 1217, 1451, 1452:
		return ForeignKeyViolation
	case 1048, 1364:
		return NotNullViolation
	case 3819:
		return CheckViolation
	case 3024:
		return Timeout
	case 1045, 2002, 2003, 2006, 2013:
		return Connection
	}
	return Other
}

// ConvertSQLiteError maps a sqlite3 error by extended result code.
//
// sqlite reports the offending column in the message, as in
// "UNIQUE constraint failed: platform_user.login_name".
func ConvertSQLiteError(src sqlite3.Error) *Error {
	e := &Error{
		Code:         Other,
		Driver:       "sqlite3",
		DatabaseCode: strconv.Itoa(int(src.ExtendedCode)),
		Message:      src.Error(),
		driverErr:    src,
	}

	switch src.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		e.Code = UniqueViolation
	case sqlite3.ErrConstraintForeignKey:
		e.Code = ForeignKeyViolation
	case sqlite3.ErrConstraintNotNull:
		e.Code = NotNullViolation
	case sqlite3.ErrConstraintCheck:
		e.Code = CheckViolation
	}
	if src.Code == sqlite3.ErrBusy || src.Code == sqlite3.ErrLocked {
		e.Code = Timeout
	}

	if _, target, ok := strings.Cut(e.Message, "constraint failed: "); ok {
		target, _, _ = strings.Cut(target, ",")
		if table, column, ok := strings.Cut(strings.TrimSpace(target), "."); ok {
			e.TableName = table
			e.ColumnName = column
		}
	}

	return e
}

// ErrorCode builds a machine code of the form <TABLE>_<ACTION>,
// e.g. PLATFORM_USER_ALREADY_EXISTS.
func (e *Error) ErrorCode() string {
	domain := strings.ToUpper(e.TableName)
	if domain == "" {
		domain = "RECORD"
	}

	action := "ERROR"
	switch e.Code {
	case ForeignKeyViolation:
		action = "NOT_FOUND"
	case UniqueViolation:
		action = "ALREADY_EXISTS"
	case NotNullViolation:
		action = "REQUIRED"
	case CheckViolation:
		action = "INVALID"
	case NoRows:
		action = "NOT_FOUND"
	case Timeout:
		action = "TIMEOUT"
	case Connection:
		action = "UNAVAILABLE"
	}

	return fmt.Sprintf("%s_%s", domain, action)
}

// AddFields attaches the classification of err to a log event.
// Events for non-database errors are returned unchanged.
func AddFields(event *zerolog.Event, err error) *zerolog.Event {
	classified := Classify(err)
	if classified == nil {
		return event
	}

	event = event.
		Str("db.error_class", string(classified.Code)).
		Str("db.error_code", classified.ErrorCode())
	if classified.Driver != "" {
		event = event.Str("db.driver", classified.Driver)
	}
	if classified.DatabaseCode != "" {
		event = event.Str("db.native_code", classified.DatabaseCode)
	}
	if classified.ColumnName != "" {
		event = event.Str("db.column", classified.ColumnName)
	}
	return event
}
