// Package sqlerr classifies database driver errors.
//
// It understands postgres (pgconn), mysql (go-sql-driver) and sqlite3 (mattn)
// errors and reduces them to a small set of codes. The result feeds structured
// logs and traces only; store failures always reach clients as a plain 500.
package sqlerr

import (
	"fmt"
)

// Code is the driver-independent category of a database error.
type Code string

const (
	Other               Code = "other"
	UniqueViolation     Code = "unique_violation"
	ForeignKeyViolation Code = "foreign_key_violation"
	NotNullViolation    Code = "not_null_violation"
	CheckViolation      Code = "check_violation"
	NoRows              Code = "no_rows"
	Timeout             Code = "timeout"
	Connection          Code = "connection"
)

// Error is a classified database error. The driver error is kept for Unwrap.
type Error struct {
	Code           Code
	Driver         string
	DatabaseCode   string
	Message        string
	TableName      string
	ColumnName     string
	ConstraintName string

	driverErr error
}

func (e *Error) Error() string {
	if e.DatabaseCode != "" {
		return fmt.Sprintf("%s: %s (%s %s)", e.Code, e.Message, e.Driver, e.DatabaseCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}
