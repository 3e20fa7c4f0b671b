// Package script defines the contract between the host runtime and a handler script.
//
// A script never reaches for globals. The host hands it:
//   - a read-only parameter bag (Params) built from the incoming request
//   - a database accessor (DB) bound to the configured store
//
// and the script answers with exactly one Envelope, or an error when the store failed.
package script

import (
	"context"
)

// Params is the read-only parameter bag for one invocation.
type Params interface {
	// Get returns the raw text value of name and whether it was supplied at all.
	Get(name string) (string, bool)
}

// Values is the concrete parameter bag the host builds from a request.
type Values map[string]string

// Get implements Params.
func (v Values) Get(name string) (string, bool) {
	value, ok := v[name]
	return value, ok
}

// Row is one result row keyed by column name.
type Row map[string]any

// DB is the database accessor handed to a script.
//
// Statements use positional "?" placeholders. Accessors for stores with a
// different placeholder syntax rewrite them before execution.
type DB interface {
	// Execute runs a write statement. The affected-row count is not exposed.
	Execute(ctx context.Context, query string, args ...any) error

	// Query runs a read statement and returns the rows in store order.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

// Func is a handler script.
//
// A returned error means the store failed; the host turns it into a 500 envelope.
// Every expected outcome (success, bad input, missing record) is an Envelope.
type Func func(ctx context.Context, params Params, db DB) (Envelope, error)
