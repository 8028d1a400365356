package dialect

import (
	"context"
)

// Dialect names supported by the builders and the schema DDL emitter.
const (
	// Postgres is the PostgreSQL dialect.
	Postgres = "postgres"
	// MySQL is the MySQL/MariaDB dialect.
	MySQL = "mysql"
	// SQLite is the SQLite dialect.
	SQLite = "sqlite"
)

// ExecQuerier wraps the two standard database operations used throughout
// the toolkit. It is implemented by both Driver and Tx, allowing code to
// run either inside or outside a transaction.
type ExecQuerier interface {
	// Exec executes a statement that does not return rows. The args
	// parameter must be a []any, and v (if non-nil) receives the
	// execution result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows. The args parameter
	// must be a []any, and v receives the returned rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface a storage backend adapter must satisfy.
// The session and DDL emitter consume this interface exclusively and
// never embed backend-specific connection logic.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx is a transaction bound to a single connection.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// NopTx returns a Tx that executes statements through d and treats
// Commit and Rollback as no-ops. Useful for read-only tooling.
func NopTx(d Driver) Tx {
	return nopTx{d}
}

type nopTx struct{ Driver }

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }
