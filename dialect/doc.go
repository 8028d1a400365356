// Package dialect provides the database dialect abstraction for weft.
//
// It defines the interfaces and constants used for backend-specific
// behavior, allowing the statement builders, schema emitter, and session
// to work against PostgreSQL, MySQL, and SQLite without embedding
// driver-specific logic.
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
// The Driver interface is the only surface the rest of the toolkit uses
// to talk to a storage backend:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The Tx interface extends ExecQuerier with Commit and Rollback, and a
// session holds exactly one Tx for the duration of a unit of work.
//
// # Usage
//
// Opening a connection through the SQL implementation:
//
//	import (
//	    "github.com/weftdb/weft/dialect"
//	    "github.com/weftdb/weft/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Sub-packages
//
//   - dialect/sql: statement builders, predicates, and the database/sql
//     backed Driver implementation
package dialect
