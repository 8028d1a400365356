// Package sql provides SQL statement building primitives and the
// database/sql backed driver implementation.
//
// This package is the foundation for generating and executing SQL
// statements across PostgreSQL, MySQL, and SQLite. Statements are built
// with a generative API: every clause method returns a new statement
// value and never mutates a previously returned one, so a partially
// built statement is safe to reuse as a base for multiple variants:
//
//	base := sql.Dialect(dialect.Postgres).
//	    Select("id", "name").
//	    From(sql.Table("users"))
//	active := base.Where(sql.EQ("status", "active"))
//	deleted := base.Where(sql.NotNull("deleted_at"))
//
// # Builder Types
//
//   - Builder: low-level SQL string builder with identifier quoting
//   - Selector: SELECT builder with joins, predicates, and pagination
//   - InsertBuilder: INSERT builder with RETURNING support
//   - UpdateBuilder: UPDATE builder with SET and WHERE clauses
//   - DeleteBuilder: DELETE builder with WHERE predicates
//
// # Compilation
//
// Query compiles a statement into parameterized SQL text plus its
// argument list, deterministically for a given statement and dialect.
// Structural problems (a missing target table, an empty SET list, a
// join without a condition, RETURNING on MySQL) are reported by Err at
// compile time, not at construction time.
//
// # Predicates
//
//	sql.EQ("name", "ed")             // name = 'ed'
//	sql.GT("age", 18)                // age > 18
//	sql.Contains("name", "ed")       // name LIKE '%ed%'
//	sql.IsNull("deleted_at")         // deleted_at IS NULL
//	sql.In("status", "a", "b")       // status IN ('a', 'b')
//	sql.And(p1, p2)                  // p1 AND p2
//	sql.Or(p1, p2)                   // (p1 OR p2)
//
// Successive Where calls are combined with AND, so Where(And(a, b))
// and Where(a).Where(b) compile to the same text.
//
// # Typed Fields
//
// Typed field helpers make the value side of comparisons type-checked
// by the compiler and catch cross-column type mismatches at compile
// time:
//
//	var age = sql.IntField("age")
//	sel.Where(age.GT(18))
//
// # Joins
//
//	users := sql.Table("users").As("u")
//	posts := sql.Table("posts").As("p")
//	sql.Select("u.id", "p.title").
//	    From(users).
//	    Join(posts).On(users.C("id"), posts.C("user_id"))
//
// # Driver
//
// Open and OpenDB wrap database/sql with the dialect.Driver interface
// consumed by the session and the schema emitter. NewStatsDriver and
// NewDebugDriver wrap any driver with statistics collection and
// statement logging.
package sql
