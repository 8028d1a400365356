// Package schema holds table metadata: column definitions, primary
// keys, and foreign-key constraints, registered once at program start
// and consulted by the statement builders and the session.
//
// # Defining Tables
//
// Tables are defined fluently and registered with a Registry:
//
//	reg := schema.NewRegistry()
//	reg.MustDefine(schema.New("users",
//	    schema.Int("id").Primary().Auto(),
//	    schema.String("name").MaxLen(100),
//	    schema.String("email").Unique(),
//	))
//	reg.MustDefine(schema.New("addresses",
//	    schema.Int("id").Primary().Auto(),
//	    schema.Int("user_id"),
//	    schema.String("email"),
//	).ForeignKey("user_id", "users", "id").OnDelete(schema.Cascade))
//
// Defining a table under an already registered name fails with
// ErrDuplicateTable; looking up an unregistered name fails with
// ErrUnknownTable.
//
// # Column Types
//
//	schema.Int("age")          schema.String("name")
//	schema.Int64("count")      schema.Bool("active")
//	schema.Float("price")      schema.Time("created_at")
//	schema.UUID("token")       schema.Bytes("data")
//
// Modifiers: Primary, Auto, Nullable, Unique, MaxLen, Default,
// DefaultFunc. UUID columns default to a generated value.
//
// # Declarative Schemas
//
// LoadYAML builds a registry from a YAML document; table names may be
// derived from entity names (User becomes users, OrderItem becomes
// order_items).
//
// # DDL Emission
//
// EmitDDL renders idempotent CREATE TABLE IF NOT EXISTS statements in
// foreign-key dependency order for bootstrap and test scenarios; Emit
// executes them and freezes the registry against further mutation.
// Long-term migrations are out of scope.
//
// # Join Inference and Ordering
//
// JoinPath infers the equi-join condition between two tables from
// their foreign keys, failing when zero or multiple paths exist.
// Order returns tables sorted so parents precede the tables that
// reference them; the session flushes inserts in this order and
// deletes in its reverse.
package schema
