// Package weft is a minimal relational mapping and query-construction
// toolkit. It provides table metadata (package schema), composable SQL
// statement builders (package dialect/sql), and a unit-of-work session
// with an identity map (package session).
//
// The root package holds the error taxonomy shared by all layers and
// the query-result cache used by session queries.
package weft
