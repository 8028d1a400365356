package weft

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure classes. Concrete error types below
// implement Is against these, so callers can match either way.
var (
	// ErrDuplicateTable is returned when defining a table whose name is
	// already registered.
	ErrDuplicateTable = errors.New("weft: duplicate table")

	// ErrUnknownTable is returned when looking up a table that was never
	// registered.
	ErrUnknownTable = errors.New("weft: unknown table")

	// ErrUnknownColumn is returned when referencing a column that does
	// not exist on its table.
	ErrUnknownColumn = errors.New("weft: unknown column")

	// ErrFrozen is returned when mutating a schema after it has been
	// emitted to a storage backend.
	ErrFrozen = errors.New("weft: schema is frozen")

	// ErrMissingTarget is returned when compiling a statement that has
	// no target table.
	ErrMissingTarget = errors.New("weft: missing statement target")

	// ErrEmptyValues is returned when compiling an UPDATE with an empty
	// SET list.
	ErrEmptyValues = errors.New("weft: empty values")

	// ErrAmbiguousJoin is returned when more than one foreign-key path
	// exists between two tables and no explicit condition is given.
	ErrAmbiguousJoin = errors.New("weft: ambiguous join")

	// ErrUnknownJoin is returned when no foreign-key path exists between
	// two tables.
	ErrUnknownJoin = errors.New("weft: no join path")
)

// SchemaError reports a table or column definition problem. It always
// names the schema object that triggered it.
type SchemaError struct {
	Table  string
	Column string
	Msg    string
	kind   error // sentinel this error matches, if any
}

// Error returns the error string.
func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("weft: schema: %s.%s: %s", e.Table, e.Column, e.Msg)
	}
	return fmt.Sprintf("weft: schema: %s: %s", e.Table, e.Msg)
}

// Is reports whether the error matches its sentinel.
func (e *SchemaError) Is(target error) bool { return e.kind != nil && target == e.kind }

// NewSchemaError returns a SchemaError for the given table and column.
// Pass a sentinel (e.g. ErrDuplicateTable) to make the error match it.
func NewSchemaError(sentinel error, table, column, msg string) *SchemaError {
	return &SchemaError{Table: table, Column: column, Msg: msg, kind: sentinel}
}

// IsSchemaError reports whether err is a SchemaError.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaError
	return errors.As(err, &e)
}

// ExpressionError reports an invalid expression construction, such as
// comparing columns of incompatible semantic types. Detection is
// deferred to statement compile time.
type ExpressionError struct {
	Column string
	Msg    string
}

// Error returns the error string.
func (e *ExpressionError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("weft: expression: %s: %s", e.Column, e.Msg)
	}
	return fmt.Sprintf("weft: expression: %s", e.Msg)
}

// NewExpressionError returns an ExpressionError for the given column.
func NewExpressionError(column, msg string) *ExpressionError {
	return &ExpressionError{Column: column, Msg: msg}
}

// IsExpressionError reports whether err is an ExpressionError.
func IsExpressionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ExpressionError
	return errors.As(err, &e)
}

// CompileError reports that a statement cannot be rendered: a missing
// target, an empty SET list, an unterminated join, or a construct the
// target dialect does not support. It surfaces at compile time, not at
// construction time, since a statement may be built before its full
// context is known.
type CompileError struct {
	Stmt string // statement kind: select, insert, update, delete
	Msg  string
	kind error
}

// Error returns the error string.
func (e *CompileError) Error() string {
	return fmt.Sprintf("weft: compile %s: %s", e.Stmt, e.Msg)
}

// Is reports whether the error matches its sentinel.
func (e *CompileError) Is(target error) bool { return e.kind != nil && target == e.kind }

// NewCompileError returns a CompileError for the given statement kind.
func NewCompileError(sentinel error, stmt, msg string) *CompileError {
	return &CompileError{Stmt: stmt, Msg: msg, kind: sentinel}
}

// IsCompileError reports whether err is a CompileError.
func IsCompileError(err error) bool {
	if err == nil {
		return false
	}
	var e *CompileError
	return errors.As(err, &e)
}

// IdentityConflictError reports an attempt to track a second distinct
// instance sharing a primary key already present in a session's
// identity map.
type IdentityConflictError struct {
	Table string
	Key   any
}

// Error returns the error string.
func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("weft: identity conflict: %s key %v is already tracked by a different instance", e.Table, e.Key)
}

// NewIdentityConflictError returns an IdentityConflictError.
func NewIdentityConflictError(table string, key any) *IdentityConflictError {
	return &IdentityConflictError{Table: table, Key: key}
}

// IsIdentityConflict reports whether err is an IdentityConflictError.
func IsIdentityConflict(err error) bool {
	if err == nil {
		return false
	}
	var e *IdentityConflictError
	return errors.As(err, &e)
}

// ConstraintError reports a constraint violation surfaced from the
// storage backend during a flush. The underlying driver error is
// wrapped unmodified and the operation is never retried.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("weft: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying driver error.
func (e *ConstraintError) Unwrap() error { return e.wrap }

// NewConstraintError returns a ConstraintError wrapping err.
func NewConstraintError(msg string, wrap error) *ConstraintError {
	return &ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError reports whether err is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e)
}

// NotFoundError reports that a requested row does not exist.
type NotFoundError struct {
	Table string
	Key   any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("weft: %s not found (key=%v)", e.Table, e.Key)
	}
	return fmt.Sprintf("weft: %s not found", e.Table)
}

// NewNotFoundError returns a NotFoundError for the given table and key.
func NewNotFoundError(table string, key any) *NotFoundError {
	return &NotFoundError{Table: table, Key: key}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e)
}

// NotLoadedError reports access to a relationship that was not loaded
// under the query's loader strategy. Attribute access never issues
// implicit I/O; callers fetch explicitly instead.
type NotLoadedError struct {
	Relation string
}

// Error returns the error string.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("weft: relation %q was not loaded", e.Relation)
}

// NewNotLoadedError returns a NotLoadedError for the given relation.
func NewNotLoadedError(relation string) *NotLoadedError {
	return &NotLoadedError{Relation: relation}
}

// IsNotLoaded reports whether err is a NotLoadedError.
func IsNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotLoadedError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred while rolling back a
// transaction, preserving the error that triggered the rollback.
type RollbackError struct {
	Err error
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("weft: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error { return e.Err }

// AggregateError collects multiple errors from a single operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "weft: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("weft: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// NewAggregateError returns nil, the single error, or an AggregateError
// depending on how many non-nil errors are given.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return &AggregateError{Errors: filtered}
	}
}
