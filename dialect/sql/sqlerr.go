package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"

	"github.com/weftdb/weft"
)

// PostgreSQL SQLSTATE codes for constraint violations (class 23).
const (
	pgNotNullViolation    = pq.ErrorCode("23502")
	pgForeignKeyViolation = pq.ErrorCode("23503")
	pgUniqueViolation     = pq.ErrorCode("23505")
	pgCheckViolation      = pq.ErrorCode("23514")
)

// MySQL error numbers for constraint violations.
const (
	mysqlNotNull          uint16 = 1048
	mysqlDuplicateEntry   uint16 = 1062
	mysqlForeignKeyParent uint16 = 1451 // cannot delete or update a parent row
	mysqlForeignKeyChild  uint16 = 1452 // cannot add or update a child row
	mysqlCheckViolation   uint16 = 3819
)

// SQLite primary and extended result codes for constraint violations.
const (
	sqliteConstraint = 19 // SQLITE_CONSTRAINT primary code
)

// IsConstraintError reports whether err resulted from any database
// constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsNotNullConstraintError(err) ||
		IsCheckConstraintError(err) ||
		sqliteConstraintCode(err) >= 0
}

// IsUniqueConstraintError reports whether err resulted from a
// uniqueness constraint violation, e.g. a duplicate value in a unique
// index.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e := pgError(err); e != nil && e.Code == pgUniqueViolation {
		return true
	}
	if e := mysqlError(err); e != nil && e.Number == mysqlDuplicateEntry {
		return true
	}
	switch sqliteConstraintCode(err) {
	case 1555, 2067: // SQLITE_CONSTRAINT_PRIMARYKEY, SQLITE_CONSTRAINT_UNIQUE
		return true
	}
	return containsAny(err.Error(),
		"violates unique constraint", // postgres fallback
		"Error 1062",                 // mysql fallback
		"UNIQUE constraint failed",   // sqlite fallback
	)
}

// IsForeignKeyConstraintError reports whether err resulted from a
// foreign-key constraint violation, e.g. a referenced row that does
// not exist or a parent row still referenced by children.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e := pgError(err); e != nil && e.Code == pgForeignKeyViolation {
		return true
	}
	if e := mysqlError(err); e != nil && (e.Number == mysqlForeignKeyParent || e.Number == mysqlForeignKeyChild) {
		return true
	}
	if sqliteConstraintCode(err) == 787 { // SQLITE_CONSTRAINT_FOREIGNKEY
		return true
	}
	return containsAny(err.Error(),
		"violates foreign key constraint",
		"Error 1451",
		"Error 1452",
		"FOREIGN KEY constraint failed",
	)
}

// IsNotNullConstraintError reports whether err resulted from inserting
// or updating a NULL into a NOT NULL column.
func IsNotNullConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e := pgError(err); e != nil && e.Code == pgNotNullViolation {
		return true
	}
	if e := mysqlError(err); e != nil && e.Number == mysqlNotNull {
		return true
	}
	if sqliteConstraintCode(err) == 1299 { // SQLITE_CONSTRAINT_NOTNULL
		return true
	}
	return containsAny(err.Error(),
		"violates not-null constraint",
		"Error 1048",
		"NOT NULL constraint failed",
	)
}

// IsCheckConstraintError reports whether err resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e := pgError(err); e != nil && e.Code == pgCheckViolation {
		return true
	}
	if e := mysqlError(err); e != nil && e.Number == mysqlCheckViolation {
		return true
	}
	if sqliteConstraintCode(err) == 275 { // SQLITE_CONSTRAINT_CHECK
		return true
	}
	return containsAny(err.Error(),
		"violates check constraint",
		"Error 3819",
		"CHECK constraint failed",
	)
}

// WrapConstraint converts a driver-level constraint violation into a
// weft.ConstraintError wrapping the original error unmodified. Other
// errors are returned as-is.
func WrapConstraint(err error) error {
	if err == nil {
		return nil
	}
	if weft.IsConstraintError(err) || !IsConstraintError(err) {
		return err
	}
	return weft.NewConstraintError(err.Error(), err)
}

func pgError(err error) *pq.Error {
	var e *pq.Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func mysqlError(err error) *mysql.MySQLError {
	var e *mysql.MySQLError
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// sqliteConstraintCode returns the extended result code of a sqlite
// constraint error, or -1 when err is not one.
func sqliteConstraintCode(err error) int {
	var e *sqlite.Error
	if !errors.As(err, &e) {
		return -1
	}
	if e.Code()&0xff != sqliteConstraint {
		return -1
	}
	return e.Code()
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
