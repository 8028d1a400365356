package weft_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftdb/weft"
)

func TestSchemaError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := weft.NewSchemaError(weft.ErrUnknownColumn, "users", "age", "column is not defined")
		assert.Equal(t, "weft: schema: users.age: column is not defined", err.Error())

		err = weft.NewSchemaError(nil, "users", "", "table has no columns")
		assert.Equal(t, "weft: schema: users: table has no columns", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := weft.NewSchemaError(weft.ErrDuplicateTable, "users", "", "table is already defined")
		assert.True(t, errors.Is(err, weft.ErrDuplicateTable))
		assert.False(t, errors.Is(err, weft.ErrUnknownTable))

		// No sentinel attached.
		err = weft.NewSchemaError(nil, "users", "", "invalid")
		assert.False(t, errors.Is(err, weft.ErrDuplicateTable))
	})

	t.Run("IsSchemaError", func(t *testing.T) {
		err := weft.NewSchemaError(weft.ErrFrozen, "users", "", "schema is frozen")
		assert.True(t, weft.IsSchemaError(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, weft.IsSchemaError(wrapped))
		assert.True(t, errors.Is(wrapped, weft.ErrFrozen))

		// Non-matching error
		assert.False(t, weft.IsSchemaError(errors.New("other error")))
		assert.False(t, weft.IsSchemaError(nil))
	})
}

func TestExpressionError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := weft.NewExpressionError("age", "cannot compare int column with string column")
		assert.Equal(t, "weft: expression: age: cannot compare int column with string column", err.Error())
	})

	t.Run("IsExpressionError", func(t *testing.T) {
		err := weft.NewExpressionError("name", "incompatible comparison")
		assert.True(t, weft.IsExpressionError(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, weft.IsExpressionError(wrapped))

		// Non-matching error
		assert.False(t, weft.IsExpressionError(errors.New("other error")))
		assert.False(t, weft.IsExpressionError(nil))
	})
}

func TestCompileError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := weft.NewCompileError(weft.ErrMissingTarget, "select", "no target table")
		assert.Equal(t, "weft: compile select: no target table", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		assert.True(t, errors.Is(weft.NewCompileError(weft.ErrMissingTarget, "insert", "no target table"), weft.ErrMissingTarget))
		assert.True(t, errors.Is(weft.NewCompileError(weft.ErrEmptyValues, "update", "empty SET list"), weft.ErrEmptyValues))
		assert.True(t, errors.Is(weft.NewCompileError(weft.ErrAmbiguousJoin, "select", "two foreign keys"), weft.ErrAmbiguousJoin))
		assert.True(t, errors.Is(weft.NewCompileError(weft.ErrUnknownJoin, "select", "no foreign key path"), weft.ErrUnknownJoin))
	})

	t.Run("IsCompileError", func(t *testing.T) {
		err := weft.NewCompileError(nil, "select", "join without condition")
		assert.True(t, weft.IsCompileError(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, weft.IsCompileError(wrapped))

		// Non-matching error
		assert.False(t, weft.IsCompileError(errors.New("other error")))
		assert.False(t, weft.IsCompileError(nil))
	})
}

func TestIdentityConflictError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := weft.NewIdentityConflictError("users", []any{5})
		assert.Contains(t, err.Error(), "users")
		assert.Contains(t, err.Error(), "5")
		assert.Contains(t, err.Error(), "already tracked")
	})

	t.Run("IsIdentityConflict", func(t *testing.T) {
		err := weft.NewIdentityConflictError("addresses", []any{1, "home"})
		assert.True(t, weft.IsIdentityConflict(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, weft.IsIdentityConflict(wrapped))

		// Non-matching error
		assert.False(t, weft.IsIdentityConflict(errors.New("other error")))
		assert.False(t, weft.IsIdentityConflict(nil))
	})
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := weft.NewConstraintError("UNIQUE constraint failed", nil)
		assert.Equal(t, "weft: constraint failed: UNIQUE constraint failed", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("db error")
		err := weft.NewConstraintError("constraint violated", underlying)
		assert.True(t, errors.Is(err, underlying))
		assert.Equal(t, underlying, errors.Unwrap(err))
	})

	t.Run("IsConstraintError", func(t *testing.T) {
		err := weft.NewConstraintError("check failed", nil)
		assert.True(t, weft.IsConstraintError(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, weft.IsConstraintError(wrapped))

		// Non-matching error
		assert.False(t, weft.IsConstraintError(errors.New("other error")))
		assert.False(t, weft.IsConstraintError(nil))
	})
}

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := weft.NewNotFoundError("users", []any{42})
		assert.Equal(t, "weft: users not found (key=[42])", err.Error())
	})

	t.Run("ErrorWithoutKey", func(t *testing.T) {
		err := weft.NewNotFoundError("users", nil)
		assert.Equal(t, "weft: users not found", err.Error())
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := weft.NewNotFoundError("addresses", []any{7})
		assert.True(t, weft.IsNotFound(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, weft.IsNotFound(wrapped))

		// Non-matching error
		assert.False(t, weft.IsNotFound(errors.New("other error")))
		assert.False(t, weft.IsNotFound(nil))
	})
}

func TestNotLoadedError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := weft.NewNotLoadedError("addresses")
		assert.Equal(t, `weft: relation "addresses" was not loaded`, err.Error())
	})

	t.Run("IsNotLoaded", func(t *testing.T) {
		err := weft.NewNotLoadedError("orders")
		assert.True(t, weft.IsNotLoaded(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, weft.IsNotLoaded(wrapped))

		// Non-matching error
		assert.False(t, weft.IsNotLoaded(errors.New("other error")))
		assert.False(t, weft.IsNotLoaded(nil))
	})
}

func TestRollbackError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &weft.RollbackError{Err: errors.New("connection lost")}
		assert.Equal(t, "weft: rollback failed: connection lost", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("timeout")
		err := &weft.RollbackError{Err: underlying}
		assert.True(t, errors.Is(err, underlying))
	})
}

func TestAggregateError(t *testing.T) {
	t.Run("NoErrors", func(t *testing.T) {
		err := weft.NewAggregateError()
		assert.Nil(t, err)
	})

	t.Run("NilErrors", func(t *testing.T) {
		err := weft.NewAggregateError(nil, nil, nil)
		assert.Nil(t, err)
	})

	t.Run("SingleError", func(t *testing.T) {
		single := errors.New("single error")
		err := weft.NewAggregateError(single)
		assert.Equal(t, single, err)
	})

	t.Run("MultipleErrors", func(t *testing.T) {
		err1 := errors.New("error 1")
		err2 := errors.New("error 2")
		err := weft.NewAggregateError(err1, err2)

		require.NotNil(t, err)
		var agg *weft.AggregateError
		require.True(t, errors.As(err, &agg))
		assert.Len(t, agg.Errors, 2)
		assert.Contains(t, err.Error(), "multiple errors")
		assert.Contains(t, err.Error(), "error 1")
		assert.Contains(t, err.Error(), "error 2")
	})

	t.Run("MixedNilAndErrors", func(t *testing.T) {
		err1 := errors.New("error 1")
		err := weft.NewAggregateError(nil, err1, nil)

		require.NotNil(t, err)
		assert.Equal(t, err1, err) // Single non-nil error returned directly
	})
}

// BenchmarkErrors benchmarks error creation and checking.
func BenchmarkErrors(b *testing.B) {
	b.Run("NewNotFoundError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = weft.NewNotFoundError("users", nil)
		}
	})

	b.Run("IsNotFound", func(b *testing.B) {
		err := weft.NewNotFoundError("users", nil)
		for i := 0; i < b.N; i++ {
			_ = weft.IsNotFound(err)
		}
	})

	b.Run("NewConstraintError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = weft.NewConstraintError("unique", nil)
		}
	})

	b.Run("IsConstraintError", func(b *testing.B) {
		err := weft.NewConstraintError("unique", nil)
		for i := 0; i < b.N; i++ {
			_ = weft.IsConstraintError(err)
		}
	})

	b.Run("NewCompileError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = weft.NewCompileError(weft.ErrMissingTarget, "select", "no target table")
		}
	})

	b.Run("NewAggregateError_multiple", func(b *testing.B) {
		err1 := errors.New("err1")
		err2 := errors.New("err2")
		err3 := errors.New("err3")
		for i := 0; i < b.N; i++ {
			_ = weft.NewAggregateError(err1, err2, err3)
		}
	})
}
