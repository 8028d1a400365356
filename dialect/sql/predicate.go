package sql

import (
	"strings"

	"github.com/weftdb/weft"
)

// Predicate is an immutable boolean expression tree. Predicates are
// composed with And, Or, and Not, and rendered into the WHERE, HAVING,
// or ON clause of a statement. Construction never performs I/O.
type Predicate struct {
	fns  []func(*Builder)
	errs []error
}

// P returns a predicate built from the given render functions.
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Err returns an error recorded during construction, if any. Errors
// surface when the enclosing statement is compiled.
func (p *Predicate) Err() error {
	return joinErrs(p.errs)
}

func (p *Predicate) render(b *Builder) {
	for _, f := range p.fns {
		f(b)
	}
}

func op(column, operator string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" " + operator + " ").Arg(v)
	})
}

// EQ returns a column = value predicate.
func EQ(column string, v any) *Predicate { return op(column, "=", v) }

// NEQ returns a column <> value predicate.
func NEQ(column string, v any) *Predicate { return op(column, "<>", v) }

// GT returns a column > value predicate.
func GT(column string, v any) *Predicate { return op(column, ">", v) }

// GTE returns a column >= value predicate.
func GTE(column string, v any) *Predicate { return op(column, ">=", v) }

// LT returns a column < value predicate.
func LT(column string, v any) *Predicate { return op(column, "<", v) }

// LTE returns a column <= value predicate.
func LTE(column string, v any) *Predicate { return op(column, "<=", v) }

// ColumnsEQ returns a column1 = column2 predicate.
func ColumnsEQ(c1, c2 string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(c1).WriteString(" = ").Ident(c2)
	})
}

// In returns a column IN (values...) predicate. An empty value list
// renders as FALSE, since IN over the empty set matches nothing.
func In(column string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Ident(column).WriteString(" IN ")
		b.Wrap(func(b *Builder) { b.Args(vs...) })
	})
}

// NotIn returns a column NOT IN (values...) predicate. An empty value
// list renders as TRUE.
func NotIn(column string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("TRUE")
			return
		}
		b.Ident(column).WriteString(" NOT IN ")
		b.Wrap(func(b *Builder) { b.Args(vs...) })
	})
}

// IsNull returns a column IS NULL predicate.
func IsNull(column string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" IS NULL")
	})
}

// NotNull returns a column IS NOT NULL predicate.
func NotNull(column string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" IS NOT NULL")
	})
}

// escapeLike escapes the LIKE wildcard characters in v.
func escapeLike(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "%", `\%`)
	return strings.ReplaceAll(v, "_", `\_`)
}

func like(column, pattern string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" LIKE ").Arg(pattern)
	})
}

// Contains returns a column LIKE %substr% predicate.
func Contains(column, substr string) *Predicate {
	return like(column, "%"+escapeLike(substr)+"%")
}

// HasPrefix returns a column LIKE prefix% predicate.
func HasPrefix(column, prefix string) *Predicate {
	return like(column, escapeLike(prefix)+"%")
}

// HasSuffix returns a column LIKE %suffix predicate.
func HasSuffix(column, suffix string) *Predicate {
	return like(column, "%"+escapeLike(suffix))
}

// ExprP returns a predicate from a raw expression and its arguments.
// The expression is written as-is; placeholders are written as "?" and
// renumbered for dialects with positional placeholders.
func ExprP(expr string, args ...any) *Predicate {
	return P(func(b *Builder) {
		rest := expr
		for _, arg := range args {
			idx := strings.IndexByte(rest, '?')
			if idx < 0 {
				break
			}
			b.WriteString(rest[:idx]).Arg(arg)
			rest = rest[idx+1:]
		}
		b.WriteString(rest)
	})
}

// And returns a predicate joining the given predicates with AND. A
// single operand is returned unchanged, so Where(And(a, b)) and
// Where(a).Where(b) compile to the same text.
func And(preds ...*Predicate) *Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	return combine(preds, " AND ", false)
}

// Or returns a predicate joining the given predicates with OR. The
// group is parenthesized to preserve precedence under an enclosing AND.
func Or(preds ...*Predicate) *Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	return combine(preds, " OR ", true)
}

// Not returns the negation of p.
func Not(p *Predicate) *Predicate {
	np := P(func(b *Builder) {
		b.WriteString("NOT ")
		b.Wrap(func(b *Builder) { p.render(b) })
	})
	np.errs = append(np.errs, p.errs...)
	return np
}

func combine(preds []*Predicate, sep string, wrap bool) *Predicate {
	var errs []error
	for _, p := range preds {
		errs = append(errs, p.errs...)
	}
	c := P(func(b *Builder) {
		render := func(b *Builder) {
			for i, p := range preds {
				if i > 0 {
					b.WriteString(sep)
				}
				p.render(b)
			}
		}
		if wrap {
			b.Wrap(render)
		} else {
			render(b)
		}
	})
	c.errs = errs
	return c
}

// False returns a predicate that always evaluates to false.
func False() *Predicate {
	return P(func(b *Builder) { b.WriteString("FALSE") })
}

func compileErr(stmt, msg string) error {
	return weft.NewCompileError(nil, stmt, msg)
}

func missingTarget(stmt string) error {
	return weft.NewCompileError(weft.ErrMissingTarget, stmt, "no target table")
}

func emptyValues(stmt string) error {
	return weft.NewCompileError(weft.ErrEmptyValues, stmt, "SET list is empty")
}
