package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/weftdb/weft/dialect"
)

// Builder is the low-level SQL string builder. It handles identifier
// quoting, placeholder numbering, and argument collection for a single
// rendering pass. Statement builders create a fresh Builder on every
// Query call, so rendering never mutates the statement value itself.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
	errs    []error
}

// NewBuilder returns a Builder for the given dialect.
func NewBuilder(d string) *Builder {
	return &Builder{dialect: d}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// Quote quotes the given identifier according to the dialect.
func (b *Builder) Quote(ident string) string {
	switch b.dialect {
	case dialect.Postgres:
		return `"` + ident + `"`
	default:
		return "`" + ident + "`"
	}
}

// Ident writes the given identifier, quoting each dot-separated part.
// Ordering suffixes produced by Asc and Desc are kept outside the
// quotes. Raw expressions (containing parentheses, spaces, or the "*"
// column) are written as-is.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case strings.HasSuffix(s, " ASC") || strings.HasSuffix(s, " DESC"):
		i := strings.LastIndexByte(s, ' ')
		b.Ident(s[:i]).WriteString(s[i:])
	case s == "*" || strings.ContainsAny(s, "( "):
		b.sb.WriteString(s)
	case strings.Contains(s, "."):
		parts := strings.Split(s, ".")
		for i, p := range parts {
			if i > 0 {
				b.sb.WriteByte('.')
			}
			if p == "*" {
				b.sb.WriteString(p)
			} else {
				b.sb.WriteString(b.Quote(p))
			}
		}
	default:
		b.sb.WriteString(b.Quote(s))
	}
	return b
}

// IdentComma writes the given identifiers separated by commas.
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.Comma()
		}
		b.Ident(s[i])
	}
	return b
}

// WriteString writes the given raw string.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte writes the given raw byte.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Comma writes a comma separator.
func (b *Builder) Comma() *Builder { return b.WriteString(", ") }

// Pad writes a single space.
func (b *Builder) Pad() *Builder { return b.WriteByte(' ') }

// Arg appends the given argument and writes its placeholder. Postgres
// placeholders are numbered, all other dialects use "?".
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		b.sb.WriteByte('$')
		b.sb.WriteString(strconv.Itoa(len(b.args)))
	} else {
		b.sb.WriteByte('?')
	}
	return b
}

// Args appends a comma-separated list of arguments.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.Comma()
		}
		b.Arg(v)
	}
	return b
}

// Wrap wraps the output of f with parentheses.
func (b *Builder) Wrap(f func(*Builder)) *Builder {
	b.WriteByte('(')
	f(b)
	b.WriteByte(')')
	return b
}

// AddError records an error encountered during rendering.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the accumulated rendering errors, if any.
func (b *Builder) Err() error {
	return joinErrs(b.errs)
}

// String returns the SQL text rendered so far.
func (b *Builder) String() string { return b.sb.String() }

func joinErrs(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
}

// DialectBuilder is the entry point for dialect-aware statement
// construction.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a DialectBuilder for the given dialect.
//
//	sql.Dialect(dialect.Postgres).
//	    Select("id", "name").
//	    From(sql.Table("users"))
func Dialect(d string) *DialectBuilder {
	return &DialectBuilder{dialect: d}
}

// Select starts a SELECT statement with the given columns.
func (b *DialectBuilder) Select(columns ...string) *Selector {
	return Select(columns...).withDialect(b.dialect)
}

// Insert starts an INSERT statement into the given table.
func (b *DialectBuilder) Insert(table string) *InsertBuilder {
	return Insert(table).withDialect(b.dialect)
}

// Update starts an UPDATE statement on the given table.
func (b *DialectBuilder) Update(table string) *UpdateBuilder {
	return Update(table).withDialect(b.dialect)
}

// Delete starts a DELETE statement on the given table.
func (b *DialectBuilder) Delete(table string) *DeleteBuilder {
	return Delete(table).withDialect(b.dialect)
}

// SelectTable is a table reference in a SELECT statement, optionally
// aliased.
type SelectTable struct {
	name string
	as   string
}

// Table returns a new table reference.
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// As returns a copy of the table with the given alias.
func (t *SelectTable) As(alias string) *SelectTable {
	c := *t
	c.as = alias
	return &c
}

// Name returns the table name.
func (t *SelectTable) Name() string { return t.name }

// C returns the given column qualified by the table alias or name.
func (t *SelectTable) C(column string) string {
	if t.as != "" {
		return t.as + "." + column
	}
	return t.name + "." + column
}

// ref renders the table reference including its alias.
func (t *SelectTable) ref(b *Builder) {
	b.Ident(t.name)
	if t.as != "" {
		b.WriteString(" AS ").Ident(t.as)
	}
}

type join struct {
	kind  string
	table *SelectTable
	on    *Predicate
}

// Selector builds a SELECT statement. All clause methods copy the
// receiver, so a partially built selector can be reused as a base for
// multiple variants without the variants observing each other.
type Selector struct {
	dialect  string
	columns  []string
	from     *SelectTable
	joins    []join
	where    *Predicate
	groupBy  []string
	having   *Predicate
	orderBy  []string
	limit    *int
	offset   *int
	distinct bool
	errs     []error
}

// Select returns a Selector with the given projected columns. If no
// columns are given, "*" is projected.
func Select(columns ...string) *Selector {
	return &Selector{columns: columns}
}

func (s *Selector) withDialect(d string) *Selector {
	c := s.clone()
	c.dialect = d
	return c
}

func (s *Selector) clone() *Selector {
	c := *s
	c.columns = append([]string(nil), s.columns...)
	c.joins = append([]join(nil), s.joins...)
	c.groupBy = append([]string(nil), s.groupBy...)
	c.orderBy = append([]string(nil), s.orderBy...)
	c.errs = append([]error(nil), s.errs...)
	return &c
}

// From returns a copy of the selector with the given target table.
func (s *Selector) From(t *SelectTable) *Selector {
	c := s.clone()
	c.from = t
	return c
}

// Where returns a copy of the selector with p added to the WHERE
// clause. Successive calls are combined with AND.
func (s *Selector) Where(p *Predicate) *Selector {
	c := s.clone()
	if perr := p.Err(); perr != nil {
		c.errs = append(c.errs, perr)
	}
	if c.where != nil {
		c.where = And(c.where, p)
	} else {
		c.where = p
	}
	return c
}

// P returns the predicate of the WHERE clause, or nil.
func (s *Selector) P() *Predicate { return s.where }

// C returns the given column qualified by the target table.
func (s *Selector) C(column string) string {
	if s.from != nil {
		return s.from.C(column)
	}
	return column
}

// Join returns a copy of the selector with an inner join on t. A join
// condition must be supplied with On or OnP before the statement is
// compiled.
func (s *Selector) Join(t *SelectTable) *Selector {
	return s.join("JOIN", t)
}

// LeftJoin returns a copy of the selector with a left outer join on t.
func (s *Selector) LeftJoin(t *SelectTable) *Selector {
	return s.join("LEFT JOIN", t)
}

func (s *Selector) join(kind string, t *SelectTable) *Selector {
	c := s.clone()
	c.joins = append(c.joins, join{kind: kind, table: t})
	return c
}

// On returns a copy of the selector with the join condition c1 = c2 set
// on the most recent join.
func (s *Selector) On(c1, c2 string) *Selector {
	return s.OnP(ColumnsEQ(c1, c2))
}

// OnP returns a copy of the selector with the given predicate set as
// the join condition of the most recent join.
func (s *Selector) OnP(p *Predicate) *Selector {
	c := s.clone()
	if len(c.joins) == 0 {
		c.errs = append(c.errs, compileErr("select", "ON without a preceding JOIN"))
		return c
	}
	c.joins[len(c.joins)-1].on = p
	return c
}

// GroupBy returns a copy of the selector with the given GROUP BY
// columns appended.
func (s *Selector) GroupBy(columns ...string) *Selector {
	c := s.clone()
	c.groupBy = append(c.groupBy, columns...)
	return c
}

// Having returns a copy of the selector with the given HAVING clause.
func (s *Selector) Having(p *Predicate) *Selector {
	c := s.clone()
	c.having = p
	return c
}

// OrderBy returns a copy of the selector with the given ORDER BY
// columns appended. Use Desc to reverse a column's order.
func (s *Selector) OrderBy(columns ...string) *Selector {
	c := s.clone()
	c.orderBy = append(c.orderBy, columns...)
	return c
}

// Limit returns a copy of the selector with the given LIMIT.
func (s *Selector) Limit(n int) *Selector {
	c := s.clone()
	c.limit = &n
	return c
}

// Offset returns a copy of the selector with the given OFFSET.
func (s *Selector) Offset(n int) *Selector {
	c := s.clone()
	c.offset = &n
	return c
}

// Distinct returns a copy of the selector with SELECT DISTINCT set.
func (s *Selector) Distinct() *Selector {
	c := s.clone()
	c.distinct = true
	return c
}

// Count returns a copy of the selector projecting COUNT over the given
// column, or COUNT(*) if none is given.
func (s *Selector) Count(column ...string) *Selector {
	c := s.clone()
	target := "*"
	if len(column) > 0 {
		target = column[0]
	}
	c.columns = []string{"COUNT(" + target + ")"}
	return c
}

// Err returns a compilation error for the statement, if any. Errors are
// deferred to compile time, since a statement may be legitimately built
// before its full context is known.
func (s *Selector) Err() error {
	errs := append([]error(nil), s.errs...)
	if s.from == nil {
		errs = append(errs, missingTarget("select"))
	}
	for _, j := range s.joins {
		if j.on == nil {
			errs = append(errs, compileErr("select", fmt.Sprintf("join on %q has no condition", j.table.name)))
		}
	}
	return joinErrs(errs)
}

// Query compiles the statement and returns the SQL text and its
// arguments. The result is deterministic for a given statement and
// dialect. Check Err for deferred compile errors.
func (s *Selector) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		b.WriteString("*")
	} else {
		b.IdentComma(s.columns...)
	}
	if s.from != nil {
		b.WriteString(" FROM ")
		s.from.ref(b)
	}
	for _, j := range s.joins {
		b.Pad().WriteString(j.kind).Pad()
		j.table.ref(b)
		if j.on != nil {
			b.WriteString(" ON ")
			j.on.render(b)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.render(b)
	}
	if len(s.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.IdentComma(s.groupBy...)
	}
	if s.having != nil {
		b.WriteString(" HAVING ")
		s.having.render(b)
	}
	if len(s.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.IdentComma(s.orderBy...)
	}
	if s.limit != nil {
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*s.offset))
	}
	return b.String(), b.args
}

// Desc marks a column for descending ordering in OrderBy.
func Desc(column string) string { return column + " DESC" }

// Asc marks a column for explicit ascending ordering in OrderBy.
func Asc(column string) string { return column + " ASC" }

// InsertBuilder builds an INSERT statement. All clause methods copy
// the receiver.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    [][]any
	defaults  bool
	returning []string
}

// Insert returns an InsertBuilder for the given table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (i *InsertBuilder) withDialect(d string) *InsertBuilder {
	c := i.clone()
	c.dialect = d
	return c
}

func (i *InsertBuilder) clone() *InsertBuilder {
	c := *i
	c.columns = append([]string(nil), i.columns...)
	c.values = make([][]any, len(i.values))
	for n := range i.values {
		c.values[n] = append([]any(nil), i.values[n]...)
	}
	c.returning = append([]string(nil), i.returning...)
	return &c
}

// Table returns the target table name.
func (i *InsertBuilder) Table() string { return i.table }

// Columns returns a copy of the builder with the insert columns set.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	c := i.clone()
	c.columns = columns
	return c
}

// Values returns a copy of the builder with a row of values appended.
// Call multiple times for a multi-row insert.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	c := i.clone()
	c.values = append(c.values, values)
	return c
}

// Default returns a copy of the builder that inserts a row with all
// default values.
func (i *InsertBuilder) Default() *InsertBuilder {
	c := i.clone()
	c.defaults = true
	return c
}

// Returning returns a copy of the builder with a RETURNING clause.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	c := i.clone()
	c.returning = columns
	return c
}

// Err returns a compilation error for the statement, if any.
func (i *InsertBuilder) Err() error {
	var errs []error
	if i.table == "" {
		errs = append(errs, missingTarget("insert"))
	}
	if !i.defaults && len(i.values) == 0 {
		errs = append(errs, compileErr("insert", "no values and no default marker"))
	}
	for _, row := range i.values {
		if len(row) != len(i.columns) {
			errs = append(errs, compileErr("insert", fmt.Sprintf("%d values for %d columns", len(row), len(i.columns))))
		}
	}
	if len(i.returning) > 0 && i.dialect == dialect.MySQL {
		errs = append(errs, compileErr("insert", "RETURNING is not supported by the mysql dialect"))
	}
	return joinErrs(errs)
}

// Query compiles the statement and returns the SQL text and its
// arguments.
func (i *InsertBuilder) Query() (string, []any) {
	b := NewBuilder(i.dialect)
	b.WriteString("INSERT INTO ").Ident(i.table)
	switch {
	case i.defaults && len(i.values) == 0:
		if i.dialect == dialect.MySQL {
			b.WriteString(" () VALUES ()")
		} else {
			b.WriteString(" DEFAULT VALUES")
		}
	default:
		b.WriteString(" (").IdentComma(i.columns...).WriteString(") VALUES ")
		for n, row := range i.values {
			if n > 0 {
				b.Comma()
			}
			b.Wrap(func(b *Builder) { b.Args(row...) })
		}
	}
	if len(i.returning) > 0 && i.dialect != dialect.MySQL {
		b.WriteString(" RETURNING ").IdentComma(i.returning...)
	}
	return b.String(), b.args
}

type assign struct {
	column string
	value  any
	add    bool
}

// UpdateBuilder builds an UPDATE statement. All clause methods copy
// the receiver.
type UpdateBuilder struct {
	dialect   string
	table     string
	assigns   []assign
	where     *Predicate
	returning []string
	errs      []error
}

// Update returns an UpdateBuilder for the given table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

func (u *UpdateBuilder) withDialect(d string) *UpdateBuilder {
	c := u.clone()
	c.dialect = d
	return c
}

func (u *UpdateBuilder) clone() *UpdateBuilder {
	c := *u
	c.assigns = append([]assign(nil), u.assigns...)
	c.returning = append([]string(nil), u.returning...)
	c.errs = append([]error(nil), u.errs...)
	return &c
}

// Table returns the target table name.
func (u *UpdateBuilder) Table() string { return u.table }

// Set returns a copy of the builder with column = value appended to
// the SET clause.
func (u *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	c := u.clone()
	c.assigns = append(c.assigns, assign{column: column, value: value})
	return c
}

// Add returns a copy of the builder with column = column + value
// appended to the SET clause.
func (u *UpdateBuilder) Add(column string, value any) *UpdateBuilder {
	c := u.clone()
	c.assigns = append(c.assigns, assign{column: column, value: value, add: true})
	return c
}

// Where returns a copy of the builder with p added to the WHERE
// clause. Successive calls are combined with AND.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	c := u.clone()
	if perr := p.Err(); perr != nil {
		c.errs = append(c.errs, perr)
	}
	if c.where != nil {
		c.where = And(c.where, p)
	} else {
		c.where = p
	}
	return c
}

// Returning returns a copy of the builder with a RETURNING clause.
func (u *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	c := u.clone()
	c.returning = columns
	return c
}

// Err returns a compilation error for the statement, if any. An update
// with an empty SET list is a compile error rather than a no-op.
func (u *UpdateBuilder) Err() error {
	errs := append([]error(nil), u.errs...)
	if u.table == "" {
		errs = append(errs, missingTarget("update"))
	}
	if len(u.assigns) == 0 {
		errs = append(errs, emptyValues("update"))
	}
	if len(u.returning) > 0 && u.dialect == dialect.MySQL {
		errs = append(errs, compileErr("update", "RETURNING is not supported by the mysql dialect"))
	}
	return joinErrs(errs)
}

// Query compiles the statement and returns the SQL text and its
// arguments.
func (u *UpdateBuilder) Query() (string, []any) {
	b := NewBuilder(u.dialect)
	b.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for n, a := range u.assigns {
		if n > 0 {
			b.Comma()
		}
		b.Ident(a.column).WriteString(" = ")
		if a.add {
			b.Ident(a.column).WriteString(" + ")
		}
		b.Arg(a.value)
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		u.where.render(b)
	}
	if len(u.returning) > 0 && u.dialect != dialect.MySQL {
		b.WriteString(" RETURNING ").IdentComma(u.returning...)
	}
	return b.String(), b.args
}

// DeleteBuilder builds a DELETE statement. All clause methods copy
// the receiver.
type DeleteBuilder struct {
	dialect   string
	table     string
	where     *Predicate
	returning []string
	errs      []error
}

// Delete returns a DeleteBuilder for the given table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (d *DeleteBuilder) withDialect(dl string) *DeleteBuilder {
	c := d.clone()
	c.dialect = dl
	return c
}

func (d *DeleteBuilder) clone() *DeleteBuilder {
	c := *d
	c.returning = append([]string(nil), d.returning...)
	c.errs = append([]error(nil), d.errs...)
	return &c
}

// Table returns the target table name.
func (d *DeleteBuilder) Table() string { return d.table }

// Where returns a copy of the builder with p added to the WHERE
// clause. Successive calls are combined with AND.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	c := d.clone()
	if perr := p.Err(); perr != nil {
		c.errs = append(c.errs, perr)
	}
	if c.where != nil {
		c.where = And(c.where, p)
	} else {
		c.where = p
	}
	return c
}

// Returning returns a copy of the builder with a RETURNING clause.
func (d *DeleteBuilder) Returning(columns ...string) *DeleteBuilder {
	c := d.clone()
	c.returning = columns
	return c
}

// Err returns a compilation error for the statement, if any.
func (d *DeleteBuilder) Err() error {
	errs := append([]error(nil), d.errs...)
	if d.table == "" {
		errs = append(errs, missingTarget("delete"))
	}
	if len(d.returning) > 0 && d.dialect == dialect.MySQL {
		errs = append(errs, compileErr("delete", "RETURNING is not supported by the mysql dialect"))
	}
	return joinErrs(errs)
}

// Query compiles the statement and returns the SQL text and its
// arguments.
func (d *DeleteBuilder) Query() (string, []any) {
	b := NewBuilder(d.dialect)
	b.WriteString("DELETE FROM ").Ident(d.table)
	if d.where != nil {
		b.WriteString(" WHERE ")
		d.where.render(b)
	}
	if len(d.returning) > 0 && d.dialect != dialect.MySQL {
		b.WriteString(" RETURNING ").IdentComma(d.returning...)
	}
	return b.String(), b.args
}

// Querier is implemented by all statement builders.
type Querier interface {
	// Query returns the compiled SQL text and its arguments.
	Query() (string, []any)
	// Err returns a deferred compile error, if any.
	Err() error
}

var (
	_ Querier = (*Selector)(nil)
	_ Querier = (*InsertBuilder)(nil)
	_ Querier = (*UpdateBuilder)(nil)
	_ Querier = (*DeleteBuilder)(nil)
)
