package schema

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/weftdb/weft"
)

// validIdentifierRe validates SQL identifiers.
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// RefAction is the referential action taken on the child rows when a
// referenced parent row is deleted.
type RefAction uint8

// Referential actions.
const (
	NoAction RefAction = iota
	Cascade
	SetNull
	Restrict
)

// String returns the DDL spelling of the action.
func (a RefAction) String() string {
	switch a {
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case Restrict:
		return "RESTRICT"
	default:
		return "NO ACTION"
	}
}

// ForeignKey maps a column to a referenced table.column pair.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
	OnDelete  RefAction
}

// Table holds the definition of a single table: its name, ordered
// columns, primary-key set, and foreign-key constraints. A table is
// immutable after the registry it belongs to has been emitted.
type Table struct {
	name    string
	columns []*Column
	fks     []ForeignKey
	reg     *Registry // set on Define
}

// New returns a new table definition with the given columns.
func New(name string, columns ...*Column) *Table {
	return &Table{name: name, columns: columns}
}

// ForeignKey appends a foreign-key constraint mapping column to
// refTable.refColumn.
func (t *Table) ForeignKey(column, refTable, refColumn string) *Table {
	t.fks = append(t.fks, ForeignKey{Column: column, RefTable: refTable, RefColumn: refColumn})
	return t
}

// OnDelete sets the referential action of the most recently added
// foreign key.
func (t *Table) OnDelete(a RefAction) *Table {
	if n := len(t.fks); n > 0 {
		t.fks[n-1].OnDelete = a
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Columns returns the ordered column definitions.
func (t *Table) Columns() []*Column { return t.columns }

// ColumnNames returns the ordered column names.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, error) {
	for _, c := range t.columns {
		if c.name == name {
			return c, nil
		}
	}
	return nil, weft.NewSchemaError(weft.ErrUnknownColumn, t.name, name, "column is not defined")
}

// PrimaryKey returns the primary-key columns in definition order.
func (t *Table) PrimaryKey() []*Column {
	var pk []*Column
	for _, c := range t.columns {
		if c.primary {
			pk = append(pk, c)
		}
	}
	return pk
}

// ForeignKeys returns the foreign-key constraints.
func (t *Table) ForeignKeys() []ForeignKey { return t.fks }

// AddColumn appends a column to the table. It fails once the owning
// registry has been frozen by an Emit call.
func (t *Table) AddColumn(c *Column) error {
	if t.reg != nil && t.reg.Frozen() {
		return weft.NewSchemaError(weft.ErrFrozen, t.name, c.name, "cannot add a column after the schema was emitted")
	}
	if _, err := t.Column(c.name); err == nil {
		return weft.NewSchemaError(nil, t.name, c.name, "column is already defined")
	}
	t.columns = append(t.columns, c)
	return nil
}

// validate checks the table definition in isolation.
func (t *Table) validate() error {
	if !validIdentifier(t.name) {
		return weft.NewSchemaError(nil, t.name, "", "invalid table name")
	}
	if len(t.columns) == 0 {
		return weft.NewSchemaError(nil, t.name, "", "table has no columns")
	}
	seen := make(map[string]struct{}, len(t.columns))
	for _, c := range t.columns {
		if !validIdentifier(c.name) {
			return weft.NewSchemaError(nil, t.name, c.name, "invalid column name")
		}
		if _, ok := seen[c.name]; ok {
			return weft.NewSchemaError(nil, t.name, c.name, "duplicate column")
		}
		seen[c.name] = struct{}{}
		if c.typ == TypeInvalid {
			return weft.NewSchemaError(nil, t.name, c.name, "column has no type")
		}
		if c.primary && c.nullable {
			return weft.NewSchemaError(nil, t.name, c.name, "primary-key column cannot be nullable")
		}
	}
	for _, fk := range t.fks {
		if _, ok := seen[fk.Column]; !ok {
			return weft.NewSchemaError(weft.ErrUnknownColumn, t.name, fk.Column, "foreign-key column is not defined")
		}
	}
	return nil
}

// Registry holds table definitions keyed by table name. Definition
// order is preserved. Once the schema has been emitted to a backend,
// the registry is frozen and further schema mutation fails.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
	order  []string
	frozen bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Define registers the given table. It fails if the table definition
// is invalid, the name is already registered, or the registry is
// frozen.
func (r *Registry) Define(t *Table) error {
	if err := t.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return weft.NewSchemaError(weft.ErrFrozen, t.name, "", "cannot define a table after the schema was emitted")
	}
	if _, ok := r.tables[t.name]; ok {
		return weft.NewSchemaError(weft.ErrDuplicateTable, t.name, "", "table is already defined")
	}
	t.reg = r
	r.tables[t.name] = t
	r.order = append(r.order, t.name)
	return nil
}

// MustDefine is like Define but panics on error. Intended for schema
// definition at program start.
func (r *Registry) MustDefine(t *Table) *Table {
	if err := r.Define(t); err != nil {
		panic(err)
	}
	return t
}

// Table returns the table registered under the given name.
func (r *Registry) Table(name string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	if !ok {
		return nil, weft.NewSchemaError(weft.ErrUnknownTable, name, "", "table is not defined")
	}
	return t, nil
}

// MustTable is like Table but panics on error.
func (r *Registry) MustTable(name string) *Table {
	t, err := r.Table(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Tables returns all registered tables in definition order.
func (r *Registry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Table, len(r.order))
	for i, name := range r.order {
		out[i] = r.tables[name]
	}
	return out
}

// Frozen reports whether the registry has been frozen by an Emit call.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

func (r *Registry) freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Validate checks cross-table consistency: every foreign key must
// reference a registered table and an existing column on it.
func (r *Registry) Validate() error {
	for _, t := range r.Tables() {
		for _, fk := range t.ForeignKeys() {
			ref, err := r.Table(fk.RefTable)
			if err != nil {
				return weft.NewSchemaError(weft.ErrUnknownTable, t.Name(), fk.Column,
					fmt.Sprintf("foreign key references unknown table %q", fk.RefTable))
			}
			if _, err := ref.Column(fk.RefColumn); err != nil {
				return weft.NewSchemaError(weft.ErrUnknownColumn, t.Name(), fk.Column,
					fmt.Sprintf("foreign key references unknown column %s.%s", fk.RefTable, fk.RefColumn))
			}
		}
	}
	return nil
}

// Order returns the tables sorted so that every table appears after
// the tables it references. Inserts follow this order; deletes follow
// its reverse. Self-references are ignored; a reference cycle between
// distinct tables is an error.
func (r *Registry) Order() ([]*Table, error) {
	tables := r.Tables()
	deps := make(map[string][]string, len(tables)) // table -> referenced tables
	for _, t := range tables {
		for _, fk := range t.ForeignKeys() {
			if fk.RefTable != t.Name() {
				deps[t.Name()] = append(deps[t.Name()], fk.RefTable)
			}
		}
	}
	var (
		out     []*Table
		state   = make(map[string]int, len(tables)) // 0 unvisited, 1 visiting, 2 done
		visit   func(t *Table) error
		lookup  = make(map[string]*Table, len(tables))
		ordered = tables
	)
	for _, t := range tables {
		lookup[t.Name()] = t
	}
	visit = func(t *Table) error {
		switch state[t.Name()] {
		case 2:
			return nil
		case 1:
			return weft.NewSchemaError(nil, t.Name(), "", "foreign-key reference cycle")
		}
		state[t.Name()] = 1
		for _, dep := range deps[t.Name()] {
			if ref, ok := lookup[dep]; ok {
				if err := visit(ref); err != nil {
					return err
				}
			}
		}
		state[t.Name()] = 2
		out = append(out, t)
		return nil
	}
	for _, t := range ordered {
		if err := visit(t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// JoinCond is an inferred equi-join condition between two tables.
type JoinCond struct {
	LeftTable   string
	LeftColumn  string
	RightTable  string
	RightColumn string
}

// JoinPath infers the join condition between two tables from their
// foreign keys. It fails with ErrAmbiguousJoin when more than one
// foreign-key path exists and with ErrUnknownJoin when none does; in
// both cases the caller must supply an explicit condition.
func (r *Registry) JoinPath(from, to string) (*JoinCond, error) {
	ft, err := r.Table(from)
	if err != nil {
		return nil, err
	}
	tt, err := r.Table(to)
	if err != nil {
		return nil, err
	}
	var conds []*JoinCond
	for _, fk := range ft.ForeignKeys() {
		if fk.RefTable == to {
			conds = append(conds, &JoinCond{
				LeftTable: from, LeftColumn: fk.Column,
				RightTable: to, RightColumn: fk.RefColumn,
			})
		}
	}
	for _, fk := range tt.ForeignKeys() {
		if fk.RefTable == from {
			conds = append(conds, &JoinCond{
				LeftTable: from, LeftColumn: fk.RefColumn,
				RightTable: to, RightColumn: fk.Column,
			})
		}
	}
	switch len(conds) {
	case 0:
		return nil, weft.NewCompileError(weft.ErrUnknownJoin, "select",
			fmt.Sprintf("no foreign-key path between %q and %q", from, to))
	case 1:
		return conds[0], nil
	default:
		return nil, weft.NewCompileError(weft.ErrAmbiguousJoin, "select",
			fmt.Sprintf("%d foreign-key paths between %q and %q, an explicit condition is required", len(conds), from, to))
	}
}
