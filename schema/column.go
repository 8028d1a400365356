package schema

import (
	"github.com/google/uuid"
)

// Type is the semantic type tag of a column. The DDL emitter maps it
// to a backend-specific column type per dialect.
type Type uint8

// Column types.
const (
	TypeInvalid Type = iota
	TypeInt
	TypeInt64
	TypeFloat
	TypeString
	TypeBool
	TypeTime
	TypeUUID
	TypeBytes
)

var typeNames = map[Type]string{
	TypeInt:    "int",
	TypeInt64:  "int64",
	TypeFloat:  "float",
	TypeString: "string",
	TypeBool:   "bool",
	TypeTime:   "time",
	TypeUUID:   "uuid",
	TypeBytes:  "bytes",
}

// String returns the name of the type tag.
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "invalid"
}

// ParseType returns the type tag for the given name.
func ParseType(s string) Type {
	for t, name := range typeNames {
		if name == s {
			return t
		}
	}
	return TypeInvalid
}

// Column describes a single table column: name, semantic type,
// nullability, key participation, and default-value policy. Columns
// are built fluently at schema-definition time and are owned by
// exactly one table.
type Column struct {
	name        string
	typ         Type
	nullable    bool
	primary     bool
	unique      bool
	auto        bool
	size        int
	defaultVal  any
	defaultFunc func() any
}

func newColumn(name string, typ Type) *Column {
	return &Column{name: name, typ: typ}
}

// Int returns a new integer column.
func Int(name string) *Column { return newColumn(name, TypeInt) }

// Int64 returns a new 64-bit integer column.
func Int64(name string) *Column { return newColumn(name, TypeInt64) }

// Float returns a new float column.
func Float(name string) *Column { return newColumn(name, TypeFloat) }

// String returns a new string column.
func String(name string) *Column { return newColumn(name, TypeString) }

// Bool returns a new boolean column.
func Bool(name string) *Column { return newColumn(name, TypeBool) }

// Time returns a new timestamp column.
func Time(name string) *Column { return newColumn(name, TypeTime) }

// UUID returns a new UUID column with a generated default.
func UUID(name string) *Column {
	c := newColumn(name, TypeUUID)
	c.defaultFunc = func() any { return uuid.New() }
	return c
}

// Bytes returns a new binary column.
func Bytes(name string) *Column { return newColumn(name, TypeBytes) }

// Primary marks the column as part of the primary key. Primary columns
// are implicitly NOT NULL.
func (c *Column) Primary() *Column {
	c.primary = true
	return c
}

// Auto marks the column as auto-generated by the backend (serial or
// auto-increment). Implies Primary for integer columns in practice,
// but the two are declared independently.
func (c *Column) Auto() *Column {
	c.auto = true
	return c
}

// Nullable marks the column as accepting NULL.
func (c *Column) Nullable() *Column {
	c.nullable = true
	return c
}

// Unique adds a uniqueness constraint on the column.
func (c *Column) Unique() *Column {
	c.unique = true
	return c
}

// MaxLen limits the column length. Only meaningful for string columns.
func (c *Column) MaxLen(n int) *Column {
	c.size = n
	return c
}

// Default sets a constant default value, rendered into the DDL and
// applied on insert when no value is bound.
func (c *Column) Default(v any) *Column {
	c.defaultVal = v
	return c
}

// DefaultFunc sets a default-value generator, evaluated per insert on
// the client side. It is not rendered into DDL.
func (c *Column) DefaultFunc(fn func() any) *Column {
	c.defaultFunc = fn
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Type returns the semantic type tag.
func (c *Column) Type() Type { return c.typ }

// IsNullable reports whether the column accepts NULL.
func (c *Column) IsNullable() bool { return c.nullable }

// IsPrimary reports whether the column is part of the primary key.
func (c *Column) IsPrimary() bool { return c.primary }

// IsUnique reports whether the column carries a uniqueness constraint.
func (c *Column) IsUnique() bool { return c.unique }

// IsAuto reports whether the column value is generated by the backend.
func (c *Column) IsAuto() bool { return c.auto }

// Size returns the declared maximum length, or 0 if unset.
func (c *Column) Size() int { return c.size }

// DefaultValue returns the constant default, or nil.
func (c *Column) DefaultValue() any { return c.defaultVal }

// GenerateDefault evaluates the column's default policy for a new row.
// The second return value reports whether a default exists at all.
func (c *Column) GenerateDefault() (any, bool) {
	switch {
	case c.defaultFunc != nil:
		return c.defaultFunc(), true
	case c.defaultVal != nil:
		return c.defaultVal, true
	default:
		return nil, false
	}
}

// HasDefault reports whether the column has any default-value policy.
func (c *Column) HasDefault() bool {
	return c.defaultVal != nil || c.defaultFunc != nil
}

// Timestamps returns the conventional created_at and updated_at column
// pair shared by most tables.
func Timestamps() []*Column {
	return []*Column{
		Time("created_at"),
		Time("updated_at").Nullable(),
	}
}
