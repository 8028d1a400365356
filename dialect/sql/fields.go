package sql

import (
	"time"

	"github.com/google/uuid"

	"github.com/weftdb/weft"
)

// Field is implemented by the typed field helpers below. Typed fields
// make the value side of a comparison type-checked by the compiler,
// and carry a semantic kind so cross-column comparisons between
// incompatible fields are rejected when the statement is compiled.
type Field interface {
	// Name returns the column name.
	Name() string
	kind() fieldKind
}

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
	kindUUID
)

func (k fieldKind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindInt:
		return "int"
	case kindFloat:
		return "float"
	case kindBool:
		return "bool"
	case kindTime:
		return "time"
	case kindUUID:
		return "uuid"
	}
	return "unknown"
}

// fieldsEQ builds a cross-column equality, deferring a type-mismatch
// error to compile time.
func fieldsEQ(f, other Field) *Predicate {
	p := ColumnsEQ(f.Name(), other.Name())
	if f.kind() != other.kind() {
		p.errs = append(p.errs, weft.NewExpressionError(
			f.Name(),
			"cannot compare "+f.kind().String()+" column with "+other.kind().String()+" column "+other.Name(),
		))
	}
	return p
}

// StringField is a string-typed column reference.
//
//	var name = sql.StringField("name")
//	sel.Where(name.Contains("ed"))
type StringField string

// Name returns the column name.
func (f StringField) Name() string    { return string(f) }
func (f StringField) kind() fieldKind { return kindString }

// EQ returns a field = value predicate.
func (f StringField) EQ(v string) *Predicate { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f StringField) NEQ(v string) *Predicate { return NEQ(string(f), v) }

// GT returns a field > value predicate.
func (f StringField) GT(v string) *Predicate { return GT(string(f), v) }

// LT returns a field < value predicate.
func (f StringField) LT(v string) *Predicate { return LT(string(f), v) }

// In returns a field IN (values...) predicate.
func (f StringField) In(vs ...string) *Predicate { return In(string(f), anys(vs)...) }

// Contains returns a field LIKE %substr% predicate.
func (f StringField) Contains(v string) *Predicate { return Contains(string(f), v) }

// HasPrefix returns a field LIKE prefix% predicate.
func (f StringField) HasPrefix(v string) *Predicate { return HasPrefix(string(f), v) }

// HasSuffix returns a field LIKE %suffix predicate.
func (f StringField) HasSuffix(v string) *Predicate { return HasSuffix(string(f), v) }

// IsNull returns a field IS NULL predicate.
func (f StringField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f StringField) NotNull() *Predicate { return NotNull(string(f)) }

// EQField returns a field = other-column predicate.
func (f StringField) EQField(other Field) *Predicate { return fieldsEQ(f, other) }

// IntField is an integer-typed column reference.
type IntField string

// Name returns the column name.
func (f IntField) Name() string    { return string(f) }
func (f IntField) kind() fieldKind { return kindInt }

// EQ returns a field = value predicate.
func (f IntField) EQ(v int) *Predicate { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f IntField) NEQ(v int) *Predicate { return NEQ(string(f), v) }

// GT returns a field > value predicate.
func (f IntField) GT(v int) *Predicate { return GT(string(f), v) }

// GTE returns a field >= value predicate.
func (f IntField) GTE(v int) *Predicate { return GTE(string(f), v) }

// LT returns a field < value predicate.
func (f IntField) LT(v int) *Predicate { return LT(string(f), v) }

// LTE returns a field <= value predicate.
func (f IntField) LTE(v int) *Predicate { return LTE(string(f), v) }

// In returns a field IN (values...) predicate.
func (f IntField) In(vs ...int) *Predicate { return In(string(f), anys(vs)...) }

// IsNull returns a field IS NULL predicate.
func (f IntField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f IntField) NotNull() *Predicate { return NotNull(string(f)) }

// EQField returns a field = other-column predicate.
func (f IntField) EQField(other Field) *Predicate { return fieldsEQ(f, other) }

// Float64Field is a float-typed column reference.
type Float64Field string

// Name returns the column name.
func (f Float64Field) Name() string    { return string(f) }
func (f Float64Field) kind() fieldKind { return kindFloat }

// EQ returns a field = value predicate.
func (f Float64Field) EQ(v float64) *Predicate { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f Float64Field) NEQ(v float64) *Predicate { return NEQ(string(f), v) }

// GT returns a field > value predicate.
func (f Float64Field) GT(v float64) *Predicate { return GT(string(f), v) }

// LT returns a field < value predicate.
func (f Float64Field) LT(v float64) *Predicate { return LT(string(f), v) }

// EQField returns a field = other-column predicate.
func (f Float64Field) EQField(other Field) *Predicate { return fieldsEQ(f, other) }

// BoolField is a boolean-typed column reference.
type BoolField string

// Name returns the column name.
func (f BoolField) Name() string    { return string(f) }
func (f BoolField) kind() fieldKind { return kindBool }

// EQ returns a field = value predicate.
func (f BoolField) EQ(v bool) *Predicate { return EQ(string(f), v) }

// EQField returns a field = other-column predicate.
func (f BoolField) EQField(other Field) *Predicate { return fieldsEQ(f, other) }

// TimeField is a time-typed column reference.
type TimeField string

// Name returns the column name.
func (f TimeField) Name() string    { return string(f) }
func (f TimeField) kind() fieldKind { return kindTime }

// EQ returns a field = value predicate.
func (f TimeField) EQ(v time.Time) *Predicate { return EQ(string(f), v) }

// Before returns a field < value predicate.
func (f TimeField) Before(v time.Time) *Predicate { return LT(string(f), v) }

// After returns a field > value predicate.
func (f TimeField) After(v time.Time) *Predicate { return GT(string(f), v) }

// IsNull returns a field IS NULL predicate.
func (f TimeField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f TimeField) NotNull() *Predicate { return NotNull(string(f)) }

// EQField returns a field = other-column predicate.
func (f TimeField) EQField(other Field) *Predicate { return fieldsEQ(f, other) }

// UUIDField is a UUID-typed column reference.
type UUIDField string

// Name returns the column name.
func (f UUIDField) Name() string    { return string(f) }
func (f UUIDField) kind() fieldKind { return kindUUID }

// EQ returns a field = value predicate.
func (f UUIDField) EQ(v uuid.UUID) *Predicate { return EQ(string(f), v) }

// In returns a field IN (values...) predicate.
func (f UUIDField) In(vs ...uuid.UUID) *Predicate { return In(string(f), anys(vs)...) }

// EQField returns a field = other-column predicate.
func (f UUIDField) EQField(other Field) *Predicate { return fieldsEQ(f, other) }

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i := range vs {
		out[i] = vs[i]
	}
	return out
}
