package session

import (
	"fmt"
	"reflect"
	"time"
)

// Strategy selects how a relationship is loaded. There is no implicit
// loading on attribute access: a relation is either loaded by the
// query that produced its parent, fetched explicitly, or unavailable.
type Strategy uint8

const (
	// ExplicitFetch leaves the relation unloaded; accessing it returns
	// NotLoadedError until Fetch is called. This is the default.
	ExplicitFetch Strategy = iota
	// EagerJoin loads the relation with a single joined query issued
	// together with the parent query.
	EagerJoin
	// EagerBatch loads the relation with one IN query over all parent
	// keys after the parents are loaded.
	EagerBatch
	// Disallowed forbids loading the relation entirely.
	Disallowed
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case EagerJoin:
		return "eager-join"
	case EagerBatch:
		return "eager-batch"
	case Disallowed:
		return "disallowed"
	default:
		return "explicit-fetch"
	}
}

// Relation declares a one-to-many relationship from a parent entity to
// the rows of a child table referencing it.
type Relation struct {
	// Name of the relation, unique within the mapping.
	Name string
	// Table is the child table.
	Table string
	// FKColumn is the child column referencing the parent primary key.
	FKColumn string
	// Cascade propagates parent deletion to the child rows: on flush
	// the children are deleted before the parent.
	Cascade bool
	// Strategy is the default loader strategy; a query may override it.
	Strategy Strategy
}

// Mapping is the explicit schema descriptor of a mapped entity type:
// its table and per-column accessors. There is no runtime attribute
// interception; the accessors are the only bridge between entities and
// rows. The Go zero value of a column is treated as unset when
// building an INSERT.
type Mapping struct {
	// Table this entity type maps to.
	Table string
	// New returns a new empty entity instance.
	New func() any
	// Get returns the value of the given column from the entity.
	Get func(entity any, column string) any
	// Set assigns the given column value on the entity. Values read
	// from the backend arrive as driver types (int64, []byte); the
	// conversion helpers in this package cover the common cases.
	Set func(entity any, column string, value any)
	// Relations of the entity.
	Relations []Relation
}

func (m *Mapping) relation(name string) (Relation, bool) {
	for _, r := range m.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

func (m *Mapping) entityType() reflect.Type {
	return reflect.TypeOf(m.New())
}

// ToInt coerces a driver value to int.
func ToInt(v any) int {
	switch v := v.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case []byte:
		var n int
		fmt.Sscanf(string(v), "%d", &n)
		return n
	default:
		return 0
	}
}

// ToInt64 coerces a driver value to int64.
func ToInt64(v any) int64 {
	switch v := v.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	case []byte:
		var n int64
		fmt.Sscanf(string(v), "%d", &n)
		return n
	default:
		return 0
	}
}

// ToFloat64 coerces a driver value to float64.
func ToFloat64(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// ToString coerces a driver value to string.
func ToString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ToBool coerces a driver value to bool.
func ToBool(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

// ToTime coerces a driver value to time.Time.
func ToTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		t, _ := time.Parse("2006-01-02 15:04:05", v)
		return t
	case []byte:
		t, _ := time.Parse("2006-01-02 15:04:05", string(v))
		return t
	default:
		return time.Time{}
	}
}
