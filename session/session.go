package session

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/weftdb/weft"
	"github.com/weftdb/weft/dialect"
	sql "github.com/weftdb/weft/dialect/sql"
	"github.com/weftdb/weft/schema"
)

// Status is the lifecycle state of an entity relative to a session.
type Status uint8

const (
	// Transient entities are unknown to any session.
	Transient Status = iota
	// Pending entities are added to a session but not yet flushed.
	Pending
	// Persistent entities have a database row and an identity map entry.
	Persistent
	// Deleted entities are marked for deletion on the next flush.
	Deleted
	// Detached entities were persistent in a session that has closed or
	// expunged them.
	Detached
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Persistent:
		return "persistent"
	case Deleted:
		return "deleted"
	case Detached:
		return "detached"
	default:
		return "transient"
	}
}

type identKey struct {
	table string
	key   string
}

func formatKey(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, "/")
}

type entityState struct {
	entity   any
	mapping  *Mapping
	status   Status
	seq      int
	snapshot map[string]any
	expired  bool
	txNew    bool // inserted by the open transaction, not yet committed
	loaded   map[string][]any
	noload   map[string]bool
}

// Session is a unit of work over a single driver connection. It tracks
// entities through an identity map, accumulates pending changes, and
// writes them inside one transaction on flush. A session holds at most
// one open transaction at a time and is not safe for concurrent use.
type Session struct {
	drv      dialect.Driver
	reg      *schema.Registry
	mappings map[string]*Mapping
	byType   map[reflect.Type]*Mapping
	tx       dialect.Tx
	identity map[identKey]*entityState
	states   map[any]*entityState
	seq      int
	closed   bool
}

// New creates a session bound to the given driver and schema registry.
// Every mapping's table must be defined in the registry.
func New(drv dialect.Driver, reg *schema.Registry, mappings ...*Mapping) (*Session, error) {
	s := &Session{
		drv:      drv,
		reg:      reg,
		mappings: make(map[string]*Mapping, len(mappings)),
		byType:   make(map[reflect.Type]*Mapping, len(mappings)),
		identity: make(map[identKey]*entityState),
		states:   make(map[any]*entityState),
	}
	for _, m := range mappings {
		if _, err := reg.Table(m.Table); err != nil {
			return nil, err
		}
		if _, ok := s.mappings[m.Table]; ok {
			return nil, fmt.Errorf("weft/session: duplicate mapping for table %q", m.Table)
		}
		for _, rel := range m.Relations {
			if _, err := reg.Table(rel.Table); err != nil {
				return nil, fmt.Errorf("weft/session: relation %q of %q: %w", rel.Name, m.Table, err)
			}
		}
		s.mappings[m.Table] = m
		s.byType[m.entityType()] = m
	}
	return s, nil
}

// Must is like New but panics on error.
func Must(drv dialect.Driver, reg *schema.Registry, mappings ...*Mapping) *Session {
	s, err := New(drv, reg, mappings...)
	if err != nil {
		panic(err)
	}
	return s
}

// Registry returns the schema registry the session is bound to.
func (s *Session) Registry() *schema.Registry { return s.reg }

// Mapping returns the mapping registered for the given table, or nil.
func (s *Session) Mapping(table string) *Mapping { return s.mappings[table] }

func (s *Session) mappingFor(entity any) (*Mapping, error) {
	m, ok := s.byType[reflect.TypeOf(entity)]
	if !ok {
		return nil, fmt.Errorf("weft/session: no mapping registered for %T", entity)
	}
	return m, nil
}

// conn returns the open transaction if one exists, the driver otherwise.
func (s *Session) conn() dialect.ExecQuerier {
	if s.tx != nil {
		return s.tx
	}
	return s.drv
}

func (s *Session) ensureTx(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

// pkValues returns the primary key values of the entity and whether all
// of them are set (non-zero).
func (s *Session) pkValues(m *Mapping, entity any) ([]any, bool) {
	t := s.reg.MustTable(m.Table)
	pk := t.PrimaryKey()
	vals := make([]any, len(pk))
	set := len(pk) > 0
	for i, c := range pk {
		vals[i] = m.Get(entity, c.Name())
		if isZero(vals[i]) {
			set = false
		}
	}
	return vals, set
}

func (s *Session) snapshotOf(m *Mapping, entity any) map[string]any {
	t := s.reg.MustTable(m.Table)
	snap := make(map[string]any, len(t.Columns()))
	for _, c := range t.Columns() {
		snap[c.Name()] = m.Get(entity, c.Name())
	}
	return snap
}

// Add registers a transient entity with the session. The entity becomes
// pending and is inserted on the next flush. Adding an entity whose
// primary key collides with a different tracked instance fails with
// IdentityConflictError; adding the same instance twice is a no-op.
func (s *Session) Add(entity any) error {
	if s.closed {
		return fmt.Errorf("weft/session: session is closed")
	}
	m, err := s.mappingFor(entity)
	if err != nil {
		return err
	}
	if st, ok := s.states[entity]; ok {
		if st.status == Deleted {
			st.status = Persistent
		}
		return nil
	}
	pk, set := s.pkValues(m, entity)
	if set {
		k := identKey{table: m.Table, key: formatKey(pk)}
		if existing, ok := s.identity[k]; ok && existing.entity != entity {
			return weft.NewIdentityConflictError(m.Table, pk)
		}
	}
	s.seq++
	st := &entityState{entity: entity, mapping: m, status: Pending, seq: s.seq}
	s.states[entity] = st
	if set {
		s.identity[identKey{table: m.Table, key: formatKey(pk)}] = st
	}
	return nil
}

// Delete marks a persistent entity for deletion on the next flush. A
// pending entity is simply discarded.
func (s *Session) Delete(entity any) error {
	if s.closed {
		return fmt.Errorf("weft/session: session is closed")
	}
	st, ok := s.states[entity]
	if !ok {
		return fmt.Errorf("weft/session: entity %T is not tracked", entity)
	}
	if st.status == Pending {
		s.forget(st)
		return nil
	}
	st.status = Deleted
	return nil
}

func (s *Session) forget(st *entityState) {
	delete(s.states, st.entity)
	for k, v := range s.identity {
		if v == st {
			delete(s.identity, k)
		}
	}
}

// State reports the lifecycle status of an entity.
func (s *Session) State(entity any) Status {
	st, ok := s.states[entity]
	if !ok {
		return Transient
	}
	return st.status
}

// Expunge removes an entity from the session without touching the
// database. The entity becomes detached.
func (s *Session) Expunge(entity any) {
	if st, ok := s.states[entity]; ok {
		st.status = Detached
		s.forget(st)
	}
}

// Get returns the entity with the given primary key, loading it from
// the backend when it is not already present in the identity map.
// Pending changes are flushed first so the read observes them. A
// missing row fails with NotFoundError.
func (s *Session) Get(ctx context.Context, table string, pk ...any) (any, error) {
	m, ok := s.mappings[table]
	if !ok {
		return nil, fmt.Errorf("weft/session: no mapping registered for table %q", table)
	}
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	k := identKey{table: table, key: formatKey(pk)}
	if st, ok := s.identity[k]; ok && st.status != Deleted {
		if st.expired {
			if err := s.Refresh(ctx, st.entity); err != nil {
				return nil, err
			}
		}
		return st.entity, nil
	}
	t := s.reg.MustTable(table)
	pkCols := t.PrimaryKey()
	if len(pk) != len(pkCols) {
		return nil, fmt.Errorf("weft/session: table %q has %d primary key columns, got %d values", table, len(pkCols), len(pk))
	}
	sel := sql.Dialect(s.drv.Dialect()).
		Select(t.ColumnNames()...).
		From(sql.Table(table))
	for i, c := range pkCols {
		sel = sel.Where(sql.EQ(c.Name(), pk[i]))
	}
	rs, err := s.fetch(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(rs.Rows) == 0 {
		return nil, weft.NewNotFoundError(table, pk)
	}
	return s.materialize(m, rs.Columns, rs.Rows[0])
}

// Refresh reloads the entity's columns from the backend, discarding any
// unflushed in-memory changes.
func (s *Session) Refresh(ctx context.Context, entity any) error {
	st, ok := s.states[entity]
	if !ok || st.status != Persistent {
		return fmt.Errorf("weft/session: entity %T is not persistent", entity)
	}
	m := st.mapping
	t := s.reg.MustTable(m.Table)
	pk, set := s.pkValues(m, entity)
	if !set {
		return fmt.Errorf("weft/session: entity %T has no primary key", entity)
	}
	sel := sql.Dialect(s.drv.Dialect()).
		Select(t.ColumnNames()...).
		From(sql.Table(m.Table))
	for i, c := range t.PrimaryKey() {
		sel = sel.Where(sql.EQ(c.Name(), pk[i]))
	}
	rs, err := s.fetch(ctx, sel)
	if err != nil {
		return err
	}
	if len(rs.Rows) == 0 {
		return weft.NewNotFoundError(m.Table, pk)
	}
	for i, col := range rs.Columns {
		m.Set(entity, col, rs.Rows[0][i])
	}
	st.snapshot = s.snapshotOf(m, entity)
	st.expired = false
	st.loaded = nil
	return nil
}

// fetch compiles and runs a selector, returning the materialized rows.
func (s *Session) fetch(ctx context.Context, sel *sql.Selector) (*weft.RowSet, error) {
	if err := sel.Err(); err != nil {
		return nil, err
	}
	query, args := sel.Query()
	var rows sql.Rows
	if err := s.conn().Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(&rows)
}

// materialize turns a scanned row into a tracked entity. If the row's
// identity is already present in the map, the existing instance is
// returned and newly scanned values refresh it only when it is expired.
func (s *Session) materialize(m *Mapping, cols []string, vals []any) (any, error) {
	t := s.reg.MustTable(m.Table)
	colIndex := make(map[string]int, len(cols))
	for i, c := range cols {
		colIndex[c] = i
	}
	pkCols := t.PrimaryKey()
	pk := make([]any, len(pkCols))
	for i, c := range pkCols {
		idx, ok := colIndex[c.Name()]
		if !ok {
			return nil, fmt.Errorf("weft/session: result set misses primary key column %q", c.Name())
		}
		pk[i] = vals[idx]
	}
	k := identKey{table: m.Table, key: formatKey(pk)}
	if st, ok := s.identity[k]; ok {
		if st.expired {
			for i, col := range cols {
				m.Set(st.entity, col, vals[i])
			}
			st.snapshot = s.snapshotOf(m, st.entity)
			st.expired = false
		}
		return st.entity, nil
	}
	e := m.New()
	for i, col := range cols {
		m.Set(e, col, vals[i])
	}
	s.seq++
	st := &entityState{
		entity:   e,
		mapping:  m,
		status:   Persistent,
		seq:      s.seq,
		snapshot: s.snapshotOf(m, e),
	}
	s.states[e] = st
	s.identity[k] = st
	return e, nil
}

// dirtyColumns returns the non-primary columns whose current value
// differs from the flushed snapshot, in schema column order.
func (s *Session) dirtyColumns(st *entityState) []string {
	t := s.reg.MustTable(st.mapping.Table)
	var dirty []string
	for _, c := range t.Columns() {
		if c.IsPrimary() {
			continue
		}
		cur := st.mapping.Get(st.entity, c.Name())
		if !reflect.DeepEqual(cur, st.snapshot[c.Name()]) {
			dirty = append(dirty, c.Name())
		}
	}
	return dirty
}

// Flush writes all pending changes to the backend inside the session's
// transaction, opening one if necessary. Inserts run in dependency
// order (referenced tables first), deletes in reverse, and rows whose
// relations cascade delete their children first. A second flush with no
// accumulated changes issues no statements.
func (s *Session) Flush(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("weft/session: session is closed")
	}
	var inserts, updates, deletes []*entityState
	for _, st := range s.states {
		switch st.status {
		case Pending:
			inserts = append(inserts, st)
		case Persistent:
			if !st.expired && len(s.dirtyColumns(st)) > 0 {
				updates = append(updates, st)
			}
		case Deleted:
			deletes = append(deletes, st)
		}
	}
	if len(inserts)+len(updates)+len(deletes) == 0 {
		return nil
	}
	ordered, err := s.reg.Order()
	if err != nil {
		return err
	}
	rank := make(map[string]int, len(ordered))
	for i, t := range ordered {
		rank[t.Name()] = i
	}
	byOrder := func(states []*entityState, reverse bool) {
		sort.Slice(states, func(i, j int) bool {
			ri, rj := rank[states[i].mapping.Table], rank[states[j].mapping.Table]
			if reverse {
				ri, rj = rj, ri
			}
			if ri != rj {
				return ri < rj
			}
			return states[i].seq < states[j].seq
		})
	}
	byOrder(inserts, false)
	byOrder(updates, false)
	byOrder(deletes, true)

	if err := s.ensureTx(ctx); err != nil {
		return err
	}
	for _, st := range inserts {
		if err := s.flushInsert(ctx, st); err != nil {
			return err
		}
	}
	for _, st := range updates {
		if err := s.flushUpdate(ctx, st); err != nil {
			return err
		}
	}
	for _, st := range deletes {
		if err := s.flushDelete(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) flushInsert(ctx context.Context, st *entityState) error {
	m := st.mapping
	t := s.reg.MustTable(m.Table)
	d := s.drv.Dialect()
	var cols []string
	var vals []any
	for _, c := range t.Columns() {
		v := m.Get(st.entity, c.Name())
		if isZero(v) {
			if c.IsAuto() {
				continue
			}
			dv, ok := c.GenerateDefault()
			if !ok {
				// Unset without a default: omit the column and let the
				// backend apply NULL or reject it.
				continue
			}
			m.Set(st.entity, c.Name(), dv)
			v = dv
		}
		cols = append(cols, c.Name())
		vals = append(vals, v)
	}
	ins := sql.Dialect(d).Insert(m.Table)
	if len(cols) == 0 {
		ins = ins.Default()
	} else {
		ins = ins.Columns(cols...).Values(vals...)
	}

	pkCols := t.PrimaryKey()
	_, pkSet := s.pkValues(m, st.entity)
	switch {
	case !pkSet && d == dialect.Postgres:
		names := make([]string, len(pkCols))
		for i, c := range pkCols {
			names[i] = c.Name()
		}
		ins = ins.Returning(names...)
		rs, err := s.execInsertReturning(ctx, ins)
		if err != nil {
			return err
		}
		if len(rs.Rows) == 0 {
			return fmt.Errorf("weft/session: insert into %q returned no generated key", m.Table)
		}
		for i, col := range rs.Columns {
			m.Set(st.entity, col, rs.Rows[0][i])
		}
	default:
		if err := ins.Err(); err != nil {
			return err
		}
		query, args := ins.Query()
		var res sql.Result
		if err := s.conn().Exec(ctx, query, args, &res); err != nil {
			return sql.WrapConstraint(err)
		}
		if !pkSet && len(pkCols) == 1 && pkCols[0].IsAuto() {
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			m.Set(st.entity, pkCols[0].Name(), id)
		}
	}

	pk, set := s.pkValues(m, st.entity)
	if set {
		k := identKey{table: m.Table, key: formatKey(pk)}
		if existing, ok := s.identity[k]; ok && existing != st {
			return weft.NewIdentityConflictError(m.Table, pk)
		}
		s.identity[k] = st
	}
	st.status = Persistent
	st.txNew = true
	st.snapshot = s.snapshotOf(m, st.entity)
	return nil
}

func (s *Session) execInsertReturning(ctx context.Context, ins *sql.InsertBuilder) (*weft.RowSet, error) {
	if err := ins.Err(); err != nil {
		return nil, err
	}
	query, args := ins.Query()
	var rows sql.Rows
	if err := s.conn().Query(ctx, query, args, &rows); err != nil {
		return nil, sql.WrapConstraint(err)
	}
	defer rows.Close()
	return scanRows(&rows)
}

func (s *Session) flushUpdate(ctx context.Context, st *entityState) error {
	m := st.mapping
	t := s.reg.MustTable(m.Table)
	dirty := s.dirtyColumns(st)
	upd := sql.Dialect(s.drv.Dialect()).Update(m.Table)
	for _, col := range dirty {
		upd = upd.Set(col, m.Get(st.entity, col))
	}
	pk, set := s.pkValues(m, st.entity)
	if !set {
		return fmt.Errorf("weft/session: cannot update %q row without a primary key", m.Table)
	}
	for i, c := range t.PrimaryKey() {
		upd = upd.Where(sql.EQ(c.Name(), pk[i]))
	}
	if err := upd.Err(); err != nil {
		return err
	}
	query, args := upd.Query()
	if err := s.conn().Exec(ctx, query, args, nil); err != nil {
		return sql.WrapConstraint(err)
	}
	for _, col := range dirty {
		st.snapshot[col] = m.Get(st.entity, col)
	}
	return nil
}

func (s *Session) flushDelete(ctx context.Context, st *entityState) error {
	m := st.mapping
	t := s.reg.MustTable(m.Table)
	pk, set := s.pkValues(m, st.entity)
	if !set {
		return fmt.Errorf("weft/session: cannot delete %q row without a primary key", m.Table)
	}
	if len(t.PrimaryKey()) == 1 {
		for _, rel := range m.Relations {
			if !rel.Cascade {
				continue
			}
			if err := s.cascadeDelete(ctx, rel, pk[0]); err != nil {
				return err
			}
		}
	}
	del := sql.Dialect(s.drv.Dialect()).Delete(m.Table)
	for i, c := range t.PrimaryKey() {
		del = del.Where(sql.EQ(c.Name(), pk[i]))
	}
	if err := del.Err(); err != nil {
		return err
	}
	query, args := del.Query()
	if err := s.conn().Exec(ctx, query, args, nil); err != nil {
		return sql.WrapConstraint(err)
	}
	st.status = Detached
	s.forget(st)
	return nil
}

// cascadeDelete removes the child rows referencing a parent about to be
// deleted, plus any tracked instances of those rows.
func (s *Session) cascadeDelete(ctx context.Context, rel Relation, parentKey any) error {
	del := sql.Dialect(s.drv.Dialect()).
		Delete(rel.Table).
		Where(sql.EQ(rel.FKColumn, parentKey))
	if err := del.Err(); err != nil {
		return err
	}
	query, args := del.Query()
	if err := s.conn().Exec(ctx, query, args, nil); err != nil {
		return sql.WrapConstraint(err)
	}
	for _, st := range s.states {
		if st.mapping.Table != rel.Table || st.status != Persistent {
			continue
		}
		if reflect.DeepEqual(st.snapshot[rel.FKColumn], parentKey) ||
			fmt.Sprintf("%v", st.snapshot[rel.FKColumn]) == fmt.Sprintf("%v", parentKey) {
			st.status = Detached
			s.forget(st)
		}
	}
	return nil
}

// Commit flushes pending changes, commits the transaction, and expires
// all persistent entities so subsequent reads observe committed state.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	if s.tx != nil {
		if err := s.tx.Commit(); err != nil {
			return err
		}
		s.tx = nil
	}
	for _, st := range s.states {
		if st.status == Persistent {
			st.expired = true
			st.txNew = false
			st.loaded = nil
		}
	}
	return nil
}

// Rollback aborts the open transaction, discards pending entities, and
// restores tracked entities to their last committed snapshot. Entities
// whose INSERT ran inside the aborted transaction have no row anymore
// and leave the identity map as transient.
func (s *Session) Rollback() error {
	var txErr error
	if s.tx != nil {
		txErr = s.tx.Rollback()
		s.tx = nil
	}
	for _, st := range s.states {
		if st.txNew {
			st.status = Transient
			st.txNew = false
			s.forget(st)
			continue
		}
		switch st.status {
		case Pending:
			st.status = Transient
			s.forget(st)
		case Deleted:
			st.status = Persistent
		}
		if st.status == Persistent && st.snapshot != nil {
			for col, v := range st.snapshot {
				st.mapping.Set(st.entity, col, v)
			}
			// Rows written inside the aborted transaction no longer
			// exist; force a reload before the snapshot is trusted.
			st.expired = true
			st.loaded = nil
		}
	}
	if txErr != nil {
		return &weft.RollbackError{Err: txErr}
	}
	return nil
}

// Close rolls back any open transaction and detaches all entities. The
// session cannot be used afterwards.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	var txErr error
	if s.tx != nil {
		txErr = s.tx.Rollback()
		s.tx = nil
	}
	for _, st := range s.states {
		st.status = Detached
	}
	s.states = map[any]*entityState{}
	s.identity = map[identKey]*entityState{}
	s.closed = true
	return txErr
}
