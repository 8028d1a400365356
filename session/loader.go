package session

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/weftdb/weft"
	sql "github.com/weftdb/weft/dialect/sql"
)

// batchSize bounds the number of parent keys per IN query when loading
// a relation with EagerBatch.
const batchSize = 500

// Related returns the loaded children of a relation. It never touches
// the backend: if the relation was not loaded by the producing query or
// a Fetch call, it fails with NotLoadedError.
func (s *Session) Related(entity any, relation string) ([]any, error) {
	st, ok := s.states[entity]
	if !ok {
		return nil, fmt.Errorf("weft/session: entity %T is not tracked", entity)
	}
	if _, ok := st.mapping.relation(relation); !ok {
		return nil, fmt.Errorf("weft/session: %T has no relation %q", entity, relation)
	}
	if st.noload[relation] {
		return nil, weft.NewNotLoadedError(relation)
	}
	children, ok := st.loaded[relation]
	if !ok {
		return nil, weft.NewNotLoadedError(relation)
	}
	return children, nil
}

// Fetch loads a relation of a single entity with one query and returns
// the children. Subsequent Related calls serve the loaded values.
func (s *Session) Fetch(ctx context.Context, entity any, relation string) ([]any, error) {
	st, ok := s.states[entity]
	if !ok {
		return nil, fmt.Errorf("weft/session: entity %T is not tracked", entity)
	}
	rel, ok := st.mapping.relation(relation)
	if !ok {
		return nil, fmt.Errorf("weft/session: %T has no relation %q", entity, relation)
	}
	if rel.Strategy == Disallowed {
		return nil, fmt.Errorf("weft/session: relation %q is disallowed", relation)
	}
	cm, ok := s.mappings[rel.Table]
	if !ok {
		return nil, errNoMapping(rel.Table)
	}
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	pk, set := s.pkValues(st.mapping, entity)
	if !set || len(pk) != 1 {
		return nil, fmt.Errorf("weft/session: cannot fetch %q without a single-column primary key", relation)
	}
	ct := s.reg.MustTable(rel.Table)
	sel := sql.Dialect(s.drv.Dialect()).
		Select(ct.ColumnNames()...).
		From(sql.Table(rel.Table)).
		Where(sql.EQ(rel.FKColumn, pk[0]))
	rs, err := s.fetch(ctx, sel)
	if err != nil {
		return nil, err
	}
	children := make([]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		c, err := s.materialize(cm, rs.Columns, row)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	if st.loaded == nil {
		st.loaded = make(map[string][]any)
	}
	st.loaded[relation] = children
	return children, nil
}

// loadRelation applies a loader strategy to the parents produced by a
// query. ExplicitFetch leaves the relation untouched; Disallowed marks
// it so Related reports it as unloadable.
func (s *Session) loadRelation(ctx context.Context, m *Mapping, rel Relation, strategy Strategy, parents []any) error {
	switch strategy {
	case ExplicitFetch:
		return nil
	case Disallowed:
		for _, p := range parents {
			if st, ok := s.states[p]; ok {
				if st.noload == nil {
					st.noload = make(map[string]bool)
				}
				st.noload[rel.Name] = true
			}
		}
		return nil
	}
	if len(parents) == 0 {
		return nil
	}
	cm, ok := s.mappings[rel.Table]
	if !ok {
		return errNoMapping(rel.Table)
	}
	pt := s.reg.MustTable(m.Table)
	if len(pt.PrimaryKey()) != 1 {
		return fmt.Errorf("weft/session: eager loading requires a single-column primary key on %q", m.Table)
	}
	pkName := pt.PrimaryKey()[0].Name()

	// Distinct parent keys in result order.
	var keys []any
	seen := make(map[string]bool, len(parents))
	for _, p := range parents {
		v := m.Get(p, pkName)
		k := fmt.Sprintf("%v", v)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, v)
		}
	}

	var sets []*weft.RowSet
	var err error
	switch strategy {
	case EagerJoin:
		sets, err = s.loadJoined(ctx, m, rel, keys)
	case EagerBatch:
		sets, err = s.loadBatched(ctx, rel, keys)
	}
	if err != nil {
		return err
	}

	groups := make(map[string][]any)
	for _, rs := range sets {
		fkIdx := -1
		for i, c := range rs.Columns {
			if c == rel.FKColumn {
				fkIdx = i
			}
		}
		if fkIdx < 0 {
			return fmt.Errorf("weft/session: relation %q result misses column %q", rel.Name, rel.FKColumn)
		}
		for _, row := range rs.Rows {
			child, err := s.materialize(cm, rs.Columns, row)
			if err != nil {
				return err
			}
			k := fmt.Sprintf("%v", row[fkIdx])
			groups[k] = append(groups[k], child)
		}
	}
	for _, p := range parents {
		st, ok := s.states[p]
		if !ok {
			continue
		}
		if st.loaded == nil {
			st.loaded = make(map[string][]any)
		}
		k := fmt.Sprintf("%v", m.Get(p, pkName))
		children := groups[k]
		if children == nil {
			children = []any{}
		}
		st.loaded[rel.Name] = children
	}
	return nil
}

// loadJoined loads all children with a single query joined against the
// parent table.
func (s *Session) loadJoined(ctx context.Context, m *Mapping, rel Relation, keys []any) ([]*weft.RowSet, error) {
	ct := s.reg.MustTable(rel.Table)
	pt := s.reg.MustTable(m.Table)
	child := sql.Table(rel.Table)
	parent := sql.Table(m.Table)
	cols := make([]string, len(ct.Columns()))
	for i, c := range ct.Columns() {
		cols[i] = child.C(c.Name())
	}
	pkName := pt.PrimaryKey()[0].Name()
	sel := sql.Dialect(s.drv.Dialect()).
		Select(cols...).
		From(child).
		Join(parent).
		On(child.C(rel.FKColumn), parent.C(pkName)).
		Where(sql.In(parent.C(pkName), keys...))
	rs, err := s.fetch(ctx, sel)
	if err != nil {
		return nil, err
	}
	return []*weft.RowSet{rs}, nil
}

// loadBatched loads children with IN queries over chunks of parent
// keys. Chunks run concurrently unless a transaction is open, since a
// database/sql transaction serves one statement at a time.
func (s *Session) loadBatched(ctx context.Context, rel Relation, keys []any) ([]*weft.RowSet, error) {
	ct := s.reg.MustTable(rel.Table)
	var chunks [][]any
	for len(keys) > 0 {
		n := batchSize
		if len(keys) < n {
			n = len(keys)
		}
		chunks = append(chunks, keys[:n])
		keys = keys[n:]
	}
	sets := make([]*weft.RowSet, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	if s.tx != nil {
		g.SetLimit(1)
	} else {
		g.SetLimit(4)
	}
	var mu sync.Mutex
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			sel := sql.Dialect(s.drv.Dialect()).
				Select(ct.ColumnNames()...).
				From(sql.Table(rel.Table)).
				Where(sql.In(rel.FKColumn, chunk...))
			if err := sel.Err(); err != nil {
				return err
			}
			query, args := sel.Query()
			var rows sql.Rows
			if err := s.conn().Query(ctx, query, args, &rows); err != nil {
				return err
			}
			defer rows.Close()
			rs, err := scanRows(&rows)
			if err != nil {
				return err
			}
			mu.Lock()
			sets[i] = rs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}
