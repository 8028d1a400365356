package session

import (
	"context"
	"fmt"
	"time"

	"github.com/weftdb/weft"
	sql "github.com/weftdb/weft/dialect/sql"
)

// Query loads entities of one mapped table through the session. Like
// the statement builders it is generative: every clause method returns
// a derived query and never mutates its receiver.
type Query struct {
	s        *Session
	table    string
	preds    []*sql.Predicate
	order    []string
	limit    int
	hasLimit bool
	offset   int
	loads    map[string]Strategy
	cache    weft.Cache
	cacheTTL time.Duration
}

// Query starts a query over the given mapped table.
func (s *Session) Query(table string) *Query {
	return &Query{s: s, table: table}
}

func (q *Query) clone() *Query {
	c := *q
	c.preds = append([]*sql.Predicate(nil), q.preds...)
	c.order = append([]string(nil), q.order...)
	c.loads = make(map[string]Strategy, len(q.loads))
	for k, v := range q.loads {
		c.loads[k] = v
	}
	return &c
}

// Where adds a predicate. Multiple calls combine with AND.
func (q *Query) Where(p *sql.Predicate) *Query {
	c := q.clone()
	c.preds = append(c.preds, p)
	return c
}

// OrderBy appends ordering terms.
func (q *Query) OrderBy(columns ...string) *Query {
	c := q.clone()
	c.order = append(c.order, columns...)
	return c
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	c := q.clone()
	c.limit, c.hasLimit = n, true
	return c
}

// Offset skips the first n rows.
func (q *Query) Offset(n int) *Query {
	c := q.clone()
	c.offset = n
	return c
}

// WithLoad overrides the loader strategy of a relation for this query.
func (q *Query) WithLoad(relation string, strategy Strategy) *Query {
	c := q.clone()
	c.loads[relation] = strategy
	return c
}

// Cache serves the query's rows from the given cache when present,
// storing a miss with the given TTL. Entities are still deduplicated
// through the identity map.
func (q *Query) Cache(c weft.Cache, ttl time.Duration) *Query {
	cq := q.clone()
	cq.cache, cq.cacheTTL = c, ttl
	return cq
}

func (q *Query) selector() (*sql.Selector, error) {
	m, ok := q.s.mappings[q.table]
	if !ok {
		return nil, errNoMapping(q.table)
	}
	t := q.s.reg.MustTable(m.Table)
	sel := sql.Dialect(q.s.drv.Dialect()).
		Select(t.ColumnNames()...).
		From(sql.Table(q.table))
	for _, p := range q.preds {
		sel = sel.Where(p)
	}
	if len(q.order) > 0 {
		sel = sel.OrderBy(q.order...)
	}
	if q.hasLimit {
		sel = sel.Limit(q.limit)
	}
	if q.offset > 0 {
		sel = sel.Offset(q.offset)
	}
	return sel, nil
}

// All runs the query and returns all matching entities. Pending
// changes are flushed first so the read observes them.
func (q *Query) All(ctx context.Context) ([]any, error) {
	m, ok := q.s.mappings[q.table]
	if !ok {
		return nil, errNoMapping(q.table)
	}
	if err := q.checkLoads(m); err != nil {
		return nil, err
	}
	if err := q.s.Flush(ctx); err != nil {
		return nil, err
	}
	sel, err := q.selector()
	if err != nil {
		return nil, err
	}
	rs, err := q.rows(ctx, sel)
	if err != nil {
		return nil, err
	}
	entities := make([]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		e, err := q.s.materialize(m, rs.Columns, row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := q.applyLoads(ctx, m, entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// One runs the query and returns exactly one entity, failing with
// NotFoundError when no row matches.
func (q *Query) One(ctx context.Context) (any, error) {
	all, err := q.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, weft.NewNotFoundError(q.table, nil)
	}
	return all[0], nil
}

// Count returns the number of matching rows without materializing
// entities.
func (q *Query) Count(ctx context.Context) (int, error) {
	if err := q.s.Flush(ctx); err != nil {
		return 0, err
	}
	m, ok := q.s.mappings[q.table]
	if !ok {
		return 0, errNoMapping(q.table)
	}
	sel := sql.Dialect(q.s.drv.Dialect()).
		Select().
		From(sql.Table(m.Table)).
		Count()
	for _, p := range q.preds {
		sel = sel.Where(p)
	}
	rs, err := q.s.fetch(ctx, sel)
	if err != nil {
		return 0, err
	}
	if len(rs.Rows) == 0 || len(rs.Rows[0]) == 0 {
		return 0, nil
	}
	return ToInt(rs.Rows[0][0]), nil
}

// rows runs the selector, consulting the cache when one is configured.
func (q *Query) rows(ctx context.Context, sel *sql.Selector) (*weft.RowSet, error) {
	if q.cache == nil {
		return q.s.fetch(ctx, sel)
	}
	if err := sel.Err(); err != nil {
		return nil, err
	}
	query, args := sel.Query()
	key := weft.CacheKey(q.table, query, args)
	if data, err := q.cache.Get(ctx, key); err == nil && data != nil {
		return weft.DecodeRowSet(data)
	}
	rs, err := q.s.fetch(ctx, sel)
	if err != nil {
		return nil, err
	}
	data, err := rs.Encode()
	if err != nil {
		return nil, err
	}
	if err := q.cache.Set(ctx, key, data, q.cacheTTL); err != nil {
		return nil, err
	}
	return rs, nil
}

// checkLoads rejects load overrides naming relations the mapping does
// not declare, before any statement is issued.
func (q *Query) checkLoads(m *Mapping) error {
	for name := range q.loads {
		if _, ok := m.relation(name); !ok {
			return fmt.Errorf("weft/session: %q has no relation %q", m.Table, name)
		}
	}
	return nil
}

func (q *Query) applyLoads(ctx context.Context, m *Mapping, entities []any) error {
	for _, rel := range m.Relations {
		strategy := rel.Strategy
		if o, ok := q.loads[rel.Name]; ok {
			strategy = o
		}
		if err := q.s.loadRelation(ctx, m, rel, strategy, entities); err != nil {
			return err
		}
	}
	return nil
}

func errNoMapping(table string) error {
	return &mappingError{table: table}
}

type mappingError struct{ table string }

func (e *mappingError) Error() string {
	return "weft/session: no mapping registered for table " + e.table
}

// scanRows drains a result set into a RowSet of raw driver values.
func scanRows(rows *sql.Rows) (*weft.RowSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &weft.RowSet{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, vals)
	}
	return rs, rows.Err()
}
