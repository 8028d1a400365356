// Package session implements the unit-of-work layer of weft: an
// identity-mapped workspace that accumulates changes to mapped
// entities and writes them to the database in a single transaction.
//
// Entities are plain Go structs. A Mapping describes how a struct type
// binds to a table: a factory, per-column accessors, and the relations
// it participates in. There is no code generation and no reflection on
// struct tags; the accessors are explicit.
//
//	users := &session.Mapping{
//		Table: "users",
//		New:   func() any { return &User{} },
//		Get: func(e any, col string) any {
//			u := e.(*User)
//			switch col {
//			case "id":
//				return u.ID
//			case "name":
//				return u.Name
//			}
//			return nil
//		},
//		Set: func(e any, col string, v any) {
//			u := e.(*User)
//			switch col {
//			case "id":
//				u.ID = session.ToInt(v)
//			case "name":
//				u.Name = session.ToString(v)
//			}
//		},
//	}
//
// A session tracks each entity through a lifecycle: Transient (unknown),
// Pending (added, awaiting insert), Persistent (has a row and an
// identity map entry), Deleted (awaiting delete) and Detached. Loading
// the same row twice through one session yields the same pointer.
//
//	sess := session.Must(drv, registry, users, addresses)
//	u := &User{Name: "spongebob"}
//	sess.Add(u)
//	err := sess.Commit(ctx) // flushes the insert, commits, expires
//
// Flush writes inserts in schema dependency order, updates detected by
// snapshot comparison, and deletes in reverse order with cascading
// children removed first. Reads issued through Get or Query flush
// pending changes beforehand so they observe the session's own writes.
//
// Relations load explicitly. A query can eager-load them per relation
// with a join or a batched IN query; otherwise Related returns
// NotLoadedError until Fetch is called. Nothing loads implicitly on
// attribute access.
//
// A Session is not safe for concurrent use.
package session
