// Package store persists the cache graph: groups, items, and the two
// many-to-many edges between them (all items of a group, and the must-have
// subset). It is the single source of truth for ownership - an item is alive
// exactly while at least one group row points at it, and orphan detection is
// a count query over the adjacency table, never an in-memory object graph.
//
// Concurrency: one write connection capped at a single open conn serializes
// every mutation (commits, upserts, deletes) in submission order; reads go
// through a separate read-only connection. SQLite runs in WAL mode so readers
// do not block the writer.
package store
