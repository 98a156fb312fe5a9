// Package offcache implements the write path of an offline content cache for
// hierarchical documents: a reference-counted graph of cache groups and cache
// items persisted in SQLite, plus the read-side fallback resolution that picks
// a substitute variant when the exact one is missing.
//
// Components:
//   - store.Store: the persistent group/item graph. Ownership is data, not
//     pointers: membership lives in adjacency tables and orphan detection is
//     a row-count query. All mutations go through one write connection.
//   - GroupWriter: the contract a resource-group producer implements. Shared
//     algorithms (MarkDownloaded, KeysToRemove, RemoveItem, RemoveGroup) are
//     package-level functions reused by every producer.
//   - ArticleWriter: the multi-resource producer. One article fans out into a
//     document request plus two concurrent list-discovery fetches; the commit
//     runs only after both lists have joined.
//   - tracker.Tracker: registry of in-flight cancelable fetches per group
//     key, so removing a group cancels whatever is still outstanding.
//   - Resolver: read-side variant fallback. Consults a transient URL-keyed
//     response cache first, then the persistent blob store.
//
// Write discipline:
//
//	Add(url, group)  -> discover lists concurrently -> commit must-haves (one tx)
//	MarkDownloaded   -> flips is_downloaded for one (itemKey, variant); never back
//	Remove(group)    -> cancel tracked fetches, delete orphan-only items, drop group
//
// An item exists only while at least one group references it. Commits are
// idempotent: re-adding a group merges membership instead of duplicating rows.
package offcache
