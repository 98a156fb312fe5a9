package offcache

import (
	"context"
	"errors"
	"net/url"

	"github.com/offcache/offcache/fetch"
	"github.com/offcache/offcache/store"
)

// GroupWriter is the contract a resource-group producer implements. A
// producer knows how to turn one root URL into the set of requests whose
// responses it wants cached under a group key.
//
// Producers implement the discovery hooks only; the shared algorithms below
// (MarkDownloaded, KeysToRemove, RemoveItem, RemoveGroup) are implemented
// once over the store and reused by every producer.
type GroupWriter interface {
	// Add discovers and commits the resource set for one root URL into the
	// named group, returning the requests the caller should now download.
	// Idempotent: adding the same group twice merges membership, it never
	// duplicates items.
	Add(ctx context.Context, u *url.URL, groupKey string) ([]*fetch.Request, error)

	// AddAll is the batch variant. Producers with single-root semantics
	// return ErrBatchUnsupported.
	AddAll(ctx context.Context, urls []*url.URL, groupKey string) ([]*fetch.Request, error)

	// ShouldDownloadVariant lets a producer skip a variant (locale or size
	// filtering). Extension point; current producers are permissive.
	ShouldDownloadVariant(itemKey, variant string) bool
}

// MarkDownloaded looks up the request's identity metadata and flips the
// matching item to downloaded. ErrMissingItemKey when the request carries no
// item key; ErrItemNotFound when no row matches - which is also the documented
// outcome when the mark races a removal that got to the writer queue first.
func MarkDownloaded(ctx context.Context, st *store.Store, req *fetch.Request) error {
	key, ok := req.ItemKey()
	if !ok {
		return ErrMissingItemKey
	}
	return st.MarkDownloaded(ctx, store.ItemKeyAndVariant{Key: key, Variant: req.Variant()})
}

// KeysToRemove returns the subset of a group's items owned by only that
// group - the items that would be orphaned if the group were deleted.
// ErrGroupNotFound when the group key is unknown.
func KeysToRemove(ctx context.Context, st *store.Store, groupKey string) ([]store.ItemKeyAndVariant, error) {
	return st.OrphanKeys(ctx, groupKey)
}

// RemoveItem deletes exactly one item by its compound key.
func RemoveItem(ctx context.Context, st *store.Store, key store.ItemKeyAndVariant) error {
	return st.DeleteItem(ctx, key)
}

// RemoveGroup deletes one group row. Membership edges go with it; orphaned
// items stay - delete them explicitly via KeysToRemove first if that is what
// you want.
func RemoveGroup(ctx context.Context, st *store.Store, groupKey string) error {
	return st.DeleteGroup(ctx, groupKey)
}

// DumpGraph logs every group and item for debugging. Side-effect only; never
// part of the commit path, and failures are logged and swallowed.
func DumpGraph(ctx context.Context, st *store.Store, log Logger) {
	if log == nil {
		log = NopLogger{}
	}
	groups, err := st.Groups(ctx)
	if err != nil {
		log.Warn("dump: groups failed", Fields{"err": err})
	}
	for _, g := range groups {
		log.Info("group", Fields{"key": g.Key, "items": g.Items, "mustHaves": g.MustHaves})
	}
	items, err := st.Items(ctx)
	if err != nil {
		log.Warn("dump: items failed", Fields{"err": err})
	}
	for _, it := range items {
		log.Info("item", Fields{
			"key": it.Key, "variant": it.Variant, "url": it.URL, "downloaded": it.Downloaded,
		})
	}
}

// IsNotFound reports whether err is either not-found condition. Convenience
// for callers that treat "not found" as "nothing to do".
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrGroupNotFound) || errors.Is(err, store.ErrItemNotFound)
}
