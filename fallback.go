package offcache

import (
	"context"
	"sort"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/offcache/offcache/blob"
	"github.com/offcache/offcache/store"
)

// Kind declares what sort of resource an item key identifies; it selects the
// variant ordering the resolver applies.
type Kind string

const (
	// KindImage variants are numeric sizes; fallback prefers the smallest.
	KindImage Kind = "image"
	// KindArticle variants are language renditions; no ordering is defined
	// yet, first-encountered wins unless a comparator is supplied.
	KindArticle Kind = "article"
)

// VariantLess orders candidate variants; the first after sorting is the
// fallback. Supplied per resolver for article variants so a locale policy
// can land without changing this contract.
type VariantLess func(a, b store.Item) bool

// ResolverOptions configure NewResolver. Store is required; Transient and
// Blobs may each be nil, disabling that lookup tier.
type ResolverOptions struct {
	Store *store.Store
	// Transient is consulted first, keyed by the selected item's own URL.
	Transient ResponseCache
	// Blobs is the persistent response store, keyed by (itemKey, variant).
	Blobs blob.Store
	// ArticleLess orders article variants. nil preserves the stable
	// first-encountered default.
	ArticleLess VariantLess
	Logger      Logger
}

// Resolver selects a substitute cached response when the exact
// (itemKey, variant) a caller wanted is not cached - typically a different
// image size or another language rendition. Call it after the exact lookup
// has already missed.
type Resolver struct {
	store       *store.Store
	transient   ResponseCache
	blobs       blob.Store
	articleLess VariantLess
	log         Logger

	sf singleflight.Group
}

func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	r := &Resolver{
		store:       opts.Store,
		transient:   opts.Transient,
		blobs:       opts.Blobs,
		articleLess: opts.ArticleLess,
	}
	r.log = coalesce[Logger](opts.Logger, NopLogger{})
	return r, nil
}

type resolved struct {
	resp *Response
	ok   bool
}

// Resolve picks the best persisted variant of itemKey and returns its cached
// response: transient cache first, then the blob store. (nil, false, nil)
// means no fallback is available - absence is a normal outcome. Concurrent
// resolutions of the same (kind, itemKey) are deduplicated; callers share
// the returned response and must not mutate it.
func (r *Resolver) Resolve(ctx context.Context, itemKey string, kind Kind) (*Response, bool, error) {
	v, err, _ := r.sf.Do(string(kind)+"\x00"+itemKey, func() (any, error) {
		resp, ok, err := r.resolve(ctx, itemKey, kind)
		return resolved{resp: resp, ok: ok}, err
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(resolved)
	return res.resp, res.ok, nil
}

func (r *Resolver) resolve(ctx context.Context, itemKey string, kind Kind) (*Response, bool, error) {
	items, err := r.store.VariantsForKey(ctx, itemKey)
	if err != nil {
		return nil, false, err
	}
	if len(items) == 0 {
		return nil, false, nil
	}

	pick := r.selectVariant(items, kind)

	if r.transient != nil {
		resp, ok, err := r.transient.Get(ctx, pick.URL)
		if err != nil {
			r.log.Debug("transient lookup failed", Fields{"itemKey": itemKey, "err": err})
		} else if ok {
			return resp, true, nil
		}
	}

	if r.blobs != nil {
		header, body, ok, err := r.blobs.Load(ctx, pick.Key, pick.Variant)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return &Response{Header: header, Body: body}, true, nil
		}
	}

	return nil, false, nil
}

// selectVariant applies the per-kind ordering and returns the first
// candidate. Items arrive in insertion order, and every sort here is stable,
// so "no ordering" means first-encountered.
func (r *Resolver) selectVariant(items []store.Item, kind Kind) store.Item {
	switch kind {
	case KindImage:
		sort.SliceStable(items, func(i, j int) bool {
			return imageVariantLess(items[i].Variant, items[j].Variant)
		})
	case KindArticle:
		if r.articleLess != nil {
			sort.SliceStable(items, func(i, j int) bool {
				return r.articleLess(items[i], items[j])
			})
		}
	}
	return items[0]
}

// imageVariantLess orders image variants ascending by numeric value.
// Variants that do not parse sort before any parseable value - surprising,
// but the long-standing behavior: a malformed variant is preferred over the
// smallest known size rather than treated as an error.
func imageVariantLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr != nil && berr != nil:
		return false
	case aerr != nil:
		return true
	case berr != nil:
		return false
	default:
		return ai < bi
	}
}
