// Package fetch defines the transport-facing contracts of the cache writer:
// request descriptors that carry cache identity as headers, the builder that
// derives an article's request set from its root URL, and the cancelable
// list-discovery fetcher. The concrete HTTP transport lives outside this
// module; everything here is the seam it plugs into.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Header keys carried per resource. Any request that will become a cache item
// must carry ItemKeyHeader; VariantHeader is optional.
const (
	ItemKeyHeader = "Cache-Item-Key"
	VariantHeader = "Cache-Item-Variant"
)

// Request describes one resource to fetch. Identity metadata rides in Header
// under the keys above, exactly as the transport would send it.
type Request struct {
	URL    *url.URL
	Header http.Header
}

// NewRequest returns a request for u with identity metadata attached.
// variant may be empty.
func NewRequest(u *url.URL, itemKey, variant string) *Request {
	r := &Request{URL: u, Header: make(http.Header)}
	r.Header.Set(ItemKeyHeader, itemKey)
	if variant != "" {
		r.Header.Set(VariantHeader, variant)
	}
	return r
}

// ItemKey returns the item key header and whether it is present.
func (r *Request) ItemKey() (string, bool) {
	if r.Header == nil {
		return "", false
	}
	k := r.Header.Get(ItemKeyHeader)
	return k, k != ""
}

// Variant returns the variant header; empty when the resource has none.
func (r *Request) Variant() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get(VariantHeader)
}

// CanonicalKey derives a stable content identifier from u: host plus escaped
// path, with query and fragment dropped. Builders that have no richer notion
// of identity can key items and groups off this.
func CanonicalKey(u *url.URL) string {
	return u.Host + u.EscapedPath()
}

// Endpoint tags which list-discovery endpoint a fetch error came from, so
// callers can distinguish a media-list failure from an offline-list failure.
type Endpoint string

const (
	EndpointMediaList   Endpoint = "media-list"
	EndpointOfflineList Endpoint = "offline-resource-list"
)

// ListError wraps a list-discovery failure with its endpoint. Cancellation
// arrives through the same path: Err wraps context.Canceled.
type ListError struct {
	Endpoint Endpoint
	Err      error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("fetch: %s fetch failed: %v", e.Endpoint, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// RequestBuilder derives the request set for one article root URL. Each
// constructor may fail with a descriptive error; construction happens before
// any network call is issued.
type RequestBuilder interface {
	// Document builds the request for the article HTML itself.
	Document(u *url.URL) (*Request, error)

	// OfflineResourceList builds the request that discovers the article's
	// offline-capable auxiliary resources.
	OfflineResourceList(u *url.URL) (*Request, error)

	// MediaList builds the request that discovers the article's embedded
	// media resources.
	MediaList(u *url.URL) (*Request, error)

	// Resource builds the request for one discovered sub-resource URL.
	Resource(u *url.URL) (*Request, error)

	// GroupKey derives the stable group key for an article root URL.
	GroupKey(u *url.URL) string
}

// ListFetcher performs one list-discovery fetch. Implementations must honor
// ctx cancellation and report it as a terminal error; no leaked completions,
// no silent drops. Timeouts are the transport's concern, not this module's.
type ListFetcher interface {
	FetchList(ctx context.Context, endpoint Endpoint, req *Request) ([]*url.URL, error)
}
