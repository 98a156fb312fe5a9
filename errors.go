package offcache

import (
	"errors"

	"github.com/offcache/offcache/store"
)

var (
	// ErrNilStore is returned by constructors when no store handle was
	// injected. Absence of the store is a configuration error caught at
	// construction time, never a per-call condition.
	ErrNilStore = errors.New("offcache: store is required")

	// ErrMissingItemKey means a request reached commit or mark-downloaded
	// without the item-key header. This is an upstream producer bug and
	// aborts the whole operation; partial commits are not permitted.
	ErrMissingItemKey = errors.New("offcache: request carries no item key header")

	// ErrBatchUnsupported is returned by producers that only support
	// single-root semantics when their batch Add is called. Calling it is
	// programmer misuse, not a runtime condition to recover from.
	ErrBatchUnsupported = errors.New("offcache: producer does not support batch add")
)

var (
	errNilBuilder  = errors.New("offcache: request builder is required")
	errNilLists    = errors.New("offcache: list fetcher is required")
	errNilProvider = errors.New("offcache: provider is required")
)

// Not-found conditions are detected by the store; aliased here so callers can
// branch with errors.Is against either package.
var (
	ErrGroupNotFound = store.ErrGroupNotFound
	ErrItemNotFound  = store.ErrItemNotFound
)
