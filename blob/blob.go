// Package blob stores cached response bodies and their serialized header
// maps on disk, one record per (itemKey, variant). File naming is a stable
// digest over the pair, so the fallback resolver can locate a record from the
// graph row alone.
package blob

import (
	"context"
	"net/http"
)

// Store persists one response record per (itemKey, variant).
type Store interface {
	// Save writes the record atomically, replacing any previous one.
	Save(ctx context.Context, itemKey, variant string, header http.Header, body []byte) error

	// Load returns the stored header and body. A missing record is
	// (nil, nil, false, nil) - absence is a normal outcome, not an error.
	Load(ctx context.Context, itemKey, variant string) (http.Header, []byte, bool, error)

	// Remove deletes the record (best-effort, idempotent).
	Remove(ctx context.Context, itemKey, variant string) error
}
