// Package codec provides pluggable (de)serialization for values persisted by
// the cache: header maps in blob records and whole responses in the transient
// response cache.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
