// Package wire frames cached response records for storage. Both the blob
// store and the transient response cache persist the same shape: a serialized
// header map followed by the raw body, behind a magic/version header so
// corrupt or foreign entries are detected instead of misread.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version    byte = 1
	kindRecord byte = 1
)

var (
	ErrCorrupt = errors.New("wire: corrupt record")
	magic4     = [...]byte{'O', 'F', 'F', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record: magic(4) | ver(1) | kind(1) | hlen(u32 be) | header(hlen) | blen(u32 be) | body(blen)
func EncodeRecord(header, body []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 4 + len(header) + 4 + len(body))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(header)))
	buf.Write(u4[:])
	buf.Write(header)

	binary.BigEndian.PutUint32(u4[:], uint32(len(body)))
	buf.Write(u4[:])
	buf.Write(body)

	return buf.Bytes()
}

// DecodeRecord returns the header and body slices of b. The slices alias b;
// callers that retain them past b's lifetime must copy. Trailing bytes are
// rejected as corruption.
func DecodeRecord(b []byte) (header, body []byte, err error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return nil, nil, ErrCorrupt
	}

	off := 6

	hlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if hlen < 0 || hlen > len(b)-off {
		return nil, nil, ErrCorrupt
	}
	header = b[off : off+hlen]
	off += hlen

	if off+4 > len(b) {
		return nil, nil, ErrCorrupt
	}
	blen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if blen < 0 || blen > len(b)-off {
		return nil, nil, ErrCorrupt
	}
	body = b[off : off+blen]
	off += blen

	if off != len(b) {
		return nil, nil, ErrCorrupt
	}
	return header, body, nil
}
