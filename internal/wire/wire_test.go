package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		header []byte
		body   []byte
	}{
		{"both empty", nil, nil},
		{"empty body", []byte("hdr"), nil},
		{"empty header", nil, []byte("body")},
		{"both set", []byte("hdr"), []byte("body-bytes")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := EncodeRecord(tc.header, tc.body)
			h, body, err := DecodeRecord(b)
			if err != nil {
				t.Fatalf("DecodeRecord: %v", err)
			}
			if !bytes.Equal(h, tc.header) || !bytes.Equal(body, tc.body) {
				t.Fatalf("round trip mismatch: h=%q body=%q", h, body)
			}
		})
	}
}

func TestRecordRejectsTrailingBytes(t *testing.T) {
	b := EncodeRecord([]byte("h"), []byte("b"))
	b = append(b, 0xFF)
	if _, _, err := DecodeRecord(b); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("trailing bytes must be corrupt, got %v", err)
	}
}

func TestRecordCorruptHeadersAndLengths(t *testing.T) {
	good := EncodeRecord([]byte("header"), []byte("body"))

	cases := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"empty", func(b []byte) []byte { return nil }},
		{"short", func(b []byte) []byte { return b[:4] }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad version", func(b []byte) []byte { b[4] = 99; return b }},
		{"bad kind", func(b []byte) []byte { b[5] = 99; return b }},
		{"truncated body", func(b []byte) []byte { return b[:len(b)-2] }},
		{"hlen overruns", func(b []byte) []byte { b[6] = 0xFF; return b }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := make([]byte, len(good))
			copy(b, good)
			if _, _, err := DecodeRecord(tc.mutate(b)); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("want ErrCorrupt, got %v", err)
			}
		})
	}
}

// TestRecordZeroCopySlices documents that decoded slices alias the input.
func TestRecordZeroCopySlices(t *testing.T) {
	b := EncodeRecord([]byte("h"), []byte("b"))
	h, body, err := DecodeRecord(b)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	h[0] = 'H'
	body[0] = 'B'
	h2, body2, _ := DecodeRecord(b)
	if h2[0] != 'H' || body2[0] != 'B' {
		t.Fatalf("decoded slices are expected to alias the record buffer")
	}
}
