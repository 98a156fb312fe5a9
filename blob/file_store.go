package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/offcache/offcache/codec"
	"github.com/offcache/offcache/internal/util"
	"github.com/offcache/offcache/internal/wire"
)

// FileStore keeps one framed record file per (itemKey, variant) under a base
// directory. Writes go through a temp file plus rename so readers never
// observe a half-written record; corrupt records are deleted on read and
// reported as a miss.
type FileStore struct {
	base    string
	headers codec.Codec[http.Header]
}

var _ Store = (*FileStore)(nil)

type FileStoreConfig struct {
	// Base is the root directory for record files. Required; created if
	// missing.
	Base string
	// Headers serializes the header map inside each record. Defaults to
	// msgpack.
	Headers codec.Codec[http.Header]
}

func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Base == "" {
		return nil, errors.New("blob: base directory required")
	}
	abs, err := filepath.Abs(cfg.Base)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve base: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create base: %w", err)
	}
	s := &FileStore{base: abs, headers: cfg.Headers}
	if s.headers == nil {
		s.headers = codec.Msgpack[http.Header]{}
	}
	return s, nil
}

func (s *FileStore) path(itemKey, variant string) string {
	return filepath.Join(s.base, util.RecordName(itemKey, variant)+".rec")
}

func (s *FileStore) Save(ctx context.Context, itemKey, variant string, header http.Header, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hdr, err := s.headers.Encode(header)
	if err != nil {
		return fmt.Errorf("blob: encode header: %w", err)
	}
	record := wire.EncodeRecord(hdr, body)

	target := s.path(itemKey, variant)
	tmp, err := os.CreateTemp(s.base, ".rec-*")
	if err != nil {
		return fmt.Errorf("blob: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("blob: write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blob: close record: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blob: publish record: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, itemKey, variant string) (http.Header, []byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}
	target := s.path(itemKey, variant)
	raw, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("blob: read record: %w", err)
	}

	hdrBytes, body, err := wire.DecodeRecord(raw)
	if err != nil {
		os.Remove(target) // self-heal corrupt record
		return nil, nil, false, nil
	}
	header, err := s.headers.Decode(hdrBytes)
	if err != nil {
		os.Remove(target)
		return nil, nil, false, nil
	}

	out := make([]byte, len(body))
	copy(out, body)
	return header, out, true, nil
}

func (s *FileStore) Remove(ctx context.Context, itemKey, variant string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(itemKey, variant))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
