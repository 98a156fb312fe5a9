package offcache

import (
	"context"
	"net/http"
	"time"

	"github.com/offcache/offcache/codec"
	"github.com/offcache/offcache/internal/wire"
	"github.com/offcache/offcache/provider"
)

// Response is one cached response: the serialized header map plus the raw
// body bytes.
type Response struct {
	Header http.Header
	Body   []byte
}

// ResponseCache is a URL-keyed store of recently served responses. The
// fallback resolver consults it before touching the persistent blob store.
type ResponseCache interface {
	Get(ctx context.Context, url string) (*Response, bool, error)
	Put(ctx context.Context, url string, resp *Response) error
}

// TransientCacheOptions configure NewTransientCache. Provider is required.
type TransientCacheOptions struct {
	Provider provider.Provider
	// Headers serializes the header map inside each entry; msgpack when nil.
	Headers codec.Codec[http.Header]
	// TTL for entries; the provider's default behavior applies when 0.
	TTL    time.Duration
	Logger Logger
}

// TransientCache keeps recently served responses in a byte-store provider
// under "resp:"-prefixed keys. Entries are framed records; corrupt entries
// are deleted on read and reported as a miss.
type TransientCache struct {
	p       provider.Provider
	headers codec.Codec[http.Header]
	ttl     time.Duration
	log     Logger
}

var _ ResponseCache = (*TransientCache)(nil)

func NewTransientCache(opts TransientCacheOptions) (*TransientCache, error) {
	if opts.Provider == nil {
		return nil, errNilProvider
	}
	c := &TransientCache{p: opts.Provider, ttl: opts.TTL}
	c.headers = opts.Headers
	if c.headers == nil {
		c.headers = codec.Msgpack[http.Header]{}
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	return c, nil
}

func respKey(url string) string { return "resp:" + url }

func (c *TransientCache) Get(ctx context.Context, url string) (*Response, bool, error) {
	k := respKey(url)
	raw, ok, err := c.p.Get(ctx, k)
	if err != nil || !ok {
		return nil, false, err
	}
	hdrBytes, body, err := wire.DecodeRecord(raw)
	if err != nil {
		_ = c.p.Del(ctx, k) // self-heal corrupt
		c.log.Debug("transient entry corrupt, dropped", Fields{"url": url})
		return nil, false, nil
	}
	header, err := c.headers.Decode(hdrBytes)
	if err != nil {
		_ = c.p.Del(ctx, k)
		return nil, false, nil
	}
	out := make([]byte, len(body))
	copy(out, body)
	return &Response{Header: header, Body: out}, true, nil
}

func (c *TransientCache) Put(ctx context.Context, url string, resp *Response) error {
	hdr, err := c.headers.Encode(resp.Header)
	if err != nil {
		return err
	}
	record := wire.EncodeRecord(hdr, resp.Body)
	ok, err := c.p.Set(ctx, respKey(url), record, int64(len(record)), c.ttl)
	if err != nil {
		return err
	}
	if !ok {
		c.log.Debug("transient Put rejected by provider (pressure)", Fields{"url": url})
	}
	return nil
}
