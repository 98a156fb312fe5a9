package offcache

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/offcache/offcache/blob"
	"github.com/offcache/offcache/provider"
	"github.com/offcache/offcache/store"
)

// ==============================
// In-memory provider fake
// ==============================

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	m map[string]memEntry
}

var _ provider.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error { delete(p.m, key); return nil }
func (p *memProvider) Close(_ context.Context) error           { return nil }

// ==============================
// Helpers
// ==============================

func newTestResolver(t *testing.T, st *store.Store, transient ResponseCache, blobs blob.Store, articleLess VariantLess) *Resolver {
	t.Helper()
	r, err := NewResolver(ResolverOptions{
		Store:       st,
		Transient:   transient,
		Blobs:       blobs,
		ArticleLess: articleLess,
	})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func newTestBlobs(t *testing.T) blob.Store {
	t.Helper()
	fs, err := blob.NewFileStore(blob.FileStoreConfig{Base: t.TempDir()})
	if err != nil {
		t.Fatalf("blob.NewFileStore: %v", err)
	}
	return fs
}

func commitVariants(t *testing.T, st *store.Store, itemKey string, variants ...string) {
	t.Helper()
	specs := make([]store.ItemSpec, 0, len(variants))
	for _, v := range variants {
		specs = append(specs, store.ItemSpec{
			Key: itemKey, Variant: v, URL: "https://host/" + itemKey + "?size=" + v,
		})
	}
	if err := st.CommitGroup(context.Background(), "g1", specs); err != nil {
		t.Fatalf("CommitGroup: %v", err)
	}
}

// ==============================
// Variant selection policy
// ==============================

// TestImageFallbackOrdering pins the image policy: ascending numeric sort
// with unparsable variants sorting before any parseable value.
func TestImageFallbackOrdering(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		variants []string
		want     string
	}{
		{"smallest numeric wins", []string{"100", "50", "320"}, "50"},
		{"unparsable sorts first", []string{"100", "50", "bad"}, "bad"},
		{"all unparsable keeps first encountered", []string{"x", "y"}, "x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStore(t)
			blobs := newTestBlobs(t)
			commitVariants(t, st, "img", tc.variants...)
			if err := blobs.Save(ctx, "img", tc.want, http.Header{"X-V": {tc.want}}, []byte("body")); err != nil {
				t.Fatalf("Save: %v", err)
			}

			r := newTestResolver(t, st, nil, blobs, nil)
			resp, ok, err := r.Resolve(ctx, "img", KindImage)
			if err != nil || !ok {
				t.Fatalf("Resolve: ok=%v err=%v", ok, err)
			}
			if got := resp.Header.Get("X-V"); got != tc.want {
				t.Fatalf("want variant %q selected, got %q", tc.want, got)
			}
		})
	}
}

// TestArticleFallbackFirstEncountered verifies the default article policy is
// stable first-encountered order, and that a supplied comparator overrides it.
func TestArticleFallbackFirstEncountered(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	blobs := newTestBlobs(t)
	commitVariants(t, st, "doc", "en", "de", "ar")
	for _, v := range []string{"en", "de", "ar"} {
		if err := blobs.Save(ctx, "doc", v, http.Header{"X-V": {v}}, []byte(v)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	r := newTestResolver(t, st, nil, blobs, nil)
	resp, ok, err := r.Resolve(ctx, "doc", KindArticle)
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if got := resp.Header.Get("X-V"); got != "en" {
		t.Fatalf("default must be first encountered (en), got %q", got)
	}

	// pluggable comparator: lexicographic picks "ar"
	lex := func(a, b store.Item) bool { return a.Variant < b.Variant }
	r2 := newTestResolver(t, st, nil, blobs, lex)
	resp, ok, err = r2.Resolve(ctx, "doc", KindArticle)
	if err != nil || !ok {
		t.Fatalf("Resolve with comparator: ok=%v err=%v", ok, err)
	}
	if got := resp.Header.Get("X-V"); got != "ar" {
		t.Fatalf("comparator must order variants, got %q", got)
	}
}

// ==============================
// Lookup tiers
// ==============================

// TestTransientConsultedBeforeBlob seeds both tiers with different bodies
// and checks the transient one is served.
func TestTransientConsultedBeforeBlob(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	blobs := newTestBlobs(t)
	commitVariants(t, st, "img", "50")

	transient, err := NewTransientCache(TransientCacheOptions{Provider: newMemProvider()})
	if err != nil {
		t.Fatalf("NewTransientCache: %v", err)
	}
	if err := transient.Put(ctx, "https://host/img?size=50", &Response{
		Header: make(http.Header), Body: []byte("from transient"),
	}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := blobs.Save(ctx, "img", "50", make(http.Header), []byte("from blob")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r := newTestResolver(t, st, transient, blobs, nil)
	resp, ok, err := r.Resolve(ctx, "img", KindImage)
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if string(resp.Body) != "from transient" {
		t.Fatalf("transient tier must win, got %q", resp.Body)
	}
}

func TestBlobFallbackWhenTransientMisses(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	blobs := newTestBlobs(t)
	commitVariants(t, st, "img", "50")
	if err := blobs.Save(ctx, "img", "50", make(http.Header), []byte("from blob")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	transient, _ := NewTransientCache(TransientCacheOptions{Provider: newMemProvider()})
	r := newTestResolver(t, st, transient, blobs, nil)
	resp, ok, err := r.Resolve(ctx, "img", KindImage)
	if err != nil || !ok {
		t.Fatalf("Resolve: ok=%v err=%v", ok, err)
	}
	if string(resp.Body) != "from blob" {
		t.Fatalf("blob tier must serve on transient miss, got %q", resp.Body)
	}
}

// TestNoFallbackAvailable: absence at every tier is a miss, not an error.
func TestNoFallbackAvailable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	r := newTestResolver(t, st, nil, newTestBlobs(t), nil)

	// no variants persisted at all
	if resp, ok, err := r.Resolve(ctx, "ghost", KindImage); resp != nil || ok || err != nil {
		t.Fatalf("want clean miss, got resp=%v ok=%v err=%v", resp, ok, err)
	}

	// variants known to the graph but no stored response anywhere
	commitVariants(t, st, "img", "50")
	if resp, ok, err := r.Resolve(ctx, "img", KindImage); resp != nil || ok || err != nil {
		t.Fatalf("want clean miss, got resp=%v ok=%v err=%v", resp, ok, err)
	}
}

// ==============================
// Transient cache behavior
// ==============================

func TestTransientCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	tc, err := NewTransientCache(TransientCacheOptions{Provider: newMemProvider()})
	if err != nil {
		t.Fatalf("NewTransientCache: %v", err)
	}

	hdr := http.Header{"Content-Type": {"text/html"}}
	if err := tc.Put(ctx, "https://host/a", &Response{Header: hdr, Body: []byte("hello")}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	resp, ok, err := tc.Get(ctx, "https://host/a")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(resp.Body) != "hello" || resp.Header.Get("Content-Type") != "text/html" {
		t.Fatalf("round trip mangled response: %+v", resp)
	}

	if _, ok, _ := tc.Get(ctx, "https://host/miss"); ok {
		t.Fatalf("unknown URL must miss")
	}
}

// TestTransientCacheSelfHealsCorrupt plants garbage under the resp keyspace
// and checks the entry is dropped and reported as a miss.
func TestTransientCacheSelfHealsCorrupt(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	tc, _ := NewTransientCache(TransientCacheOptions{Provider: mp})

	mp.m["resp:https://host/a"] = memEntry{v: []byte("garbage")}

	if _, ok, err := tc.Get(ctx, "https://host/a"); ok || err != nil {
		t.Fatalf("corrupt entry must read as miss: ok=%v err=%v", ok, err)
	}
	if _, still := mp.m["resp:https://host/a"]; still {
		t.Fatalf("corrupt entry must be deleted")
	}
}
