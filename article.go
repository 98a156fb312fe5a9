package offcache

import (
	"context"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/offcache/offcache/fetch"
	"github.com/offcache/offcache/store"
	"github.com/offcache/offcache/tracker"
)

// ImageWriter is the image sub-cache producer the article writer delegates
// discovered media URLs to. Its outcome is advisory: the article commit never
// waits on it and never fails because of it. perItem may be nil; done is
// invoked once after the whole batch settles.
type ImageWriter interface {
	AddAll(ctx context.Context, urls []*url.URL, groupKey string, perItem func(*url.URL, error), done func(error))
}

// ArticleWriterOptions configure NewArticleWriter. Store, Builder and Lists
// are required.
type ArticleWriterOptions struct {
	Store   *store.Store
	Builder fetch.RequestBuilder
	Lists   fetch.ListFetcher
	Images  ImageWriter      // nil => discovered media is not sub-cached
	Tracker *tracker.Tracker // nil => a private tracker is created
	Logger  Logger           // nil => NopLogger
}

// ArticleWriter caches one article per group: the HTML document plus the
// offline-capable resources and embedded media discovered by two concurrent
// list fetches.
type ArticleWriter struct {
	store   *store.Store
	builder fetch.RequestBuilder
	lists   fetch.ListFetcher
	images  ImageWriter
	tracker *tracker.Tracker
	log     Logger
}

var _ GroupWriter = (*ArticleWriter)(nil)

func NewArticleWriter(opts ArticleWriterOptions) (*ArticleWriter, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}
	if opts.Builder == nil {
		return nil, errNilBuilder
	}
	if opts.Lists == nil {
		return nil, errNilLists
	}
	w := &ArticleWriter{
		store:   opts.Store,
		builder: opts.Builder,
		lists:   opts.Lists,
		images:  opts.Images,
	}
	w.tracker = opts.Tracker
	if w.tracker == nil {
		w.tracker = tracker.New()
	}
	w.log = coalesce[Logger](opts.Logger, NopLogger{})
	return w, nil
}

// Tracker exposes the registry so group removal elsewhere can cancel this
// writer's in-flight fetches.
func (w *ArticleWriter) Tracker() *tracker.Tracker { return w.tracker }

type listResult struct {
	urls []*url.URL
	err  error
}

// Add implements GroupWriter. The two list-discovery fetches run
// concurrently, each tracked under groupKey with a fresh id and untracked on
// completion; the commit happens only after both have joined. When both
// fail, the media-list error is the one surfaced - a deliberate tie-break,
// not a race.
func (w *ArticleWriter) Add(ctx context.Context, articleURL *url.URL, groupKey string) ([]*fetch.Request, error) {
	docReq, err := w.builder.Document(articleURL)
	if err != nil {
		return nil, err
	}
	offlineReq, err := w.builder.OfflineResourceList(articleURL)
	if err != nil {
		return nil, err
	}
	mediaReq, err := w.builder.MediaList(articleURL)
	if err != nil {
		return nil, err
	}

	var (
		wg      sync.WaitGroup
		media   listResult
		offline listResult
	)
	w.fetchList(ctx, &wg, groupKey, fetch.EndpointMediaList, mediaReq, &media)
	w.fetchList(ctx, &wg, groupKey, fetch.EndpointOfflineList, offlineReq, &offline)
	wg.Wait()

	// media-list error takes priority over offline-list error
	if media.err != nil {
		return nil, media.err
	}
	if offline.err != nil {
		return nil, offline.err
	}

	if w.images != nil && len(media.urls) > 0 {
		// fire-and-forget: sub-cache failures never fail the article commit
		w.images.AddAll(ctx, media.urls, groupKey, nil, func(err error) {
			if err != nil {
				w.log.Debug("image sub-cache add failed", Fields{"group": groupKey, "err": err})
			}
		})
	}

	musts := make([]*fetch.Request, 0, 2+len(offline.urls))
	musts = append(musts, docReq, mediaReq)
	for _, u := range offline.urls {
		r, err := w.builder.Resource(u)
		if err != nil {
			return nil, err
		}
		musts = append(musts, r)
	}

	if err := w.commit(ctx, groupKey, musts); err != nil {
		return nil, err
	}
	return musts, nil
}

// fetchList dispatches one tracked list fetch; the result lands in out
// before wg releases the join.
func (w *ArticleWriter) fetchList(ctx context.Context, wg *sync.WaitGroup, groupKey string, ep fetch.Endpoint, req *fetch.Request, out *listResult) {
	id := uuid.New()
	fctx, cancel := context.WithCancel(ctx)
	w.tracker.Track(id, cancel, groupKey)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer w.tracker.Untrack(id, groupKey)
		defer cancel()
		urls, err := w.lists.FetchList(fctx, ep, req)
		if err != nil {
			err = &fetch.ListError{Endpoint: ep, Err: err}
		}
		*out = listResult{urls: urls, err: err}
	}()
}

// commit derives (url, itemKey, variant) from every must-have request and
// lands them in one transaction. A request without an item key aborts the
// whole set before anything is written.
func (w *ArticleWriter) commit(ctx context.Context, groupKey string, musts []*fetch.Request) error {
	specs := make([]store.ItemSpec, 0, len(musts))
	for _, r := range musts {
		key, ok := r.ItemKey()
		if !ok {
			return ErrMissingItemKey
		}
		specs = append(specs, store.ItemSpec{Key: key, Variant: r.Variant(), URL: r.URL.String()})
	}
	if err := w.store.CommitGroup(ctx, groupKey, specs); err != nil {
		return err
	}
	w.log.Debug("committed article group", Fields{"group": groupKey, "mustHaves": len(specs)})
	return nil
}

// AddAll implements GroupWriter. Articles are single-root; calling this is
// programmer misuse.
func (w *ArticleWriter) AddAll(context.Context, []*url.URL, string) ([]*fetch.Request, error) {
	return nil, ErrBatchUnsupported
}

// ShouldDownloadVariant implements GroupWriter. Permissive for now; the hook
// exists so a locale-aware policy can land without touching callers.
func (w *ArticleWriter) ShouldDownloadVariant(string, string) bool { return true }

// AllDownloaded reports whether every must-have item of the group is
// downloaded. Unknown groups and store trouble read as false, never as an
// error - this is the completeness predicate the rest of the system polls.
func (w *ArticleWriter) AllDownloaded(ctx context.Context, groupKey string) bool {
	done, err := w.store.AllDownloaded(ctx, groupKey)
	if err != nil {
		if !IsNotFound(err) {
			w.log.Warn("completeness check failed", Fields{"group": groupKey, "err": err})
		}
		return false
	}
	return done
}

// AddMigrated bulk-imports one pre-existing cached document: the group key is
// derived from the URL, the document request is committed as the sole
// must-have and immediately marked downloaded. No list discovery runs - the
// migration of media and offline resources is a separate mechanism.
func (w *ArticleWriter) AddMigrated(ctx context.Context, articleURL *url.URL) error {
	docReq, err := w.builder.Document(articleURL)
	if err != nil {
		return err
	}
	groupKey := w.builder.GroupKey(articleURL)
	if err := w.commit(ctx, groupKey, []*fetch.Request{docReq}); err != nil {
		return err
	}
	return MarkDownloaded(ctx, w.store, docReq)
}

// Remove cancels every tracked fetch for groupKey, deletes the items owned by
// only this group, then the group row. An item already gone when its delete
// reaches the writer queue lost a benign race and is skipped.
func (w *ArticleWriter) Remove(ctx context.Context, groupKey string) error {
	w.tracker.CancelAll(groupKey)

	keys, err := KeysToRemove(ctx, w.store, groupKey)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := RemoveItem(ctx, w.store, k); err != nil && !IsNotFound(err) {
			return err
		}
	}
	return RemoveGroup(ctx, w.store, groupKey)
}
