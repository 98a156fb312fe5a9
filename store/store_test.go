package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCommit(t *testing.T, s *Store, group string, specs ...ItemSpec) {
	t.Helper()
	if err := s.CommitGroup(context.Background(), group, specs); err != nil {
		t.Fatalf("CommitGroup(%q): %v", group, err)
	}
}

func spec(key, variant string) ItemSpec {
	return ItemSpec{Key: key, Variant: variant, URL: "https://host/" + key}
}

// TestCommitIdempotent verifies that committing the same group twice merges
// membership instead of duplicating rows.
func TestCommitIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustCommit(t, s, "g1", spec("doc", ""), spec("img", "100"))
	mustCommit(t, s, "g1", spec("doc", ""), spec("img", "100"))

	items, err := s.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("want 2 items after double commit, got %d", len(items))
	}

	groups, err := s.Groups(ctx)
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("want 1 group, got %d", len(groups))
	}
	if g := groups[0]; g.Items != 2 || g.MustHaves != 2 {
		t.Fatalf("membership not merged: %+v", g)
	}
}

// TestCommitUpdatesURL checks that re-committing an existing item refreshes
// its URL but never disturbs the download flag.
func TestCommitUpdatesURL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustCommit(t, s, "g1", ItemSpec{Key: "doc", URL: "https://old"})
	if err := s.MarkDownloaded(ctx, ItemKeyAndVariant{Key: "doc"}); err != nil {
		t.Fatalf("MarkDownloaded: %v", err)
	}
	mustCommit(t, s, "g1", ItemSpec{Key: "doc", URL: "https://new"})

	it, err := s.Item(ctx, ItemKeyAndVariant{Key: "doc"})
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if it.URL != "https://new" {
		t.Fatalf("URL not refreshed: %q", it.URL)
	}
	if !it.Downloaded {
		t.Fatalf("re-commit must not reset is_downloaded")
	}
}

func TestMarkDownloadedMissing(t *testing.T) {
	s := newTestStore(t)
	err := s.MarkDownloaded(context.Background(), ItemKeyAndVariant{Key: "nope"})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
}

// TestAllDownloaded walks the completeness predicate through the group
// lifecycle: false right after commit, true once every must-have is marked.
func TestAllDownloaded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustCommit(t, s, "g1", spec("doc", ""), spec("aux", ""))

	done, err := s.AllDownloaded(ctx, "g1")
	if err != nil || done {
		t.Fatalf("fresh group should be incomplete: done=%v err=%v", done, err)
	}

	if err := s.MarkDownloaded(ctx, ItemKeyAndVariant{Key: "doc"}); err != nil {
		t.Fatalf("MarkDownloaded doc: %v", err)
	}
	if done, _ := s.AllDownloaded(ctx, "g1"); done {
		t.Fatalf("one of two marked, predicate must stay false")
	}

	if err := s.MarkDownloaded(ctx, ItemKeyAndVariant{Key: "aux"}); err != nil {
		t.Fatalf("MarkDownloaded aux: %v", err)
	}
	if done, _ := s.AllDownloaded(ctx, "g1"); !done {
		t.Fatalf("all must-haves marked, predicate must be true")
	}

	if _, err := s.AllDownloaded(ctx, "missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("missing group: want ErrGroupNotFound, got %v", err)
	}
}

// TestNiceToHaveExcludedFromCompleteness attaches a nice-to-have item and
// checks it does not gate the predicate.
func TestNiceToHaveExcludedFromCompleteness(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustCommit(t, s, "g1", spec("doc", ""))
	if err := s.AttachItems(ctx, "g1", []ItemSpec{spec("thumb", "50")}); err != nil {
		t.Fatalf("AttachItems: %v", err)
	}
	if err := s.MarkDownloaded(ctx, ItemKeyAndVariant{Key: "doc"}); err != nil {
		t.Fatalf("MarkDownloaded: %v", err)
	}

	done, err := s.AllDownloaded(ctx, "g1")
	if err != nil || !done {
		t.Fatalf("undownloaded nice-to-have must not gate completeness: done=%v err=%v", done, err)
	}

	groups, _ := s.Groups(ctx)
	if g := groups[0]; g.Items != 2 || g.MustHaves != 1 {
		t.Fatalf("want 2 items / 1 must-have, got %+v", g)
	}
}

// TestOrphanKeys verifies the keys-to-remove query: only items owned solely
// by the group are returned.
func TestOrphanKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustCommit(t, s, "g1", spec("only-g1", ""), spec("shared", ""))
	mustCommit(t, s, "g2", spec("shared", ""), spec("only-g2", ""))

	keys, err := s.OrphanKeys(ctx, "g1")
	if err != nil {
		t.Fatalf("OrphanKeys: %v", err)
	}
	if len(keys) != 1 || keys[0].Key != "only-g1" {
		t.Fatalf("want [only-g1], got %v", keys)
	}

	if _, err := s.OrphanKeys(ctx, "missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("missing group: want ErrGroupNotFound, got %v", err)
	}
}

// TestDeleteGroupKeepsItems checks the removal contract: the group row and
// its edges go, item rows stay until deleted explicitly.
func TestDeleteGroupKeepsItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustCommit(t, s, "g1", spec("doc", ""))
	if err := s.DeleteGroup(ctx, "g1"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	if ok, _ := s.GroupExists(ctx, "g1"); ok {
		t.Fatalf("group row should be gone")
	}
	if _, err := s.Item(ctx, ItemKeyAndVariant{Key: "doc"}); err != nil {
		t.Fatalf("item must survive group deletion: %v", err)
	}

	if err := s.DeleteGroup(ctx, "g1"); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("second delete: want ErrGroupNotFound, got %v", err)
	}
}

func TestDeleteItem(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustCommit(t, s, "g1", spec("doc", ""))
	if err := s.DeleteItem(ctx, ItemKeyAndVariant{Key: "doc"}); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := s.DeleteItem(ctx, ItemKeyAndVariant{Key: "doc"}); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("second delete: want ErrItemNotFound, got %v", err)
	}

	// edge rows must have cascaded
	groups, _ := s.Groups(ctx)
	if g := groups[0]; g.Items != 0 || g.MustHaves != 0 {
		t.Fatalf("edges should cascade with the item: %+v", g)
	}
}

// TestVariantsForKeyStableOrder pins insertion order, which the fallback
// resolver's "first encountered" default depends on.
func TestVariantsForKeyStableOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustCommit(t, s, "g1", spec("img", "en"), spec("img", "de"), spec("img", "fr"))

	items, err := s.VariantsForKey(ctx, "img")
	if err != nil {
		t.Fatalf("VariantsForKey: %v", err)
	}
	want := []string{"en", "de", "fr"}
	if len(items) != len(want) {
		t.Fatalf("want %d variants, got %d", len(want), len(items))
	}
	for i, w := range want {
		if items[i].Variant != w {
			t.Fatalf("variant order not stable: got %v", items)
		}
	}
}
