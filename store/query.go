package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GroupExists reports whether a group row exists for groupKey.
func (s *Store) GroupExists(ctx context.Context, groupKey string) (bool, error) {
	var one int
	err := s.read.QueryRowContext(ctx,
		"SELECT 1 FROM cache_groups WHERE group_key = ?", groupKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: group exists: %w", err)
	}
	return true, nil
}

// Item returns the row for one (itemKey, variant) pair.
func (s *Store) Item(ctx context.Context, key ItemKeyAndVariant) (Item, error) {
	var it Item
	err := s.read.QueryRowContext(ctx, `
		SELECT item_key, variant, url, is_downloaded
		FROM cache_items WHERE item_key = ? AND variant = ?`,
		key.Key, key.Variant).Scan(&it.Key, &it.Variant, &it.URL, &it.Downloaded)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("store: item: %w", err)
	}
	return it, nil
}

// OrphanKeys returns the items whose only owning group is groupKey - the set
// that would become orphaned if the group were deleted. Items shared with
// another group are excluded.
func (s *Store) OrphanKeys(ctx context.Context, groupKey string) ([]ItemKeyAndVariant, error) {
	ok, err := s.GroupExists(ctx, groupKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGroupNotFound
	}

	rows, err := s.read.QueryContext(ctx, `
		SELECT i.item_key, i.variant
		FROM cache_items i
		JOIN group_items gi ON gi.item_id = i.id
		JOIN cache_groups g ON g.id = gi.group_id
		WHERE g.group_key = ?
		  AND (SELECT COUNT(*) FROM group_items g2 WHERE g2.item_id = i.id) = 1
		ORDER BY i.id`, groupKey)
	if err != nil {
		return nil, fmt.Errorf("store: orphan keys: %w", err)
	}
	defer rows.Close()

	var out []ItemKeyAndVariant
	for rows.Next() {
		var k ItemKeyAndVariant
		if err := rows.Scan(&k.Key, &k.Variant); err != nil {
			return nil, fmt.Errorf("store: orphan keys scan: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// AllDownloaded reports whether every must-have item of the group is
// downloaded. A missing group is ErrGroupNotFound; a group whose must-have
// set is empty counts as complete.
func (s *Store) AllDownloaded(ctx context.Context, groupKey string) (bool, error) {
	ok, err := s.GroupExists(ctx, groupKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrGroupNotFound
	}

	var pending int
	err = s.read.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM group_must_items gm
		JOIN cache_groups g ON g.id = gm.group_id
		JOIN cache_items i ON i.id = gm.item_id
		WHERE g.group_key = ? AND i.is_downloaded = 0`, groupKey).Scan(&pending)
	if err != nil {
		return false, fmt.Errorf("store: all downloaded: %w", err)
	}
	return pending == 0, nil
}

// VariantsForKey returns every persisted variant of itemKey regardless of
// owning group, in insertion order. The stable order matters: callers that
// apply no comparator fall back to the first-encountered variant.
func (s *Store) VariantsForKey(ctx context.Context, itemKey string) ([]Item, error) {
	rows, err := s.read.QueryContext(ctx, `
		SELECT item_key, variant, url, is_downloaded
		FROM cache_items WHERE item_key = ? ORDER BY id`, itemKey)
	if err != nil {
		return nil, fmt.Errorf("store: variants: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.Variant, &it.URL, &it.Downloaded); err != nil {
			return nil, fmt.Errorf("store: variants scan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Groups returns a diagnostic snapshot of every group with its membership
// counts. Side-effect free; intended for debug dumps only.
func (s *Store) Groups(ctx context.Context) ([]GroupInfo, error) {
	rows, err := s.read.QueryContext(ctx, `
		SELECT g.group_key,
		       (SELECT COUNT(*) FROM group_items gi WHERE gi.group_id = g.id),
		       (SELECT COUNT(*) FROM group_must_items gm WHERE gm.group_id = g.id)
		FROM cache_groups g ORDER BY g.group_key`)
	if err != nil {
		return nil, fmt.Errorf("store: groups: %w", err)
	}
	defer rows.Close()

	var out []GroupInfo
	for rows.Next() {
		var gi GroupInfo
		if err := rows.Scan(&gi.Key, &gi.Items, &gi.MustHaves); err != nil {
			return nil, fmt.Errorf("store: groups scan: %w", err)
		}
		out = append(out, gi)
	}
	return out, rows.Err()
}

// Items returns every item row in insertion order. Diagnostic only.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	rows, err := s.read.QueryContext(ctx,
		"SELECT item_key, variant, url, is_downloaded FROM cache_items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.Variant, &it.URL, &it.Downloaded); err != nil {
			return nil, fmt.Errorf("store: items scan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
