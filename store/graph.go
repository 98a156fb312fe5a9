package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CommitGroup upserts the group row and every item in musts, then attaches
// each item to both membership edges (cacheItems and mustHaveCacheItems).
// Runs in one transaction: either the whole request set lands or none of it.
// Idempotent - existing items are reused, membership edges are merged.
func (s *Store) CommitGroup(ctx context.Context, groupKey string, musts []ItemSpec) error {
	tx, err := s.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin commit: %w", err)
	}
	defer tx.Rollback()

	groupID, err := upsertGroup(ctx, tx, groupKey)
	if err != nil {
		return err
	}

	for _, spec := range musts {
		itemID, err := upsertItem(ctx, tx, spec)
		if err != nil {
			return err
		}
		for _, edge := range []string{"group_items", "group_must_items"} {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO "+edge+" (group_id, item_id) VALUES (?, ?)",
				groupID, itemID); err != nil {
				return fmt.Errorf("store: attach %s: %w", edge, err)
			}
		}
	}

	return tx.Commit()
}

// AttachItems adds nice-to-have membership only: items are upserted and
// linked into group_items but not group_must_items, so they never gate the
// completeness predicate.
func (s *Store) AttachItems(ctx context.Context, groupKey string, items []ItemSpec) error {
	tx, err := s.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin attach: %w", err)
	}
	defer tx.Rollback()

	groupID, err := upsertGroup(ctx, tx, groupKey)
	if err != nil {
		return err
	}
	for _, spec := range items {
		itemID, err := upsertItem(ctx, tx, spec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_items (group_id, item_id) VALUES (?, ?)",
			groupID, itemID); err != nil {
			return fmt.Errorf("store: attach group_items: %w", err)
		}
	}

	return tx.Commit()
}

func upsertGroup(ctx context.Context, tx *sql.Tx, groupKey string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO cache_groups (group_key) VALUES (?) ON CONFLICT (group_key) DO NOTHING",
		groupKey); err != nil {
		return 0, fmt.Errorf("store: upsert group: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM cache_groups WHERE group_key = ?", groupKey).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: lookup group id: %w", err)
	}
	return id, nil
}

func upsertItem(ctx context.Context, tx *sql.Tx, spec ItemSpec) (int64, error) {
	// keep the freshest URL on re-commit; is_downloaded is never touched here
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cache_items (item_key, variant, url) VALUES (?, ?, ?)
		ON CONFLICT (item_key, variant) DO UPDATE SET url = excluded.url`,
		spec.Key, spec.Variant, spec.URL); err != nil {
		return 0, fmt.Errorf("store: upsert item: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM cache_items WHERE item_key = ? AND variant = ?",
		spec.Key, spec.Variant).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: lookup item id: %w", err)
	}
	return id, nil
}

// MarkDownloaded flips is_downloaded to true for one (itemKey, variant).
// The transition is one-way; nothing in this store resets it to false.
func (s *Store) MarkDownloaded(ctx context.Context, key ItemKeyAndVariant) error {
	res, err := s.write.ExecContext(ctx,
		"UPDATE cache_items SET is_downloaded = 1 WHERE item_key = ? AND variant = ?",
		key.Key, key.Variant)
	if err != nil {
		return fmt.Errorf("store: mark downloaded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: mark downloaded: %w", err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// DeleteItem removes exactly one item row; membership edges cascade.
func (s *Store) DeleteItem(ctx context.Context, key ItemKeyAndVariant) error {
	res, err := s.write.ExecContext(ctx,
		"DELETE FROM cache_items WHERE item_key = ? AND variant = ?",
		key.Key, key.Variant)
	if err != nil {
		return fmt.Errorf("store: delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete item: %w", err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// DeleteGroup removes the group row. Edge rows cascade; item rows do not -
// callers query OrphanKeys beforehand and delete orphans explicitly, which
// keeps ordering and atomicity in their hands.
func (s *Store) DeleteGroup(ctx context.Context, groupKey string) error {
	res, err := s.write.ExecContext(ctx,
		"DELETE FROM cache_groups WHERE group_key = ?", groupKey)
	if err != nil {
		return fmt.Errorf("store: delete group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete group: %w", err)
	}
	if n == 0 {
		return ErrGroupNotFound
	}
	return nil
}
