package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var (
	// ErrGroupNotFound means the group key has no row. Expected and
	// recoverable; callers typically treat it as "nothing to remove".
	ErrGroupNotFound = errors.New("store: cache group not found")

	// ErrItemNotFound means no item row matches the (itemKey, variant) pair.
	ErrItemNotFound = errors.New("store: cache item not found")
)

// Item is one addressable resource. (Key, Variant) is unique across the
// store; Variant is "" when the resource has no alternate renditions.
type Item struct {
	Key        string
	Variant    string
	URL        string
	Downloaded bool
}

// ItemKeyAndVariant is the compound identity used for removal and the
// keys-to-remove query result. Derived, never persisted on its own.
type ItemKeyAndVariant struct {
	Key     string
	Variant string
}

// ItemSpec describes one item to commit into a group.
type ItemSpec struct {
	Key     string
	Variant string
	URL     string
}

// GroupInfo is a diagnostic snapshot of one group.
type GroupInfo struct {
	Key       string
	Items     int
	MustHaves int
}

// Store owns the SQLite cache graph. Safe for concurrent use; all writes are
// funneled through a single connection.
type Store struct {
	write *sql.DB
	read  *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS cache_groups (
	id        INTEGER PRIMARY KEY,
	group_key TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS cache_items (
	id            INTEGER PRIMARY KEY,
	item_key      TEXT NOT NULL,
	variant       TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL,
	is_downloaded INTEGER NOT NULL DEFAULT 0,
	UNIQUE (item_key, variant)
);
CREATE TABLE IF NOT EXISTS group_items (
	group_id INTEGER NOT NULL REFERENCES cache_groups(id) ON DELETE CASCADE,
	item_id  INTEGER NOT NULL REFERENCES cache_items(id) ON DELETE CASCADE,
	PRIMARY KEY (group_id, item_id)
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS group_must_items (
	group_id INTEGER NOT NULL REFERENCES cache_groups(id) ON DELETE CASCADE,
	item_id  INTEGER NOT NULL REFERENCES cache_items(id) ON DELETE CASCADE,
	PRIMARY KEY (group_id, item_id)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS idx_group_items_item ON group_items(item_id);
CREATE INDEX IF NOT EXISTS idx_group_must_items_item ON group_must_items(item_id);
`

// Open creates (or opens) the cache graph database at path. The parent
// directory is created if missing.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	write, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open write db: %w", err)
	}
	// exactly one logical writer; mutations queue behind each other
	write.SetMaxOpenConns(1)

	if _, err := write.Exec(schema); err != nil {
		write.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	read, err := sql.Open("sqlite", dsn)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("store: open read db: %w", err)
	}

	return &Store{write: write, read: read}, nil
}

func (s *Store) Close() error {
	rerr := s.read.Close()
	werr := s.write.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
