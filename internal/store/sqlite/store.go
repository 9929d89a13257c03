package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS items (
	id                TEXT PRIMARY KEY,
	collection_id     TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	url               TEXT NOT NULL,
	domain            TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL DEFAULT '',
	added_at          INTEGER NOT NULL,
	last_opened_at    INTEGER,
	open_count        INTEGER NOT NULL DEFAULT 0,
	decision_group_id TEXT NOT NULL DEFAULT '',
	shortlisted       INTEGER NOT NULL DEFAULT 0,
	dismissed         INTEGER NOT NULL DEFAULT 0,
	chosen            INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_items_collection_added ON items(collection_id, added_at DESC);
CREATE INDEX IF NOT EXISTS idx_items_collection_group ON items(collection_id, decision_group_id);

CREATE TABLE IF NOT EXISTS collection_locks (
	collection_id TEXT PRIMARY KEY,
	token         TEXT NOT NULL,
	expires_at    INTEGER NOT NULL
);
`

// itemColumns is the SELECT list matching scanItem.
var itemColumns = []string{
	"id", "collection_id", "url", "domain", "title",
	"added_at", "last_opened_at", "open_count",
	"decision_group_id", "shortlisted", "dismissed", "chosen",
}

// Store persists collections and items in a SQLite database.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType

	// now drives lease expiry, overridable in tests.
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: time.Now,
	}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveCollection upserts a collection
func (s *Store) SaveCollection(ctx context.Context, c *domain.Collection) error {
	query, args, err := s.sb.Insert("collections").
		Columns("id", "owner_id", "name", "created_at").
		Values(c.ID, c.OwnerID, c.Name, c.CreatedAt.UnixNano()).
		Suffix("ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, name = excluded.name").
		ToSql()
	if err != nil {
		return fmt.Errorf("build collection upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert collection: %w", err)
	}
	return nil
}

// SaveItem upserts an item with all of its fields
func (s *Store) SaveItem(ctx context.Context, it *domain.SavedItem) error {
	query, args, err := s.sb.Insert("items").
		Columns(itemColumns...).
		Values(
			it.ID, it.CollectionID, it.URL, it.Domain, it.Title,
			it.AddedAt.UnixNano(), nullTime(it.LastOpenedAt), it.OpenCount,
			it.DecisionGroupID, it.Shortlisted, it.Dismissed, it.Chosen,
		).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			collection_id = excluded.collection_id,
			url = excluded.url,
			domain = excluded.domain,
			title = excluded.title,
			added_at = excluded.added_at,
			last_opened_at = excluded.last_opened_at,
			open_count = excluded.open_count,
			decision_group_id = excluded.decision_group_id,
			shortlisted = excluded.shortlisted,
			dismissed = excluded.dismissed,
			chosen = excluded.chosen`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build item upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert item %s: %w", it.ID, err)
	}
	return nil
}

// CollectionOwner returns the owner of a collection
func (s *Store) CollectionOwner(ctx context.Context, collectionID string) (string, error) {
	query, args, err := s.sb.Select("owner_id").
		From("collections").
		Where(sq.Eq{"id": collectionID}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build owner query: %w", err)
	}

	var owner string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("query owner: %w", err)
	}
	return owner, nil
}

// ListCollectionIDs returns all collection IDs, sorted
func (s *Store) ListCollectionIDs(ctx context.Context) ([]string, error) {
	query, args, err := s.sb.Select("id").From("collections").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build collections query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer utils.Close(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan collection id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return ids, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
