package sqlite

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// TryLockCollection inserts the lease row, or takes over an expired one.
// A live lease leaves the row untouched and reports ok=false.
func (s *Store) TryLockCollection(ctx context.Context, collectionID string, ttl time.Duration) (func(context.Context) error, bool, error) {
	now := s.now()
	token := uuid.NewString()

	query, args, err := s.sb.Insert("collection_locks").
		Columns("collection_id", "token", "expires_at").
		Values(collectionID, token, now.Add(ttl).UnixNano()).
		Suffix(`ON CONFLICT(collection_id) DO UPDATE SET
			token = excluded.token,
			expires_at = excluded.expires_at
			WHERE collection_locks.expires_at <= ?`, now.UnixNano()).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build lease upsert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, false, nil
	}

	unlock := func(ctx context.Context) error {
		query, args, err := s.sb.Delete("collection_locks").
			Where(sq.Eq{"collection_id": collectionID, "token": token}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build lease release: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("release lease: %w", err)
		}
		return nil
	}
	return unlock, true, nil
}
