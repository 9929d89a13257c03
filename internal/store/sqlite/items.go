package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/utils"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.SavedItem, error) {
	var (
		it         domain.SavedItem
		addedAt    int64
		lastOpened sql.NullInt64
	)
	err := row.Scan(
		&it.ID, &it.CollectionID, &it.URL, &it.Domain, &it.Title,
		&addedAt, &lastOpened, &it.OpenCount,
		&it.DecisionGroupID, &it.Shortlisted, &it.Dismissed, &it.Chosen,
	)
	if err != nil {
		return nil, err
	}

	it.AddedAt = time.Unix(0, addedAt).UTC()
	if lastOpened.Valid {
		t := time.Unix(0, lastOpened.Int64).UTC()
		it.LastOpenedAt = &t
	}
	return &it, nil
}

// GetItem retrieves an item by ID
func (s *Store) GetItem(ctx context.Context, id string) (*domain.SavedItem, error) {
	return getItem(ctx, s.db, s.sb, id)
}

// ListRecentItems returns up to limit items, newest AddedAt first
func (s *Store) ListRecentItems(ctx context.Context, collectionID string, limit int) ([]*domain.SavedItem, error) {
	q := s.sb.Select(itemColumns...).
		From("items").
		Where(sq.Eq{"collection_id": collectionID}).
		OrderBy("added_at DESC", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryItems(ctx, q)
}

// ListGroupedItems returns every item of the collection carrying a group id
func (s *Store) ListGroupedItems(ctx context.Context, collectionID string) ([]*domain.SavedItem, error) {
	return s.queryItems(ctx, s.sb.Select(itemColumns...).
		From("items").
		Where(sq.And{
			sq.Eq{"collection_id": collectionID},
			sq.NotEq{"decision_group_id": ""},
		}).
		OrderBy("id"))
}

// ListGroupMembers returns the items of one decision group
func (s *Store) ListGroupMembers(ctx context.Context, collectionID, groupID string) ([]*domain.SavedItem, error) {
	return s.queryItems(ctx, s.sb.Select(itemColumns...).
		From("items").
		Where(sq.Eq{"collection_id": collectionID, "decision_group_id": groupID}).
		OrderBy("id"))
}

// UpdateItem applies a patch and returns the updated row, in one transaction
func (s *Store) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.SavedItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if !patch.IsEmpty() {
		query, args, err := s.sb.Update("items").SetMap(patchColumns(patch)).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build item update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("update item %s: %w", id, err)
		}
	}

	it, err := getItem(ctx, tx, s.sb, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return it, nil
}

// BulkUpdateItems applies the same patch to every id with a single UPDATE.
func (s *Store) BulkUpdateItems(ctx context.Context, ids []string, patch domain.ItemPatch) (int, error) {
	if len(ids) == 0 || patch.IsEmpty() {
		return 0, nil
	}

	query, args, err := s.sb.Update("items").SetMap(patchColumns(patch)).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build bulk update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk update items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// patchColumns maps the set fields of a patch to column values.
func patchColumns(p domain.ItemPatch) map[string]interface{} {
	set := make(map[string]interface{})
	if p.DecisionGroupID != nil {
		set["decision_group_id"] = *p.DecisionGroupID
	}
	if p.Shortlisted != nil {
		set["shortlisted"] = *p.Shortlisted
	}
	if p.Dismissed != nil {
		set["dismissed"] = *p.Dismissed
	}
	if p.Chosen != nil {
		set["chosen"] = *p.Chosen
	}
	if p.OpenCount != nil {
		set["open_count"] = *p.OpenCount
	}
	if p.LastOpenedAt != nil {
		set["last_opened_at"] = p.LastOpenedAt.UnixNano()
	}
	return set
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, db queryer, sb sq.StatementBuilderType, id string) (*domain.SavedItem, error) {
	query, args, err := sb.Select(itemColumns...).From("items").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}

	it, err := scanItem(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query item %s: %w", id, err)
	}
	return it, nil
}

func (s *Store) queryItems(ctx context.Context, q sq.SelectBuilder) ([]*domain.SavedItem, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer utils.Close(rows)

	items := make([]*domain.SavedItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}
