package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic retries when a watched item changes under us.
const maxTxRetries = 5

// GetItem retrieves an item from Redis by ID
func (s *Store) GetItem(ctx context.Context, id string) (*domain.SavedItem, error) {
	data, err := s.client.Get(ctx, ItemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return decodeItem(data)
}

// ListRecentItems returns up to limit items, newest AddedAt first
func (s *Store) ListRecentItems(ctx context.Context, collectionID string, limit int) ([]*domain.SavedItem, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := s.client.ZRevRange(ctx, CollectionItemsKey(collectionID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent item IDs: %w", err)
	}
	return s.getMany(ctx, ids)
}

// ListGroupedItems returns every item of the collection carrying a group id
func (s *Store) ListGroupedItems(ctx context.Context, collectionID string) ([]*domain.SavedItem, error) {
	return s.listIndexed(ctx, CollectionGroupedKey(collectionID), func(it *domain.SavedItem) bool {
		return it.CollectionID == collectionID && it.HasGroup()
	})
}

// ListGroupMembers returns the items of one decision group
func (s *Store) ListGroupMembers(ctx context.Context, collectionID, groupID string) ([]*domain.SavedItem, error) {
	return s.listIndexed(ctx, GroupMembersKey(collectionID, groupID), func(it *domain.SavedItem) bool {
		return it.CollectionID == collectionID && it.DecisionGroupID == groupID
	})
}

// UpdateItem applies a patch under WATCH so concurrent writers do not
// overwrite each other's fields.
func (s *Store) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.SavedItem, error) {
	var updated *domain.SavedItem
	key := ItemKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.ErrNotFound
			}
			return err
		}

		it, err := decodeItem(data)
		if err != nil {
			return err
		}
		oldGroup := it.DecisionGroupID
		patch.Apply(it)
		out, err := encodeItem(it)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, redis.KeepTTL)
			queueGroupIndex(ctx, pipe, it, oldGroup)
			return nil
		})
		if err == nil {
			updated = it
		}
		return err
	}

	if err := s.watchRetry(ctx, txf, key); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update item %s: %w", id, err)
	}
	return updated, nil
}

// BulkUpdateItems applies the same patch to every existing id in one
// transaction. Unknown ids are skipped.
func (s *Store) BulkUpdateItems(ctx context.Context, ids []string, patch domain.ItemPatch) (int, error) {
	if len(ids) == 0 || patch.IsEmpty() {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ItemKey(id)
	}

	var updated int
	txf := func(tx *redis.Tx) error {
		vals, err := tx.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}

		type write struct {
			key      string
			data     []byte
			item     *domain.SavedItem
			oldGroup string
		}
		writes := make([]write, 0, len(vals))
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			it, err := decodeItem([]byte(raw))
			if err != nil {
				return err
			}
			oldGroup := it.DecisionGroupID
			patch.Apply(it)
			out, err := encodeItem(it)
			if err != nil {
				return err
			}
			writes = append(writes, write{key: keys[i], data: out, item: it, oldGroup: oldGroup})
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range writes {
				pipe.Set(ctx, w.key, w.data, redis.KeepTTL)
				queueGroupIndex(ctx, pipe, w.item, w.oldGroup)
			}
			return nil
		})
		if err == nil {
			updated = len(writes)
		}
		return err
	}

	if err := s.watchRetry(ctx, txf, keys...); err != nil {
		return 0, fmt.Errorf("failed to bulk update items: %w", err)
	}
	return updated, nil
}

// watchRetry runs txf under WATCH, retrying when the transaction is aborted
// by a concurrent write.
func (s *Store) watchRetry(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = s.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// getMany loads items by id, preserving order and skipping vanished ids.
func (s *Store) getMany(ctx context.Context, ids []string) ([]*domain.SavedItem, error) {
	if len(ids) == 0 {
		return []*domain.SavedItem{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ItemKey(id)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	return decodeMany(vals)
}

// listIndexed loads the items whose ids are in the set at setKey. The set
// is an index only: keep re-checks each decoded item so stale entries left
// by an overwrite are ignored.
func (s *Store) listIndexed(ctx context.Context, setKey string, keep func(*domain.SavedItem) bool) ([]*domain.SavedItem, error) {
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed item IDs: %w", err)
	}

	items, err := s.getMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.SavedItem, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// groupIndexChanges returns the sets an item has to leave and join once its
// group id moved from oldGroup to its current value.
func groupIndexChanges(it *domain.SavedItem, oldGroup string) (leave, join []string) {
	if oldGroup == it.DecisionGroupID {
		return nil, nil
	}
	if oldGroup != "" {
		leave = append(leave, GroupMembersKey(it.CollectionID, oldGroup))
	}
	if it.HasGroup() {
		join = append(join, GroupMembersKey(it.CollectionID, it.DecisionGroupID), CollectionGroupedKey(it.CollectionID))
	} else {
		leave = append(leave, CollectionGroupedKey(it.CollectionID))
	}
	return leave, join
}

func queueGroupIndex(ctx context.Context, pipe redis.Pipeliner, it *domain.SavedItem, oldGroup string) {
	leave, join := groupIndexChanges(it, oldGroup)
	for _, k := range leave {
		pipe.SRem(ctx, k, it.ID)
	}
	for _, k := range join {
		pipe.SAdd(ctx, k, it.ID)
	}
}

// decodeMany turns an MGET reply into items. Nil entries are missing keys.
func decodeMany(vals []interface{}) ([]*domain.SavedItem, error) {
	items := make([]*domain.SavedItem, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		it, err := decodeItem([]byte(raw))
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
