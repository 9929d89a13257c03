package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Store keeps collections and items in Redis as JSON blobs, with a sorted
// set per collection for recency queries and plain sets indexing group
// membership.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveCollection stores a collection in Redis
func (s *Store) SaveCollection(ctx context.Context, c *domain.Collection) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, CollectionKey(c.ID), data, 0)
	pipe.SAdd(ctx, AllCollectionsKey(), c.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	return nil
}

// SaveItem stores an item and indexes it under its collection
func (s *Store) SaveItem(ctx context.Context, it *domain.SavedItem) error {
	return s.SaveItemsMany(ctx, []*domain.SavedItem{it})
}

// SaveItemsMany stores multiple items in Redis (bulk operation)
func (s *Store) SaveItemsMany(ctx context.Context, items []*domain.SavedItem) error {
	pipe := s.client.Pipeline()

	for _, it := range items {
		data, err := encodeItem(it)
		if err != nil {
			return err
		}
		pipe.Set(ctx, ItemKey(it.ID), data, 0)
		pipe.ZAdd(ctx, CollectionItemsKey(it.CollectionID), redis.Z{
			Score:  addedScore(it.AddedAt),
			Member: it.ID,
		})
		queueGroupIndex(ctx, pipe, it, "")
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save items: %w", err)
	}
	return nil
}

// CollectionOwner returns the owner of a collection
func (s *Store) CollectionOwner(ctx context.Context, collectionID string) (string, error) {
	data, err := s.client.Get(ctx, CollectionKey(collectionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to get collection: %w", err)
	}

	var c domain.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("failed to unmarshal collection: %w", err)
	}
	return c.OwnerID, nil
}

// ListCollectionIDs returns all known collection IDs
func (s *Store) ListCollectionIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, AllCollectionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get collection IDs: %w", err)
	}
	return ids, nil
}

func encodeItem(it *domain.SavedItem) ([]byte, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item %s: %w", it.ID, err)
	}
	return data, nil
}

func decodeItem(data []byte) (*domain.SavedItem, error) {
	var it domain.SavedItem
	if err := json.Unmarshal(data, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &it, nil
}
