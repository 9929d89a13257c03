package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
)

// Store keeps collections and items in process memory.
// Used for local development and as the engine's test double.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*domain.Collection // ID -> Collection
	items       map[string]*domain.SavedItem  // ID -> SavedItem
	leases      map[string]lease              // collection ID -> lease

	// now drives lease expiry, overridable in tests.
	now func() time.Time
}

type lease struct {
	token   string
	expires time.Time
}

// New creates an empty memory store
func New() *Store {
	return &Store{
		collections: make(map[string]*domain.Collection),
		items:       make(map[string]*domain.SavedItem),
		leases:      make(map[string]lease),
		now:         time.Now,
	}
}

// ─────────────────────────────────────────────────────────────────
// Seeding
// ─────────────────────────────────────────────────────────────────

// SaveCollection adds or replaces a collection
func (s *Store) SaveCollection(_ context.Context, c *domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cc := *c
	s.collections[c.ID] = &cc
	return nil
}

// SaveItem adds or replaces an item
func (s *Store) SaveItem(_ context.Context, it *domain.SavedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[it.ID] = it.Clone()
	return nil
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// ─────────────────────────────────────────────────────────────────
// decision.Repository
// ─────────────────────────────────────────────────────────────────

// CollectionOwner returns the owner of a collection
func (s *Store) CollectionOwner(_ context.Context, collectionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collectionID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return c.OwnerID, nil
}

// ListRecentItems returns the newest items of a collection
func (s *Store) ListRecentItems(_ context.Context, collectionID string, limit int) ([]*domain.SavedItem, error) {
	items := s.filter(func(it *domain.SavedItem) bool {
		return it.CollectionID == collectionID
	})

	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.After(items[j].AddedAt)
		}
		return items[i].ID < items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ListGroupedItems returns every grouped item of a collection
func (s *Store) ListGroupedItems(_ context.Context, collectionID string) ([]*domain.SavedItem, error) {
	return s.filter(func(it *domain.SavedItem) bool {
		return it.CollectionID == collectionID && it.HasGroup()
	}), nil
}

// ListGroupMembers returns the items of one group
func (s *Store) ListGroupMembers(_ context.Context, collectionID, groupID string) ([]*domain.SavedItem, error) {
	return s.filter(func(it *domain.SavedItem) bool {
		return it.CollectionID == collectionID && it.DecisionGroupID == groupID
	}), nil
}

// GetItem retrieves an item by ID
func (s *Store) GetItem(_ context.Context, id string) (*domain.SavedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return it.Clone(), nil
}

// UpdateItem applies a patch to one item
func (s *Store) UpdateItem(_ context.Context, id string, patch domain.ItemPatch) (*domain.SavedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	patch.Apply(it)
	return it.Clone(), nil
}

// BulkUpdateItems applies a patch to every known id, skipping unknown ones
func (s *Store) BulkUpdateItems(_ context.Context, ids []string, patch domain.ItemPatch) (int, error) {
	if patch.IsEmpty() {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			patch.Apply(it)
			updated++
		}
	}
	return updated, nil
}

// ListCollectionIDs returns all collection IDs, sorted
func (s *Store) ListCollectionIDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.collections))
	for id := range s.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ─────────────────────────────────────────────────────────────────
// decision.Locker
// ─────────────────────────────────────────────────────────────────

// TryLockCollection takes the collection lease unless a live one exists
func (s *Store) TryLockCollection(_ context.Context, collectionID string, ttl time.Duration) (func(context.Context) error, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if l, held := s.leases[collectionID]; held && now.Before(l.expires) {
		return nil, false, nil
	}

	token := uuid.NewString()
	s.leases[collectionID] = lease{token: token, expires: now.Add(ttl)}

	unlock := func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if l, held := s.leases[collectionID]; held && l.token == token {
			delete(s.leases, collectionID)
		}
		return nil
	}
	return unlock, true, nil
}

// filter returns clones of the items matching keep
func (s *Store) filter(keep func(*domain.SavedItem) bool) []*domain.SavedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.SavedItem, 0)
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
