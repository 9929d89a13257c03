package decision

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
)

// Repository is the item store the engine works against.
// Implementations return domain.ErrNotFound for unknown ids.
type Repository interface {
	// CollectionOwner returns the user id owning the collection.
	CollectionOwner(ctx context.Context, collectionID string) (string, error)

	// ListRecentItems returns up to limit items of the collection,
	// most recently added first.
	ListRecentItems(ctx context.Context, collectionID string, limit int) ([]*domain.SavedItem, error)

	// ListGroupedItems returns every item of the collection carrying a
	// decision group id, regardless of age.
	ListGroupedItems(ctx context.Context, collectionID string) ([]*domain.SavedItem, error)

	// ListGroupMembers returns the items of one decision group.
	ListGroupMembers(ctx context.Context, collectionID, groupID string) ([]*domain.SavedItem, error)

	GetItem(ctx context.Context, id string) (*domain.SavedItem, error)
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.SavedItem, error)

	// BulkUpdateItems applies the same patch to every id and returns
	// how many items were updated.
	BulkUpdateItems(ctx context.Context, ids []string, patch domain.ItemPatch) (int, error)
}

// Locker is implemented by stores able to lease a collection for the
// duration of a recompute. Stores without it run unguarded.
type Locker interface {
	// TryLockCollection returns ok=false without error when the lease is
	// already held by someone else.
	TryLockCollection(ctx context.Context, collectionID string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// CollectionLister enumerates collections for background sweeps.
type CollectionLister interface {
	ListCollectionIDs(ctx context.Context) ([]string, error)
}
