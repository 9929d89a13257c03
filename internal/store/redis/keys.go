package redis

import "time"

const (
	// KeyPrefixItem is the prefix for saved item keys
	KeyPrefixItem = "shortlist:item:"
	// KeyPrefixCollection is the prefix for collection keys
	KeyPrefixCollection = "shortlist:collection:"
	// KeyPrefixLock is the prefix for collection lease keys
	KeyPrefixLock = "shortlist:lock:collection:"
	// KeyAllCollections is the key for the set of all collection IDs
	KeyAllCollections = "shortlist:collections:all"
)

// ItemKey returns the Redis key for an item by ID
func ItemKey(id string) string {
	return KeyPrefixItem + id
}

// CollectionKey returns the Redis key for a collection by ID
func CollectionKey(id string) string {
	return KeyPrefixCollection + id
}

// CollectionItemsKey returns the sorted set of a collection's item IDs,
// scored by AddedAt.
func CollectionItemsKey(collectionID string) string {
	return KeyPrefixCollection + collectionID + ":items"
}

// CollectionGroupedKey returns the set of a collection's item IDs that
// carry a decision group id.
func CollectionGroupedKey(collectionID string) string {
	return KeyPrefixCollection + collectionID + ":grouped"
}

// GroupMembersKey returns the set of item IDs of one decision group.
func GroupMembersKey(collectionID, groupID string) string {
	return KeyPrefixCollection + collectionID + ":group:" + groupID
}

// LockKey returns the lease key of a collection
func LockKey(collectionID string) string {
	return KeyPrefixLock + collectionID
}

// AllCollectionsKey returns the key for the set of all collection IDs
func AllCollectionsKey() string {
	return KeyAllCollections
}

// addedScore is the sorted set score of an item. Milliseconds keep the
// value exact in a float64.
func addedScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}
