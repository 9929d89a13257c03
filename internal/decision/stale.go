package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
)

// DefaultStaleThreshold is how long a group may sit idle before its ids are
// cleared by CollectStaleGroups.
const DefaultStaleThreshold = 30 * 24 * time.Hour

// CollectStaleGroups clears the group id of every member of groups whose
// latest member activity is older than threshold and that have no chosen
// member. Recompute never does this itself; idle groups otherwise keep
// their ids forever. Returns the number of items cleared.
func (e *Engine) CollectStaleGroups(ctx context.Context, collectionID string, threshold time.Duration) (int, error) {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}

	cleared := 0
	err := e.withCollectionLease(ctx, collectionID, func(ctx context.Context) error {
		items, err := e.repo.ListGroupedItems(ctx, collectionID)
		if err != nil {
			return fmt.Errorf("failed to list grouped items: %w", err)
		}

		cutoff := e.now().Add(-threshold)
		for groupID, members := range groupByID(items) {
			if !isStale(members, cutoff) {
				continue
			}

			ids := make([]string, len(members))
			for i, m := range members {
				ids[i] = m.ID
			}
			n, err := e.repo.BulkUpdateItems(ctx, ids, domain.ItemPatch{DecisionGroupID: domain.String("")})
			if err != nil {
				return fmt.Errorf("failed to clear stale group %s: %w", groupID, err)
			}
			cleared += n

			e.log.Info("cleared stale decision group",
				logger.String("collection_id", collectionID),
				logger.String("group_id", groupID),
				logger.Int("members", n))
		}
		return nil
	})
	return cleared, err
}

func groupByID(items []*domain.SavedItem) map[string][]*domain.SavedItem {
	groups := make(map[string][]*domain.SavedItem)
	for _, it := range items {
		if it.HasGroup() {
			groups[it.DecisionGroupID] = append(groups[it.DecisionGroupID], it)
		}
	}
	return groups
}

func isStale(members []*domain.SavedItem, cutoff time.Time) bool {
	for _, m := range members {
		if m.Chosen || !m.LastActive().Before(cutoff) {
			return false
		}
	}
	return len(members) > 0
}
