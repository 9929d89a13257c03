package decision

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
)

// ArchiveResult reports how many group members were dismissed.
type ArchiveResult struct {
	Updated int `json:"updated"`
}

// ArchiveOthers dismisses every member of the group except chosenItemID.
// The winner's own flags are left untouched.
func (e *Engine) ArchiveOthers(ctx context.Context, userID, collectionID, groupID, chosenItemID string) (ArchiveResult, error) {
	if err := domain.Required("collectionId", collectionID); err != nil {
		return ArchiveResult{}, err
	}
	if err := domain.Required("decisionGroupId", groupID); err != nil {
		return ArchiveResult{}, err
	}
	if err := domain.Required("chosenLinkId", chosenItemID); err != nil {
		return ArchiveResult{}, err
	}
	if err := e.authorizeCollection(ctx, userID, collectionID); err != nil {
		return ArchiveResult{}, err
	}

	members, err := e.repo.ListGroupMembers(ctx, collectionID, groupID)
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("failed to list group members: %w", err)
	}

	others := make([]string, 0, len(members))
	for _, m := range members {
		if m.ID != chosenItemID {
			others = append(others, m.ID)
		}
	}
	if len(others) == 0 {
		return ArchiveResult{}, nil
	}

	n, err := e.repo.BulkUpdateItems(ctx, others, domain.ItemPatch{
		Dismissed:   domain.Bool(true),
		Shortlisted: domain.Bool(false),
	})
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("failed to archive group members: %w", err)
	}

	e.metrics.ObserveArchived(n)
	e.log.Info("archived other group members",
		logger.String("collection_id", collectionID),
		logger.String("group_id", groupID),
		logger.String("chosen_item_id", chosenItemID),
		logger.Int("updated", n))
	return ArchiveResult{Updated: n}, nil
}
