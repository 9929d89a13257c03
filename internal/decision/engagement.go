package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
)

// Engagement is the open tracking state after RecordOpen.
type Engagement struct {
	OpenCount    int       `json:"openCount"`
	LastOpenedAt time.Time `json:"lastOpenedAt"`
}

// RecordOpen bumps the open counter and last-opened time of an item.
// It feeds future recency checks and group scoring only.
func (e *Engine) RecordOpen(ctx context.Context, userID, itemID string) (Engagement, error) {
	if err := domain.Required("linkId", itemID); err != nil {
		return Engagement{}, err
	}

	item, err := e.authorizeItem(ctx, userID, itemID)
	if err != nil {
		return Engagement{}, err
	}

	now := e.now().UTC()
	count := item.OpenCount + 1
	updated, err := e.repo.UpdateItem(ctx, itemID, domain.ItemPatch{
		OpenCount:    &count,
		LastOpenedAt: &now,
	})
	if err != nil {
		return Engagement{}, fmt.Errorf("failed to record open: %w", err)
	}

	e.log.Debug("item opened",
		logger.String("item_id", itemID),
		logger.Int("open_count", updated.OpenCount))

	return Engagement{OpenCount: updated.OpenCount, LastOpenedAt: now}, nil
}
