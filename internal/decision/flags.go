package decision

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
)

// FlagUpdate carries the optional flags of a set-flags request.
type FlagUpdate struct {
	Shortlisted *bool
	Dismissed   *bool
}

// FlagSnapshot is the item state returned after a flag update.
type FlagSnapshot struct {
	ID          string `json:"id"`
	Shortlisted bool   `json:"shortlisted"`
	Dismissed   bool   `json:"dismissed"`
	Chosen      bool   `json:"chosen"`
}

// SetFlags toggles shortlisted and dismissed on one item. A dismissed item
// is never left shortlisted. Regrouping and resolution are up to the caller.
func (e *Engine) SetFlags(ctx context.Context, userID, itemID string, upd FlagUpdate) (FlagSnapshot, error) {
	if err := domain.Required("linkId", itemID); err != nil {
		return FlagSnapshot{}, err
	}
	if upd.Shortlisted == nil && upd.Dismissed == nil {
		return FlagSnapshot{}, &domain.ValidationError{Field: "shortlisted", Reason: "one of shortlisted or dismissed is required"}
	}

	item, err := e.authorizeItem(ctx, userID, itemID)
	if err != nil {
		return FlagSnapshot{}, err
	}

	patch := flagPatch(item, upd)
	updated, err := e.repo.UpdateItem(ctx, itemID, patch)
	if err != nil {
		return FlagSnapshot{}, fmt.Errorf("failed to update flags: %w", err)
	}

	e.log.Info("item flags updated",
		logger.String("item_id", itemID),
		logger.Bool("shortlisted", updated.Shortlisted),
		logger.Bool("dismissed", updated.Dismissed),
		logger.String("state", string(domain.StateOf(updated))))

	return FlagSnapshot{
		ID:          updated.ID,
		Shortlisted: updated.Shortlisted,
		Dismissed:   updated.Dismissed,
		Chosen:      updated.Chosen,
	}, nil
}

// flagPatch builds the patch for upd, forcing shortlisted off whenever the
// item ends up dismissed.
func flagPatch(item *domain.SavedItem, upd FlagUpdate) domain.ItemPatch {
	patch := domain.ItemPatch{
		Shortlisted: upd.Shortlisted,
		Dismissed:   upd.Dismissed,
	}

	dismissed := item.Dismissed
	if upd.Dismissed != nil {
		dismissed = *upd.Dismissed
	}
	if dismissed {
		patch.Shortlisted = domain.Bool(false)
	}
	return patch
}
