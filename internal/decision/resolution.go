package decision

import (
	"context"
	"fmt"
	"sort"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
)

// Status is the outcome of a targeted resolution.
type Status string

const (
	StatusChosen          Status = "chosen"
	StatusCandidateChosen Status = "candidate_chosen"
	StatusNoResolution    Status = "no_resolution"
)

// Resolution answers a targeted resolve query. LinkID is nil for
// StatusNoResolution.
type Resolution struct {
	Status Status  `json:"status"`
	LinkID *string `json:"linkId"`
}

// normalizeChosen marks the sole member of every singleton group as chosen
// and clears chosen on every member of larger groups. It covers all grouped
// items of the collection, not only current candidates, and ignores
// dismissed state.
func (e *Engine) normalizeChosen(ctx context.Context, collectionID string) error {
	items, err := e.repo.ListGroupedItems(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("failed to list grouped items: %w", err)
	}

	groups := groupByID(items)
	groupIDs := make([]string, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Strings(groupIDs)

	for _, groupID := range groupIDs {
		members := groups[groupID]
		want := len(members) == 1

		var stale []string
		for _, m := range members {
			if m.Chosen != want {
				stale = append(stale, m.ID)
			}
		}
		if len(stale) == 0 {
			continue
		}

		if _, err := e.repo.BulkUpdateItems(ctx, stale, domain.ItemPatch{Chosen: domain.Bool(want)}); err != nil {
			return fmt.Errorf("failed to normalize chosen flags of group %s: %w", groupID, err)
		}
		e.log.Debug("normalized chosen flags",
			logger.String("group_id", groupID),
			logger.Int("members", len(members)),
			logger.Bool("chosen", want))
	}
	return nil
}

// ResolveGroup answers whether a group has a winner. A group whose only
// non-dismissed member remains gets that member marked chosen; a group
// with a single shortlisted member among several active ones reports it as
// an advisory candidate without writing anything.
func (e *Engine) ResolveGroup(ctx context.Context, userID, collectionID, groupID string) (Resolution, error) {
	if err := domain.Required("collectionId", collectionID); err != nil {
		return Resolution{}, err
	}
	if err := domain.Required("decisionGroupId", groupID); err != nil {
		return Resolution{}, err
	}
	if err := e.authorizeCollection(ctx, userID, collectionID); err != nil {
		return Resolution{}, err
	}

	members, err := e.repo.ListGroupMembers(ctx, collectionID, groupID)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to list group members: %w", err)
	}

	res := evaluateGroup(members)
	if res.Status == StatusChosen {
		if _, err := e.repo.UpdateItem(ctx, *res.LinkID, domain.ItemPatch{Chosen: domain.Bool(true)}); err != nil {
			return Resolution{}, fmt.Errorf("failed to mark chosen: %w", err)
		}
	}

	e.metrics.ObserveResolution(string(res.Status))
	e.log.Info("decision group resolved",
		logger.String("collection_id", collectionID),
		logger.String("group_id", groupID),
		logger.String("status", string(res.Status)),
		logger.Int("members", len(members)))
	return res, nil
}

// evaluateGroup applies the resolution rule without side effects.
func evaluateGroup(members []*domain.SavedItem) Resolution {
	var active, shortlisted []*domain.SavedItem
	for _, m := range members {
		if m.Dismissed {
			continue
		}
		active = append(active, m)
		if m.Shortlisted {
			shortlisted = append(shortlisted, m)
		}
	}

	switch {
	case len(active) == 1:
		id := active[0].ID
		return Resolution{Status: StatusChosen, LinkID: &id}
	case len(shortlisted) == 1 && len(active) >= 2:
		id := shortlisted[0].ID
		return Resolution{Status: StatusCandidateChosen, LinkID: &id}
	default:
		return Resolution{Status: StatusNoResolution}
	}
}
