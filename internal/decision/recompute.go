package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
)

// RecomputeResult is the outcome of one recompute pass.
type RecomputeResult struct {
	GroupsCreated int `json:"groupsCreated"`
	LinksUpdated  int `json:"linksUpdated"`
}

// Recompute re-clusters the recently active items of a collection, writes
// the group ids and normalizes chosen flags across every known group.
//
// Writes are not transactional. A failure midway leaves earlier writes in
// place; rerunning on a quiet collection converges to the same partition.
func (e *Engine) Recompute(ctx context.Context, userID, collectionID string) (RecomputeResult, error) {
	if err := domain.Required("collectionId", collectionID); err != nil {
		return RecomputeResult{}, err
	}
	if err := e.authorizeCollection(ctx, userID, collectionID); err != nil {
		return RecomputeResult{}, err
	}

	var res RecomputeResult
	start := time.Now()
	err := e.withCollectionLease(ctx, collectionID, func(ctx context.Context) error {
		var err error
		res, err = e.recompute(ctx, collectionID)
		return err
	})
	e.metrics.ObserveRecompute(res.GroupsCreated, res.LinksUpdated, time.Since(start), err)
	if err != nil {
		return RecomputeResult{}, err
	}

	e.log.Info("decision groups recomputed",
		logger.String("collection_id", collectionID),
		logger.Int("groups_created", res.GroupsCreated),
		logger.Int("links_updated", res.LinksUpdated),
		logger.Duration("duration", time.Since(start)))
	return res, nil
}

// recompute is the unguarded select → cluster → persist → normalize sequence.
func (e *Engine) recompute(ctx context.Context, collectionID string) (RecomputeResult, error) {
	items, err := e.repo.ListRecentItems(ctx, collectionID, e.opts.CandidateLimit)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("failed to list recent items: %w", err)
	}

	candidates := SelectCandidates(items, e.now(), e.opts.RecencyWindow)
	clusters := GroupCandidates(candidates, GroupOptions{
		Window:          e.opts.RecencyWindow,
		MaxClusterSize:  e.opts.MaxClusterSize,
		TitleOverlapMin: e.opts.TitleOverlapMin,
		NewID:           e.newID,
	})

	e.log.Debug("clustered candidates",
		logger.String("collection_id", collectionID),
		logger.Int("items", len(items)),
		logger.Int("candidates", len(candidates)),
		logger.Int("clusters", len(clusters)))

	res, err := e.persistClusters(ctx, clusters)
	if err != nil {
		return res, err
	}

	if err := e.normalizeChosen(ctx, collectionID); err != nil {
		return res, err
	}
	return res, nil
}

// persistClusters writes the group id of every cluster member and clears
// its chosen flag, since membership may just have changed.
func (e *Engine) persistClusters(ctx context.Context, clusters []Cluster) (RecomputeResult, error) {
	var res RecomputeResult
	for _, cl := range clusters {
		ids := make([]string, len(cl.Members))
		for i, m := range cl.Members {
			ids[i] = m.ID
		}

		n, err := e.repo.BulkUpdateItems(ctx, ids, domain.ItemPatch{
			DecisionGroupID: domain.String(cl.GroupID),
			Chosen:          domain.Bool(false),
		})
		if err != nil {
			return res, fmt.Errorf("failed to persist group %s: %w", cl.GroupID, err)
		}

		res.GroupsCreated++
		res.LinksUpdated += n

		e.log.Debug("persisted decision group",
			logger.String("group_id", cl.GroupID),
			logger.String("domain", cl.Domain),
			logger.Bool("reused", cl.Reused),
			logger.Int("members", n))
	}
	return res, nil
}
