package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/decision"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
)

// Sweeper clears idle decision groups of one collection.
type Sweeper interface {
	CollectStaleGroups(ctx context.Context, collectionID string, threshold time.Duration) (int, error)
}

// StaleCollector periodically clears decision groups nobody touched for a while
type StaleCollector struct {
	sweeper   Sweeper
	lister    decision.CollectionLister
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	stopCh    chan struct{}
}

// NewStaleCollector creates a new stale group collector
func NewStaleCollector(
	sweeper Sweeper,
	lister decision.CollectionLister,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *StaleCollector {
	if threshold == 0 {
		threshold = decision.DefaultStaleThreshold
	}

	return &StaleCollector{
		sweeper:   sweeper,
		lister:    lister,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		stopCh:    make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval until Stop or ctx is done
func (sc *StaleCollector) Start(ctx context.Context) error {
	if sc.interval <= 0 {
		return fmt.Errorf("stale collector interval must be positive, got %s", sc.interval)
	}

	if _, err := sc.Collect(ctx); err != nil {
		sc.logger.Warn("initial stale group sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(sc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := sc.Collect(ctx); err != nil {
					sc.logger.Error("stale group sweep failed",
						logger.Error(err))
				}
			case <-sc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the collector
func (sc *StaleCollector) Stop() {
	close(sc.stopCh)
}

// Collect sweeps every collection once. A collection that fails, or is busy
// with a recompute, is skipped until the next tick. Returns the number of
// items whose group id was cleared.
func (sc *StaleCollector) Collect(ctx context.Context) (int, error) {
	ids, err := sc.lister.ListCollectionIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list collections: %w", err)
	}

	cleared, skipped := 0, 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return cleared, ctx.Err()
		}

		n, err := sc.sweeper.CollectStaleGroups(ctx, id, sc.threshold)
		if err != nil {
			skipped++
			sc.logger.Warn("skipping collection in stale group sweep",
				logger.String("collection_id", id),
				logger.Error(err))
			continue
		}
		cleared += n
	}

	if cleared > 0 || skipped > 0 {
		sc.logger.Info("stale group sweep completed",
			logger.Int("collections", len(ids)),
			logger.Int("items_cleared", cleared),
			logger.Int("collections_skipped", skipped))
	} else {
		sc.logger.Debug("no stale decision groups")
	}

	return cleared, nil
}
