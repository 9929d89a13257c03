package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
	"github.com/MrSnakeDoc/shortlist/internal/metrics"
)

const (
	// DefaultLockTTL bounds how long a crashed recompute can hold a collection.
	DefaultLockTTL = 30 * time.Second
	// DefaultLockWait is how long a recompute waits for a busy collection.
	DefaultLockWait = 2 * time.Second

	lockPollInterval = 50 * time.Millisecond
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	RecencyWindow   time.Duration
	CandidateLimit  int
	MaxClusterSize  int
	TitleOverlapMin float64
	LockTTL         time.Duration
	LockWait        time.Duration
}

// Engine runs the decision grouping and resolution operations.
// It holds no per-collection state; everything lives in the repository.
type Engine struct {
	repo    Repository
	log     logger.Logger
	metrics *metrics.Metrics
	opts    Options

	now   func() time.Time
	newID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides group id minting, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithMetrics records engine activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds an engine over repo.
func NewEngine(repo Repository, log logger.Logger, opts Options, options ...Option) *Engine {
	if opts.RecencyWindow <= 0 {
		opts.RecencyWindow = domain.DefaultRecencyWindow
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = domain.DefaultCandidateLimit
	}
	if opts.MaxClusterSize < 2 {
		opts.MaxClusterSize = domain.DefaultMaxClusterSize
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	if opts.LockWait < 0 {
		opts.LockWait = 0
	}

	e := &Engine{
		repo:  repo,
		log:   log,
		opts:  opts,
		now:   time.Now,
		newID: NewGroupID,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// NewGroupID mints a random decision group id.
func NewGroupID() string {
	return uuid.NewString()
}

// authorizeCollection returns ErrNotFound unless userID owns the collection.
func (e *Engine) authorizeCollection(ctx context.Context, userID, collectionID string) error {
	owner, err := e.repo.CollectionOwner(ctx, collectionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to load collection owner: %w", err)
	}
	if owner != userID {
		e.log.Debug("collection ownership mismatch",
			logger.String("collection_id", collectionID),
			logger.String("user_id", userID))
		return domain.ErrNotFound
	}
	return nil
}

// authorizeItem loads an item and checks the caller owns its collection.
func (e *Engine) authorizeItem(ctx context.Context, userID, itemID string) (*domain.SavedItem, error) {
	item, err := e.repo.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if err := e.authorizeCollection(ctx, userID, item.CollectionID); err != nil {
		return nil, err
	}
	return item, nil
}

// withCollectionLease runs fn while holding the collection lease, when the
// repository supports one. It waits up to LockWait before giving up with
// domain.ErrBusy.
func (e *Engine) withCollectionLease(ctx context.Context, collectionID string, fn func(context.Context) error) error {
	locker, ok := e.repo.(Locker)
	if !ok {
		return fn(ctx)
	}

	deadline := time.Now().Add(e.opts.LockWait)
	for {
		unlock, acquired, err := locker.TryLockCollection(ctx, collectionID, e.opts.LockTTL)
		if err != nil {
			return fmt.Errorf("failed to lease collection: %w", err)
		}
		if acquired {
			defer func() {
				// release even if the request context is already gone
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					e.log.Warn("failed to release collection lease",
						logger.String("collection_id", collectionID),
						logger.Error(err))
				}
			}()
			return fn(ctx)
		}

		if !time.Now().Before(deadline) {
			e.metrics.LeaseContended()
			return domain.ErrBusy
		}

		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
