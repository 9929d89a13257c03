package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/auth"
	"github.com/MrSnakeDoc/shortlist/internal/config"
	"github.com/MrSnakeDoc/shortlist/internal/decision"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver"
	"github.com/MrSnakeDoc/shortlist/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
	"github.com/MrSnakeDoc/shortlist/internal/metrics"
	"github.com/MrSnakeDoc/shortlist/internal/redis"
	"github.com/MrSnakeDoc/shortlist/internal/scheduler"
	"github.com/MrSnakeDoc/shortlist/internal/sources/seed"
	"github.com/MrSnakeDoc/shortlist/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/shortlist/internal/store/redis"
	"github.com/MrSnakeDoc/shortlist/internal/store/sqlite"
	"github.com/MrSnakeDoc/shortlist/internal/version"
)

// Backend is what every store implementation provides.
type Backend interface {
	decision.Repository
	decision.CollectionLister
	seed.Seeder
	deps.Pinger
}

type App struct {
	cfg        *config.Config
	logger     logger.Logger
	store      Backend
	closeStore func() error
	engine     *decision.Engine
	verifier   *auth.Verifier
	server     *httpserver.Server
	stale      *scheduler.StaleCollector
}

// New loads the configuration from the environment and builds the app.
func New(ctx context.Context) (*App, error) {
	cfg := config.Load()
	return NewWithConfig(ctx, cfg, logger.New(cfg.LogLevel, cfg.PrettyLog))
}

// NewWithConfig builds the app from an explicit configuration.
// The store is opened (and seeded, when configured) before returning.
func NewWithConfig(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	store, closeStore, err := openStore(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		logger:     loggerClient,
		store:      store,
		closeStore: closeStore,
	}

	if cfg.SeedFile != "" {
		if _, err := a.Seed(ctx, cfg.SeedFile); err != nil {
			_ = closeStore()
			return nil, err
		}
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	a.verifier = verifier

	m := metrics.New()
	a.engine = decision.NewEngine(store, loggerClient, decision.Options{
		RecencyWindow:   cfg.RecencyWindow,
		CandidateLimit:  cfg.CandidateLimit,
		MaxClusterSize:  cfg.MaxClusterSize,
		TitleOverlapMin: cfg.TitleOverlapMin,
		LockTTL:         cfg.LockTTL,
		LockWait:        cfg.LockWait,
	}, decision.WithMetrics(m))

	if cfg.StaleGCInterval > 0 {
		a.stale = scheduler.NewStaleCollector(a.engine, store, loggerClient,
			cfg.StaleGCInterval, cfg.StaleGCThreshold)
	} else {
		loggerClient.Info("stale group collector disabled")
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		Engine:       a.engine,
		Verifier:     verifier,
		Metrics:      m,
		Store:        store,
		StoreName:    cfg.Store,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		RateBurst:    cfg.RateBurst,
		RatePerMin:   cfg.RatePerMin,
	}
	a.server = httpserver.New(cfg, loggerClient, d)

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (Backend, func() error, error) {
	switch cfg.Store {
	case config.StoreRedis:
		// fail fast if Redis never becomes reachable
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Redis initialized successfully")
		return redisstore.NewStore(client), client.Close, nil

	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info("SQLite store opened", logger.String("path", cfg.SQLitePath))
		return s, s.Close, nil

	default:
		log.Warn("using in-memory store, data is lost on restart")
		return memory.New(), func() error { return nil }, nil
	}
}

// Engine returns the decision engine.
func (a *App) Engine() *decision.Engine { return a.engine }

// Verifier returns the bearer token verifier.
func (a *App) Verifier() *auth.Verifier { return a.verifier }

// Store returns the opened store.
func (a *App) Store() Backend { return a.store }

// Seed loads a YAML seed file into the store and returns the number of
// links written.
func (a *App) Seed(ctx context.Context, path string) (int, error) {
	f, err := seed.NewLoader(path).Load()
	if err != nil {
		return 0, err
	}
	ds, err := seed.NewMapper(time.Now).Map(f)
	if err != nil {
		return 0, fmt.Errorf("invalid seed file %s: %w", path, err)
	}
	n, err := seed.Apply(ctx, a.store, ds)
	if err != nil {
		return n, err
	}

	a.logger.Info("seed file loaded",
		logger.String("file", path),
		logger.Int("collections", len(ds.Collections)),
		logger.Int("links", n))
	return n, nil
}

// Close releases the store.
func (a *App) Close() error {
	if err := a.closeStore(); err != nil {
		return fmt.Errorf("failed to close %s store: %w", a.cfg.Store, err)
	}
	return nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Shortlist v%s on %s (store=%s)", version.Version, a.cfg.ListenPort, a.cfg.Store)
	a.logger.Infof("Shortlist %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.stale != nil {
		if err := a.stale.Start(ctx); err != nil {
			return fmt.Errorf("failed to start stale group collector: %w", err)
		}
		a.logger.Info("stale group collector started",
			logger.Duration("interval", a.cfg.StaleGCInterval),
			logger.Duration("threshold", a.cfg.StaleGCThreshold))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.stale != nil {
		a.stale.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if err := a.Close(); err != nil {
		a.logger.Warnf("%v", err)
	} else {
		a.logger.Infof("✅ %s store closed cleanly", a.cfg.Store)
	}

	a.logger.Info("✅ Shortlist stopped cleanly")
	return nil
}
