package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/adapter/chromedp_snapshot"
	"github.com/user/photo-gallery/internal/adapter/imaging"
	"github.com/user/photo-gallery/internal/adapter/local"
	"github.com/user/photo-gallery/internal/adapter/metadata"
	"github.com/user/photo-gallery/internal/adapter/objectstore"
	"github.com/user/photo-gallery/internal/adapter/postgres"
	redis_adapter "github.com/user/photo-gallery/internal/adapter/redis"
	"github.com/user/photo-gallery/internal/adapter/render"
	"github.com/user/photo-gallery/internal/delivery/http/handler"
	"github.com/user/photo-gallery/internal/repository"
	"github.com/user/photo-gallery/internal/usecase"
	"github.com/user/photo-gallery/pkg/config"
	"github.com/user/photo-gallery/pkg/metrics"
)

const (
	snapshotWidth  = 1280
	snapshotHeight = 800
)

// app is the wired object graph shared by the commands.
type app struct {
	generator usecase.GalleryGenerator
	selector  usecase.Selector
	runs      repository.RunRepository
	pingers   map[string]handler.Pinger
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp connects the optional backing services and wires the use cases.
// Redis and Postgres are used only when configured; otherwise runs are locked
// and recorded in memory.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	// --- Metrics ---
	metrics.Init()

	a := &app{pingers: make(map[string]handler.Pinger)}

	// --- Run lock ---
	var locker repository.RunLocker = local.NewLock()
	if cfg.Redis.Addr != "" {
		rdb, err := redis_adapter.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("unable to connect to Redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.pingers["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		locker = redis_adapter.NewLockRepo(rdb)
		logger.Info("Redis connection established", zap.String("addr", cfg.Redis.Addr))
	}

	// --- Run history ---
	a.runs = local.NewRunRepo()
	if cfg.Postgres.URL != "" {
		pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.pingers["postgres"] = pool.Ping
		a.runs = postgres.NewRunRepo(pool)
		logger.Info("PostgreSQL connection pool established")
	}

	// --- Snapshot ---
	var snapshotter repository.Snapshotter
	if cfg.Snapshot.Enabled {
		snapshotter = chromedp_snapshot.NewChromedpSnapshotter(snapshotWidth, snapshotHeight, logger)
	}

	// --- Use cases ---
	optimizer := imaging.NewOptimizer(cfg.MaxSourcePixels, logger)
	batch := usecase.NewBatchUseCase(optimizer, cfg.Workers, logger)
	a.generator = usecase.NewGalleryUseCase(
		batch,
		render.New(logger),
		locker,
		a.runs,
		snapshotter,
		usecase.GalleryOptions{
			LockTTL:         cfg.Redis.LockTTL,
			CleanStale:      cfg.CleanStale,
			SnapshotPath:    cfg.Snapshot.Path,
			SnapshotTimeout: cfg.Snapshot.Timeout,
		},
		logger,
	)
	a.selector = usecase.NewSelector(metadata.NewDefault(logger), logger)

	return a, nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (repository.Publisher, error) {
	p := cfg.Publish
	pub, err := objectstore.NewPublisher(objectstore.Config{
		Endpoint:  p.Endpoint,
		AccessKey: p.AccessKey,
		SecretKey: p.SecretKey,
		Region:    p.Region,
		UseSSL:    p.UseSSL,
		Bucket:    p.Bucket,
		Prefix:    p.Prefix,
	}, logger)
	if err != nil {
		return nil, err
	}
	return pub, nil
}
