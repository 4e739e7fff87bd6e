// Package gateway wires the translation components into one Context that is
// built at startup and handed to the HTTP layer and the job worker.
package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/auth"
	"github.com/bmore/mtgateway/internal/batch"
	"github.com/bmore/mtgateway/internal/cache"
	"github.com/bmore/mtgateway/internal/config"
	"github.com/bmore/mtgateway/internal/db"
	"github.com/bmore/mtgateway/internal/job"
	"github.com/bmore/mtgateway/internal/lang"
	"github.com/bmore/mtgateway/internal/metrics"
	"github.com/bmore/mtgateway/internal/provider"
	"github.com/bmore/mtgateway/internal/quality"
	"github.com/bmore/mtgateway/internal/segment"
)

// Context holds every process-wide dependency. Fields are read-only after New.
type Context struct {
	Config    *config.Config
	Log       *zap.Logger
	Router    *provider.Router
	Cache     *cache.Cache
	Batch     *batch.Coordinator
	Segmenter *segment.Segmenter
	Quality   *quality.Checker
	Detector  *lang.Detector
	Metrics   *metrics.Metrics
	Jobs      *job.JobQueue
	Auth      *auth.JWTService
	StartedAt time.Time

	db        *db.Database
	stopPurge context.CancelFunc
	purgeDone chan struct{}
}

type options struct {
	provider provider.Provider
	store    cache.Store
	storeSet bool
	database *db.Database
	metrics  *metrics.Metrics
	detector *lang.Detector
}

// Option overrides a dependency New would otherwise build from config.
type Option func(*options)

// WithProvider uses p instead of the backend named by MT_PROVIDER.
func WithProvider(p provider.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithCacheStore uses s instead of the configured cache backend. A nil s
// disables caching.
func WithCacheStore(s cache.Store) Option {
	return func(o *options) { o.store, o.storeSet = s, true }
}

func WithDatabase(d *db.Database) Option {
	return func(o *options) { o.database = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithDetector(d *lang.Detector) Option {
	return func(o *options) { o.detector = d }
}

// New builds and initializes all components. It fails when the provider
// cannot be initialized or the database cannot be opened; an unreachable
// cache store only degrades caching.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*Context, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	gc := &Context{
		Config:    cfg,
		Log:       log,
		Segmenter: segment.New(log.Named("segment")),
		Quality:   quality.NewChecker(cfg.Quality),
		Metrics:   o.metrics,
		Detector:  o.detector,
		StartedAt: time.Now(),
		db:        o.database,
	}
	if gc.Metrics == nil {
		gc.Metrics = metrics.New(nil)
	}
	if gc.Detector == nil {
		gc.Detector = lang.NewDetector()
	}
	if cfg.AuthEnabled() {
		gc.Auth = auth.NewJWTService(cfg.JWTSecret, 0)
	}

	p := o.provider
	if p == nil {
		var err error
		p, err = provider.New(cfg.Provider, provider.Settings{
			LibreURL:     cfg.LibreURL,
			DeepLAuthKey: cfg.DeepLAuthKey,
			ModelDir:     cfg.ModelDir,
			Device:       cfg.Device,
			Threads:      cfg.Threads,
			InferenceURL: cfg.InferenceURL,
			ItemTimeout:  cfg.RequestTimeout,
		}, log.Named("provider"))
		if err != nil {
			return nil, err
		}
	}
	gc.Router = provider.NewRouter(p, cfg.RequestTimeout, log)
	if err := gc.Router.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", p.Name(), err)
	}

	if gc.db == nil {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		database, err := db.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		gc.db = database
	}

	store := o.store
	if !o.storeSet {
		var err error
		if store, err = gc.openStore(); err != nil {
			gc.db.Close()
			return nil, err
		}
	}
	gc.Cache = cache.New(store, cfg.CacheTTL, log.Named("cache"))
	if store != nil && !gc.Cache.Connected(ctx) {
		log.Warn("cache store unreachable, translations will not be cached until it recovers",
			zap.String("backend", cfg.CacheBackend))
	}

	purgeCtx, stop := context.WithCancel(context.Background())
	gc.stopPurge, gc.purgeDone = stop, make(chan struct{})
	go func() {
		defer close(gc.purgeDone)
		gc.Cache.RunPurger(purgeCtx, cfg.CacheTTL/4)
	}()

	batchOpts := []batch.Option{batch.WithMetrics(gc.Metrics)}
	if cfg.QualityChecks {
		batchOpts = append(batchOpts, batch.WithQuality(gc.Quality))
	}
	gc.Batch = batch.New(gc.Router, gc.Cache, batch.Config{
		MaxBatch:         cfg.MaxBatch,
		MaxTextLength:    cfg.MaxTextLength,
		MaxSegmentLength: cfg.Segment.MaxSegmentLength,
	}, log, batchOpts...)

	gc.Jobs = job.NewJobQueue(gc.db.DB(), log)
	gc.Jobs.RegisterHandler(job.JobTranslateDocument, gc.TranslateDocument)
	gc.Jobs.Start()

	log.Info("gateway ready",
		zap.String("provider", gc.Router.Name()),
		zap.Int("pairs", len(gc.Router.Pairs())),
		zap.String("cache", cfg.CacheBackend),
		zap.Bool("auth", gc.Auth != nil))
	return gc, nil
}

func (gc *Context) openStore() (cache.Store, error) {
	switch gc.Config.CacheBackend {
	case config.CacheRedis:
		s, err := cache.NewRedisStore(gc.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return s, nil
	case config.CacheSQLite:
		return cache.NewSQLiteStore(gc.db.DB()), nil
	case config.CacheMemory:
		return cache.NewMemoryStore(gc.Config.CacheMaxEntries), nil
	default:
		return nil, nil
	}
}

// Close stops the job worker and the cache purger, gives pending cache writes until ctx is done,
// and releases the stores.
func (gc *Context) Close(ctx context.Context) error {
	gc.Jobs.Stop()
	gc.stopPurge()
	<-gc.purgeDone
	if err := gc.Batch.Writer().Wait(ctx); err != nil {
		gc.Log.Warn("dropping pending cache writes", zap.Error(err))
	}
	if err := gc.Cache.Close(); err != nil {
		gc.Log.Warn("cache close failed", zap.Error(err))
	}
	return gc.db.Close()
}
