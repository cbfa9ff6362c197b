package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/metastore/internal/cli/config"
	"github.com/conduit-lang/metastore/internal/cli/ui"
	"github.com/conduit-lang/metastore/internal/metrics"
	"github.com/conduit-lang/metastore/internal/orm/database"
	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/conduit-lang/metastore/internal/orm/events"
	"github.com/conduit-lang/metastore/internal/orm/metadata"
	"github.com/conduit-lang/metastore/internal/web/auth"
	"github.com/conduit-lang/metastore/internal/web/cache"
	webcontext "github.com/conduit-lang/metastore/internal/web/context"
)

// app holds everything a command needs to talk to the store
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *database.DB
	backend  cache.Cache
	bus      *events.Bus
	entities *entity.Table
	store    *metadata.Store
	registry *prometheus.Registry
}

// openApp loads configuration and wires the store. The caller must Close it.
func openApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("%s", ui.ConfigError(err, flags.noColor))
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	backend, err := newCacheBackend(ctx, cfg.Cache)
	if err != nil {
		db.Close()
		logger.Sync()
		return nil, err
	}

	independence := metadata.NewIndependence()
	types, err := cfg.IndependentTypes()
	if err != nil {
		backend.Close()
		db.Close()
		return nil, err
	}
	for _, ts := range types {
		independence.Register(ts.Type, ts.Subtype)
	}

	registry := prometheus.NewRegistry()
	bus := events.NewBus()
	session := auth.ContextSession{}
	table := entity.NewTable(db, bus, session, entity.WithLogger(logger.Named("entity")))

	store := metadata.New(db, table,
		metadata.WithLogger(logger.Named("metadata")),
		metadata.WithEvents(bus),
		metadata.WithSession(session),
		metadata.WithCache(backend, cfg.Cache.TTL),
		metadata.WithMetrics(metrics.New(registry)),
		metadata.WithIndependence(independence),
		metadata.WithPageSize(cfg.Store.PageSize),
		metadata.WithDefaultLimit(cfg.Store.DefaultLimit),
		metadata.WithBaseURL(cfg.Store.BaseURL),
	)
	store.Subscribe(bus)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		backend:  backend,
		bus:      bus,
		entities: table,
		store:    store,
		registry: registry,
	}, nil
}

// Close releases the cache backend and the database
func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("closing cache", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// actingContext applies the principal and visibility flags to ctx
func actingContext(ctx context.Context, flags *globalFlags) context.Context {
	if flags.as != 0 {
		ctx = webcontext.SetPrincipal(ctx, flags.as)
	}
	if len(flags.roles) > 0 {
		ctx = webcontext.SetUserRoles(ctx, flags.roles)
	}
	ctx = webcontext.WithIgnoreAccess(ctx, flags.ignoreAccess)
	return webcontext.WithShowHidden(ctx, flags.showHidden)
}

// withApp opens the app, runs fn with the acting context and closes the app
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(actingContext(cmd.Context(), flags), a)
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// stdout carries command output
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func newCacheBackend(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	common := cache.Config{DefaultTTL: cfg.TTL, Prefix: cfg.Prefix}
	switch cfg.Backend {
	case "redis":
		backend, err := cache.NewRedisCacheWithConfig(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Cache:    common,
		})
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return cache.NewMemoryCacheWithConfig(common), nil
	}
}
