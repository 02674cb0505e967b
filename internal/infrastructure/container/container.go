// Package container wires the service together with Uber FX
package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/omq/mealsync/internal/application/mealsync"
	"github.com/omq/mealsync/internal/application/shopping"
	"github.com/omq/mealsync/internal/infrastructure/ai/openai"
	"github.com/omq/mealsync/internal/infrastructure/cache"
	"github.com/omq/mealsync/internal/infrastructure/config"
	"github.com/omq/mealsync/internal/infrastructure/http/apiserver"
	"github.com/omq/mealsync/internal/infrastructure/monitoring"
	gormrepo "github.com/omq/mealsync/internal/infrastructure/persistence/gorm"
	"github.com/omq/mealsync/internal/infrastructure/persistence/memory"
	"github.com/omq/mealsync/internal/infrastructure/persistence/migrations"
	"github.com/omq/mealsync/internal/infrastructure/persistence/postgres"
	redisrepo "github.com/omq/mealsync/internal/infrastructure/persistence/redis"
	"github.com/omq/mealsync/internal/infrastructure/persistence/sqlite"
	"github.com/omq/mealsync/internal/infrastructure/security"
	"github.com/omq/mealsync/internal/infrastructure/storage"
	"github.com/omq/mealsync/internal/ports/inbound"
	"github.com/omq/mealsync/internal/ports/outbound"
	"github.com/omq/mealsync/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigPath is the optional config file given on the command line
type ConfigPath string

// Options returns every module of the service
func Options(configPath string) fx.Option {
	return fx.Options(
		fx.Supply(ConfigPath(configPath)),
		ConfigModule,
		LoggerModule,
		ObservabilityModule,
		DatabaseModule,
		CacheModule,
		RepositoryModule,
		AIModule,
		StorageModule,
		ServiceModule,
		HTTPModule,
		LifecycleModule,
	)
}

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// ObservabilityModule provides metrics and tracing
var ObservabilityModule = fx.Provide(
	monitoring.NewMetrics,
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
			ServiceName:    cfg.App.Name,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			SamplingRate:   cfg.Tracing.SamplingRate,
			Enabled:        cfg.Tracing.Enabled,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
)

// DatabaseModule opens sqlite or postgres depending on database.driver
var DatabaseModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, metrics *monitoring.Metrics) (*gorm.DB, error) {
		var db *gorm.DB
		switch cfg.Database.Driver {
		case "postgres":
			if cfg.Database.AutoMigrate {
				if err := migrations.Run(cfg.GetDSN(), cfg.Database.Database, log); err != nil {
					return nil, fmt.Errorf("failed to migrate database: %w", err)
				}
			}
			cm, err := postgres.NewConnectionManager(cfg, log)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{OnStop: func(context.Context) error { return cm.Close() }})
			db = cm.GetDB()
		default:
			var err error
			db, err = sqlite.SetupDatabase(cfg.Database.Path,
				gormrepo.NewLogger(log, cfg.Database.LogLevel, cfg.Database.SlowQueryThreshold))
			if err != nil {
				return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
			}
			lc.Append(fx.Hook{OnStop: func(context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			}})
			log.Info("Connected to SQLite database", zap.String("path", cfg.Database.Path))
		}

		if sqlDB, err := db.DB(); err == nil {
			metrics.RegisterDB(sqlDB, cfg.Database.Driver)
		}
		return db, nil
	},
)

// CacheModule provides the shared key/value cache: redis when enabled,
// otherwise process memory
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (outbound.CacheRepository, error) {
		if !cfg.Redis.Enabled {
			log.Info("Using in-memory cache")
			repo := memory.NewCacheRepository(time.Minute)
			lc.Append(fx.Hook{OnStop: func(context.Context) error { return repo.Close() }})
			return repo, nil
		}

		client, err := cache.NewRedisClient(&cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
		return redisrepo.NewCacheRepository(client.Client(), log), nil
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	fx.Annotate(
		gormrepo.NewMealRepository,
		fx.As(new(outbound.MealRepository)),
	),
	fx.Annotate(
		gormrepo.NewShoppingRepository,
		fx.As(new(outbound.ShoppingRepository)),
	),
)

// AIModule provides the generative AI adapters
var AIModule = fx.Provide(
	func(cfg *config.Config, metrics *monitoring.Metrics, log *zap.Logger) *openai.Client {
		return openai.NewClient(openai.Config{
			APIKey:            cfg.AI.APIKey,
			BaseURL:           cfg.AI.BaseURL,
			ChatModel:         cfg.AI.ChatModel,
			ImageModel:        cfg.AI.ImageModel,
			ImageSize:         cfg.AI.ImageSize,
			Timeout:           cfg.AI.Timeout,
			RequestsPerSecond: cfg.AI.RequestsPerSecond,
			Burst:             cfg.AI.Burst,
		}, metrics, log)
	},
	func(lc fx.Lifecycle, cfg *config.Config, client *openai.Client, shared outbound.CacheRepository, metrics *monitoring.Metrics, log *zap.Logger) outbound.Classifier {
		base := openai.NewClassifier(client)
		switch cfg.AI.ClassifierCache {
		case "redis":
			return cache.NewClassifierCache(base, shared, cfg.AI.ClassifierCacheTTL, metrics, log)
		case "memory":
			store := memory.NewCacheRepository(time.Minute)
			lc.Append(fx.Hook{OnStop: func(context.Context) error { return store.Close() }})
			return cache.NewClassifierCache(base, store, cfg.AI.ClassifierCacheTTL, metrics, log)
		default:
			return base
		}
	},
	fx.Annotate(openai.NewNamer, fx.As(new(outbound.Namer))),
	fx.Annotate(openai.NewImageSynthesizer, fx.As(new(outbound.ImageSynthesizer))),
	fx.Annotate(openai.NewNutritionEstimator, fx.As(new(outbound.NutritionEstimator))),
)

// StorageModule provides the object store and the asset materializer
var StorageModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (outbound.ObjectStore, MediaRoot, error) {
		if cfg.Storage.Provider == "s3" {
			store, err := storage.NewS3Store(storage.S3Config{
				Region:          cfg.Storage.S3.Region,
				Bucket:          cfg.Storage.S3.Bucket,
				Endpoint:        cfg.Storage.S3.Endpoint,
				AccessKeyID:     cfg.Storage.S3.AccessKeyID,
				SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
				PublicBaseURL:   cfg.Storage.PublicBaseURL,
			}, log)
			return store, "", err
		}
		store, err := storage.NewLocalStore(cfg.Storage.LocalPath, cfg.Storage.PublicBaseURL, log)
		if err != nil {
			return nil, "", err
		}
		return store, MediaRoot(store.Root()), nil
	},
	fx.Annotate(
		func(cfg *config.Config, store outbound.ObjectStore, log *zap.Logger) *storage.Materializer {
			return storage.NewMaterializer(storage.MaterializerConfig{
				StagingDir:      cfg.Storage.StagingDir,
				KeyPrefix:       cfg.Storage.KeyPrefix,
				MaxImageBytes:   cfg.Storage.MaxImageBytes,
				DownloadTimeout: cfg.Storage.DownloadTimeout,
			}, store, log)
		},
		fx.As(new(outbound.AssetMaterializer)),
	),
)

// MediaRoot is the directory served under /media, empty for remote stores
type MediaRoot string

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(
		cfg *config.Config,
		repo outbound.MealRepository,
		classifier outbound.Classifier,
		namer outbound.Namer,
		images outbound.ImageSynthesizer,
		materializer outbound.AssetMaterializer,
		nutrition outbound.NutritionEstimator,
		metrics *monitoring.Metrics,
		log *zap.Logger,
	) *mealsync.Registry {
		return mealsync.NewRegistry(mealsync.Dependencies{
			Repository:   repo,
			Classifier:   classifier,
			Namer:        namer,
			Images:       images,
			Materializer: materializer,
			Nutrition:    nutrition,
			Metrics:      metrics,
		}, mealsync.Options{
			StageTimeout:      cfg.Pipeline.StageTimeout,
			EstimateNutrition: cfg.Pipeline.EstimateNutrition,
		}, log)
	},
	fx.Annotate(
		shopping.NewService,
		fx.As(new(inbound.ShoppingService)),
	),
	func(cfg *config.Config, revoked outbound.CacheRepository, log *zap.Logger) (*security.AuthService, error) {
		return security.NewAuthService(cfg.Auth, revoked, log)
	},
)

// HTTPModule provides the API server
var HTTPModule = fx.Provide(
	func(
		cfg *config.Config,
		registry *mealsync.Registry,
		shoppingService inbound.ShoppingService,
		auth *security.AuthService,
		metrics *monitoring.Metrics,
		db *gorm.DB,
		ai *openai.Client,
		media MediaRoot,
		log *zap.Logger,
	) *apiserver.Server {
		return apiserver.NewServer(cfg, apiserver.Dependencies{
			Registry:  registry,
			Shopping:  shoppingService,
			Auth:      auth,
			Metrics:   metrics,
			MediaRoot: string(media),
			Health: map[string]apiserver.HealthCheck{
				"database": func(ctx context.Context) error {
					sqlDB, err := db.DB()
					if err != nil {
						return err
					}
					return sqlDB.PingContext(ctx)
				},
				"ai": ai.HealthCheck,
			},
		}, log)
	},
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
	WatchConfig,
)

// RegisterLifecycleHooks starts and stops the HTTP server
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	server *apiserver.Server,
	tracing *monitoring.TracingProvider,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting MealSync",
				zap.String("version", cfg.App.Version),
				zap.Bool("tracing", tracing.Enabled()),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
				zap.String("storage", cfg.Storage.Provider),
			)

			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down MealSync")
			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}
			_ = log.Sync()
			return nil
		},
	})
}

// WatchConfig hot-applies log level changes from the config file
func WatchConfig(cfg *config.Config, level zap.AtomicLevel, log *zap.Logger) {
	watching := cfg.Watch(log, func(next *config.Config) {
		if err := logger.SetLevel(level, next.App.LogLevel); err != nil {
			log.Warn("Ignoring invalid log level", zap.String("level", next.App.LogLevel), zap.Error(err))
			return
		}
		log.Info("Log level updated", zap.String("level", next.App.LogLevel))
	})
	if !watching {
		log.Debug("No config file to watch")
	}
}
