package cmd

import (
	"context"
	"fmt"
	"time"

	"module-monitor/core/broker"
	"module-monitor/core/cache"
	"module-monitor/core/config"
	"module-monitor/core/database"
	"module-monitor/core/kvstore"
	"module-monitor/core/logger"
	"module-monitor/core/queue"
	"module-monitor/core/ratelimit"
	"module-monitor/core/storage"
	"module-monitor/feature/catalog"
	"module-monitor/feature/inventory"
	"module-monitor/feature/inventory/jobs"
	"module-monitor/feature/inventory/models"
	inventoryReconcile "module-monitor/feature/inventory/reconcile"
	"module-monitor/feature/inventory/worker"
	"module-monitor/feature/sites"
	"module-monitor/feature/tasks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime holds everything a command may need. Commands that do not touch
// the queue skip it.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	broker   *broker.Broker
	store    kvstore.Store
	purger   worker.ExpiredPurger
	catalog  *catalog.Catalog
	engine   *inventoryReconcile.Engine
	sites    *sites.Registry
	tasks    *tasks.Store
	payloads jobs.PayloadStore
	queue    *queue.Queue
	service  *inventory.Service
}

// bootstrap loads configuration and builds the dependency graph.
func bootstrap(ctx context.Context, withQueue bool) (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: logg}

	if rt.db, err = database.Connect(cfg.Database); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := models.AutoMigrate(rt.db); err != nil {
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	needBroker := cfg.Store.Driver == "nats" || (withQueue && cfg.Queue.Driver == "nats")
	if needBroker {
		if rt.broker, err = broker.Start(cfg.NATS, logg); err != nil {
			return nil, err
		}
	}

	switch cfg.Store.Driver {
	case "nats":
		if rt.store, err = kvstore.NewNATSStore(ctx, rt.broker.Conn(), cfg.Store.Bucket, storeMaxAge(cfg)); err != nil {
			rt.Close()
			return nil, err
		}
	case "database", "":
		dbStore := kvstore.NewDatabaseStore(rt.db)
		if cfg.Database.AutoMigrate {
			if err := dbStore.Migrate(); err != nil {
				rt.Close()
				return nil, fmt.Errorf("migrate kv store: %w", err)
			}
		}
		rt.store = dbStore
		rt.purger = dbStore
	default:
		rt.Close()
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	rt.catalog = catalog.New(rt.db, cache.New(rt.store, logg), cfg.Cache, logg)
	rt.engine = inventoryReconcile.NewEngine(rt.db, rt.catalog, cfg.Sync.ChunkSize, logg)
	rt.sites = sites.NewRegistry(rt.db, logg)
	rt.tasks = tasks.NewStore(rt.db)

	switch cfg.Sync.PayloadStore {
	case inventory.PayloadStoreObject:
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			rt.Close()
			return nil, err
		}
		rt.payloads = jobs.NewObjectPayloads(client, cfg.Storage.Bucket)
	case inventory.PayloadStoreDatabase, "":
		rt.payloads = jobs.NewDatabasePayloads(rt.db)
	default:
		rt.Close()
		return nil, fmt.Errorf("unknown payload store %q", cfg.Sync.PayloadStore)
	}

	if !withQueue {
		return rt, nil
	}

	wmLogger := logger.NewWatermillAdapter(logg.Named("queue"))
	switch cfg.Queue.Driver {
	case "nats":
		if rt.queue, err = queue.NewNATS(ctx, cfg.Queue, rt.broker.URL(), rt.broker.Conn(), cfg.Worker.Concurrency, wmLogger); err != nil {
			rt.Close()
			return nil, err
		}
	case "memory", "":
		rt.queue = queue.NewMemory(wmLogger)
	default:
		rt.Close()
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}

	rt.service = inventory.NewService(cfg.Sync, inventory.Dependencies{
		Sites:     rt.sites,
		Limiter:   ratelimit.New(rt.store, cfg.RateLimit),
		Engine:    rt.engine,
		Tasks:     rt.tasks,
		Payloads:  rt.payloads,
		Publisher: queue.NewPublisher(rt.queue.Publisher, cfg.Queue),
		Store:     rt.store,
		Logger:    logg,
	})
	return rt, nil
}

// newWorker builds the job consumer over the runtime's queue.
func (rt *runtime) newWorker() *worker.Worker {
	return worker.New(rt.cfg.Worker, worker.Dependencies{
		Subscriber: rt.queue.Subscriber,
		Topic:      rt.cfg.Queue.Topic,
		Tasks:      rt.tasks,
		Payloads:   rt.payloads,
		Engine:     rt.engine,
		Store:      rt.store,
		Logger:     rt.logger,
	})
}

func (rt *runtime) newSweeper() *worker.Sweeper {
	return worker.NewSweeper(rt.cfg.Worker, rt.tasks, rt.payloads, rt.purger, rt.logger)
}

// Close releases the queue, the broker and the database pool.
func (rt *runtime) Close() {
	if rt.queue != nil {
		if err := rt.queue.Close(); err != nil {
			rt.logger.Warn("Failed to close queue", zap.Error(err))
		}
	}
	if rt.broker != nil {
		rt.broker.Close()
	}
	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = rt.logger.Sync()
}

// storeMaxAge is the longest TTL written to the shared store.
func storeMaxAge(cfg *config.Config) time.Duration {
	maxAge := cfg.Cache.ModuleTTL
	for _, d := range []time.Duration{cfg.Cache.VersionTTL, cfg.RateLimit.Window, cfg.Sync.LockTTL} {
		if d > maxAge {
			maxAge = d
		}
	}
	return maxAge
}
