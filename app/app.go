package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sectorview/api"
	"sectorview/cache"
	"sectorview/config"
	"sectorview/database"
	"sectorview/database/outliers"
	"sectorview/database/snapshots"
	"sectorview/database/types"
	"sectorview/database/universe"
	"sectorview/discovery"
	"sectorview/notifications"
	"sectorview/provider/yahoo"
	"sectorview/realtime"
	"sectorview/scheduler"
)

// App represents the main application
type App struct {
	config    *config.Config
	db        *database.Database
	redis     *cache.RedisClient
	broker    *realtime.Broker
	hub       *api.ProgressHub
	service   *Service
	scheduler *scheduler.Scheduler
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{
		config: cfg,
		broker: realtime.NewBroker(),
		hub:    api.NewProgressHub(),
	}
}

// Start wires the application and blocks until shutdown
func (a *App) Start() error {
	// 1. Database connection and schema
	fmt.Println("🗄️  Connecting to database...")
	db, err := database.Connect(
		a.config.DatabaseHost,
		a.config.DatabasePort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	universeRepo := universe.NewRepository(db)
	if err := universeRepo.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	snapshotRepo := snapshots.NewRepository(db)
	detectionRepo := outliers.NewRepository(db)

	// 2. Redis (optional: a failed connection just disables caching)
	fmt.Println("🧠 Connecting to Redis...")
	a.redis = cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if a.redis == nil {
		fmt.Println("⚠️  Redis connection failed. Caching disabled.")
	}
	sectorCache := cache.NewSectorCache(a.redis, time.Duration(a.config.Detection.CacheTTLMinutes)*time.Minute)

	// 3. Progress streaming
	go a.broker.Run()
	onProgress := func(e types.ProgressEvent) {
		a.broker.PublishProgress(e)
		a.hub.Broadcast(e)
	}

	// 4. Market data pipeline
	fetchTimeout := time.Duration(a.config.Refresh.FetchTimeoutSec) * time.Second
	fetcher := yahoo.NewSessionFetcher(fetchTimeout)
	refresher := NewRefresher(fetcher, snapshotRepo, a.config.Refresh, onProgress)

	a.service = NewService(ServiceDeps{
		Config:        a.config,
		UniverseRepo:  universeRepo,
		SnapshotRepo:  snapshotRepo,
		DetectionRepo: detectionRepo,
		Refresher:     refresher,
		Primary:       discovery.NewSP500Source(30 * time.Second),
		Secondary:     discovery.NewRussellSource(60 * time.Second),
		SectorCache:   sectorCache,
		Webhooks:      notifications.NewWebhookManager(a.config.WebhookURL),
	})

	// 5. API server
	apiServer := api.NewServer(a.service, a.broker, a.hub)
	go func() {
		if err := apiServer.Start(a.config.APIPort); err != nil {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// 6. Scheduled refreshes
	if a.config.Refresh.ScheduleEnabled {
		a.scheduler = scheduler.NewScheduler(a.service)
		a.scheduler.Start()
	} else {
		log.Println("ℹ️  Scheduled refreshes DISABLED")
	}

	return a.gracefulShutdown()
}

// Service exposes the operation layer, mainly for tests and tooling
func (a *App) Service() *Service {
	return a.service
}

// gracefulShutdown blocks until an interrupt, then tears down
func (a *App) gracefulShutdown() error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("⚠️  Redis close failed: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("⚠️  Database close failed: %v", err)
		}
	}

	fmt.Println("✅ Shutdown complete")
	return nil
}
