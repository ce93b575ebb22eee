package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"recyclehub/server/config"
	"recyclehub/server/internal/alerts"
	"recyclehub/server/internal/api"
	"recyclehub/server/internal/catalog"
	"recyclehub/server/internal/database"
	"recyclehub/server/internal/events"
	"recyclehub/server/internal/geocoding"
	"recyclehub/server/internal/models"
	"recyclehub/server/internal/mongostore"
	"recyclehub/server/internal/pickups"
	"recyclehub/server/internal/pricing"
	"recyclehub/server/internal/processor"
	"recyclehub/server/internal/queue"
	"recyclehub/server/internal/scheduler"
)

const alertCooldown = 15 * time.Minute

// store is everything the server needs from persistence; both the SQLite and
// the MongoDB backends provide it.
type store interface {
	pricing.Store
	catalog.Store
	pickups.Store
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}
	defer closeStore()

	locker, closeLocker := newLocker(cfg, logger)
	defer closeLocker()

	var cache *pricing.QuoteCache
	if cfg.QuoteCacheEnabled() {
		cache, err = pricing.NewQuoteCache(cfg.Pricing.QuoteCacheSize, cfg.Pricing.QuoteCacheTTL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create quote cache")
		}
	} else {
		logger.Info("Quote cache disabled, quotes read the stored price record")
	}

	engine := pricing.NewEngine(db, locker, cache, pricing.Options{
		WindowDays:   cfg.Pricing.WindowDays,
		HistoryLimit: cfg.Pricing.HistoryLimit,
		MinPrice:     cfg.Pricing.MinPrice,
		MaxRetries:   cfg.Pricing.MaxRetries,
		RetryDelay:   cfg.Pricing.RetryDelay,
		Concurrency:  cfg.Pricing.Concurrency,
	}, logger)

	if cfg.TelegramEnabled() {
		notifier := alerts.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		reporter := alerts.NewPricingReporter(notifier, alertCooldown, logger)
		defer reporter.Close()
		engine.SetFailureReporter(reporter)
		logger.Info("Telegram alerts enabled for pricing failures")
	}

	var seasonal models.SeasonalTable
	var seed []models.Material
	if cat, err := config.LoadCatalog(cfg.CatalogPath); err != nil {
		logger.WithError(err).WithField("path", cfg.CatalogPath).Warn("Material catalog not loaded")
	} else {
		seasonal = cat.SeasonalTable()
		seed = cat.SeedMaterials()
	}

	catalogService := catalog.NewService(db, engine, seasonal, logger)
	if _, err := catalogService.Seed(ctx, seed); err != nil {
		logger.WithError(err).Error("Failed to seed material catalog")
	}

	eventQueue := queue.NewEventQueue(cfg.EventQueue.Size, logger)
	eventProcessor := processor.NewEventProcessor(db, engine, eventQueue, cfg, logger)
	eventProcessor.Start()
	defer eventProcessor.Stop()

	var emitter pickups.Emitter = pickups.EmitterFunc(func(_ context.Context, event models.PickupEvent) error {
		return eventQueue.Push(event)
	})
	if cfg.RabbitMQ.URL != "" {
		publisher, closeBroker, err := startBroker(ctx, cfg, eventQueue, logger)
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unavailable, pickup events stay in process")
		} else {
			defer closeBroker()
			emitter = publisher
		}
	}

	pickupService := pickups.NewService(db, engine, emitter, logger)
	if cfg.Geocoding.Enabled {
		geocoder, err := geocoding.NewGeocoder(geocoding.Options{
			URL:         cfg.Geocoding.URL,
			UserAgent:   cfg.Geocoding.UserAgent,
			MinInterval: cfg.Geocoding.MinInterval,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize geocoder")
		}
		pickupService.SetGeocoder(geocoder)
	}

	repricer := scheduler.NewScheduler(engine, db, cfg.Pricing.RecomputeInterval, cfg.Pricing.Concurrency, logger)
	repricer.Start()
	defer repricer.Stop()

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := api.NewHandler(api.Services{
		Catalog: catalogService,
		Pickups: pickupService,
		Engine:  engine,
		Batch:   repricer,
		Events:  eventProcessor,
	}, logger)
	api.SetupRoutes(router, handler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown error")
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store, func(), error) {
	switch cfg.Database.Driver {
	case "mongo":
		s, err := mongostore.Open(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase, cfg.Database.Timeout, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.Timeout)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				logger.WithError(err).Error("Failed to close MongoDB connection")
			}
		}
		indexCtx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
		defer cancel()
		if err := s.EnsureIndexes(indexCtx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return s, closeFn, nil

	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, nil, err
		}
		logger.Infof("Using database at: %s", cfg.Database.Path)
		db, err := database.NewDatabase(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	}
}

func newLocker(cfg *config.Config, logger *logrus.Logger) (pricing.Locker, func()) {
	if cfg.Redis.Addr == "" {
		return pricing.NewLocalLocker(), func() {}
	}
	locker, err := pricing.NewRedisLocker(pricing.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		LockTTL:  cfg.Redis.LockTTL,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Redis locker")
	}
	logger.WithField("addr", cfg.Redis.Addr).Info("Using Redis for pricing locks")
	return locker, func() {
		if err := locker.Close(); err != nil {
			logger.WithError(err).Error("Failed to close Redis client")
		}
	}
}

// startBroker publishes pickup events to RabbitMQ and feeds the queue's
// messages back into the local event queue.
func startBroker(ctx context.Context, cfg *config.Config, sink *queue.EventQueue, logger *logrus.Logger) (*events.Publisher, func(), error) {
	conn, err := events.ConnectRabbitMQ(cfg.RabbitMQ.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	publisher, err := events.NewPublisher(conn, cfg.RabbitMQ.Queue, logger)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	consumerCtx, cancel := context.WithCancel(ctx)
	events.NewConsumer(conn, cfg.RabbitMQ.Queue, sink, logger).Start(consumerCtx)

	return publisher, func() {
		cancel()
		if err := publisher.Close(); err != nil {
			logger.WithError(err).Error("Failed to close publisher channel")
		}
		conn.Close()
	}, nil
}
