package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/server"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLoggerV2("storefront-service")

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", logging.Fields{"error": err.Error()})
	}

	logging.Infof("Starting storefront-service on port %d", cfg.Server.Port)

	sqlDB, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.Fields{"error": err.Error()})
	}
	defer sqlDB.Close()

	db, err := repository.OpenGorm(sqlDB)
	if err != nil {
		logger.Fatal("Failed to open gorm session", logging.Fields{"error": err.Error()})
	}

	if cfg.Database.AutoMigrate {
		if err := repository.AutoMigrate(context.Background(), db); err != nil {
			logger.Fatal("Schema migration failed", logging.Fields{"error": err.Error()})
		}
	}

	productRepo := repository.NewPostgresProductRepository(db, logger)
	cartRepo := repository.NewPostgresCartRepository(db, logger)
	orderRepo := repository.NewPostgresOrderRepository(db, logger)
	userRepo := repository.NewPostgresUserRepository(db, logger)
	statsRepo := repository.NewPostgresStatsRepository(db, logger)
	checkoutStore := repository.NewPostgresCheckoutStore(db, logger)

	var productCache repository.ProductCache
	if cfg.Features.EnableProductCaching {
		redisCache := repository.NewRedisProductCache(cfg.Redis)
		defer redisCache.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			// Cache misses fall through to postgres.
			logger.Warn("Redis unreachable, product cache degraded", logging.Fields{"error": err.Error()})
		}
		cancel()
		productCache = redisCache
	}

	var publishers events.Fanout
	if cfg.Features.EnableOrderEvents {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
		defer kafkaPublisher.Close()
		publishers = append(publishers, kafkaPublisher)
	}

	var feed *events.FeedHub
	if cfg.Features.EnableOrderFeed {
		feed = events.NewFeedHub(cfg.Server.AllowedOrigins, logger)
		defer feed.Close()
		publishers = append(publishers, feed)
	}

	var eventPublisher service.OrderEventPublisher
	if len(publishers) > 0 {
		eventPublisher = publishers
	}

	var notificationClient service.NotificationSender
	if cfg.Features.EnableNotifications {
		notificationClient = clients.NewHTTPNotificationClient(cfg.NotificationService, logger)
	}

	catalogService := service.NewCatalogService(productRepo, productCache, cfg)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(
		orderRepo,
		checkoutStore,
		catalogService,
		eventPublisher,
		notificationClient,
		cfg,
	)
	statsService := service.NewStatsService(statsRepo)

	var orderFeed handlers.OrderFeed
	if feed != nil {
		orderFeed = feed
	}

	h := handlers.NewHandlers(catalogService, cartService, orderService, statsService, orderFeed, sqlDB, cfg)

	auth := middleware.NewAuthenticator(cfg.Auth, userRepo)
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	srv := server.New(cfg, h, auth, limiter, logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go limiter.Run(ctx, time.Minute, 10*time.Minute)

	go func() {
		logger.Info("Server starting", logging.Fields{
			"port":                        cfg.Server.Port,
			"enable_product_caching":      cfg.Features.EnableProductCaching,
			"enable_order_events":         cfg.Features.EnableOrderEvents,
			"enable_fulfillment_consumer": cfg.Features.EnableFulfillmentConsumer,
			"enable_order_feed":           cfg.Features.EnableOrderFeed,
		})
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", logging.Fields{"error": err.Error()})
		}
	}()

	var fulfillmentConsumer *events.FulfillmentConsumer
	if cfg.Features.EnableFulfillmentConsumer {
		fulfillmentConsumer = events.NewFulfillmentConsumer(cfg.Kafka, orderService, logger)
		go func() {
			if err := fulfillmentConsumer.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("Fulfillment consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stop()
	if fulfillmentConsumer != nil {
		fulfillmentConsumer.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Info("Database connected", logging.Fields{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})

	return db, nil
}
