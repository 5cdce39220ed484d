package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/apiclient"
	"storefront-service/internal/broker"
	"storefront-service/internal/controller"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/session"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	shopClient := apiclient.NewClient(cfg.Shop.APIOrigin, cfg.Shop.CDNOrigin, cfg.Shop.RequestTimeout)
	catalog := models.NewCatalog()

	var catalogCache worker.CatalogCache
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		catalogCache = redisClient
		log.Println("Redis connected")
	}

	var analytics controller.Analytics
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout)
		defer producer.Close()
		analytics = broker.NewCheckoutPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	refresher := worker.NewCatalogRefresher(catalog, shopClient, catalogCache, cfg.Shop.RefreshInterval)
	{
		loadCtx, cancel := context.WithTimeout(context.Background(), cfg.Shop.RequestTimeout)
		if err := refresher.Load(loadCtx); err != nil {
			// Sessions render "catalog unavailable" until a refresh succeeds.
			log.Printf("Initial catalog load failed: %v", err)
		}
		cancel()
	}
	go func() {
		if err := refresher.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Catalog refresher error: %v", err)
		}
	}()

	var archiveWorker *worker.ArchiveWorker
	if len(cfg.Kafka.Brokers) > 0 && cfg.Database.URL != "" {
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("Database connected")

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout, cfg.Kafka.ConsumerGroup)
		archiveWorker = worker.NewArchiveWorker(consumer, db)
		go func() {
			if err := archiveWorker.Start(workerCtx); err != nil && err != context.Canceled {
				log.Printf("Archive worker error: %v", err)
			}
		}()
	}

	sessions := session.NewManager(
		catalog,
		shopClient,
		cfg.Shop.PaymentMethods,
		cfg.Shop.RequestTimeout,
		analytics,
		cfg.Session.IdleTTL,
	)
	go sessions.StartJanitor(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(sessions, catalog)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if archiveWorker != nil {
		archiveWorker.Stop()
	}

	log.Println("Server exited")
}
