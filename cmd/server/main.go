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

	"checkout-service/config"
	"checkout-service/internal/api"
	"checkout-service/internal/broker"
	"checkout-service/internal/commerce"
	"checkout-service/internal/gateway"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/service"
	"checkout-service/internal/store"
	"checkout-service/internal/util"
	"checkout-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting checkout service")

	tp, err := util.InitTracer("checkout-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	pipelineDeps := service.PipelineDeps{
		Mapper: service.NewCartMapper(cfg.Business.HomeCountry, cfg.Business.StoreTag),
	}
	handlerDeps := api.HandlerDeps{AllowedOrigins: cfg.Server.AllowedOrigins}

	var db *store.Store
	if cfg.Database.URL != "" {
		db, err = store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		pipelineDeps.Recorder = db
		handlerDeps.Readiness = append(handlerDeps.Readiness, api.ReadinessCheck{
			Name:  "database",
			Check: func(ctx context.Context) error { return db.GetDB().PingContext(ctx) },
		})
		logger.Info("Database connected")
	} else {
		logger.Warn("DATABASE_URL not set, order persistence disabled")
	}

	var tokenStore commerce.TokenStore
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		pipelineDeps.Guard = service.NewRedisSubmissionGuard(redisClient, cfg.Business.SubmissionGuardTTL)
		handlerDeps.Tokens = redisClient
		tokenStore = redisClient
		handlerDeps.Readiness = append(handlerDeps.Readiness, api.ReadinessCheck{
			Name:  "redis",
			Check: redisClient.Ping,
		})
		logger.Info("Redis connected")
	} else {
		logger.Warn("REDIS_ADDR not set, submission guard disabled")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var reconciliationWorker *worker.ReconciliationWorker
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout)
		defer producer.Close()
		pipelineDeps.Events = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicCheckout))

		if db != nil {
			consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout, cfg.Kafka.ConsumerGroup)
			reconciliationWorker = worker.NewReconciliationWorker(consumer, db)
			go func() {
				if err := reconciliationWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
					logger.Error("Reconciliation worker error", zap.Error(err))
				}
			}()
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set, checkout events disabled")
	}

	gatewayClient := gateway.NewClient(cfg.Gateway, cfg.Business.RequestTimeout)
	platformClient := commerce.NewClient(cfg.Platform, "", cfg.Business.RequestTimeout)
	if tokenStore != nil {
		platformClient.UseTokenStore(tokenStore)
	}
	pipelineDeps.Gateway = gatewayClient
	pipelineDeps.Platform = platformClient

	handlerDeps.Intents = service.NewIntentService(gatewayClient, gatewayClient.KeyID())
	handlerDeps.Verifier = service.NewVerificationPipeline(cfg.Gateway.KeySecret, cfg.Gateway.Name, pipelineDeps)
	handlerDeps.COD = service.NewCODService(platformClient, pipelineDeps.Mapper, pipelineDeps.Recorder)
	if cfg.Platform.ClientID != "" && cfg.Platform.ClientSecret != "" {
		handlerDeps.OAuth = commerce.NewOAuthClient(cfg.Platform, cfg.Business.RequestTimeout)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(handlerDeps)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if reconciliationWorker != nil {
		_ = reconciliationWorker.Stop()
	}

	logger.Info("Server exited")
}
