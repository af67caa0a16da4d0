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
	"storefront-service/internal/auth"
	"storefront-service/internal/broker"
	"storefront-service/internal/gateway"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/shipping"
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

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	gatewayClient := gateway.NewClient(
		cfg.Gateway.BaseURL,
		cfg.Gateway.AccessToken,
		cfg.Gateway.NotificationURL,
		cfg.Gateway.WebhookSecret,
		10*time.Second,
	)

	shippingClient := shipping.NewClient(
		cfg.Shipping.BaseURL,
		cfg.Shipping.Token,
		cfg.Shipping.OriginZip,
		5*time.Second,
	)

	tokens := auth.NewManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	catalogService := service.NewCatalogService(db)
	customerService := service.NewCustomerService(db)
	paymentService := service.NewPaymentService(db, gatewayClient, eventPublisher,
		time.Duration(cfg.Business.SubmitCooldownSeconds)*time.Second)
	orderService := service.NewOrderService(db, redisClient, shippingClient, gatewayClient, eventPublisher,
		time.Duration(cfg.Business.CartTTLHours)*time.Hour)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	orderWorker := worker.NewOrderWorker(orderConsumer, db, orderService)
	go func() {
		if err := orderWorker.Start(workerCtx); err != nil {
			log.Printf("Order worker error: %v", err)
		}
	}()

	reconcileWorker := worker.NewReconcileWorker(
		db,
		redisClient,
		paymentService,
		cfg.Business.ReconcileCron,
		time.Duration(cfg.Business.ReconcileIntervalSecs)*time.Second,
		time.Duration(cfg.Business.StalePendingMinutes)*time.Minute,
	)
	if err := reconcileWorker.Start(); err != nil {
		log.Fatalf("Failed to start reconcile worker: %v", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(
		catalogService,
		orderService,
		paymentService,
		customerService,
		gatewayClient,
		db,
		tokens,
		api.AdminCredentials{Email: cfg.Auth.AdminEmail, Password: cfg.Auth.AdminPassword},
		api.StatusHints{
			PollIntervalSeconds: cfg.Business.PollIntervalSeconds,
			SuccessDelaySeconds: cfg.Business.SuccessDelaySeconds,
		},
		cfg.Business.LowStockThreshold,
	)
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
	orderWorker.Stop()
	reconcileWorker.Stop()

	log.Println("Server exited")
}
