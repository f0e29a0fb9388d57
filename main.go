package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"settlement-svc/cache"
	"settlement-svc/config"
	"settlement-svc/database"
	"settlement-svc/handlers"
	"settlement-svc/kafka"
	"settlement-svc/middleware"
	"settlement-svc/settlement"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()
	if cfg.WebhookSecret == "" {
		logger.Fatal("WEBHOOK_SECRET is required")
	}

	// Initialize database
	db, err := database.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := cache.InitRedis(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("settlement-svc")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	settlementService := settlement.NewService(db, producer, cfg.KafkaTopic, logger)

	webhookHandler := handlers.NewWebhookHandler(settlementService, cfg.WebhookSecret, logger)
	orderHandler := handlers.NewOrderHandler(db, producer, cfg.KafkaTopic, logger)
	productHandler := handlers.NewProductHandler(db, redisClient, logger)
	escrowHandler := handlers.NewEscrowHandler(db, logger)

	// Setup REST API with Gin
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("settlement-svc"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	// The provider must see 405 on anything but POST to the webhook path.
	router.HandleMethodNotAllowed = true
	router.NoMethod(handlers.MethodNotAllowed)

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	router.POST("/webhooks/payment", webhookHandler.HandleWebhook)

	router.GET("/products", productHandler.GetProducts)
	router.GET("/products/:id", productHandler.GetProduct)

	router.POST("/orders", orderHandler.CreateOrder)
	router.GET("/orders/:id", orderHandler.GetOrder)

	seller := router.Group("/seller", middleware.AuthMiddleware(cfg.JWTSecret))
	seller.GET("/escrow", escrowHandler.GetSellerEscrow)

	// Start REST server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}()

	logger.Info("Settlement Service started on :" + cfg.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	logger.Info("Server exited")
}
