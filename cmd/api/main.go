package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/scan-service/internal/api/handlers"
	"github.com/wms-platform/scan-service/internal/application"
	"github.com/wms-platform/scan-service/internal/infrastructure/erp"
	"github.com/wms-platform/scan-service/internal/infrastructure/events"
	mongoRepo "github.com/wms-platform/scan-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/scan-service/internal/scanner"
	"github.com/wms-platform/scan-service/pkg/cloudevents"
	"github.com/wms-platform/scan-service/pkg/kafka"
	"github.com/wms-platform/scan-service/pkg/logging"
	"github.com/wms-platform/scan-service/pkg/metrics"
	"github.com/wms-platform/scan-service/pkg/middleware"
	"github.com/wms-platform/scan-service/pkg/mongodb"
	"github.com/wms-platform/scan-service/pkg/resilience"
	"github.com/wms-platform/scan-service/pkg/tracing"
)

const serviceName = "scan-service"

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), signalCh); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, signalCh <-chan os.Signal) error {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting scan-service API")

	config := loadConfig()

	// OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Kafka producer
	producer := kafka.NewProducer(config.Kafka)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Event publishing
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceScanService)
	publisher := events.NewPublisher(producer, eventFactory, logger, m)

	// ERP gateway
	breakers := resilience.NewCircuitBreakerRegistry(logger)
	gateway := erp.NewClient(config.ERP, breakers, logger, m)
	logger.Info("ERP client initialized", "baseUrl", config.ERP.BaseURL)

	// Repositories
	sessionRepo := mongoRepo.NewSessionRepository(mongoClient.Database(), m)
	historyRepo := mongoRepo.NewHistoryRepository(mongoClient.Database(), m)

	// Application service
	registry := application.NewRegistry(
		application.NewPrepareHandler(gateway, logger),
		application.NewShippingHandler(gateway, logger),
		application.NewReceiveHandler(gateway, logger),
		application.NewCheckingHandler(gateway, logger),
		application.NewLocationHandler(gateway, historyRepo, logger),
	)
	scanService := application.NewScanService(
		sessionRepo,
		publisher,
		gateway,
		application.NewRecordValidator(gateway, nil),
		registry,
		scanner.NewBus(),
		logger,
		m,
	)

	scanHandler := handlers.NewScanHandler(scanService, logger)

	// Gin router with standard middleware
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	scanHandler.RegisterRoutes(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	<-signalCh
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
	return nil
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
	ERP        *erp.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8031"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "scan_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
		ERP: &erp.Config{
			BaseURL:        getEnv("ERP_BASE_URL", "http://localhost:8069"),
			RequestTimeout: envDuration("ERP_REQUEST_TIMEOUT", 10*time.Second),
			APIToken:       getEnv("ERP_API_TOKEN", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
