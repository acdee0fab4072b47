package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"seatchart/api/routes"
	"seatchart/internal/chart"
	"seatchart/internal/realtime"
	"seatchart/internal/shared/config"
	"seatchart/internal/shared/database"
	"seatchart/pkg/logger"
	"seatchart/pkg/ratelimit"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)
	// The default logger was built before .env was read; rebuild it for the configured mode.
	logger.SetDefault(logger.New())
	appLogger = logger.GetDefault()

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect:", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			GestureRequests: cfg.RateLimit.GestureRequests,
			HoldRequests:    cfg.RateLimit.HoldRequests,
			AdminRequests:   cfg.RateLimit.AdminRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.Redis, rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	publisher := newPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Error closing seat status publisher", slog.Any("error", err))
		}
	}()

	engine, appRouter := setupRouter(cfg, db, rateLimiter, publisher)
	manager := appRouter.Manager()

	feedCtx, feedCancel := context.WithCancel(context.Background())
	defer feedCancel()

	manager.Start(feedCtx)
	stopFeed := startStatusFeed(feedCtx, cfg, manager)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_status", fmt.Sprintf("http://localhost:%s/status", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("status_transport", cfg.StatusTransport),
			slog.Bool("redis_cache", db.Redis != nil),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	// Closing sessions first ends their event streams so Shutdown doesn't wait on them.
	manager.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	feedCancel()
	stopFeed()

	appLogger.Info("Server exited gracefully")
}

// newPublisher picks the broker that announces local holds and bookings.
func newPublisher(cfg *config.Config) realtime.Publisher {
	appLogger := logger.GetDefault()
	switch cfg.StatusTransport {
	case "kafka":
		p, err := realtime.NewKafkaPublisher(kafkaConfig(cfg))
		if err != nil {
			appLogger.Error("Failed to create Kafka publisher, seat status will not be announced", slog.Any("error", err))
			return realtime.NopPublisher{}
		}
		return p
	case "amqp", "rabbitmq":
		return realtime.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.SeatStatusQueue)
	default:
		return realtime.NopPublisher{}
	}
}

// startStatusFeed starts the consumer that merges remote seat status into open
// sessions. The returned func waits for it to stop.
func startStatusFeed(ctx context.Context, cfg *config.Config, manager *chart.Manager) func() {
	appLogger := logger.GetDefault()
	switch cfg.StatusTransport {
	case "kafka":
		consumer, err := realtime.NewKafkaConsumer(kafkaConfig(cfg), manager)
		if err != nil {
			appLogger.Error("Failed to create Kafka consumer, seat status feed disabled", slog.Any("error", err))
			return func() {}
		}
		consumer.Start(ctx, cfg.Kafka.ConsumerWorkers)
		appLogger.Info("Seat status feed started", slog.String("transport", "kafka"), slog.String("topic", cfg.Kafka.SeatStatusTopic))
		return func() {
			if err := consumer.Stop(); err != nil {
				appLogger.Error("Error stopping Kafka consumer", slog.Any("error", err))
			}
		}
	case "amqp", "rabbitmq":
		consumer := realtime.NewAMQPConsumer(cfg.AMQP.URL, cfg.AMQP.SeatStatusQueue, manager)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := consumer.Run(ctx); err != nil && err != context.Canceled {
				appLogger.Error("Seat status feed stopped", slog.Any("error", err))
			}
		}()
		appLogger.Info("Seat status feed started", slog.String("transport", "amqp"), slog.String("queue", cfg.AMQP.SeatStatusQueue))
		return func() { <-done }
	default:
		appLogger.Info("Seat status feed disabled", slog.String("transport", cfg.StatusTransport))
		return func() {}
	}
}

func kafkaConfig(cfg *config.Config) *realtime.KafkaConfig {
	kc := realtime.DefaultKafkaConfig()
	if len(cfg.Kafka.Brokers) > 0 {
		kc.Brokers = cfg.Kafka.Brokers
	}
	if cfg.Kafka.SeatStatusTopic != "" {
		kc.Topic = cfg.Kafka.SeatStatusTopic
	}
	if cfg.Kafka.GroupID != "" {
		kc.GroupID = cfg.Kafka.GroupID
	}
	if cfg.Kafka.SessionTimeoutMs > 0 {
		kc.SessionTimeoutMs = cfg.Kafka.SessionTimeoutMs
	}
	if cfg.Kafka.HeartbeatMs > 0 {
		kc.HeartbeatMs = cfg.Kafka.HeartbeatMs
	}
	return kc
}

func setupRouter(cfg *config.Config, db *database.DB, rateLimiter *ratelimit.RateLimiter, publisher realtime.Publisher) (*gin.Engine, *routes.Router) {
	engine := gin.New()
	appLogger := logger.GetDefault()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		appLogger.Warn("Invalid TRUSTED_PROXIES, client IPs come from the socket", slog.Any("error", err))
		_ = engine.SetTrustedProxies(nil)
	}

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // embedded charts are served from partner sites
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Last-Event-ID", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter := routes.NewRouter(cfg, db, publisher)
	appRouter.SetupRoutes(engine)

	return engine, appRouter
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
