package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richxcame/cardshield/internal/alerts"
	"github.com/richxcame/cardshield/pkg/common"
	"github.com/richxcame/cardshield/pkg/config"
	"github.com/richxcame/cardshield/pkg/database"
	"github.com/richxcame/cardshield/pkg/errors"
	"github.com/richxcame/cardshield/pkg/eventbus"
	"github.com/richxcame/cardshield/pkg/jwtkeys"
	"github.com/richxcame/cardshield/pkg/logger"
	"github.com/richxcame/cardshield/pkg/middleware"
	"github.com/richxcame/cardshield/pkg/ratelimit"
	redisclient "github.com/richxcame/cardshield/pkg/redis"
	"github.com/richxcame/cardshield/pkg/websocket"
	"go.uber.org/zap"
)

const (
	serviceName = "alerts-service"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting alerts service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	sentryConfig := errors.DefaultSentryConfig()
	sentryConfig.ServerName = serviceName
	sentryConfig.Release = version
	if err := errors.InitSentry(sentryConfig); err != nil {
		logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
	} else {
		defer errors.Flush(2 * time.Second)
	}

	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to database")

	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		if err := database.RunMigrations(&cfg.Database, dir); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied", zap.String("dir", dir))
	}

	redisClient, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)
		logger.Info("Rate limiting enabled",
			zap.Int("default_limit", cfg.RateLimit.DefaultLimit),
			zap.Int("default_burst", cfg.RateLimit.DefaultBurst),
			zap.Duration("window", cfg.RateLimit.Window()),
		)
	}

	busCfg := eventbus.DefaultConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		busCfg.URL = url
	}
	busCfg.Name = serviceName
	bus, err := eventbus.New(busCfg)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer bus.Close()

	// Websocket hub for the live analyst feed
	hub := websocket.NewHub()
	go hub.Run()

	// SMS paging for critical alerts
	var sms alerts.SMSSender
	if cfg.Alerting.SMSEnabled {
		if cfg.Alerting.TwilioAccountSID == "" || cfg.Alerting.TwilioAuthToken == "" {
			logger.Fatal("SMS paging enabled but Twilio credentials are missing")
		}
		twilioClient := alerts.NewTwilioClient(
			cfg.Alerting.TwilioAccountSID,
			cfg.Alerting.TwilioAuthToken,
			cfg.Alerting.TwilioFromNumber,
		)
		sms = alerts.NewResilientSMSClient(twilioClient, nil)
		logger.Info("SMS paging enabled", zap.Int("on_call_numbers", len(cfg.Alerting.OnCallNumbers)))
	}

	repo := alerts.NewRepository(db)
	service := alerts.NewService(repo, sms, hub, cfg.Alerting)
	if cfg.Alerting.WebhookURL != "" {
		service.WithWebhook(alerts.NewWebhookNotifier(cfg.Alerting.WebhookURL))
		logger.Info("Alert webhook enabled")
	}

	if err := alerts.StartConsumer(rootCtx, bus, service); err != nil {
		logger.Fatal("Failed to start alerts consumer", zap.Error(err))
	}

	handler := alerts.NewHandler(service, hub)

	jwtProvider, err := jwtkeys.NewManagerFromConfig(rootCtx, cfg.JWT, true)
	if err != nil {
		logger.Fatal("Failed to initialize JWT key manager", zap.Error(err))
	}
	jwtProvider.StartAutoRefresh(rootCtx, time.Duration(cfg.JWT.RotationHours)*time.Hour)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.ErrorHandler())

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))

	healthChecks := map[string]func() error{
		"database": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Ping(ctx)
		},
		"nats": func() error {
			if !bus.Connected() {
				return fmt.Errorf("nats not connected")
			}
			return nil
		},
	}
	router.GET("/health/ready", common.ReadinessProbe(serviceName, version, healthChecks))

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"version": version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router, jwtProvider, limiter, cfg.RateLimit)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
