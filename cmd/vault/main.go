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

	"github.com/richxcame/cardshield/internal/card"
	"github.com/richxcame/cardshield/internal/vault"
	"github.com/richxcame/cardshield/pkg/cache"
	"github.com/richxcame/cardshield/pkg/common"
	"github.com/richxcame/cardshield/pkg/config"
	"github.com/richxcame/cardshield/pkg/database"
	"github.com/richxcame/cardshield/pkg/errors"
	"github.com/richxcame/cardshield/pkg/eventbus"
	"github.com/richxcame/cardshield/pkg/health"
	"github.com/richxcame/cardshield/pkg/logger"
	"github.com/richxcame/cardshield/pkg/middleware"
	redisclient "github.com/richxcame/cardshield/pkg/redis"
	"go.uber.org/zap"
)

const (
	serviceName = "vault-service"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting vault service",
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

	// Token storage uses database/sql so the deep health checker can
	// introspect pool stats.
	db, err := vault.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to database")

	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		if err := database.RunMigrations(&cfg.Database, dir); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied", zap.String("dir", dir))
	}

	// The deny list lives on the shared pgx pool with the scoring service.
	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database pool", zap.Error(err))
	}
	defer database.Close(pool)

	redisClient, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}()
	cacheManager := cache.NewManager(redisClient)

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

	// Cipher key comes from the configured keystore provider
	keystore, err := vault.NewKeystore(cfg.Crypto, cfg.Resilience.CircuitBreaker)
	if err != nil {
		logger.Fatal("Failed to initialize keystore", zap.Error(err))
	}

	keyCtx, cancelKey := context.WithTimeout(context.Background(), 10*time.Second)
	key, err := keystore.Key(keyCtx)
	cancelKey()
	if err != nil {
		logger.Fatal("Failed to load cipher key", zap.Error(err))
	}

	cipher, err := vault.NewCipher(key)
	if err != nil {
		logger.Fatal("Failed to initialize cipher", zap.Error(err))
	}
	logger.Info("Card cipher initialized", zap.String("keystore", cfg.Crypto.KeystoreProvider))

	denyList := card.NewDenyListRepository(pool, cacheManager)
	validator := card.NewValidator(denyList)
	repo := vault.NewRepository(db)
	service := vault.NewService(validator, cipher, repo, bus)
	handler := vault.NewHandler(service)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RecoveryWithSentry())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.ErrorHandler())
	// Tokenize and encrypt are not naturally idempotent (fresh UUID and
	// nonce per call), so callers replay through Idempotency-Key.
	router.Use(middleware.Idempotency(redisClient))

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))

	deepChecker := health.NewDeepChecker(health.DefaultDeepCheckerConfig())
	deepChecker.SetDatabase(db)
	deepChecker.SetRedis(redisClient.Client)
	router.GET("/health/deep", func(c *gin.Context) {
		status := deepChecker.Check(c.Request.Context())
		code := http.StatusOK
		if status.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": serviceName,
			"version": version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router)

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
