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
	"github.com/richxcame/cardshield/internal/gate"
	"github.com/richxcame/cardshield/internal/risk"
	"github.com/richxcame/cardshield/pkg/cache"
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
	"github.com/richxcame/cardshield/pkg/swagger"
	"github.com/richxcame/cardshield/pkg/tracing"
	"go.uber.org/zap"
)

const (
	serviceName = "scoring-service"
	version     = "1.0.0"

	velocityWindow = time.Hour
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

	logger.Info("Starting scoring service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	// Initialize Sentry for error tracking
	sentryConfig := errors.DefaultSentryConfig()
	sentryConfig.ServerName = serviceName
	sentryConfig.Release = version
	if err := errors.InitSentry(sentryConfig); err != nil {
		logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
	} else {
		defer errors.Flush(2 * time.Second)
		logger.Info("Sentry error tracking initialized successfully")
	}

	// Initialize OpenTelemetry tracer
	tracerEnabled := os.Getenv("OTEL_ENABLED") == "true"
	if tracerEnabled {
		tracerCfg := tracing.Config{
			ServiceName:    serviceName,
			ServiceVersion: version,
			Environment:    cfg.Server.Environment,
			OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Enabled:        true,
		}

		tp, err := tracing.InitTracer(tracerCfg, logger.Get())
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Failed to shutdown tracer", zap.Error(err))
				}
			}()
			logger.Info("OpenTelemetry tracing initialized successfully")
		}
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

	// Storage and collaborators
	repo := risk.NewRepository(db, cacheManager)
	denyList := card.NewDenyListRepository(db, cacheManager)
	zones := risk.NewZoneRepository(db, cacheManager)
	velocity := risk.NewVelocityStore(redisClient, velocityWindow)

	analyzers := []risk.Analyzer{
		risk.NewVelocityAnalyzer(velocity, velocityWindow),
		risk.NewGeoAnalyzer(repo, zones),
		risk.NewDeviceAnalyzer(repo),
		risk.NewBehaviorAnalyzer(repo),
		risk.NewCardPatternAnalyzer(denyList),
		risk.NewAmountAnalyzer(),
	}

	configStore, err := risk.NewConfigStore(risk.DefaultConfiguration(cfg.Fraud))
	if err != nil {
		logger.Fatal("Invalid fraud detection configuration", zap.Error(err))
	}

	service := risk.NewService(analyzers, configStore, repo, bus).
		WithRecorders(repo, velocity)
	handler := risk.NewHandler(service, repo, denyList, zones)

	// Request gate for the scoring endpoint
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)
		logger.Info("Rate limiting enabled",
			zap.Int("default_limit", cfg.RateLimit.DefaultLimit),
			zap.Int("default_burst", cfg.RateLimit.DefaultBurst),
			zap.Duration("window", cfg.RateLimit.Window()),
		)
	}
	gateValidator := gate.NewValidator(gate.NewPostgresCredentialStore(db), limiter)
	gateMiddleware := gate.Middleware(gateValidator)

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
	router.Use(middleware.RequestTimeout(time.Duration(cfg.Server.WriteTimeout) * time.Second))
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.CORS())
	router.Use(middleware.SanitizeRequest())
	router.Use(middleware.Metrics(serviceName))
	if tracerEnabled {
		router.Use(middleware.TracingMiddleware(serviceName))
	}
	router.Use(middleware.ErrorHandler())

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/live", common.LivenessProbe(serviceName, version))

	healthChecks := map[string]func() error{
		"database": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Ping(ctx)
		},
		"redis": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Client.Ping(ctx).Err()
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

	if cfg.Server.Environment != "production" {
		swagger.RegisterRoutes(router)
	}

	handler.RegisterRoutes(router, jwtProvider, gateMiddleware, limiter, cfg.RateLimit)

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
