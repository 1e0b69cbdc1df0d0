package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/brightline-health/intake-api/api/swagger"
	"github.com/brightline-health/intake-api/internal/handler"
	"github.com/brightline-health/intake-api/internal/middleware"
	"github.com/brightline-health/intake-api/internal/oracle"
	"github.com/brightline-health/intake-api/internal/repository"
	"github.com/brightline-health/intake-api/internal/service"
	"github.com/brightline-health/intake-api/pkg/cache"
	"github.com/brightline-health/intake-api/pkg/config"
	"github.com/brightline-health/intake-api/pkg/database"
	"github.com/brightline-health/intake-api/pkg/logger"
	corsmiddleware "github.com/brightline-health/intake-api/pkg/middleware/cors"
	reqidmiddleware "github.com/brightline-health/intake-api/pkg/middleware/requestid"
	"github.com/brightline-health/intake-api/pkg/ratelimit"
)

// @title Intake Availability API
// @version 0.1.0
// @description Guardian intake backend: preference extraction and availability matching
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := validator.New()
	service.RegisterCustomValidators(validate)

	metricsSvc := service.NewMetricsService()

	// Availability source selection; both implement the same contract.
	var source repository.AvailabilitySource
	switch cfg.Availability.Source {
	case config.SourcePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close()
		source = repository.NewPostgresAvailabilitySource(db, cfg.Availability.PostgresTable, cfg.Availability.FallbackTimezone, logr)
	default:
		source = repository.NewCSVAvailabilitySource(cfg.Availability.CSVPath, cfg.Availability.FallbackTimezone, logr)
	}

	snapshots := repository.NewSnapshotCache(source, cfg.Availability.RefreshInterval, logr)

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if snap, err := snapshots.Refresh(rootCtx); err != nil {
		logr.Warn("initial availability load failed", zap.Error(err))
	} else {
		metricsSvc.RecordSnapshot(len(snap.Records), snap.Rejected)
	}
	go snapshots.Run(rootCtx)

	// Redis backs the shared rate limiter and the extraction cache; both
	// degrade gracefully when it is unreachable.
	var limiter ratelimit.Limiter
	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-memory rate limiting and no extraction cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Backend == "redis" && redisClient != nil {
			limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Window, cfg.RateLimit.MaxPerKey)
		} else {
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxPerKey)
		}
	}

	engine := service.NewMatchingService(service.MatchingConfig{
		HorizonDays: cfg.Matching.HorizonDays,
		MaxResults:  cfg.Matching.MaxResults,
		FallbackTZ:  cfg.Availability.FallbackTimezone,
	}, logr)
	formatter := service.NewFormatterService()
	availabilitySvc := service.NewAvailabilityService(snapshots, engine, formatter, validate, metricsSvc, logr)

	oracleClient := oracle.New(cfg.Oracle, logr)
	var extractionCache *repository.CacheRepository
	if cfg.Extraction.CacheEnabled {
		extractionCache = cacheRepo
	}
	extractionSvc := service.NewExtractionService(oracleClient, cacheOrNil(extractionCache), validate, metricsSvc, logr, service.ExtractionServiceConfig{
		CacheEnabled: cfg.Extraction.CacheEnabled && extractionCache != nil,
		CacheTTL:     cfg.Extraction.CacheTTL,
	})

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AdminEmail:        cfg.Admin.Email,
		AdminPasswordHash: cfg.Admin.PasswordHash,
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	matchHandler := handler.NewMatchHandler(availabilitySvc)
	preferenceHandler := handler.NewPreferenceHandler(extractionSvc)
	adminHandler := handler.NewAdminHandler(availabilitySvc)
	authHandler := handler.NewAuthHandler(authSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if snapshots.Stats() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	limited := api.Group("")
	limited.Use(middleware.RateLimit(limiter, metricsSvc, logr))
	limited.POST("/intake/preferences", preferenceHandler.Extract)
	limited.POST("/availability/match", matchHandler.Match)
	limited.POST("/availability/match/export", matchHandler.Export)

	api.POST("/auth/login", authHandler.Login)

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authSvc))
	admin.POST("/availability/reload", adminHandler.Reload)
	admin.GET("/availability/stats", adminHandler.Stats)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "source", cfg.Availability.Source)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// cacheOrNil keeps the untyped-nil interface pitfall out of the service.
func cacheOrNil(repo *repository.CacheRepository) service.ExtractionCache {
	if repo == nil {
		return nil
	}
	return repo
}
