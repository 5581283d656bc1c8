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

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shelfScout/app/echo-server/router"
	"shelfScout/business/bandit"
	"shelfScout/business/recommend"
	"shelfScout/business/rewards"
	"shelfScout/business/similarity"
	"shelfScout/business/strategy"
	"shelfScout/internal/middleware"
	psqlRepo "shelfScout/internal/repository/postgres"
	redisRepo "shelfScout/internal/repository/redis"
	"shelfScout/internal/rest"
	"shelfScout/pkg/config"
	"shelfScout/pkg/database"
	redisdb "shelfScout/pkg/database/redis"
	"shelfScout/pkg/logger"
	"shelfScout/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.LogLevel, cfg.App.LogJSON)
	logger.Info("Starting shelfScout", "version", cfg.App.Version)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	// Init repo
	bookRepo := psqlRepo.NewBookRepository(db)
	impressionRepo := psqlRepo.NewImpressionRepository(db)
	actionRepo := psqlRepo.NewActionRepository(db)
	armStateRepo := psqlRepo.NewArmStateRepository(db)
	configRepo := psqlRepo.NewConfigRepository(db)

	// Stats cache is optional: without Redis the service recomputes per call.
	var statsCache recommend.StatsCache
	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, arm statistics will not be cached", "error", err)
	} else {
		statsCache = redisRepo.NewStatsCache(redisClient, time.Duration(cfg.Redis.StatsTTLSecs)*time.Second)
	}

	// Bandit config: env defaults overridden by the stored profile.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	banditCfg := bandit.DefaultConfig()
	if cfg.Bandit.Alpha > 0 {
		banditCfg.Alpha = cfg.Bandit.Alpha
	}
	if cfg.Bandit.RewardHalfLifeHrs > 0 {
		banditCfg.RewardHalfLife = time.Duration(cfg.Bandit.RewardHalfLifeHrs * float64(time.Hour))
	}
	if cfg.Bandit.AttributionWindowHr > 0 {
		banditCfg.AttributionWindow = time.Duration(cfg.Bandit.AttributionWindowHr) * time.Hour
	}
	if cfg.Bandit.MinSamplesForBest > 0 {
		banditCfg.MinSamplesForBest = cfg.Bandit.MinSamplesForBest
	}
	banditCfg = bandit.LoadConfig(startupCtx, configRepo, cfg.Bandit.Profile, banditCfg)

	// Init arm registry and restore model state
	registry := bandit.NewRegistry(banditCfg.Epsilon, "collaborative", "linear", "popularity", "semantic")
	if err := registry.Load(startupCtx, armStateRepo); err != nil {
		logger.Fatal("Failed to load arm state", "error", err)
	}

	// Init similarity index
	simEngine := similarity.NewEngine()
	books, err := bookRepo.ListBooks(startupCtx)
	if err != nil {
		logger.Fatal("Failed to load book catalog", "error", err)
	}
	simEngine.BuildIndex(books)
	logger.Info("Similarity index built", "books", simEngine.Size())

	// Init strategies
	popularity := strategy.NewPopularity(actionRepo, banditCfg)
	strategies := []strategy.Strategy{
		strategy.NewLinear(registry),
		strategy.NewSemantic(simEngine, actionRepo),
		popularity,
		strategy.NewCollaborative(actionRepo, popularity),
	}
	eligibility := strategy.NewEligibilityFilter(cfg.Bandit.EligibilityExpr)

	// Init service
	recorder := rewards.NewRecorder(impressionRepo, actionRepo)
	attribution := rewards.NewEngine(banditCfg, impressionRepo, actionRepo, registry, armStateRepo)
	service := recommend.NewService(
		banditCfg,
		registry,
		strategies,
		popularity,
		eligibility,
		recorder,
		attribution,
		simEngine,
		bookRepo,
		actionRepo,
		statsCache,
	)

	// Init handler
	recommendHandler := rest.NewRecommendHandler(service)
	adminHandler := rest.NewAdminHandler(service, configRepo)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.Trace())
	e.Use(middleware.Identity())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-User-ID", "X-Session-ID", "X-Trace-ID"},
	}))

	// Setup routes
	metrics.Init()
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	router.SetupRecommendRoutes(api, recommendHandler)
	router.SetupAdminRoutes(api, adminHandler)

	// Background jobs
	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	go runAttributionLoop(jobsCtx, service, cfg.Jobs.AttributionIntervalMins)
	go runIndexRebuildLoop(jobsCtx, service, cfg.Jobs.IndexRebuildIntervalMins)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancelJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// Flush arm state before exit
	if err := registry.Persist(ctx, armStateRepo); err != nil {
		logger.Error("Failed to persist arm state", "error", err)
	}

	if redisClient != nil {
		if err := redisdb.CloseRedisClient(redisClient); err != nil {
			logger.Error("Redis close error", "error", err)
		}
	}

	logger.Info("Server stopped")
}

// runAttributionLoop runs the attribution batch on a fixed interval. A zero
// window means the configured attribution window.
func runAttributionLoop(ctx context.Context, service *recommend.Service, intervalMins int) {
	if intervalMins <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(intervalMins) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := service.RunAttributionBatch(ctx, 0)
			if err != nil {
				logger.Error("Attribution batch failed", "error", err)
				continue
			}
			logger.Info("Attribution batch finished",
				"processed", res.Processed,
				"updated", res.Updated,
				"errors", res.Errors,
			)
		}
	}
}

func runIndexRebuildLoop(ctx context.Context, service *recommend.Service, intervalMins int) {
	if intervalMins <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(intervalMins) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := service.RebuildSimilarityIndex(ctx); err != nil {
				logger.Error("Index rebuild failed", "error", err)
			}
		}
	}
}
