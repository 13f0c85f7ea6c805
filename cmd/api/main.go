package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/giveaway/internal/antifraud"
	"github.com/richxcame/giveaway/internal/applications"
	"github.com/richxcame/giveaway/internal/export"
	"github.com/richxcame/giveaway/internal/leaflet"
	"github.com/richxcame/giveaway/internal/lottery"
	"github.com/richxcame/giveaway/internal/support"
	"github.com/richxcame/giveaway/pkg/common"
	"github.com/richxcame/giveaway/pkg/config"
	"github.com/richxcame/giveaway/pkg/database"
	"github.com/richxcame/giveaway/pkg/health"
	"github.com/richxcame/giveaway/pkg/logger"
	"github.com/richxcame/giveaway/pkg/middleware"
	"github.com/richxcame/giveaway/pkg/ratelimit"
	"github.com/richxcame/giveaway/pkg/redis"
	"github.com/richxcame/giveaway/pkg/storage"
	"go.uber.org/zap"
)

const serviceName = "giveaway-api"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := database.Migrate(&cfg.Database); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize photo storage", zap.Error(err))
	}

	// Repositories.
	appRepo := applications.NewRepository(pool)
	templateRepo := leaflet.NewRepository(pool)
	lotteryRepo := lottery.NewRepository(pool)
	supportRepo := support.NewRepository(pool)

	// Core pipeline: photo analysis feeds the scorer's context.
	analyzer := leaflet.NewAnalyzer(
		appRepo.CountSimilarPhotoPHash,
		func(ctx context.Context) (*leaflet.Template, error) {
			return templateRepo.GetActiveTemplate(ctx, time.Now())
		},
	)
	scorer := antifraud.NewScorer(antifraud.ScorerConfig{
		CardLength: cfg.Contest.CardLength,
		CardExists: appRepo.LoyaltyCardExists,
	})

	velocity := applications.NewVelocityCounter(redisClient.Client)

	appService := applications.NewService(appRepo, scorer, analyzer, store, velocity)
	lotteryService := lottery.NewService(lotteryRepo, lottery.NewRandomizer(), cfg.Contest.Campaigns)
	supportService := support.NewService(supportRepo)

	exportService, err := export.NewService(appRepo, cfg.Contest.ExportsDir)
	if err != nil {
		logger.Fatal("Failed to initialize export directory", zap.Error(err))
	}
	go runExportCleanup(exportService, cfg.Contest.ExportRetentionDays)

	limiter := ratelimit.NewLimiter(redisClient.Client,
		cfg.Rate.Requests, time.Duration(cfg.Rate.WindowSeconds)*time.Second)

	router := buildRouter(cfg,
		applications.NewHandler(appService),
		leaflet.NewHandler(templateRepo),
		lottery.NewHandler(lotteryService),
		support.NewHandler(supportService),
		export.NewHandler(exportService),
		limiter,
		map[string]func() error{
			"postgres": health.DatabaseChecker(pool),
			"redis":    health.RedisChecker(redisClient.Client),
		},
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("giveaway API starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func buildRouter(
	cfg *config.Config,
	appHandler *applications.Handler,
	templateHandler *leaflet.Handler,
	lotteryHandler *lottery.Handler,
	supportHandler *support.Handler,
	exportHandler *export.Handler,
	limiter *ratelimit.Limiter,
	checks map[string]func() error,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.SecurityHeaders())

	corsConfig := cors.DefaultConfig()
	if cfg.Server.CORSOrigins == "*" || cfg.Server.CORSOrigins == "" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, "1.0.0", checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Admin chat IDs double as the allowed JWT subjects; an empty list
	// accepts any token signed with the secret.
	adminSubjects := make([]string, 0, len(cfg.Contest.AdminIDs))
	for _, id := range cfg.Contest.AdminIDs {
		adminSubjects = append(adminSubjects, strconv.FormatInt(id, 10))
	}

	api := router.Group("/api/v1", limiter.Middleware())
	admin := api.Group("/admin", middleware.AdminAuth(cfg.JWT.Secret, adminSubjects...))

	appHandler.RegisterRoutes(api, admin)
	supportHandler.RegisterRoutes(api, admin)
	templateHandler.RegisterRoutes(admin)
	lotteryHandler.RegisterRoutes(admin)
	exportHandler.RegisterRoutes(admin)

	return router
}

// runExportCleanup prunes old export files once a day.
func runExportCleanup(svc *export.Service, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	maxAge := time.Duration(retentionDays) * 24 * time.Hour

	svc.Cleanup(maxAge)
	for range time.Tick(24 * time.Hour) {
		svc.Cleanup(maxAge)
	}
}
