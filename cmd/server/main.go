package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/contentlens/analyzer-api/internal/analyzer"
	"github.com/contentlens/analyzer-api/internal/config"
	"github.com/contentlens/analyzer-api/internal/gateway"
	"github.com/contentlens/analyzer-api/internal/handler"
	"github.com/contentlens/analyzer-api/internal/handler/dto"
	"github.com/contentlens/analyzer-api/internal/handler/middleware"
	"github.com/contentlens/analyzer-api/internal/service"
	"github.com/contentlens/analyzer-api/internal/storage/memstorage"
	"github.com/contentlens/analyzer-api/internal/storage/postgres"
	redisstorage "github.com/contentlens/analyzer-api/internal/storage/redis"
	"github.com/contentlens/analyzer-api/internal/worker"
	"github.com/contentlens/analyzer-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()
	sugarLogger.Info("Starting application...")

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	redisClient, err := redisstorage.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	apiKeyRepo := postgres.NewAPIKeyRepository(dbPool, appLogger)
	usageLogRepo := postgres.NewUsageLogRepository(dbPool, appLogger)
	userRepoMock := memstorage.NewUserRepositoryMock()

	keyCache := redisstorage.NewKeyCache(redisClient, cfg.Gateway.KeyCacheTTL, appLogger)
	counterStore := redisstorage.NewCounterStore(redisClient)
	analysisCache := redisstorage.NewAnalysisCache(redisClient, cfg.Gateway.AnalysisCacheTTL)

	authenticator := gateway.NewAuthenticator(apiKeyRepo, keyCache, appLogger)
	rateLimiter := gateway.NewRateLimiter(counterStore, appLogger)
	usageRecorder := gateway.NewRecorder(apiKeyRepo, usageLogRepo, appLogger)

	analyzerClient := analyzer.NewClient(&cfg.Analyzer, appLogger)

	authService := service.NewAuthService(userRepoMock, &cfg.JWT, appLogger)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, keyCache, appLogger)
	analysisService := service.NewAnalysisService(analyzerClient, analysisCache, appLogger)

	healthHandler := handler.NewHealthHandler(dbPool, redisClient, appLogger)
	authHandler := handler.NewAuthHandler(authService, appLogger)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService, appLogger)
	analyzeHandler := handler.NewAnalyzeHandler(analysisService, usageRecorder, appLogger)
	usageHandler := handler.NewUsageHandler(usageLogRepo, appLogger)
	dashboardHandler := handler.NewDashboardHandler(usageLogRepo, appLogger)

	authMiddleware := middleware.AuthMiddleware(authService, appLogger)
	gatewayMiddleware := middleware.APIKeyGateway(authenticator, rateLimiter, appLogger)
	errorMiddleware := middleware.ErrorHandlerMiddleware(appLogger)

	router := gin.New()
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		appLogger.Error(logMsg, zap.Stack("stack"))

		c.AbortWithStatusJSON(http.StatusInternalServerError,
			dto.NewErrorEnvelope("INTERNAL_ERROR", "An unexpected error occurred."))
	}))

	corsConfig := cors.Config{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
		ExposeHeaders:    []string{"Content-Length", "X-Request-Id", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))
	router.Use(errorMiddleware)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := router.Group("/api/v1/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
	}

	apiV1 := router.Group("/api/v1")
	{
		gatedRoutes := apiV1.Group("")
		gatedRoutes.Use(gatewayMiddleware)
		{
			gatedRoutes.POST("/analyze", analyzeHandler.Analyze)
			gatedRoutes.POST("/batch-analyze", analyzeHandler.BatchAnalyze)
			gatedRoutes.GET("/usage", usageHandler.Get)
		}

		apiKeyRoutes := apiV1.Group("/apikeys")
		apiKeyRoutes.Use(authMiddleware)
		{
			apiKeyRoutes.POST("", apiKeyHandler.Create)
			apiKeyRoutes.GET("", apiKeyHandler.List)
			apiKeyRoutes.DELETE("/:id", apiKeyHandler.Revoke)
		}

		dashboardRoutes := apiV1.Group("/dashboard")
		dashboardRoutes.Use(authMiddleware)
		{
			dashboardRoutes.GET("/summary", dashboardHandler.GetSummary)
		}
	}

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, apiKeyRepo, appLogger); err != nil {
			return fmt.Errorf("asynq worker error: %w", err)
		}
		sugarLogger.Info("Asynq workers finished gracefully.")
		return nil
	})

	sugarLogger.Info("Application started. Waiting for interrupt signal or component error...")

	if waitErr := g.Wait(); waitErr != nil {
		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: context canceled (OS signal).")
		} else {
			sugarLogger.Errorf("Application shutdown finished with error: %v", waitErr)
		}
	}

	sugarLogger.Info("Application exiting now.")
}
