package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/api/handlers"
	"github.com/codewiz073-droid/bwami/internal/auth"
	"github.com/codewiz073-droid/bwami/internal/backend"
	"github.com/codewiz073-droid/bwami/internal/config"
	"github.com/codewiz073-droid/bwami/internal/connectivity"
	"github.com/codewiz073-droid/bwami/internal/database"
	"github.com/codewiz073-droid/bwami/internal/handler"
	"github.com/codewiz073-droid/bwami/internal/health"
	"github.com/codewiz073-droid/bwami/internal/middleware"
	"github.com/codewiz073-droid/bwami/internal/pipeline"
	"github.com/codewiz073-droid/bwami/internal/quality"
	"github.com/codewiz073-droid/bwami/internal/repository"
	"github.com/codewiz073-droid/bwami/internal/websearch"
	"github.com/codewiz073-droid/bwami/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Running without a .env file is fine in production.
		logrus.WithError(err).Debug("No .env file found")
	}

	utils.InitLogger()
	logger := utils.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ValidateAuth(); err != nil {
		logger.WithError(err).Fatal("Invalid auth configuration")
	}
	if err := cfg.ValidateGroq(); err != nil {
		logger.WithError(err).Warn("Online backend disabled until GROQ_API_KEY is set")
	}

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		logger.WithError(err).Fatal("Database migration failed")
	}

	repoManager := repository.NewRepositoryManager(dbManager.DB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor := connectivity.NewMonitor(cfg.Connectivity.Endpoints, cfg.Connectivity.Timeout, logger)
	monitor.Check(ctx)
	go monitor.Run(ctx, cfg.Connectivity.Interval)

	registry, err := handler.NewRegistry()
	if err != nil {
		logger.WithError(err).Fatal("Query handler registry is incomplete")
	}

	online, err := backend.NewGroqGenerator(backend.GroqConfig{
		BaseURL:    cfg.Groq.BaseURL,
		APIKey:     cfg.Groq.APIKey,
		Model:      cfg.Groq.Model,
		Timeout:    cfg.Groq.Timeout,
		RateLimit:  cfg.Groq.RateLimit,
		RateWindow: cfg.Groq.RateWindow,
	}, logger)
	var onlineGen backend.Generator = online
	if err != nil {
		logger.WithError(err).Warn("Online backend unavailable, all requests will use the local model")
		onlineGen = backend.NewOllamaGenerator(backend.OllamaConfig{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.Ollama.Timeout,
		}, logger)
	}

	offline := backend.NewOllamaGenerator(backend.OllamaConfig{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.Model,
		Timeout: cfg.Ollama.Timeout,
	}, logger)

	selector := backend.NewSelector(onlineGen, offline, logger)

	fetcher := websearch.NewFetcher(websearch.Config{
		BaseURL:   cfg.Search.BaseURL,
		UserAgent: "bwami/1.0",
		Timeout:   cfg.Search.Timeout,
	}, logger)
	cache := database.NewCache(dbManager.Redis, logger)
	searcher := database.NewCachedSearcher(fetcher, cache, 15*time.Minute, logger)
	verifier := quality.NewVerifier(searcher, logger)

	askPipeline := pipeline.New(registry, monitor, selector, verifier, logger)

	authService := auth.NewService(repoManager.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)

	checker := health.NewHealthChecker(dbManager, monitor, cfg.Ollama.BaseURL, logger)
	go checker.PeriodicHealthCheck(ctx, time.Minute)

	router := setupRouter(askPipeline, repoManager, cache, monitor, authService, checker, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}

	logger.Info("Server stopped")
}

func setupRouter(
	askPipeline *pipeline.Pipeline,
	repoManager *repository.RepositoryManager,
	cache *database.Cache,
	monitor *connectivity.Monitor,
	authService *auth.Service,
	checker *health.HealthChecker,
	logger *logrus.Logger,
) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	limiter := middleware.NewRateLimiter(60)
	router.Use(limiter.RateLimit())

	modeHandler := handlers.NewModeHandler(monitor, logger)
	askHandler := handlers.NewAskHandler(askPipeline, repoManager, modeHandler.Override, logger)
	chatHandler := handlers.NewChatHandler(repoManager, cache, logger)
	authHandler := handlers.NewAuthHandler(authService, logger)
	prefsHandler := handlers.NewPreferencesHandler(repoManager, logger)
	healthHandler := handlers.NewHealthHandler(checker)

	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/health/detailed", healthHandler.HandleHealthDetailed)

	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", authHandler.HandleRegister)
		api.POST("/auth/login", authHandler.HandleLogin)
		api.POST("/auth/guest", authHandler.HandleGuest)

		api.GET("/mode", modeHandler.HandleGetMode)
		api.POST("/mode", modeHandler.HandleSetMode)
		api.GET("/status/connectivity", modeHandler.HandleConnectivityStatus)

		open := api.Group("", middleware.OptionalAuth(authService))
		{
			open.POST("/ask", askHandler.HandleAsk)
			open.POST("/ask-verified", askHandler.HandleAskVerified)
		}

		protected := api.Group("", middleware.RequireAuth(authService))
		{
			protected.GET("/chats", chatHandler.HandleListChats)
			protected.GET("/chats/:chat_id", chatHandler.HandleChatHistory)
			protected.DELETE("/chats/:chat_id", chatHandler.HandleDeleteChat)

			protected.GET("/preferences", prefsHandler.HandleGetPreferences)
			protected.PUT("/preferences", prefsHandler.HandleUpdatePreferences)
		}
	}

	return router
}
