package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bolaodoscria/bolao-backend/cache"
	"github.com/bolaodoscria/bolao-backend/config"
	"github.com/bolaodoscria/bolao-backend/db"
	_ "github.com/bolaodoscria/bolao-backend/docs"
	"github.com/bolaodoscria/bolao-backend/feed"
	"github.com/bolaodoscria/bolao-backend/handlers"
	"github.com/bolaodoscria/bolao-backend/realtime"
	"github.com/bolaodoscria/bolao-backend/repositories"
	api "github.com/bolaodoscria/bolao-backend/routes"
	"github.com/bolaodoscria/bolao-backend/services"
	"github.com/bolaodoscria/bolao-backend/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 15 * time.Second

// @title Bolão API
// @version 1.0
// @description Football prediction pools: pools, matches, predictions and rankings.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbConn, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		PingAttempts:    cfg.DBPingAttempts,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}

	feedOpts := feed.Options{
		BaseURL:       cfg.FeedBaseURL,
		APIKey:        cfg.FeedAPIKey,
		RatePerSecond: cfg.FeedRatePerSecond,
		Timeout:       cfg.FeedTimeout,
		CacheTTL:      cfg.FeedCacheTTL,
		Logger:        logger,
	}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, "bolao:")
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisCache.Close()
		feedOpts.Cache = redisCache
		logger.Info("redis feed cache enabled")
	}
	feedClient := feed.NewClient(feedOpts)

	var archive storage.ObjectStore
	if cfg.R2Enabled() {
		archive, err = storage.NewR2Store(ctx, storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 feed archive enabled")
	}

	wsHub := realtime.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	poolRepo := repositories.NewPostgresPoolRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	predictionRepo := repositories.NewPostgresPredictionRepository(dbConn)
	profileRepo := repositories.NewPostgresProfileRepository(dbConn)
	txRunner := repositories.NewPostgresTxRunner(dbConn)
	logger.Info("Repositories initialized")

	var mailer services.Mailer = services.LogMailer{Logger: logger}
	if cfg.SMTPEnabled() {
		mailer = services.NewEmailService(cfg)
	} else {
		logger.Warn("SMTP not configured, password reset codes will only be logged")
	}

	authService := services.NewAuthService(profileRepo, txRunner, mailer, cfg.JWTSecretKey, logger)
	poolService := services.NewPoolService(poolRepo, participantRepo, matchRepo, predictionRepo, txRunner, wsHub, logger)
	matchService := services.NewMatchService(poolRepo, matchRepo, predictionRepo, txRunner, feedClient, wsHub, logger)
	predictionService := services.NewPredictionService(poolRepo, participantRepo, matchRepo, predictionRepo, wsHub, logger)
	rankingService := services.NewRankingService(poolRepo, participantRepo, predictionRepo, profileRepo, logger)
	feedSyncService := services.NewFeedSyncService(feedClient, archive, matchRepo, matchService, logger)
	logger.Info("Services initialized")

	go func() {
		ticker := time.NewTicker(cfg.FeedSyncInterval)
		defer ticker.Stop()
		logger.Info("feed sync scheduler started", slog.Duration("interval", cfg.FeedSyncInterval))

		runSync := func() {
			report, err := feedSyncService.Sync(ctx)
			if err != nil {
				logger.Error("Scheduler: feed sync failed", slog.Any("error", err))
				return
			}
			logger.Info("Scheduler: feed sync finished",
				slog.Int("tracked", report.Tracked), slog.Int("updated", report.Updated), slog.Int("failed", report.Failed))
		}

		// Run once immediately at startup, then on ticker
		runSync()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSync()
			}
		}
	}()

	authHandler := handlers.NewAuthHandler(authService)
	poolHandler := handlers.NewPoolHandler(poolService)
	matchHandler := handlers.NewMatchHandler(matchService)
	predictionHandler := handlers.NewPredictionHandler(predictionService)
	rankingHandler := handlers.NewRankingHandler(rankingService)
	feedHandler := handlers.NewFeedHandler(feedClient)
	internalHandler := handlers.NewInternalHandler(predictionService, matchService, feedSyncService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, poolService, cfg.AllowedOrigins)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{
			JWTSecret:      cfg.JWTSecretKey,
			InternalAPIKey: cfg.InternalAPIKey,
			AllowedOrigins: cfg.AllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
			AuthRateLimit:  rate.Limit(float64(cfg.AuthRatePerMinute) / 60),
			AuthRateBurst:  cfg.AuthRateBurst,
			Logger:         logger,
		},
		authHandler,
		poolHandler,
		matchHandler,
		predictionHandler,
		rankingHandler,
		feedHandler,
		internalHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}

	// Stops the scheduler and closes every websocket client.
	stop()
	logger.Info("application exited")
}
