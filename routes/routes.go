package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bolaodoscria/bolao-backend/handlers"
	"github.com/bolaodoscria/bolao-backend/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"
)

// Options carries the settings the router needs besides the handlers.
type Options struct {
	JWTSecret      string
	InternalAPIKey string
	AllowedOrigins []string
	RequestTimeout time.Duration
	// AuthRateLimit applies per client address to sign-in and password reset. Zero disables it.
	AuthRateLimit  rate.Limit
	AuthRateBurst  int
	Logger         *slog.Logger
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	authHandler *handlers.AuthHandler,
	poolHandler *handlers.PoolHandler,
	matchHandler *handlers.MatchHandler,
	predictionHandler *handlers.PredictionHandler,
	rankingHandler *handlers.RankingHandler,
	feedHandler *handlers.FeedHandler,
	internalHandler *handlers.InternalHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.InternalKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	// WebSocket connections outlive the request timeout.
	router.With(middleware.Authenticate(opts.JWTSecret)).Get("/ws/pools/{poolID}", webSocketHandler.ServeWs)

	router.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(opts.AuthRateLimit, opts.AuthRateBurst))
				r.Post("/login", authHandler.Login)
				r.Post("/forgot-password", authHandler.ForgotPassword)
				r.Post("/verify-code", authHandler.VerifyResetCode)
				r.Post("/reset-password", authHandler.ResetPassword)
			})
			r.With(middleware.Authenticate(opts.JWTSecret)).Get("/me", authHandler.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret))

			r.Route("/pools", func(r chi.Router) {
				r.Get("/", poolHandler.ListAll)
				r.Post("/", poolHandler.Create)
				r.Get("/mine", poolHandler.ListMine)
				r.Post("/join", poolHandler.JoinByPassword)

				r.Route("/{poolID}", func(r chi.Router) {
					r.Get("/", poolHandler.Get)
					r.Post("/join", poolHandler.Join)
					r.Get("/matches", matchHandler.ListForPool)
					r.Post("/matches", matchHandler.AddManual)
					r.Post("/matches/import", matchHandler.Import)
					r.Get("/predictions", predictionHandler.ListForPool)
					r.Get("/ranking", rankingHandler.PoolRanking)
				})
			})

			r.Route("/matches/{matchID}", func(r chi.Router) {
				r.Delete("/", matchHandler.Remove)
				r.Put("/prediction", predictionHandler.Submit)
			})

			r.Get("/predictions", predictionHandler.ListForUser)
			r.Get("/ranking", rankingHandler.GlobalRanking)
			r.Get("/feed/live", feedHandler.Live)
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(middleware.RequireInternalKey(opts.InternalAPIKey))

			r.Put("/predictions/{predictionID}/points", internalHandler.SetPoints)
			r.Put("/matches/{matchID}/result", internalHandler.ApplyResult)
			r.Post("/feed/sync", internalHandler.SyncFeed)
		})
	})
}
