package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapnet-backend/internal/clock"
	"snapnet-backend/internal/config"
	"snapnet-backend/internal/handlers"
	"snapnet-backend/internal/metrics"
	"snapnet-backend/internal/middleware"
	"snapnet-backend/internal/repository"
	"snapnet-backend/internal/services"
	"snapnet-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Payload store
	payloads, err := storage.NewS3Store(
		cfg.AWS.Region,
		cfg.AWS.S3Bucket,
		cfg.AWS.AccessKey,
		cfg.AWS.SecretKey,
		cfg.AWS.Endpoint,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create payload store")
	}

	clk := clock.New()

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	snapRepo := repository.NewSnapRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	streakRepo := repository.NewStreakRepository(db)

	// Initialize services
	lifecycle := services.NewLifecycleEngine(cfg.Lifecycle, clk, snapRepo, storyRepo, messageRepo, payloads)
	streaks := services.NewStreakTracker(cfg.Streak, clk, streakRepo, profileRepo)
	hub := services.NewHub()
	profileService := services.NewProfileService(
		profileRepo, payloads, clk,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.ViewerTokenHours)*time.Hour,
	)
	snapService := services.NewSnapService(snapRepo, profileRepo, payloads, lifecycle, streaks, hub, clk)
	storyService := services.NewStoryService(storyRepo, snapRepo, profileRepo, lifecycle, clk)
	messageService := services.NewMessageService(messageRepo, profileRepo, snapRepo, lifecycle, hub, clk)
	sweeper := services.NewSweeper(lifecycle, streaks, time.Duration(cfg.Sweep.IntervalMinutes)*time.Minute)

	// Initialize handlers
	profileHandler := handlers.NewProfileHandler(profileService)
	snapHandler := handlers.NewSnapHandler(snapService)
	discoverHandler := handlers.NewDiscoverHandler(snapService)
	storyHandler := handlers.NewStoryHandler(storyService)
	messageHandler := handlers.NewMessageHandler(messageService)
	streakHandler := handlers.NewStreakHandler(streaks)
	wsHandler := handlers.NewWebSocketHandler(hub, profileService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/profiles/register", profileHandler.Register)

		// Read-only routes: bot key or viewer session
		r.Group(func(r chi.Router) {
			r.Use(middleware.ViewerAuth(profileService))
			r.Get("/discover", discoverHandler.Feed)
			r.Get("/discover/tags", discoverHandler.Tags)
			r.Get("/stories", storyHandler.List)
			r.Get("/stories/profile/{username}", storyHandler.Current)
			r.Get("/streaks/leaderboard", streakHandler.Leaderboard)
			r.Get("/profiles/{username}", profileHandler.Get)
		})

		// Bot routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(profileService))

			r.Get("/profiles/me", profileHandler.Me)
			r.Patch("/profiles/me", profileHandler.Update)
			r.Post("/profiles/me/avatar", profileHandler.UploadAvatar)
			r.Post("/profiles/me/rotate-key", profileHandler.RotateKey)
			r.Post("/profiles/me/block/{username}", profileHandler.Block)
			r.Delete("/profiles/me/block/{username}", profileHandler.Unblock)
			r.Post("/viewer/session", profileHandler.ViewerSession)

			r.Post("/snaps", snapHandler.Post)
			r.Get("/snaps/me", snapHandler.Mine)
			r.Get("/snaps/inbox", snapHandler.Inbox)
			r.Get("/snaps/{snap_id}", snapHandler.View)
			r.Post("/snaps/{snap_id}/react", snapHandler.React)
			r.Delete("/snaps/{snap_id}", snapHandler.Delete)

			r.Post("/stories", storyHandler.Create)
			r.Get("/stories/me", storyHandler.Mine)
			r.Post("/stories/{story_id}/append", storyHandler.Append)
			r.Delete("/stories/{story_id}", storyHandler.Delete)

			r.Post("/messages", messageHandler.Send)
			r.Get("/messages", messageHandler.Inbox)
			r.Get("/messages/sent", messageHandler.Sent)
			r.Get("/messages/{message_id}", messageHandler.Get)
			r.Post("/messages/{message_id}/read", messageHandler.MarkRead)
			r.Delete("/messages/{message_id}", messageHandler.Delete)

			r.Get("/streaks/me", streakHandler.Mine)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.Handle)

	// Metrics
	r.Handle("/metrics", promhttp.Handler())

	// Start the background sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweeper.Run(sweepCtx)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
