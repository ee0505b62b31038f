package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Mynotaurus/gostreaming/internal/chat"
	"github.com/Mynotaurus/gostreaming/internal/config"
	"github.com/Mynotaurus/gostreaming/internal/database"
	"github.com/Mynotaurus/gostreaming/internal/emote"
	"github.com/Mynotaurus/gostreaming/internal/handler"
	"github.com/Mynotaurus/gostreaming/internal/jobs"
	"github.com/Mynotaurus/gostreaming/internal/media"
	"github.com/Mynotaurus/gostreaming/internal/middleware"
	"github.com/Mynotaurus/gostreaming/internal/redis"
	"github.com/Mynotaurus/gostreaming/internal/repository"
	"github.com/Mynotaurus/gostreaming/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the streaming server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	err = db.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	streamerRepo := repository.NewStreamerRepository(db.DB)
	emoteRepo := repository.NewEmoteRepository(db.DB)

	store := media.NewStore(cfg.HLSDir, cfg.PlaylistTTL())

	registry := chat.NewRegistry()
	presence := chat.NewPresence()
	bus := chat.NewBus()
	engine := chat.NewEngine(registry, presence, bus, streamerRepo, emote.Expand)

	streamService := service.NewStreamService(
		streamerRepo, emoteRepo, store, presence, cfg.FirstQuality(), emote.Expand,
	)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	socketLimit := middleware.NewIPRateLimitMiddleware(
		rateLimiter, config.SocketRateLimitPerMin, time.Minute, "socket",
	)
	publishLimit := middleware.NewIPRateLimitMiddleware(
		rateLimiter, config.PublishRateLimitPerMin, time.Minute, "publish",
	)
	passwordLimit := middleware.NewPasswordRateLimiter()
	bodyLimit := middleware.NewBodyLimitMiddleware(0)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isProduction)

	socketHandler := handler.NewSocketHandler(engine, bus, cfg.AllowedOrigins)
	streamsHandler := handler.NewStreamsHandler(
		streamService, publishLimit.Handler, passwordLimit.Handler,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimit.Handler)
	r.Use(securityHeaders.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.With(socketLimit.Handler).Get("/ws", socketHandler.ServeHTTP)
	r.Mount("/", streamsHandler.Routes())

	cleanupJob := jobs.NewCleanupJob(store, config.SymlinkCleanupInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// Write timeout stays off: websocket connections and long
		// playlist polls outlive any fixed budget.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
	return nil
}

func setLogLevel(level string) {
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
