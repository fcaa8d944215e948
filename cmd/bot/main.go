// Package main is the entry point for the BharatRewards Telegram bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bharat-rewards/internal/bot"
	"bharat-rewards/internal/config"
	"bharat-rewards/internal/model"
	"bharat-rewards/internal/pkg/db"
	"bharat-rewards/internal/pkg/kv"
	"bharat-rewards/internal/pkg/lock"
	"bharat-rewards/internal/pkg/metrics"
	"bharat-rewards/internal/quiz"
	"bharat-rewards/internal/repository"
	"bharat-rewards/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Str("storage", cfg.Storage.Backend).Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeStore()

	defaults := model.AppSettings{
		MinRedeemPoints:   cfg.Rewards.MinRedeemPoints,
		PointsPerQuestion: cfg.Rewards.PointsPerQuestion,
		CurrencyRate:      cfg.Rewards.CurrencyRate,
	}

	seed := repository.AdminSeed{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	}
	if err := repository.Initialize(ctx, store, seed, defaults); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(store)
	sessionRepo := repository.NewSessionRepository(store, userRepo)
	redeemRepo := repository.NewRedeemRepository(store)
	settingsRepo := repository.NewSettingsRepository(store, defaults)
	questionRepo := repository.NewQuestionRepository(store)

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, m)
	}

	// Question supply
	registry := quiz.NewDefaultRegistry()

	var generator quiz.Generator
	if cfg.GenerationEnabled() {
		gemini, err := quiz.NewGeminiGenerator(ctx, quiz.GeminiOptions{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			Timeout: cfg.Gemini.Timeout,
		})
		if err != nil {
			log.Error().Err(err).Msg("Question generation disabled")
		} else {
			generator = gemini
			log.Info().Str("model", cfg.Gemini.Model).Msg("Question generation enabled")
		}
	} else {
		log.Info().Msg("No Gemini API key configured, serving custom and fallback questions only")
	}

	blender := quiz.NewBlender(registry, questionRepo, generator, m)

	log.Info().
		Int("category_count", registry.Count()).
		Msg("Question categories registered")

	// Initialize user lock
	userLock := lock.NewUserLock()
	validate := validator.New()

	// Initialize services
	accountService := service.NewAccountService(userRepo, sessionRepo, validate)
	rankingService := service.NewRankingService(userRepo)
	quizService := service.NewQuizService(
		blender,
		registry,
		userRepo,
		sessionRepo,
		settingsRepo,
		userLock,
		m,
		cfg.Quiz.DefaultCount,
		cfg.Quiz.MaxCount,
	)
	redeemService := service.NewRedeemService(userRepo, redeemRepo, settingsRepo, userLock, m, validate)
	adminService := service.NewAdminService(userRepo, settingsRepo, questionRepo, registry, userLock, validate)

	// Create bot dependencies
	deps := &bot.Dependencies{
		Config:         cfg,
		AccountService: accountService,
		RankingService: rankingService,
		QuizService:    quizService,
		RedeemService:  redeemService,
		AdminService:   adminService,
	}

	// Initialize bot
	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// openStore connects the configured key-value backend. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	prefix := cfg.Storage.KeyPrefix

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := kv.Migrate(ctx, pool.Pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return kv.NewPostgresStore(pool.Pool, prefix), pool.Close, nil

	case config.BackendRedis:
		client, err := kv.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		store := kv.NewRedisStore(client, prefix)
		return store, func() { _ = store.Close() }, nil

	default:
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return kv.NewMemoryStore(prefix), func() {}, nil
	}
}

// serveMetrics exposes the Prometheus registry on addr until the process exits.
func serveMetrics(addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server stopped")
	}
}
