package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stemsi/exstem-qbank/internal/broker"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/database"
	"github.com/stemsi/exstem-qbank/internal/handler"
	"github.com/stemsi/exstem-qbank/internal/lock"
	"github.com/stemsi/exstem-qbank/internal/logger"
	"github.com/stemsi/exstem-qbank/internal/middleware"
	"github.com/stemsi/exstem-qbank/internal/repository"
	"github.com/stemsi/exstem-qbank/internal/router"
	"github.com/stemsi/exstem-qbank/internal/service"
	"github.com/stemsi/exstem-qbank/internal/validator"
	"github.com/stemsi/exstem-qbank/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting question bank server")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	questionRepo := repository.NewQuestionRepository(pool)
	paperRepo := repository.NewPaperRepository(pool)
	accessCodeRepo := repository.NewAccessCodeRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)
	statsRepo := repository.NewLearnerStatsRepository(pool)

	// Sessions read their paper through the cache; authors write through the repository.
	cachedPapers := service.NewCachedPaperStore(paperRepo, rdb, cfg.PaperCacheTTL, log)

	// ─── Initialize Services ──────────────────────────────────────────
	clock := service.SystemClock{}
	tokens := service.NewTokenService(cfg)
	sessionLocker, err := lock.New(cfg.SessionLocker, rdb, cfg.SessionLockTTL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure session locks")
	}
	sessionBroker := broker.NewRedisBroker(rdb)

	paperService := service.NewPaperService(questionRepo, paperRepo, clock, log)
	accessService := service.NewAccessService(accessCodeRepo, cachedPapers, service.AccessPolicy{
		DefaultTimeLimit: cfg.DefaultTimeLimit,
		MaxTimeLimit:     cfg.MaxTimeLimit,
		BcryptCost:       cfg.BcryptCost,
	}, clock, log)
	sessionService := service.NewExamSessionService(
		sessionRepo,
		cachedPapers,
		sessionLocker,
		service.NewGradingEngine(),
		sessionBroker,
		clock,
		log,
	)
	statsService := service.NewStatsService(statsRepo)
	monitorService := service.NewMonitorService(cachedPapers, sessionRepo, clock)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Paper:   handler.NewPaperHandler(paperService, accessService, sessionService, log),
		Session: handler.NewSessionHandler(accessService, sessionService, statsService, clock, log),
		WS:      handler.NewWSHandler(sessionService, clock, log, cfg.AllowedOrigins),
		Monitor: handler.NewMonitorHandler(sessionBroker, monitorService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	statsWorker := worker.NewStatsWorker(pool, rdb, log)
	go statsWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	var startLimiter *middleware.RateLimiter
	if cfg.StartRateLimit > 0 {
		startLimiter = middleware.NewRateLimiter(rdb, cfg.StartRateLimit, time.Minute, log)
	}
	r := router.SetupRouter(tokens, startLimiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the stats worker and let it flush its last batch.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}
