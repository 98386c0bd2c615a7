package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"repurposer/internal/access"
	"repurposer/internal/bot"
	"repurposer/internal/cache"
	"repurposer/internal/config"
	"repurposer/internal/handlers"
	"repurposer/internal/jobs"
	"repurposer/internal/log"
	"repurposer/internal/media/plan"
	"repurposer/internal/media/video"
	"repurposer/internal/repurpose"
	"repurposer/internal/server"
	"repurposer/internal/storage"
	"repurposer/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		redisClient *redis.Client
		store       access.Store
		backend     handlers.Pinger
	)
	switch cfg.Ledger.Backend {
	case config.LedgerBackendRedis:
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		store = access.NewRedisStore(redisClient, cfg.Ledger.RedisKey)
		backend = cache.Checker{Client: redisClient}
	default:
		store = access.NewFileStore(cfg.Ledger.Path)
	}

	gate := access.NewGate()
	ledger := access.NewLedger(ctx, store, gate, logger, access.WithDefaultDays(cfg.Ledger.DefaultDays))

	if err := video.LookPath(cfg.Media.FFmpegPath, cfg.Media.FFprobePath); err != nil {
		logger.Fatal().Err(err).Msg("transcoder not available")
	}
	engine := repurpose.NewEngine(
		plan.New(),
		video.NewFFProbe(cfg.Media.FFprobePath, 30*time.Second),
		video.NewFFmpeg(cfg.Media.FFmpegPath, logger),
		repurpose.Options{
			MaxVideoDuration: cfg.Media.MaxVideoDuration,
			MinOutputBytes:   cfg.Media.MinOutputBytes,
			JPEGQuality:      cfg.Media.JPEGQuality,
		},
		logger,
	)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init telegram client")
	}
	logger.Info().Str("bot", api.Self.UserName).Msg("telegram client ready")
	client := bot.NewClient(api, cfg.Telegram.HTTPTimeout, logger)

	var options []tasks.Option
	if cfg.Archive.Enabled {
		objectStore, err := storage.NewObjectStore(cfg.Archive)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
		options = append(options, tasks.WithArchiver(objectStore))
	}
	processor := tasks.NewProcessor(client, engine, gate, ledger, tasks.Options{
		ScratchRoot:   cfg.Media.ScratchRoot,
		MaxVideoBytes: cfg.Media.MaxVideoBytes,
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
	}, logger, options...)

	scheduler := jobs.NewScheduler(cfg.Jobs, cfg.Media.ScratchRoot, ledger, processor, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
		scheduler = nil
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		handlerSet := handlers.NewHandlerSet(logger, cfg, gate, backend)
		httpServer = server.NewHTTPServer(cfg, logger, handlerSet)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Fatal().Err(err).Msg("http server failed")
			}
		}()
	}

	router := bot.NewRouter(client, ledger, gate, processor, cfg.Telegram, logger)
	poller := bot.NewPoller(api, router, cfg.Telegram.PollTimeout, cfg.Telegram.RetryBackoff, logger)
	authorized, _ := gate.Counts()
	logger.Info().Int("authorized_users", authorized).Msg("bot starting")
	go poller.Run(ctx)

	waitForShutdown(ctx, logger, processor, httpServer, scheduler, redisClient)
}

func waitForShutdown(ctx context.Context, logger zerolog.Logger, processor *tasks.Processor, srv *server.HTTPServer, scheduler *jobs.Scheduler, redisClient *redis.Client) {
	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := processor.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("jobs did not finish, cancelled")
	}

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("forced shutdown failed")
			}
		}
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("bot exited cleanly")
}
