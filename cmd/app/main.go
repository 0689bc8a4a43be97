package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"padel-telegram-notifier/internal/config"
	"padel-telegram-notifier/internal/domain/ports/adapter"
	aiAdapters "padel-telegram-notifier/internal/infra/adapters/ai"
	tele "padel-telegram-notifier/internal/infra/adapters/telegram"
	"padel-telegram-notifier/internal/infra/api"
	pg "padel-telegram-notifier/internal/infra/db/postgres"
	"padel-telegram-notifier/internal/infra/events"
	"padel-telegram-notifier/internal/infra/i18n"
	"padel-telegram-notifier/internal/infra/logging"
	"padel-telegram-notifier/internal/infra/metrics"
	red "padel-telegram-notifier/internal/infra/redis"
	"padel-telegram-notifier/internal/infra/sched"
	"padel-telegram-notifier/internal/infra/worker"
	"padel-telegram-notifier/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "log messages instead of calling Telegram")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(scrubbed(err, config.EnvSecrets())).Str("path", *cfgPath).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Telegram calls are logged, not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(scrubbed(err, cfg.Secrets())).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(scrubbed(err, cfg.Secrets())).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	deduper := red.NewUpdateDeduper(redisClient, cfg.Redis.UpdateTTL)
	locker := red.NewLocker(redisClient)

	// ---- Rendering ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Render.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	loc, err := time.LoadLocation(cfg.Render.TimeZone)
	if err != nil {
		logger.Fatal().Err(err).Msg("time zone")
	}
	renderer := usecase.NewBookingRenderer(tr, loc, cfg.Bot.BookingURL)

	// ---- Telegram ----
	var client tele.Client
	if cfg.Runtime.Dev && cfg.Bot.Token == "" {
		client = tele.NewNoopMessenger(logger)
	} else {
		session := tele.NewBotSession(cfg.Bot.Token, cfg.Bot.APIEndpoint, tele.DefaultCommands(), logger)
		client = tele.NewMessenger(session)
	}

	// ---- AI (OpenAI -> Gemini) ----
	jokeAI := buildAI(ctx, cfg.AI, logger)

	// ---- Repositories & use cases ----
	bookingRepo := pg.NewBookingRepo(pool)
	recordRepo := pg.NewMessageRecordRepo(pool)
	txManager := pg.NewTxManager(pool)

	syncUC := usecase.NewSyncUseCase(bookingRepo, recordRepo, txManager, client, renderer, usecase.SyncOptions{
		ChatID:         cfg.Bot.ChannelChatID,
		Timeout:        cfg.Sync.Timeout,
		PersistTimeout: cfg.Sync.PersistTimeout,
	}, logger)
	messageUC := usecase.NewMessageUseCase(recordRepo, client, syncUC, logger)
	jokeUC := usecase.NewJokeUseCase(jokeAI, tr, cfg.AI.MaxPromptTokens, cfg.Sync.Timeout, logger)

	router := tele.NewUpdateRouter(client, syncUC, jokeUC, rateLimiter, tr, cfg.Bot.AdminIDs, logger)

	// ---- Background work ----
	var wg sync.WaitGroup
	pl := worker.NewPool(cfg.Sync.Workers, logger)
	pl.Start(ctx)

	reconciler, err := sched.NewMessageReconciler(recordRepo, syncUC, locker, pl, sched.ReconcilerOptions{
		Cron:       cfg.Sync.SweepCron,
		StaleAfter: cfg.Sync.StaleAfter,
		Batch:      cfg.Sync.SweepBatch,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweep")
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Start(ctx)
	}()

	if len(cfg.Kafka.Brokers) > 0 {
		consumer := events.NewBookingConsumer(cfg.Kafka, syncUC, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()
			if err := consumer.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("booking consumer stopped")
			}
		}()
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.BookingTopic).Msg("booking consumer started")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		reportPoolStats(ctx, pool.Stat)
	}()

	// ---- HTTP ----
	hook := api.NewWebhookHandler(cfg.Bot.WebhookSecret, client, router, deduper, logger)
	server := api.NewServer(cfg.HTTP, hook, cfg.Bot.WebhookPath, messageUC, syncUC, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("http shutdown")
	}
	pl.Stop()
	wg.Wait()
	logger.Info().Msg("bye")
}

// scrubbed rewrites err with every secret redacted. Boot errors can echo
// connection strings or tokens back.
func scrubbed(err error, secrets []string) error {
	return errors.New(logging.Scrub(err.Error(), secrets...))
}

func buildAI(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) adapter.AIServiceAdapter {
	var providers []adapter.AIServiceAdapter
	if cfg.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.DefaultModel, cfg.MaxReplyTokens)
		if err != nil {
			logger.Error().Err(err).Msg("openai adapter disabled")
		} else {
			providers = append(providers, oa)
		}
	}
	if cfg.GeminiKey != "" {
		gm, err := aiAdapters.NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.GeminiModel, cfg.MaxReplyTokens)
		if err != nil {
			logger.Error().Err(err).Msg("gemini adapter disabled")
		} else {
			providers = append(providers, gm)
		}
	}
	if len(providers) == 0 {
		logger.Warn().Msg("no AI provider configured; jokes use the fallback text")
		return aiAdapters.NewNoopAIAdapter(logger)
	}
	chain := aiAdapters.NewFallbackAIAdapter(providers...)
	logger.Info().Str("providers", chain.Name()).Int("concurrency", cfg.ConcurrentLimit).Msg("AI adapter ready")
	return aiAdapters.NewLimitedAI(chain, cfg.ConcurrentLimit)
}
