package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"groq-chatter/internal/analytics"
	"groq-chatter/internal/auth"
	"groq-chatter/internal/chat"
	"groq-chatter/internal/config"
	"groq-chatter/internal/history"
	"groq-chatter/internal/llm"
	"groq-chatter/internal/logging"
	"groq-chatter/internal/mcpadmin"
	"groq-chatter/internal/metrics"
	"groq-chatter/internal/scheduler"
	"groq-chatter/internal/server"
	"groq-chatter/internal/storage"
	"groq-chatter/internal/telegram"
	"groq-chatter/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	metrics.MustRegister()

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("bot stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	displayLoc := loadLocation(cfg.DisplayTimezone, logger)
	reportLoc := loadLocation(cfg.ReportTimezone, logger)

	sessions := history.NewManager(cfg.MaxHistory)
	stats := analytics.NewStats(nil)
	stats.SetReportTitle(analytics.ReportTitle(cfg.ReportSchedule))
	authSvc := auth.New(cfg.AdminIDs)
	if cfg.AdminRestricted() {
		logger.Info().Int("admins", len(cfg.AdminIDs)).Msg("bot restricted to admin allow-list")
	} else {
		logger.Warn().Msg("ADMIN_IDS not set; every user may talk to the bot")
	}

	model := cfg.GroqModel
	if cfg.LLMProvider == config.ProviderYandex {
		model = ""
	}
	client, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), model)
	if err != nil {
		return err
	}

	rec := newRecorder(cfg.AuditLogPath, logger)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	logger.Info().Str("bot", api.Self.UserName).Str("provider", string(cfg.LLMProvider)).Str("model", cfg.GroqModel).Msg("authorized on telegram")

	groupLog := telegram.NewGroupLogger(api, cfg.LogGroupID, logger)
	if cfg.LogGroupEnabled() {
		if err := groupLog.Send(telegram.LogInfo, "🚀 Bot started successfully!"); err != nil {
			logger.Warn().Err(err).Msg("log group unreachable")
		}
	}

	pipeline := chat.NewPipeline(chat.Settings{
		SystemPrompt:      cfg.SystemPrompt,
		Provider:          string(cfg.LLMProvider),
		Model:             model,
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		MaxMessageLength:  cfg.MaxMessageLength,
		BannedWords:       cfg.BannedWords,
		CompletionTimeout: cfg.CompletionTimeout,
	}, sessions, stats, authSvc, client, logger,
		chat.WithObserver(chat.Observers{groupLog, auditObserver(rec, logger)}),
		chat.WithTyping(telegram.NewTyping(api)),
	)

	bot := telegram.New(api, telegram.Deps{
		Pipeline:        pipeline,
		History:         sessions,
		Stats:           stats,
		Auth:            authSvc,
		Recorder:        rec,
		GroupLog:        groupLog,
		ParseMode:       cfg.MessageParseMode,
		DisplayLocation: displayLoc,
		ReportLocation:  reportLoc,
		Logger:          logger,
	})

	sched := scheduler.New(reportLoc, logger)
	if cfg.LogGroupEnabled() {
		err := sched.AddJob("activity_report", cfg.ReportSchedule, func(ctx context.Context) error {
			return groupLog.SendActivityReport(ctx, stats)
		})
		if err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	hooks := telegram.NewWebhookManager(api)
	if cfg.BotMode == config.ModePolling {
		if err := hooks.Delete(false); err != nil {
			logger.Warn().Err(err).Msg("delete webhook before polling")
		}
		bot.Start(ctx)
		return nil
	}

	pool := worker.NewPool(cfg.WebhookWorkers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	admin := mcpadmin.New(sessions, stats, rec, reportLoc, logger)
	router := server.NewRouter(server.Options{
		WebhookPath:   cfg.WebhookPath,
		WebhookSecret: cfg.WebhookSecret,
		MCP:           admin.Handler(),
		AdminToken:    cfg.AdminAPIToken,
	}, bot, pool, logger)
	srv := server.New(cfg.HTTPAddr, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if cfg.WebhookURL != "" {
		err := hooks.Set(telegram.WebhookOptions{
			URL:            cfg.WebhookURL,
			Secret:         cfg.WebhookSecret,
			MaxConnections: cfg.WebhookWorkers,
		})
		if err != nil {
			logger.Error().Err(err).Msg("register webhook")
		} else {
			logger.Info().Str("url", cfg.WebhookURL).Msg("webhook registered")
		}
	} else {
		logger.Warn().Msg("WEBHOOK_URL not set; expecting the webhook to be registered externally")
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return nil
}

func loadLocation(name string, logger *zerolog.Logger) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn().Err(err).Str("tz", name).Msg("unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

func newRecorder(path string, logger *zerolog.Logger) storage.Recorder {
	if path == "" {
		return storage.Discard{}
	}
	fr, err := storage.NewFileRecorder(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to init audit log, events will be dropped")
		return storage.Discard{}
	}
	return fr
}

func auditObserver(rec storage.Recorder, logger *zerolog.Logger) chat.Observer {
	return chat.ObserverFunc(func(_ context.Context, ev storage.Event) {
		if err := rec.AppendEvent(ev); err != nil {
			logger.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("audit append failed")
		}
	})
}
