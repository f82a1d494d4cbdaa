package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"deadline-buddy/internal/bot"
	"deadline-buddy/internal/config"
	"deadline-buddy/internal/gateway"
	"deadline-buddy/internal/logger"
	"deadline-buddy/internal/repository"
	"deadline-buddy/internal/service"
	"deadline-buddy/internal/webhook"
)

// tickTimeout bounds one scheduler pass, including every dispatch in it.
const tickTimeout = 5 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	defer zapLogger.Sync()

	db, err := repository.NewDB(cfg.DatabaseURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("db", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	taskRepo := repository.NewTaskRepository(db)
	settingsRepo := repository.NewGroupSettingsRepository(db)

	taskSvc := service.NewTaskService(taskRepo)
	zoneSvc := service.NewTimezoneService(settingsRepo)
	processor := bot.NewProcessor(cfg.Prefix, cfg.BotName, taskSvc, zoneSvc, zapLogger.Named("bot"))

	var (
		sender      gateway.Sender
		telegramBot *bot.TelegramBot
	)
	switch cfg.Transport {
	case config.TransportTelegram:
		// Long polling holds requests open for PollTimeout seconds.
		httpClient := &http.Client{Timeout: (bot.PollTimeout + 15) * time.Second}
		api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramToken, tgbotapi.APIEndpoint, httpClient)
		if err != nil {
			zapLogger.Fatal("telegram", zap.Error(err))
		}
		zapLogger.Info("bot authorized", zap.String("account", api.Self.UserName))
		sender = gateway.NewTelegramSender(api)
		telegramBot = bot.NewTelegramBot(api, processor, sender, cfg.Scheduler.DispatchTimeout, zapLogger.Named("telegram"))
	default:
		waha := gateway.NewWAHAClient(gateway.WAHAConfig{
			BaseURL:    cfg.WAHA.URL,
			Token:      cfg.WAHA.Token,
			Session:    cfg.WAHA.Session,
			WebhookURL: cfg.WAHA.WebhookURL,
			RatePerSec: cfg.WAHA.RatePerSec,
			Timeout:    cfg.Scheduler.DispatchTimeout,
		}, &fasthttp.Client{
			Name:                cfg.BotName,
			ReadTimeout:         cfg.Scheduler.DispatchTimeout,
			WriteTimeout:        cfg.Scheduler.DispatchTimeout,
			MaxIdleConnDuration: time.Minute,
		}, zapLogger.Named("waha"))
		sender = waha

		// WAHA may still be booting; Send retries the setup lazily.
		go func() {
			initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := waha.Initialize(initCtx); err != nil {
				zapLogger.Warn("waha not ready yet", zap.Error(err))
			}
		}()
	}

	reminderSvc := service.NewReminderService(taskSvc, zoneSvc, sender, cfg.Scheduler.DispatchTimeout, zapLogger.Named("reminder"))

	scheduler := service.NewSchedulerService(time.UTC, zapLogger)
	if _, err := scheduler.ScheduleInterval(cfg.Scheduler.TickInterval, func() {
		tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
		defer cancel()
		report, err := reminderSvc.Tick(tickCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("reminder tick", zap.Error(err))
			return
		}
		if report.Due > 0 {
			zapLogger.Info("reminder tick",
				zap.Int("due", report.Due),
				zap.Int("sent", report.Sent),
				zap.Int("failed", report.Failed),
				zap.Int("unrecorded", report.Unrecorded),
				zap.Int("recurred", report.Recurred),
			)
		}
	}); err != nil {
		zapLogger.Fatal("schedule reminders", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	apiServer := webhook.NewServer(webhook.Deps{
		BotName:   cfg.BotName,
		Transport: cfg.Transport,
		Processor: processor,
		Tasks:     taskSvc,
		Zones:     zoneSvc,
		Reminders: reminderSvc,
		Sender:    sender,
		Ping: func(ctx context.Context) error {
			if sqlDB == nil {
				return errors.New("database handle unavailable")
			}
			return sqlDB.PingContext(ctx)
		},
		RequestTimeout: tickTimeout,
		Logger:         zapLogger.Named("http"),
	})
	server := &fasthttp.Server{
		Handler:      apiServer.Handler(),
		Name:         cfg.BotName,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: tickTimeout,
		IdleTimeout:  time.Minute,
		Logger:       zap.NewStdLog(zapLogger.Named("fasthttp")),
	}
	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("transport", cfg.Transport))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	zapLogger.Info("deadline bot started", zap.String("bot", cfg.BotName), zap.String("prefix", cfg.Prefix))
	if telegramBot != nil {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("telegram polling stopped", zap.Error(err))
		}
	} else {
		<-ctx.Done()
	}

	if err := server.Shutdown(); err != nil {
		zapLogger.Error("http shutdown", zap.Error(err))
	}
	zapLogger.Info("shutdown complete")
}
