package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/isittrue-tgbot-go/internal/config"
	"github.com/isittrue-tgbot-go/internal/handlers"
	"github.com/isittrue-tgbot-go/internal/i18n"
	"github.com/isittrue-tgbot-go/internal/middleware"
	"github.com/isittrue-tgbot-go/internal/scheduler"
	"github.com/isittrue-tgbot-go/internal/services/reporting"
	"github.com/isittrue-tgbot-go/internal/services/stats"
	"github.com/isittrue-tgbot-go/pkg/logger"
	"github.com/sirupsen/logrus"
)

func runBot(parent context.Context, cfg *config.Config) error {
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Info("Starting Telegram Bot...")
	log.WithField("token_length", len(cfg.Bot.Token)).Info("Bot token loaded")

	reporter, err := reporting.NewReporter(&cfg.Sentry, log)
	if err != nil {
		return fmt.Errorf("failed to initialize error reporting: %w", err)
	}
	defer reporter.Flush()

	selector, err := buildSelector(cfg)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"probabilities": selector.Probabilities(),
		"catalog":       selector.CatalogSize(),
	}).Info("Response selector ready")

	loc, err := cfg.Stats.Location()
	if err != nil {
		return err
	}
	counter := stats.NewCounter(stats.WithLocation(loc))
	active := stats.NewActiveUsers(cfg.Stats.ActiveWindow)

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		return fmt.Errorf("failed to initialize i18n: %w", err)
	}

	log.WithField("languages", localizer.LanguageNames()).Info("Translations loaded")

	metrics := middleware.NewMetrics()

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	if bot.Self.UserName != "" && bot.Self.UserName != cfg.Bot.Username {
		log.WithFields(logrus.Fields{
			"configured": cfg.Bot.Username,
			"actual":     bot.Self.UserName,
		}).Warn("Configured username differs from the authorized bot")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inlineHandler := handlers.NewInlineHandler(bot, cfg, selector, counter, active, localizer, metrics, log)
	commandHandler := handlers.NewCommandHandler(bot, cfg, selector, counter, active, localizer, log)
	dispatcher := handlers.NewDispatcher(bot, inlineHandler, commandHandler, reporter, metrics, log)

	if err := commandHandler.RegisterCommands(); err != nil {
		// the bot still works inline without a command menu
		log.WithError(err).Warn("Failed to register bot commands")
	}

	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(ctx, cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path, selector.Check); err != nil {
				log.WithError(err).Error("Metrics server failed")
				reporter.Capture(err, map[string]string{"component": "metrics"})
			}
		}()
	}

	jobs := scheduler.NewScheduler(loc, log)
	if err := jobs.Add("stats-rollover", cfg.Stats.RolloverSchedule, func() {
		if counter.ResetIfNewDay() {
			log.Info("Daily query counter reset")
		}
	}); err != nil {
		return err
	}
	if err := jobs.Add("gauges", cfg.Stats.GaugeSchedule, func() {
		metrics.SetActiveUsers(float64(active.Count()))
		metrics.SetUptime(counter.Snapshot().Uptime)
	}); err != nil {
		return err
	}
	jobs.Start()
	if next, ok := jobs.Next("stats-rollover"); ok {
		log.WithField("next", next.Format(time.RFC3339)).Info("Daily counter rollover scheduled")
	}

	updates, cleanup, err := openUpdates(ctx, bot, cfg, log)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				dispatcher.Dispatch(ctx, update)
			}(update)
		}
	}

	log.Info("Shutdown signal received")
	cleanup()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	jobs.Stop(shutdownCtx)
	wg.Wait()

	snap := counter.Snapshot()
	log.WithFields(logrus.Fields{
		"total_queries": snap.TotalQueries,
		"uptime":        handlers.FormatUptime(snap.Uptime),
	}).Info("Bot stopped")
	return nil
}

// openUpdates starts long polling or the webhook listener. The returned
// cleanup stops receiving updates.
func openUpdates(ctx context.Context, bot *tgbotapi.BotAPI, cfg *config.Config, log *logrus.Logger) (tgbotapi.UpdatesChannel, func(), error) {
	if !cfg.Bot.Webhook.Enabled {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = cfg.Bot.UpdateTimeout
		u.AllowedUpdates = []string{"inline_query", "message"}

		updates := bot.GetUpdatesChan(u)
		log.Info("Using long polling")
		return updates, bot.StopReceivingUpdates, nil
	}

	webhookURL := fmt.Sprintf("%s/%s", cfg.Bot.Webhook.URL, bot.Token)
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	webhook.AllowedUpdates = []string{"inline_query", "message"}

	if _, err := bot.Request(webhook); err != nil {
		return nil, nil, fmt.Errorf("failed to set webhook: %w", err)
	}

	mux := http.NewServeMux()
	updates := make(chan tgbotapi.Update, bot.Buffer)
	mux.Handle("/"+bot.Token, webhookHandler(ctx, bot.HandleUpdate, updates, log))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Bot.Webhook.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Webhook server failed")
		}
	}()
	log.WithField("port", cfg.Bot.Webhook.Port).Info("Webhook set")

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Error("Failed to delete webhook")
		}
	}
	return updates, cleanup, nil
}

// webhookHandler decodes webhook requests into updates. Once ctx is done it
// answers 503 so Telegram retries later instead of the request hanging.
func webhookHandler(
	ctx context.Context,
	decode func(*http.Request) (*tgbotapi.Update, error),
	updates chan<- tgbotapi.Update,
	log *logrus.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, err := decode(r)
		if err != nil {
			log.WithError(err).Warn("Rejected webhook request")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		select {
		case updates <- *update:
		case <-ctx.Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
		case <-r.Context().Done():
		}
	}
}
