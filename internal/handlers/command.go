package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/isittrue-tgbot-go/internal/config"
	"github.com/isittrue-tgbot-go/internal/i18n"
	"github.com/isittrue-tgbot-go/internal/models"
	"github.com/isittrue-tgbot-go/internal/services/responses"
	"github.com/isittrue-tgbot-go/pkg/markdown"
	"github.com/sirupsen/logrus"
)

// CommandHandler handles telegram commands
type CommandHandler struct {
	bot       Sender
	config    *config.Config
	responder responses.Service
	stats     StatsRecorder
	active    ActivityTracker
	localizer *i18n.Localizer
	logger    *logrus.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	bot Sender,
	cfg *config.Config,
	responder responses.Service,
	stats StatsRecorder,
	active ActivityTracker,
	localizer *i18n.Localizer,
	logger *logrus.Logger,
) *CommandHandler {
	return &CommandHandler{
		bot:       bot,
		config:    cfg,
		responder: responder,
		stats:     stats,
		active:    active,
		localizer: localizer,
		logger:    logger,
	}
}

// HandleCommand processes telegram commands
func (h *CommandHandler) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	lang := userLanguage(message.From)

	switch message.Command() {
	case "start":
		if message.CommandArguments() == HelpStartParameter {
			return h.handleHelp(ctx, chatID, lang)
		}
		return h.handleStart(ctx, chatID, lang)
	case "help":
		return h.handleHelp(ctx, chatID, lang)
	case "stats":
		return h.handleStats(ctx, chatID, lang)
	default:
		return h.handleUnknown(ctx, chatID, lang)
	}
}

// RegisterCommands publishes the command list shown by Telegram clients
func (h *CommandHandler) RegisterCommands() error {
	for _, lang := range h.localizer.Languages() {
		cfg := tgbotapi.NewSetMyCommands(
			tgbotapi.BotCommand{Command: "start", Description: h.localizer.Get(lang, i18n.MsgCommandStart, nil)},
			tgbotapi.BotCommand{Command: "help", Description: h.localizer.Get(lang, i18n.MsgCommandHelp, nil)},
			tgbotapi.BotCommand{Command: "stats", Description: h.localizer.Get(lang, i18n.MsgCommandStats, nil)},
		)
		if lang != h.config.I18n.DefaultLanguage {
			cfg.LanguageCode = lang
		}
		if _, err := h.bot.Request(cfg); err != nil {
			return fmt.Errorf("set commands for %s: %w", lang, err)
		}
	}
	return nil
}

func (h *CommandHandler) handleStart(ctx context.Context, chatID int64, lang string) error {
	text := h.localizer.Get(lang, i18n.MsgWelcome, map[string]interface{}{
		"Username": h.config.Bot.Username,
	})
	return h.sendHTML(chatID, text)
}

func (h *CommandHandler) handleHelp(ctx context.Context, chatID int64, lang string) error {
	text := h.localizer.Get(lang, i18n.MsgHelp, h.helpData())
	return h.sendHTML(chatID, text)
}

func (h *CommandHandler) handleStats(ctx context.Context, chatID int64, lang string) error {
	text := h.localizer.Get(lang, i18n.MsgStats, h.statsData())
	return h.sendHTML(chatID, text)
}

func (h *CommandHandler) handleUnknown(ctx context.Context, chatID int64, lang string) error {
	text := h.localizer.Get(lang, i18n.MsgUnknownCommand, nil)
	return h.sendHTML(chatID, text)
}

// helpData renders the probabilities from the live weight table
func (h *CommandHandler) helpData() map[string]interface{} {
	p := h.responder.Probabilities()
	return map[string]interface{}{
		"Username":  h.config.Bot.Username,
		"Positive":  formatProbability(p[models.CategoryPositive]),
		"Negative":  formatProbability(p[models.CategoryNegative]),
		"Uncertain": formatProbability(p[models.CategoryUncertain]),
	}
}

func (h *CommandHandler) statsData() map[string]interface{} {
	snap := h.stats.Snapshot()
	pct := snap.Percentages()

	return map[string]interface{}{
		"Uptime":       FormatUptime(snap.Uptime),
		"Today":        humanize.Comma(int64(snap.TodayQueries)),
		"Total":        humanize.Comma(int64(snap.TotalQueries)),
		"Text":         humanize.Comma(int64(snap.TextQueries)),
		"Button":       humanize.Comma(int64(snap.ButtonQueries)),
		"ActiveUsers":  humanize.Comma(int64(h.active.Count())),
		"Positive":     humanize.Comma(int64(snap.Categories[models.CategoryPositive])),
		"Negative":     humanize.Comma(int64(snap.Categories[models.CategoryNegative])),
		"Uncertain":    humanize.Comma(int64(snap.Categories[models.CategoryUncertain])),
		"PositivePct":  FormatPercent(pct[models.CategoryPositive]),
		"NegativePct":  FormatPercent(pct[models.CategoryNegative]),
		"UncertainPct": FormatPercent(pct[models.CategoryUncertain]),
	}
}

func (h *CommandHandler) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, markdown.ToTelegramHTML(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	_, err := h.bot.Send(msg)
	return err
}

// FormatPercent renders a percentage with one decimal, e.g. "40.0%"
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func formatProbability(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}

// FormatUptime renders a duration as "2d 03:04:05"
func FormatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int(d / time.Second)

	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
