package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/isittrue-tgbot-go/internal/config"
	"github.com/isittrue-tgbot-go/internal/i18n"
	"github.com/isittrue-tgbot-go/internal/middleware"
	"github.com/isittrue-tgbot-go/internal/models"
	"github.com/isittrue-tgbot-go/internal/services/responses"
	"github.com/isittrue-tgbot-go/pkg/logger"
	"github.com/sirupsen/logrus"
)

// HelpStartParameter is the deep-link payload of the inline help button
const HelpStartParameter = "help"

// InlineHandler answers inline queries with a single verdict
type InlineHandler struct {
	bot       Sender
	config    *config.Config
	responder responses.Service
	stats     StatsRecorder
	active    ActivityTracker
	localizer *i18n.Localizer
	metrics   *middleware.Metrics
	logger    *logrus.Logger
}

// NewInlineHandler creates a new inline query handler
func NewInlineHandler(
	bot Sender,
	cfg *config.Config,
	responder responses.Service,
	stats StatsRecorder,
	active ActivityTracker,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *InlineHandler {
	return &InlineHandler{
		bot:       bot,
		config:    cfg,
		responder: responder,
		stats:     stats,
		active:    active,
		localizer: localizer,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleInlineQuery records the query, draws a verdict and answers with one article
func (h *InlineHandler) HandleInlineQuery(ctx context.Context, query *tgbotapi.InlineQuery) error {
	lang := userLanguage(query.From)
	log := logger.WithUser(h.logger, userID(query.From), lang)

	channel := models.ChannelButton
	if strings.TrimSpace(query.Query) != "" {
		channel = models.ChannelText
	}

	if err := h.stats.RecordQuery(channel); err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	h.metrics.RecordInlineQuery(string(channel))
	if query.From != nil {
		h.active.Touch(query.From.ID)
	}

	text, category := h.responder.Select()
	if err := h.stats.RecordCategory(category); err != nil {
		return fmt.Errorf("record category: %w", err)
	}
	h.metrics.RecordResponse(string(category))

	message := text
	if channel == models.ChannelText {
		message = responses.FormatQuery(query.Query, text)
	}

	log.WithFields(logrus.Fields{
		"channel":  channel,
		"category": category,
		"query":    query.Query,
	}).Info("Inline query answered")

	_, err := h.bot.Request(h.buildAnswer(query.ID, lang, message, category))
	if err != nil {
		return fmt.Errorf("answer inline query: %w", err)
	}
	return nil
}

func (h *InlineHandler) buildAnswer(queryID, lang, message string, category models.Category) tgbotapi.InlineConfig {
	article := tgbotapi.NewInlineQueryResultArticle(
		uuid.NewString(),
		h.localizer.Get(lang, i18n.MsgInlineTitle, nil),
		message,
	)
	article.Description = h.localizer.Get(lang, i18n.MsgInlineDescription, nil)
	article.ThumbURL = responses.NeutralIconURL
	if h.config.Bot.Inline.RevealCategory {
		article.ThumbURL = responses.IconURL(category)
	}

	return tgbotapi.InlineConfig{
		InlineQueryID:     queryID,
		Results:           []interface{}{article},
		CacheTime:         h.config.Bot.Inline.CacheTime,
		IsPersonal:        true,
		SwitchPMText:      h.localizer.Get(lang, i18n.MsgInlineHelpButton, nil),
		SwitchPMParameter: HelpStartParameter,
	}
}

// AnswerEmpty answers an inline query with no results
func AnswerEmpty(bot Sender, queryID string) error {
	_, err := bot.Request(tgbotapi.InlineConfig{
		InlineQueryID: queryID,
		Results:       []interface{}{},
		IsPersonal:    true,
	})
	return err
}
