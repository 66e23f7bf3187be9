package handlers

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/isittrue-tgbot-go/internal/middleware"
	"github.com/sirupsen/logrus"
)

// ErrorReporter forwards unexpected errors to an external tracker
type ErrorReporter interface {
	Capture(err error, tags map[string]string) bool
}

// Dispatcher routes updates to handlers and contains their failures
type Dispatcher struct {
	bot      Sender
	inline   *InlineHandler
	commands *CommandHandler
	reporter ErrorReporter
	metrics  *middleware.Metrics
	logger   *logrus.Logger
}

// NewDispatcher creates a new update dispatcher
func NewDispatcher(
	bot Sender,
	inline *InlineHandler,
	commands *CommandHandler,
	reporter ErrorReporter,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Dispatcher {
	return &Dispatcher{
		bot:      bot,
		inline:   inline,
		commands: commands,
		reporter: reporter,
		metrics:  metrics,
		logger:   logger,
	}
}

// Dispatch handles a single update. Errors never escape it.
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) {
	kind := updateKind(update)
	if kind == "" {
		return
	}
	d.metrics.RecordUpdateReceived(kind)

	start := time.Now()
	err := d.safeHandle(ctx, kind, update)
	d.metrics.ObserveHandler(kind, time.Since(start))

	if err == nil {
		d.metrics.RecordUpdateProcessed("success")
		return
	}

	d.metrics.RecordUpdateProcessed("error")
	d.logger.WithError(err).WithFields(logrus.Fields{
		"update_id": update.UpdateID,
		"type":      kind,
	}).Error("Failed to handle update")
	d.reporter.Capture(err, map[string]string{"update": kind})

	if update.InlineQuery != nil {
		if err := AnswerEmpty(d.bot, update.InlineQuery.ID); err != nil {
			d.logger.WithError(err).Error("Failed to send empty inline answer")
		}
	}
}

func (d *Dispatcher) safeHandle(ctx context.Context, kind string, update tgbotapi.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling %s: %v", kind, r)
		}
	}()

	switch kind {
	case "inline_query":
		return d.inline.HandleInlineQuery(ctx, update.InlineQuery)
	case "command":
		d.metrics.RecordCommandExecuted(commandLabel(update.Message.Command()))
		return d.commands.HandleCommand(ctx, update.Message)
	}
	return nil
}

func updateKind(update tgbotapi.Update) string {
	switch {
	case update.InlineQuery != nil:
		return "inline_query"
	case update.Message != nil && update.Message.IsCommand():
		return "command"
	}
	return ""
}

// commandLabel keeps metric label cardinality bounded
func commandLabel(command string) string {
	switch command {
	case "start", "help", "stats":
		return command
	}
	return "unknown"
}
