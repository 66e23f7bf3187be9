package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/isittrue-tgbot-go/internal/models"
)

// Sender is the part of *tgbotapi.BotAPI the handlers use
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// StatsRecorder keeps the session counters
type StatsRecorder interface {
	RecordQuery(channel models.Channel) error
	RecordCategory(category models.Category) error
	Snapshot() models.StatsSnapshot
}

// ActivityTracker counts recently active users
type ActivityTracker interface {
	Touch(userID int64)
	Count() int
}

func userLanguage(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	return user.LanguageCode
}

func userID(user *tgbotapi.User) int64 {
	if user == nil {
		return 0
	}
	return user.ID
}
