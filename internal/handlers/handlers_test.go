package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/isittrue-tgbot-go/internal/config"
	"github.com/isittrue-tgbot-go/internal/i18n"
	"github.com/isittrue-tgbot-go/internal/middleware"
	"github.com/isittrue-tgbot-go/internal/models"
	"github.com/isittrue-tgbot-go/internal/services/responses"
	"github.com/isittrue-tgbot-go/internal/services/stats"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu           sync.Mutex
	sent         []tgbotapi.Chattable
	requests     []tgbotapi.Chattable
	failRequests int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if f.failRequests > 0 {
		f.failRequests--
		return nil, errors.New("telegram unavailable")
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeResponder struct {
	text     string
	category models.Category
	panics   bool
}

func (f *fakeResponder) Select() (string, models.Category) {
	if f.panics {
		panic("catalog exploded")
	}
	return f.text, f.category
}

func (f *fakeResponder) ResponseFor(category models.Category) (string, error) {
	return f.text, nil
}

func (f *fakeResponder) Probabilities() map[models.Category]float64 {
	return map[models.Category]float64{
		models.CategoryPositive:  0.5,
		models.CategoryNegative:  0.3,
		models.CategoryUncertain: 0.2,
	}
}

type fakeReporter struct {
	captured []error
}

func (f *fakeReporter) Capture(err error, tags map[string]string) bool {
	f.captured = append(f.captured, err)
	return true
}

type fixture struct {
	cfg        *config.Config
	sender     *fakeSender
	responder  *fakeResponder
	counter    *stats.Counter
	active     *stats.ActiveUsers
	reporter   *fakeReporter
	inline     *InlineHandler
	commands   *CommandHandler
	dispatcher *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Bot:  config.BotConfig{Username: "Is_ItTrue_Bot"},
		I18n: config.I18nConfig{DefaultLanguage: "ru", Languages: []string{"ru", "en"}},
	}
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	require.NoError(t, err)

	f := &fixture{
		cfg:       cfg,
		sender:    &fakeSender{},
		responder: &fakeResponder{text: "✅ Да", category: models.CategoryPositive},
		counter:   stats.NewCounter(stats.WithLocation(time.UTC)),
		active:    stats.NewActiveUsers(time.Hour),
		reporter:  &fakeReporter{},
	}
	metrics := middleware.NewMetrics()
	f.inline = NewInlineHandler(f.sender, cfg, f.responder, f.counter, f.active, localizer, metrics, log)
	f.commands = NewCommandHandler(f.sender, cfg, f.responder, f.counter, f.active, localizer, log)
	f.dispatcher = NewDispatcher(f.sender, f.inline, f.commands, f.reporter, metrics, log)
	return f
}

func inlineUpdate(query, lang string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		InlineQuery: &tgbotapi.InlineQuery{
			ID:    "q1",
			From:  &tgbotapi.User{ID: 42, LanguageCode: lang},
			Query: query,
		},
	}
}

func commandUpdate(text, command, lang string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: 42, LanguageCode: lang},
			Chat:      &tgbotapi.Chat{ID: 100, Type: "private"},
			Text:      text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len(command) + 1},
			},
		},
	}
}

func lastInlineAnswer(t *testing.T, s *fakeSender) tgbotapi.InlineConfig {
	t.Helper()
	require.NotEmpty(t, s.requests)
	answer, ok := s.requests[len(s.requests)-1].(tgbotapi.InlineConfig)
	require.True(t, ok, "last request is %T", s.requests[len(s.requests)-1])
	return answer
}

func articleText(t *testing.T, answer tgbotapi.InlineConfig) (tgbotapi.InlineQueryResultArticle, string) {
	t.Helper()
	require.Len(t, answer.Results, 1)
	article, ok := answer.Results[0].(tgbotapi.InlineQueryResultArticle)
	require.True(t, ok)
	content, ok := article.InputMessageContent.(tgbotapi.InputTextMessageContent)
	require.True(t, ok)
	return article, content.Text
}

func lastMessage(t *testing.T, s *fakeSender) tgbotapi.MessageConfig {
	t.Helper()
	require.NotEmpty(t, s.sent)
	msg, ok := s.sent[len(s.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	return msg
}

func TestInlineTextQueryEchoesQuery(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.Dispatch(context.Background(), inlineUpdate("правда что вода мокрая?", "ru"))

	answer := lastInlineAnswer(t, f.sender)
	article, text := articleText(t, answer)

	assert.Equal(t, "q1", answer.InlineQueryID)
	assert.Equal(t, "📝 Запрос: \"правда что вода мокрая?\"\n\n✅ Да", text)
	assert.Equal(t, "Это правда?", article.Title)
	assert.Equal(t, "Проверить достоверность информации", article.Description)
	assert.Equal(t, responses.NeutralIconURL, article.ThumbURL)
	assert.NotEmpty(t, article.ID)
	assert.True(t, answer.IsPersonal)
	assert.Equal(t, 0, answer.CacheTime)
	assert.Equal(t, HelpStartParameter, answer.SwitchPMParameter)
	assert.Equal(t, "Как это работает?", answer.SwitchPMText)

	snap := f.counter.Snapshot()
	assert.Equal(t, uint64(1), snap.TotalQueries)
	assert.Equal(t, uint64(1), snap.TextQueries)
	assert.Equal(t, uint64(1), snap.Categories[models.CategoryPositive])
	assert.Equal(t, 1, f.active.Count())
}

func TestInlineEmptyQueryIsButtonChannel(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.Dispatch(context.Background(), inlineUpdate("   ", "en"))

	article, text := articleText(t, lastInlineAnswer(t, f.sender))
	assert.Equal(t, "✅ Да", text)
	assert.Equal(t, "Is it true?", article.Title)

	snap := f.counter.Snapshot()
	assert.Equal(t, uint64(1), snap.ButtonQueries)
	assert.Zero(t, snap.TextQueries)
}

func TestInlineRevealCategoryIcon(t *testing.T) {
	f := newFixture(t)
	f.cfg.Bot.Inline.RevealCategory = true
	f.responder.category = models.CategoryNegative

	f.dispatcher.Dispatch(context.Background(), inlineUpdate("", "ru"))

	article, _ := articleText(t, lastInlineAnswer(t, f.sender))
	assert.Equal(t, responses.IconURL(models.CategoryNegative), article.ThumbURL)
}

func TestInlineFailureAnswersEmpty(t *testing.T) {
	f := newFixture(t)
	f.sender.failRequests = 1

	f.dispatcher.Dispatch(context.Background(), inlineUpdate("земля плоская?", "ru"))

	require.Len(t, f.sender.requests, 2)
	answer := lastInlineAnswer(t, f.sender)
	assert.Equal(t, "q1", answer.InlineQueryID)
	assert.Empty(t, answer.Results)
	assert.Len(t, f.reporter.captured, 1)
}

func TestInlinePanicIsContained(t *testing.T) {
	f := newFixture(t)
	f.responder.panics = true

	assert.NotPanics(t, func() {
		f.dispatcher.Dispatch(context.Background(), inlineUpdate("", "ru"))
	})

	answer := lastInlineAnswer(t, f.sender)
	assert.Empty(t, answer.Results)
	require.Len(t, f.reporter.captured, 1)
	assert.Contains(t, f.reporter.captured[0].Error(), "catalog exploded")
}

func TestStartCommand(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.Dispatch(context.Background(), commandUpdate("/start", "start", "ru"))

	msg := lastMessage(t, f.sender)
	assert.Equal(t, int64(100), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "Добро пожаловать")
	assert.Contains(t, msg.Text, "@Is_ItTrue_Bot")
}

func TestStartHelpDeepLinkShowsHelp(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.Dispatch(context.Background(), commandUpdate("/start help", "start", "en"))

	msg := lastMessage(t, f.sender)
	assert.Contains(t, msg.Text, "How does it work?")
	assert.Contains(t, msg.Text, "True: 50%")
	assert.Contains(t, msg.Text, "False: 30%")
	assert.Contains(t, msg.Text, "Unclear: 20%")
}

func TestHelpCommand(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.Dispatch(context.Background(), commandUpdate("/help", "help", "ru"))

	msg := lastMessage(t, f.sender)
	assert.Contains(t, msg.Text, "Правда: 50%")
	assert.Contains(t, msg.Text, "<i>Как это работает?</i>")
}

func TestEnglishTextsUseTelegramEntitiesOnly(t *testing.T) {
	for _, command := range []string{"start", "help"} {
		t.Run(command, func(t *testing.T) {
			f := newFixture(t)

			f.dispatcher.Dispatch(context.Background(), commandUpdate("/"+command, command, "en"))

			msg := lastMessage(t, f.sender)
			assert.Contains(t, msg.Text, "&quot;Is it true?&quot;")
			assert.NotContains(t, msg.Text, "&ldquo;")
			assert.NotContains(t, msg.Text, "&rdquo;")
		})
	}
}

func TestHelpKeepsNumberedSteps(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.Dispatch(context.Background(), commandUpdate("/help", "help", "en"))

	msg := lastMessage(t, f.sender)
	assert.Contains(t, msg.Text, "1. Type <code>@Is_ItTrue_Bot</code> in any chat")
	assert.Contains(t, msg.Text, "\n2. Optionally add a question")
	assert.Contains(t, msg.Text, "\n3. Tap the")
	assert.Contains(t, msg.Text, "• ✅ True: 50%")
}

func TestStatsCommand(t *testing.T) {
	f := newFixture(t)

	record := func(category models.Category, n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, f.counter.RecordQuery(models.ChannelText))
			require.NoError(t, f.counter.RecordCategory(category))
		}
	}
	record(models.CategoryPositive, 4)
	record(models.CategoryNegative, 4)
	record(models.CategoryUncertain, 2)

	f.dispatcher.Dispatch(context.Background(), commandUpdate("/stats", "stats", "en"))

	msg := lastMessage(t, f.sender)
	assert.Contains(t, msg.Text, "Total queries: 10")
	assert.Contains(t, msg.Text, "Queries today: 10")
	assert.Contains(t, msg.Text, "With text: 10")
	assert.Contains(t, msg.Text, "True: 4 (40.0%)")
	assert.Contains(t, msg.Text, "False: 4 (40.0%)")
	assert.Contains(t, msg.Text, "Unclear: 2 (20.0%)")
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.Dispatch(context.Background(), commandUpdate("/nope", "nope", "ru"))

	assert.Contains(t, lastMessage(t, f.sender).Text, "Неизвестная команда")
}

func TestPlainMessagesAreIgnored(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.Dispatch(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 1}},
	})

	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.sender.requests)
}

func TestRegisterCommands(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.commands.RegisterCommands())
	require.Len(t, f.sender.requests, 2)

	var languages []string
	for _, r := range f.sender.requests {
		cfg, ok := r.(tgbotapi.SetMyCommandsConfig)
		require.True(t, ok)
		assert.Len(t, cfg.Commands, 3)
		languages = append(languages, cfg.LanguageCode)
	}
	assert.ElementsMatch(t, []string{"", "en"}, languages)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "00:00:05", FormatUptime(5*time.Second))
	assert.Equal(t, "01:30:00", FormatUptime(90*time.Minute))
	assert.Equal(t, "2d 03:04:05", FormatUptime(51*time.Hour+4*time.Minute+5*time.Second))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "40.0%", FormatPercent(40))
	assert.Equal(t, "33.3%", FormatPercent(100.0/3))
}

func TestDispatchConcurrentUpdates(t *testing.T) {
	f := newFixture(t)
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			query := ""
			if i%2 == 0 {
				query = fmt.Sprintf("claim %d", i)
			}
			update := inlineUpdate(query, "ru")
			update.InlineQuery.From.ID = int64(i)
			f.dispatcher.Dispatch(context.Background(), update)
		}(i)
	}
	wg.Wait()

	snap := f.counter.Snapshot()
	assert.Equal(t, uint64(n), snap.TotalQueries)
	assert.Equal(t, uint64(n/2), snap.TextQueries)
	assert.Equal(t, uint64(n/2), snap.ButtonQueries)
	assert.Equal(t, uint64(n), snap.TodayQueries)
	assert.Equal(t, uint64(n), snap.Categories[models.CategoryPositive])
	assert.Equal(t, n, f.active.Count())
	assert.Len(t, f.sender.requests, n)

	var echoed int
	for _, r := range f.sender.requests {
		_, text := articleText(t, r.(tgbotapi.InlineConfig))
		if strings.HasPrefix(text, "📝 Запрос:") {
			echoed++
		}
	}
	assert.Equal(t, n/2, echoed)
}
