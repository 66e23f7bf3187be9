package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/isittrue-tgbot-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer from the embedded message files
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	defaultTag, err := language.Parse(cfg.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", cfg.DefaultLanguage, err)
	}

	bundle := i18n.NewBundle(defaultTag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	languages := cfg.Languages
	if !contains(languages, cfg.DefaultLanguage) {
		languages = append([]string{cfg.DefaultLanguage}, languages...)
	}

	for _, lang := range languages {
		if _, err := bundle.LoadMessageFileFS(locales, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[normalize(lang)]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Languages returns the loaded language codes
func (l *Localizer) Languages() []string {
	langs := make([]string, 0, len(l.localizers))
	for lang := range l.localizers {
		langs = append(langs, lang)
	}
	return langs
}

// LanguageNames maps each loaded language code to its display name
func (l *Localizer) LanguageNames() map[string]string {
	names := make(map[string]string, len(l.localizers))
	for lang := range l.localizers {
		names[lang] = l.Get(lang, MsgLanguageName, nil)
	}
	return names
}

// normalize turns Telegram language codes like "en-US" into bundle keys
func normalize(lang string) string {
	lang = strings.ToLower(lang)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Message IDs
const (
	MsgLanguageName      = "language.name"
	MsgWelcome           = "welcome"
	MsgHelp              = "help"
	MsgStats             = "stats"
	MsgUnknownCommand    = "unknown_command"
	MsgInlineTitle       = "inline.title"
	MsgInlineDescription = "inline.description"
	MsgInlineHelpButton  = "inline.help_button"
	MsgCommandStart      = "command.start"
	MsgCommandHelp       = "command.help"
	MsgCommandStats      = "command.stats"
)
