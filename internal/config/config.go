package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/isittrue-tgbot-go/internal/models"
	"github.com/spf13/viper"
)

// ErrMissingToken is returned when no bot token is configured
var ErrMissingToken = errors.New("bot token is required")

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Responses  ResponsesConfig  `mapstructure:"responses"`
	Stats      StatsConfig      `mapstructure:"stats"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token"`
	Username      string        `mapstructure:"username"`
	UpdateTimeout int           `mapstructure:"update_timeout"`
	Webhook       WebhookConfig `mapstructure:"webhook"`
	Inline        InlineConfig  `mapstructure:"inline"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Port    int    `mapstructure:"port"`
}

type InlineConfig struct {
	CacheTime      int  `mapstructure:"cache_time"`
	RevealCategory bool `mapstructure:"reveal_category"`
}

type ResponsesConfig struct {
	Weights     map[string]float64 `mapstructure:"weights"`
	CatalogFile string             `mapstructure:"catalog_file"`
}

type StatsConfig struct {
	Timezone         string        `mapstructure:"timezone"`
	ActiveWindow     time.Duration `mapstructure:"active_window"`
	RolloverSchedule string        `mapstructure:"rollover_schedule"`
	GaugeSchedule    string        `mapstructure:"gauge_schedule"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

type SentryConfig struct {
	DSN             string `mapstructure:"dsn"`
	Environment     string `mapstructure:"environment"`
	Release         string `mapstructure:"release"`
	EventsPerMinute int    `mapstructure:"events_per_minute"`
}

// CategoryWeights converts the configured weight table to typed categories
func (c *ResponsesConfig) CategoryWeights() (map[models.Category]float64, error) {
	weights := make(map[models.Category]float64, len(c.Weights))
	for name, w := range c.Weights {
		category, err := models.ParseCategory(strings.ToLower(name))
		if err != nil {
			return nil, err
		}
		weights[category] = w
	}
	return weights, nil
}

// Location resolves the configured stats timezone
func (c *StatsConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.username", "Is_ItTrue_Bot")
	v.SetDefault("bot.update_timeout", 60)
	v.SetDefault("bot.webhook.enabled", false)
	v.SetDefault("bot.webhook.port", 8443)
	v.SetDefault("bot.inline.cache_time", 0)
	v.SetDefault("bot.inline.reveal_category", false)

	v.SetDefault("responses.weights", map[string]float64{
		string(models.CategoryPositive):  0.5,
		string(models.CategoryNegative):  0.3,
		string(models.CategoryUncertain): 0.2,
	})

	v.SetDefault("stats.timezone", "Local")
	v.SetDefault("stats.active_window", 24*time.Hour)
	v.SetDefault("stats.rollover_schedule", "0 0 * * *")
	v.SetDefault("stats.gauge_schedule", "@every 1m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file.path", "logs/bot.log")
	v.SetDefault("logging.file.max_size", 50)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 14)

	v.SetDefault("monitoring.metrics.enabled", true)
	v.SetDefault("monitoring.metrics.port", 9090)
	v.SetDefault("monitoring.metrics.path", "/metrics")

	v.SetDefault("i18n.default_language", "ru")
	v.SetDefault("i18n.languages", []string{"ru", "en"})

	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.events_per_minute", 30)
}

// LoadConfig loads configuration from an optional YAML file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.BindEnv("bot.token", "BOT_TOKEN")
	v.BindEnv("bot.username", "BOT_USERNAME")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("sentry.dsn", "SENTRY_DSN")
	v.BindEnv("monitoring.metrics.port", "METRICS_PORT")
	v.BindEnv("stats.timezone", "BOT_TIMEZONE")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Logging.Level = strings.ToLower(config.Logging.Level)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Bot.Token) == "" {
		return ErrMissingToken
	}
	if cfg.Bot.Webhook.Enabled && cfg.Bot.Webhook.URL == "" {
		return fmt.Errorf("webhook url is required when webhook is enabled")
	}

	weights, err := cfg.Responses.CategoryWeights()
	if err != nil {
		return err
	}
	var sum float64
	for category, w := range weights {
		if w < 0 {
			return fmt.Errorf("weight for %s must not be negative: %v", category, w)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("response weights must sum to a positive value")
	}

	if _, err := cfg.Stats.Location(); err != nil {
		return err
	}
	return nil
}
