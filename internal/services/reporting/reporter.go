package reporting

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/isittrue-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Reporter forwards unexpected errors to Sentry. Without a DSN it is a no-op.
type Reporter struct {
	enabled bool
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewReporter initialises the Sentry client when a DSN is configured
func NewReporter(cfg *config.SentryConfig, logger *logrus.Logger) (*Reporter, error) {
	if cfg.DSN == "" {
		logger.Info("Sentry DSN not set, error reporting disabled")
		return &Reporter{enabled: false, logger: logger}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// user ids and queries stay out of reports
			event.User = sentry.User{}
			return event
		},
	})
	if err != nil {
		return nil, err
	}

	logger.WithField("environment", cfg.Environment).Info("Sentry initialized")
	return newReporter(cfg.EventsPerMinute, logger), nil
}

func newReporter(eventsPerMinute int, logger *logrus.Logger) *Reporter {
	if eventsPerMinute <= 0 {
		eventsPerMinute = 1
	}
	return &Reporter{
		enabled: true,
		limiter: rate.NewLimiter(rate.Limit(float64(eventsPerMinute)/60.0), eventsPerMinute),
		logger:  logger,
	}
}

// Capture reports err with tags. It returns false when the event was dropped.
func (r *Reporter) Capture(err error, tags map[string]string) bool {
	if r == nil || !r.enabled || err == nil {
		return false
	}
	if !r.limiter.Allow() {
		r.logger.WithError(err).Debug("Error report throttled")
		return false
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
	return true
}

// Flush waits for buffered events to be delivered
func (r *Reporter) Flush() {
	if r == nil || !r.enabled {
		return
	}
	sentry.Flush(2 * time.Second)
}
