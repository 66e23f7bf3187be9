package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	updatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isittrue_bot_updates_received_total",
		Help: "Total number of updates received",
	}, []string{"type"})

	updatesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isittrue_bot_updates_processed_total",
		Help: "Total number of updates processed",
	}, []string{"status"})

	inlineQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isittrue_bot_inline_queries_total",
		Help: "Total number of inline queries by channel",
	}, []string{"channel"})

	responsesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isittrue_bot_responses_total",
		Help: "Total number of generated responses by category",
	}, []string{"category"})

	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "isittrue_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "isittrue_bot_handler_duration_seconds",
		Help:    "Duration of update handling",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	activeUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "isittrue_bot_active_users",
		Help: "Number of users active within the tracking window",
	})

	uptimeSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "isittrue_bot_uptime_seconds",
		Help: "Seconds since the bot started",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordUpdateReceived records an incoming update by kind
func (m *Metrics) RecordUpdateReceived(kind string) {
	updatesReceived.WithLabelValues(kind).Inc()
}

// RecordUpdateProcessed records the outcome of handling an update
func (m *Metrics) RecordUpdateProcessed(status string) {
	updatesProcessed.WithLabelValues(status).Inc()
}

// RecordInlineQuery records an inline query on a channel
func (m *Metrics) RecordInlineQuery(channel string) {
	inlineQueries.WithLabelValues(channel).Inc()
}

// RecordResponse records a generated response
func (m *Metrics) RecordResponse(category string) {
	responsesGenerated.WithLabelValues(category).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// ObserveHandler records how long handling an update took
func (m *Metrics) ObserveHandler(kind string, duration time.Duration) {
	handlerDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetActiveUsers sets the number of active users
func (m *Metrics) SetActiveUsers(count float64) {
	activeUsers.Set(count)
}

// SetUptime sets the process uptime gauge
func (m *Metrics) SetUptime(uptime time.Duration) {
	uptimeSeconds.Set(uptime.Seconds())
}

// HealthFunc reports whether the bot can serve responses
type HealthFunc func() error

// NewRouter builds the metrics and health routes
func NewRouter(path string, health HealthFunc) *mux.Router {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}

// StartMetricsServer serves metrics until ctx is cancelled
func StartMetricsServer(ctx context.Context, port int, path string, health HealthFunc) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewRouter(path, health),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
