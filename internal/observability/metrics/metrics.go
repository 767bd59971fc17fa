package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config configures metric labels and the optional Pushgateway target.
type Config struct {
	ServiceName    string
	Environment    string
	PushgatewayURL string
	PushgatewayJob string
}

const statusTransportError = "transport_error"

// Metrics records client and notification counters on a private registry.
// A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry      *prometheus.Registry
	apiRequests   *prometheus.CounterVec
	apiDuration   *prometheus.HistogramVec
	apiRetries    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	commands      *prometheus.CounterVec
}

// New builds the metrics registry.
func New(cfg Config) *Metrics {
	return newMetrics(prometheus.NewRegistry(), cfg)
}

func newMetrics(registry *prometheus.Registry, cfg Config) *Metrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "orgadmin"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "orgadmin_api_requests_total",
		Help:        "Admin API requests by method and response status.",
		ConstLabels: constLabels,
	}, []string{"method", "status"})
	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "orgadmin_api_request_duration_seconds",
		Help:        "Admin API request latency.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"method"})
	apiRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "orgadmin_api_retries_total",
		Help:        "Admin API request retries by method.",
		ConstLabels: constLabels,
	}, []string{"method"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "orgadmin_notifications_total",
		Help:        "Notification deliveries by channel and terminal status.",
		ConstLabels: constLabels,
	}, []string{"channel", "status"})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "orgadmin_commands_total",
		Help:        "CLI command executions by outcome.",
		ConstLabels: constLabels,
	}, []string{"command", "outcome"})

	registry.MustRegister(apiRequests, apiDuration, apiRetries, notifications, commands)

	return &Metrics{
		registry:      registry,
		apiRequests:   apiRequests,
		apiDuration:   apiDuration,
		apiRetries:    apiRetries,
		notifications: notifications,
		commands:      commands,
	}
}

// Registry exposes the underlying registry for pushing.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one completed request. status 0 means the
// request never produced a response.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := statusTransportError
	if status > 0 {
		label = strconv.Itoa(status)
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	m.apiRequests.WithLabelValues(method, label).Inc()
	m.apiDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordRetry counts a retried request.
func (m *Metrics) RecordRetry(method string) {
	if m == nil {
		return
	}
	m.apiRetries.WithLabelValues(strings.ToUpper(strings.TrimSpace(method))).Inc()
}

// RecordNotification counts a delivery in its terminal status.
func (m *Metrics) RecordNotification(channel, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(strings.TrimSpace(channel), strings.TrimSpace(status)).Inc()
}

// RecordCommand counts a CLI command run.
func (m *Metrics) RecordCommand(command string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.commands.WithLabelValues(strings.TrimSpace(command), outcome).Inc()
}
