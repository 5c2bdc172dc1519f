// Package observability holds the Prometheus instruments for the bot and
// adapts them to the observer hooks the other packages expose.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orb-chat/orb/internal/provider/openrouter"
	"github.com/orb-chat/orb/internal/relay"
	"github.com/orb-chat/orb/internal/tool"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveExchanges  prometheus.Gauge
	Exchanges        *prometheus.CounterVec
	ExchangeDuration prometheus.Histogram
	ToolCalls        *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
	HistoryEvictions prometheus.Counter
}

// NewMetrics registers all instruments under the given namespace on the
// default registry.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveExchanges: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_exchanges",
			Help:      "Number of exchanges currently in flight.",
		}),
		Exchanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Completed exchanges by outcome.",
		}, []string{"outcome"}),
		ExchangeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Wall time from inbound message to final edit.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		ToolCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Model-requested tool executions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ProviderRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Upstream completion requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		HistoryEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_evictions_total",
			Help:      "Conversation turns evicted by the retention policy.",
		}),
	}
}

// ExchangeStarted implements relay.Observer.
func (m *Metrics) ExchangeStarted() {
	m.ActiveExchanges.Inc()
}

// ExchangeFinished implements relay.Observer.
func (m *Metrics) ExchangeFinished(outcome string, d time.Duration) {
	m.ActiveExchanges.Dec()
	m.Exchanges.WithLabelValues(outcome).Inc()
	m.ExchangeDuration.Observe(d.Seconds())
}

// ObserveToolCall implements tool.Observer.
func (m *Metrics) ObserveToolCall(name, outcome string) {
	m.ToolCalls.WithLabelValues(name, outcome).Inc()
}

// ObserveRequest implements openrouter.Observer.
func (m *Metrics) ObserveRequest(kind, outcome string) {
	m.ProviderRequests.WithLabelValues(kind, outcome).Inc()
}

// ObserveEvictions records turns dropped during history trimming.
func (m *Metrics) ObserveEvictions(n int) {
	m.HistoryEvictions.Add(float64(n))
}

// Interface guards.
var (
	_ relay.Observer      = (*Metrics)(nil)
	_ tool.Observer       = (*Metrics)(nil)
	_ openrouter.Observer = (*Metrics)(nil)
)

// MetricsHandler serves the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
