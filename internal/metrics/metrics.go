// Package metrics exposes Prometheus counters and gauges for the
// quote server's command front-end, dispatcher, and transmitters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the quote server updates. A nil
// *Registry is never passed to collaborators — callers that want
// metrics disabled pass nil Metrics/AuditSink interfaces instead, so
// every method here assumes r is non-nil.
type Registry struct {
	commandErrors    *prometheus.CounterVec
	sessionsStarted  prometheus.Counter
	sessionsActive   prometheus.Gauge
	fanoutDelivered  prometheus.Counter
	inboxDropped     *prometheus.CounterVec
	livenessTimeout  prometheus.Counter
	quotesGenerated  prometheus.Counter
	quotesDroppedBus prometheus.Counter
	auditDropped     prometheus.Counter
}

// New registers every collector against a fresh registry and returns
// it alongside an http.Handler for the /metrics endpoint.
func New() (*Registry, http.Handler) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Registry{
		commandErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quoteserver_command_errors_total",
			Help: "Rejected STREAM/CANCEL commands by detail.",
		}, []string{"detail"}),
		sessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "quoteserver_sessions_started_total",
			Help: "STREAM commands that resulted in a new subscription.",
		}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quoteserver_sessions_active",
			Help: "Currently registered subscriptions.",
		}),
		fanoutDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "quoteserver_fanout_delivered_total",
			Help: "Quotes successfully enqueued to a subscription's inbox.",
		}),
		inboxDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quoteserver_inbox_dropped_total",
			Help: "Quotes dropped because a subscription's inbox was full.",
		}, []string{"reason"}),
		livenessTimeout: factory.NewCounter(prometheus.CounterOpts{
			Name: "quoteserver_liveness_timeouts_total",
			Help: "Transmitters that stopped because no ping arrived in time.",
		}),
		quotesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "quoteserver_quotes_generated_total",
			Help: "Quotes produced by the Generator's tick loop.",
		}),
		quotesDroppedBus: factory.NewCounter(prometheus.CounterOpts{
			Name: "quoteserver_quotes_dropped_bus_total",
			Help: "Quotes dropped because the Broadcast Bus send timed out.",
		}),
		auditDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "quoteserver_audit_dropped_total",
			Help: "Session audit events dropped because the sink's queue was full.",
		}),
	}
	return r, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// CommandError implements server.Metrics.
func (r *Registry) CommandError(detail string) {
	r.commandErrors.WithLabelValues(detail).Inc()
}

// SessionStarted implements server.Metrics.
func (r *Registry) SessionStarted() {
	r.sessionsStarted.Inc()
	r.sessionsActive.Inc()
}

// SessionEnded implements server.Metrics.
func (r *Registry) SessionEnded() {
	r.sessionsActive.Dec()
}

// FanoutObserved implements dispatcher.Metrics.
func (r *Registry) FanoutObserved(matched int) {
	r.fanoutDelivered.Add(float64(matched))
}

// InboxDropped implements dispatcher.Metrics.
func (r *Registry) InboxDropped(reason string) {
	r.inboxDropped.WithLabelValues(reason).Inc()
}

// LivenessTimeout implements transmit.Metrics.
func (r *Registry) LivenessTimeout() {
	r.livenessTimeout.Inc()
}

// QuoteGenerated implements the generator's Metrics collaborator.
func (r *Registry) QuoteGenerated() {
	r.quotesGenerated.Inc()
}

// QuoteDroppedBus implements the generator's Metrics collaborator.
func (r *Registry) QuoteDroppedBus() {
	r.quotesDroppedBus.Inc()
}

// AuditDropped implements audit.Metrics.
func (r *Registry) AuditDropped() {
	r.auditDropped.Inc()
}
