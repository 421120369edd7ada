package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "civitas"

// Voting collects the workflow counters and the HTTP request histogram.
type Voting struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	events          *prometheus.CounterVec
	reverts         *prometheus.CounterVec
	outboxPublished prometheus.Counter
	requests        *prometheus.HistogramVec
}

func NewVoting() (*Voting, error) {
	registry := prometheus.NewRegistry()
	m := &Voting{
		registry: registry,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Number of applied workflow stage transitions",
		}, []string{"from", "to"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voting_events_total",
			Help:      "Number of emitted voting events by kind",
		}, []string{"kind"}),
		reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voting_reverts_total",
			Help:      "Number of rejected calls by operation and revert class",
		}, []string{"operation", "class"}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Number of outbox rows published to the event bus",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route and status code",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}

	err := errors.Join(
		registry.Register(m.transitions),
		registry.Register(m.events),
		registry.Register(m.reverts),
		registry.Register(m.outboxPublished),
		registry.Register(m.requests),
		registry.Register(collectors.NewGoCollector()),
		registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Voting) ObserveTransition(from string, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Voting) ObserveEvent(kind string) {
	m.events.WithLabelValues(kind).Inc()
}

func (m *Voting) ObserveRevert(operation string, class string) {
	m.reverts.WithLabelValues(operation, class).Inc()
}

func (m *Voting) ObserveOutboxPublished(count int) {
	if count <= 0 {
		return
	}
	m.outboxPublished.Add(float64(count))
}

func (m *Voting) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

func (m *Voting) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Voting) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
