// Package metrics exposes negotiation counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booktrade"

// Metrics groups the collectors shared by buyers and sellers of a node.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Sessions        *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	Replies         *prometheus.CounterVec
	Quotes          *prometheus.CounterVec
	Sales           prometheus.Counter
	Revenue         prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buyer",
			Name:      "sessions_total",
			Help:      "Negotiation sessions by terminal state.",
		}, []string{"state"}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "buyer",
			Name:      "session_duration_seconds",
			Help:      "Time from broadcast to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		Replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buyer",
			Name:      "replies_total",
			Help:      "Replies consumed by buyer sessions by performative.",
		}, []string{"performative"}),
		Quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seller",
			Name:      "quotes_total",
			Help:      "Price queries answered by sellers by performative.",
		}, []string{"performative"}),
		Sales: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seller",
			Name:      "sales_total",
			Help:      "Orders confirmed by sellers.",
		}),
		Revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seller",
			Name:      "revenue_total",
			Help:      "Sum of confirmed sale prices.",
		}),
	}

	reg.MustRegister(m.Sessions, m.SessionDuration, m.Replies, m.Quotes, m.Sales, m.Revenue)

	return m
}

// ObserveSession records a session that ended in state after d.
func (m *Metrics) ObserveSession(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(state).Inc()
	m.SessionDuration.Observe(d.Seconds())
}

// ObserveReply records a reply consumed by a buyer session.
func (m *Metrics) ObserveReply(performative string) {
	if m == nil {
		return
	}
	m.Replies.WithLabelValues(performative).Inc()
}

// ObserveQuote records a seller answer to a price query.
func (m *Metrics) ObserveQuote(performative string) {
	if m == nil {
		return
	}
	m.Quotes.WithLabelValues(performative).Inc()
}

// ObserveSale records a confirmed order.
func (m *Metrics) ObserveSale(price int) {
	if m == nil {
		return
	}
	m.Sales.Inc()
	m.Revenue.Add(float64(price))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
