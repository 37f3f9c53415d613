// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dareroom/gameserver/models"
)

type Metrics struct {
	RoundsDealt      prometheus.Counter
	VotesCast        prometheus.Counter
	ProofsResolved   *prometheus.CounterVec
	DrawFallbacks    prometheus.Counter
	ActiveRooms      prometheus.Gauge
	EventSubscribers prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		RoundsDealt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_dealt_total",
			Help:      "Total number of rounds dealt",
		}),
		VotesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Total number of proof votes cast",
		}),
		ProofsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proofs_resolved_total",
			Help:      "Proof verdicts reached, by outcome",
		}, []string{"verdict"}),
		DrawFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_draw_fallbacks_total",
			Help:      "Card draws that had to drop the level constraint",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms in the database",
		}),
		EventSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Number of connected event-feed subscribers",
		}),
	}

	prometheus.MustRegister(
		m.RoundsDealt,
		m.VotesCast,
		m.ProofsResolved,
		m.DrawFallbacks,
		m.ActiveRooms,
		m.EventSubscribers,
	)

	return m
}

type Monitor struct {
	metrics   *Metrics
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))
	mux.Handle("/debug/vars", expvar.Handler())

	go http.ListenAndServe(addr, mux)
}

// --- services.Metrics ---

func (m *Monitor) RoundCreated() {
	m.metrics.RoundsDealt.Inc()
}

func (m *Monitor) VoteCast() {
	m.metrics.VotesCast.Inc()
}

func (m *Monitor) ProofResolved(status models.ProofStatus) {
	m.metrics.ProofsResolved.WithLabelValues(string(status)).Inc()
}

// --- gauges ---

func (m *Monitor) DrawFallback() {
	m.metrics.DrawFallbacks.Inc()
}

func (m *Monitor) SetActiveRooms(count int64) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) SetEventSubscribers(count int) {
	m.metrics.EventSubscribers.Set(float64(count))
}
