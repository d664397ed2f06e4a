// Package metrics exposes bridge counters as Prometheus collectors.
//
// A Metrics value implements the supervisor, scheduler and northbound
// observer interfaces, so it can be handed to each component directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridlink/tagbridge/pkg/scheduler"
	"github.com/gridlink/tagbridge/pkg/store"
	"github.com/gridlink/tagbridge/pkg/supervisor"
	"github.com/gridlink/tagbridge/pkg/wire"
)

const namespace = "tagbridge"

// Metrics holds every bridge collector and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	// Southbound
	SouthboundState      prometheus.Gauge
	ConnectAttempts      *prometheus.CounterVec // result: ok, error
	SubscriptionFailures prometheus.Counter
	DeliveredUpdates     prometheus.Counter
	AdapterPanics        *prometheus.CounterVec // op

	// Sync
	SyncTicks         *prometheus.CounterVec // result: completed, skipped
	NodeWrites        prometheus.Counter
	NodeWriteFailures prometheus.Counter
	AbsentNodes       prometheus.Gauge
	SyncDuration      prometheus.Histogram

	// Northbound
	Notifications *prometheus.CounterVec // frame type
	Subscribers   prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SouthboundState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "southbound",
			Name:      "state",
			Help:      "Supervisor state (0=idle, 1=connecting, 2=subscribing, 3=running, 4=backoff, 5=stopped)",
		}),
		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "southbound",
			Name:      "connect_attempts_total",
			Help:      "Southbound connect attempts by result",
		}, []string{"result"}),
		SubscriptionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "southbound",
			Name:      "subscription_failures_total",
			Help:      "Tags the southbound source refused to subscribe",
		}),
		DeliveredUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "southbound",
			Name:      "delivered_total",
			Help:      "Updates delivered into the value store",
		}),
		AdapterPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "southbound",
			Name:      "panics_total",
			Help:      "Panics recovered from southbound adapter calls",
		}, []string{"op"}),

		SyncTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "ticks_total",
			Help:      "Sync ticks by result",
		}, []string{"result"}),
		NodeWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "node_writes_total",
			Help:      "Successful node writes",
		}),
		NodeWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "node_write_failures_total",
			Help:      "Failed node writes",
		}),
		AbsentNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "absent_nodes",
			Help:      "Nodes without a store entry in the last tick",
		}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "tick_duration_seconds",
			Help:      "Sync tick duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),

		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "northbound",
			Name:      "frames_total",
			Help:      "Frames sent to northbound subscribers by type",
		}, []string{"type"}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "northbound",
			Name:      "subscribers",
			Help:      "Connected northbound subscribers",
		}),
	}

	m.registry.MustRegister(
		m.SouthboundState,
		m.ConnectAttempts,
		m.SubscriptionFailures,
		m.DeliveredUpdates,
		m.AdapterPanics,
		m.SyncTicks,
		m.NodeWrites,
		m.NodeWriteFailures,
		m.AbsentNodes,
		m.SyncDuration,
		m.Notifications,
		m.Subscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// RegisterStore exposes the store's update counter and tag count.
func (m *Metrics) RegisterStore(st *store.Store) error {
	updates := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "updates_total",
		Help:      "Updates applied to the value store",
	}, func() float64 { return float64(st.UpdateCount()) })
	tags := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "tags",
		Help:      "Tags with a stored value",
	}, func() float64 { return float64(st.Len()) })

	if err := m.registry.Register(updates); err != nil {
		return err
	}
	return m.registry.Register(tags)
}

// StateChanged implements supervisor.Observer.
func (m *Metrics) StateChanged(state supervisor.State) {
	m.SouthboundState.Set(float64(state))
}

// ConnectAttempt implements supervisor.Observer.
func (m *Metrics) ConnectAttempt(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ConnectAttempts.WithLabelValues(result).Inc()
}

// SubscriptionResult implements supervisor.Observer.
func (m *Metrics) SubscriptionResult(_ string, err error) {
	if err != nil {
		m.SubscriptionFailures.Inc()
	}
}

// Delivered implements supervisor.Observer.
func (m *Metrics) Delivered(n int) {
	m.DeliveredUpdates.Add(float64(n))
}

// Panic implements supervisor.Observer.
func (m *Metrics) Panic(op string) {
	m.AdapterPanics.WithLabelValues(op).Inc()
}

// TickCompleted implements scheduler.Observer.
func (m *Metrics) TickCompleted(r scheduler.TickResult) {
	m.SyncTicks.WithLabelValues("completed").Inc()
	m.NodeWrites.Add(float64(r.Written))
	m.NodeWriteFailures.Add(float64(r.Failed))
	m.AbsentNodes.Set(float64(r.Absent))
	m.SyncDuration.Observe(r.Duration.Seconds())
}

// TickSkipped implements scheduler.Observer.
func (m *Metrics) TickSkipped() {
	m.SyncTicks.WithLabelValues("skipped").Inc()
}

// FrameSent records a frame written to a subscriber.
func (m *Metrics) FrameSent(t wire.FrameType) {
	m.Notifications.WithLabelValues(string(t)).Inc()
}

// ClientConnected records a new subscriber connection.
func (m *Metrics) ClientConnected() { m.Subscribers.Inc() }

// ClientDisconnected records a subscriber going away.
func (m *Metrics) ClientDisconnected() { m.Subscribers.Dec() }

var (
	_ supervisor.Observer = (*Metrics)(nil)
	_ scheduler.Observer  = (*Metrics)(nil)
)
