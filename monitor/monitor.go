// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/impostor/models"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	MessagesReceived prometheus.Counter
	MessageLatency   prometheus.Histogram
	RequestDuration  *prometheus.HistogramVec
	RoomsCreated     prometheus.Counter
	PlayersJoined    prometheus.Counter
	RoundsStarted    prometheus.Counter
	RoundsFinished   *prometheus.CounterVec
	VotesCast        *prometheus.CounterVec
	OperationErrors  *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of open websocket connections",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms tracked on this node",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of websocket packets received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Websocket packet processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms created",
		}),
		PlayersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_joined_total",
			Help:      "Players that joined a room, reconnections excluded",
		}),
		RoundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Rounds started",
		}),
		RoundsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_finished_total",
			Help:      "Rounds finished, by winner",
		}, []string{"winner"}),
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Ballots registered, by the outcome they produced",
		}, []string{"outcome"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Rejected room operations",
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.ActiveRooms,
		m.MessagesReceived,
		m.MessageLatency,
		m.RequestDuration,
		m.RoomsCreated,
		m.PlayersJoined,
		m.RoundsStarted,
		m.RoundsFinished,
		m.VotesCast,
		m.OperationErrors,
	)

	return m
}

var publishOnce sync.Once

// Monitor implements services.Recorder on top of the prometheus metrics.
type Monitor struct {
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	startTime    time.Time
	requestCount atomic.Int64
}

// NewMonitor registers its metrics on reg; reg must also be a Gatherer to serve them.
func NewMonitor(namespace string, reg *prometheus.Registry) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace, reg),
		gatherer:  reg,
		startTime: time.Now(),
	}

	// expvar 是进程全局的，只能发布一次
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			return m.requestCount.Load()
		}))
	})
	return m
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Handler serves /metrics.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware 记录每个 HTTP 请求的耗时
func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestCount.Add(1)
		m.metrics.RequestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	m.requestCount.Add(1)
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

func (m *Monitor) RoomCreated() {
	m.metrics.RoomsCreated.Inc()
}

func (m *Monitor) PlayerJoined() {
	m.metrics.PlayersJoined.Inc()
}

func (m *Monitor) RoundStarted() {
	m.metrics.RoundsStarted.Inc()
}

func (m *Monitor) RoundFinished(winner models.Winner) {
	m.metrics.RoundsFinished.WithLabelValues(string(winner)).Inc()
}

func (m *Monitor) VoteCast(outcome string) {
	m.metrics.VotesCast.WithLabelValues(outcome).Inc()
}

func (m *Monitor) OperationFailed(op string) {
	m.metrics.OperationErrors.WithLabelValues(op).Inc()
}
