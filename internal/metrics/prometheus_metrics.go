package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the aggregator exposes. Trimmed
// from the teacher's PrometheusMetrics down to the gauges/counters this
// system's components actually drive: ingestion throughput, connection
// health, broadcast lag, and the optional Redis side-channel — the
// teacher's gap-detection/spoofing-specific series have no analog here.
type Metrics struct {
	MessagesProcessed *prometheus.CounterVec
	ParseErrors       *prometheus.CounterVec
	ProcessingLatency *prometheus.HistogramVec

	ExchangeStatus      *prometheus.GaugeVec
	WebSocketReconnects *prometheus.CounterVec

	BroadcastSubscribers prometheus.Gauge
	BroadcastLagged      prometheus.Counter

	ServiceUptime   prometheus.Gauge
	RedisOperations *prometheus.CounterVec

	server *http.Server
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookagg_messages_processed_total",
				Help: "Total number of venue frames successfully parsed into a book update",
			},
			[]string{"venue"},
		),
		ParseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookagg_parse_errors_total",
				Help: "Total number of venue frames that failed to parse",
			},
			[]string{"venue"},
		),
		ProcessingLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bookagg_processing_latency_seconds",
				Help:    "Latency of the fan-in merge+finalize cycle",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"stage"},
		),
		ExchangeStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bookagg_exchange_status",
				Help: "Venue connection status (1=connected, 0=disconnected)",
			},
			[]string{"venue"},
		),
		WebSocketReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookagg_websocket_reconnects_total",
				Help: "Total number of venue WebSocket reconnections",
			},
			[]string{"venue"},
		),
		BroadcastSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bookagg_broadcast_subscribers",
				Help: "Current number of connected RPC subscribers",
			},
		),
		BroadcastLagged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookagg_broadcast_lagged_total",
				Help: "Total number of times a subscriber fell behind the broadcast buffer",
			},
		),
		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bookagg_service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		RedisOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookagg_redis_operations_total",
				Help: "Total number of Redis side-channel publish attempts",
			},
			[]string{"status"},
		),
	}

	prometheus.MustRegister(
		m.MessagesProcessed,
		m.ParseErrors,
		m.ProcessingLatency,
		m.ExchangeStatus,
		m.WebSocketReconnects,
		m.BroadcastSubscribers,
		m.BroadcastLagged,
		m.ServiceUptime,
		m.RedisOperations,
	)

	return m
}

// Start serves /metrics and /health on addr (":PORT" form).
func (m *Metrics) Start(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	m.server = &http.Server{Addr: addr, Handler: mux}

	log.Printf("metrics server listening on %s", addr)
	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the metrics HTTP server.
func (m *Metrics) Stop() error {
	if m.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}

func (m *Metrics) RecordMessageProcessed(venue string) {
	m.MessagesProcessed.WithLabelValues(venue).Inc()
}

func (m *Metrics) RecordParseError(venue string) {
	m.ParseErrors.WithLabelValues(venue).Inc()
}

func (m *Metrics) RecordProcessingLatency(stage string, d time.Duration) {
	m.ProcessingLatency.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) SetExchangeStatus(venue string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	m.ExchangeStatus.WithLabelValues(venue).Set(v)
}

func (m *Metrics) RecordWebSocketReconnect(venue string) {
	m.WebSocketReconnects.WithLabelValues(venue).Inc()
}

// IncBroadcastSubscribers and DecBroadcastSubscribers adjust the gauge by
// one rather than setting an absolute value, so one subscriber disconnecting
// doesn't stomp on the count contributed by others still connected.
func (m *Metrics) IncBroadcastSubscribers() {
	m.BroadcastSubscribers.Inc()
}

func (m *Metrics) DecBroadcastSubscribers() {
	m.BroadcastSubscribers.Dec()
}

func (m *Metrics) RecordBroadcastLagged() {
	m.BroadcastLagged.Inc()
}

func (m *Metrics) SetServiceUptime(uptime time.Duration) {
	m.ServiceUptime.Set(uptime.Seconds())
}

func (m *Metrics) RecordRedisOperation(status string) {
	m.RedisOperations.WithLabelValues(status).Inc()
}
