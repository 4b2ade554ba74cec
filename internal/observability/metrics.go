package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	activeSessions      prometheus.Gauge
	sessionsOpenedTotal prometheus.Counter
	sessionsClosedTotal *prometheus.CounterVec
	sessionsPrunedTotal prometheus.Counter
	handshakeFailures   prometheus.Counter

	broadcastTotal        *prometheus.CounterVec
	broadcastWriteFailure *prometheus.CounterVec
	broadcastDuration     *prometheus.HistogramVec

	historyEntries        prometheus.Gauge
	historyReplaysTotal   prometheus.Counter
	historyReplayDuration prometheus.Histogram

	linesReceivedTotal *prometheus.CounterVec

	gatewayConnectionsTotal prometheus.Counter
	gatewayActiveConns      prometheus.Gauge

	bulletinReloadsTotal *prometheus.CounterVec
	announcementsTotal   prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_sessions",
					Help: "Current registered session count.",
				},
			),
			sessionsOpenedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "sessions_opened_total",
					Help: "Total sessions accepted since start.",
				},
			),
			sessionsClosedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sessions_closed_total",
					Help: "Total sessions ended by reason.",
				},
				[]string{"reason"},
			),
			sessionsPrunedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "sessions_pruned_total",
					Help: "Total sessions removed after a failed broadcast write.",
				},
			),
			handshakeFailures: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "handshake_failures_total",
					Help: "Total sessions that ended before presenting a usable name.",
				},
			),
			broadcastTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "broadcast_total",
					Help: "Total broadcast envelopes by kind.",
				},
				[]string{"kind"},
			),
			broadcastWriteFailure: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "broadcast_write_failures_total",
					Help: "Total per-session write failures during broadcast by kind.",
				},
				[]string{"kind"},
			),
			broadcastDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "broadcast_duration_seconds",
					Help:    "Broadcast fan-out duration in seconds by kind.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"kind"},
			),
			historyEntries: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "history_entries",
					Help: "Current history log length.",
				},
			),
			historyReplaysTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "history_replays_total",
					Help: "Total history replays served to late joiners.",
				},
			),
			historyReplayDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "history_replay_duration_seconds",
					Help:    "History replay duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			linesReceivedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lines_received_total",
					Help: "Total inbound lines by parse outcome.",
				},
				[]string{"outcome"},
			),
			gatewayConnectionsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "gateway_connections_total",
					Help: "Total WebSocket gateway connections accepted.",
				},
			),
			gatewayActiveConns: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "gateway_active_connections",
					Help: "Current WebSocket gateway connection count.",
				},
			),
			bulletinReloadsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "bulletin_reloads_total",
					Help: "Total bulletin file reloads by status.",
				},
				[]string{"status"},
			),
			announcementsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "announcements_total",
					Help: "Total scheduled announcements broadcast.",
				},
			),
		}

		prometheus.MustRegister(
			m.activeSessions,
			m.sessionsOpenedTotal,
			m.sessionsClosedTotal,
			m.sessionsPrunedTotal,
			m.handshakeFailures,
			m.broadcastTotal,
			m.broadcastWriteFailure,
			m.broadcastDuration,
			m.historyEntries,
			m.historyReplaysTotal,
			m.historyReplayDuration,
			m.linesReceivedTotal,
			m.gatewayConnectionsTotal,
			m.gatewayActiveConns,
			m.bulletinReloadsTotal,
			m.announcementsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordSessionOpened(active int) {
	m := getMetrics()
	m.sessionsOpenedTotal.Inc()
	m.activeSessions.Set(float64(active))
}

func RecordSessionClosed(reason string, active int) {
	m := getMetrics()
	m.sessionsClosedTotal.WithLabelValues(reason).Inc()
	m.activeSessions.Set(float64(active))
}

func RecordSessionPruned(active int) {
	m := getMetrics()
	m.sessionsPrunedTotal.Inc()
	m.activeSessions.Set(float64(active))
}

func RecordHandshakeFailure() {
	m := getMetrics()
	m.handshakeFailures.Inc()
}

func RecordBroadcast(kind string, duration time.Duration, failed int) {
	m := getMetrics()
	m.broadcastTotal.WithLabelValues(kind).Inc()
	m.broadcastDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if failed > 0 {
		m.broadcastWriteFailure.WithLabelValues(kind).Add(float64(failed))
	}
}

func SetHistoryEntries(total int) {
	m := getMetrics()
	m.historyEntries.Set(float64(total))
}

func RecordHistoryReplay(duration time.Duration) {
	m := getMetrics()
	m.historyReplaysTotal.Inc()
	m.historyReplayDuration.Observe(duration.Seconds())
}

func RecordLineReceived(outcome string) {
	m := getMetrics()
	m.linesReceivedTotal.WithLabelValues(outcome).Inc()
}

func RecordGatewayConnectionOpened(active int) {
	m := getMetrics()
	m.gatewayConnectionsTotal.Inc()
	m.gatewayActiveConns.Set(float64(active))
}

func RecordGatewayConnectionClosed(active int) {
	m := getMetrics()
	m.gatewayActiveConns.Set(float64(active))
}

func RecordBulletinReload(success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.bulletinReloadsTotal.WithLabelValues(status).Inc()
}

func RecordAnnouncement() {
	m := getMetrics()
	m.announcementsTotal.Inc()
}
