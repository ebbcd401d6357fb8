package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/filedeck/pkg/metrics"
)

// sessionMetrics is the Prometheus implementation of metrics.SessionMetrics.
type sessionMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	activeConnections      prometheus.Gauge
	activeSessions         prometheus.Gauge
	commands               *prometheus.CounterVec
	commandDuration        *prometheus.HistogramVec
	bytesTransferred       *prometheus.CounterVec
	logins                 *prometheus.CounterVec
	registrations          *prometheus.CounterVec
	indexRefreshes         *prometheus.CounterVec
	indexDuration          prometheus.Histogram
	indexEntries           prometheus.Gauge
}

// NewSessionMetrics creates a Prometheus-backed SessionMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSessionMetrics() metrics.SessionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()
	f := promauto.With(reg)

	return &sessionMetrics{
		connectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "filedeck_connections_accepted_total",
			Help: "Total number of accepted client connections",
		}),
		connectionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "filedeck_connections_closed_total",
			Help: "Total number of closed client connections",
		}),
		connectionsForceClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "filedeck_connections_force_closed_total",
			Help: "Connections closed because the shutdown timeout expired",
		}),
		activeConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "filedeck_connections_active",
			Help: "Number of currently open client connections",
		}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "filedeck_sessions_active",
			Help: "Number of sessions with a logged-in user",
		}),
		commands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedeck_commands_total",
				Help: "Handled command tokens by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		commandDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "filedeck_command_duration_milliseconds",
				Help: "Command handling time in milliseconds, including client round trips",
				Buckets: []float64{
					0.5,   // cursor moves
					5,     // small file ops
					25,    // listings
					100,   // index refresh on a mid-size tree
					500,   // medium transfers
					2500,  // large transfers
					10000, // delete confirmations waiting on a human
				},
			},
			[]string{"command"},
		),
		bytesTransferred: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedeck_bytes_transferred_total",
				Help: "File payload bytes by direction (in = upload, out = download)",
			},
			[]string{"direction"},
		),
		logins: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedeck_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		registrations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedeck_registrations_total",
				Help: "Registration requests by outcome",
			},
			[]string{"outcome"},
		),
		indexRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedeck_index_refreshes_total",
				Help: "Path index rebuilds by result",
			},
			[]string{"result"},
		),
		indexDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "filedeck_index_refresh_duration_milliseconds",
			Help:    "Time spent walking and writing the path index",
			Buckets: prometheus.ExponentialBuckets(0.25, 4, 8),
		}),
		indexEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "filedeck_index_entries",
			Help: "Entries written by the most recent path index rebuild",
		}),
	}
}

func (m *sessionMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *sessionMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *sessionMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.connectionsForceClosed.Inc()
}

func (m *sessionMetrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *sessionMetrics) SetActiveSessions(count int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(count))
}

func (m *sessionMetrics) RecordCommand(command, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
	m.commandDuration.WithLabelValues(command).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *sessionMetrics) RecordBytesTransferred(direction string, bytes int) {
	if m == nil {
		return
	}
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *sessionMetrics) RecordLogin(success bool) {
	if m == nil {
		return
	}
	result := "fail"
	if success {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *sessionMetrics) RecordRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *sessionMetrics) RecordIndexRefresh(duration time.Duration, entries int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.indexRefreshes.WithLabelValues("error").Inc()
		return
	}
	m.indexRefreshes.WithLabelValues("ok").Inc()
	m.indexDuration.Observe(float64(duration.Microseconds()) / 1000.0)
	m.indexEntries.Set(float64(entries))
}
