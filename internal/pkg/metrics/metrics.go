package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every simulator collector. It is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// SessionsActive is the number of TLS sessions on the control port.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "p2s_sim_sessions_active",
			Help: "Number of open control sessions.",
		},
	)

	// SessionsAuthenticated is the number of sessions that completed CONNECT.
	SessionsAuthenticated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "p2s_sim_sessions_authenticated",
			Help: "Number of control sessions that passed authentication.",
		},
	)

	PacketsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2s_sim_packets_received_total",
			Help: "Control packets received, by packet type.",
		},
		[]string{"type"},
	)

	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2s_sim_auth_attempts_total",
			Help: "CONNECT attempts, by result (accepted/refused).",
		},
		[]string{"result"},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2s_sim_commands_total",
			Help: "JSON commands handled, by command and result.",
		},
		[]string{"command", "result"},
	)

	CommandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "p2s_sim_command_latency_seconds",
			Help:    "Time spent applying a command to the printer.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		},
		[]string{"command"},
	)

	TLSHandshakeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2s_sim_tls_handshake_failures_total",
			Help: "Failed TLS handshakes, by listener (control/stream).",
		},
		[]string{"listener"},
	)

	BroadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "p2s_sim_status_broadcasts_total",
			Help: "Full status pushes written to authenticated sessions.",
		},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "p2s_sim_stream_clients",
			Help: "Number of connected camera stream clients.",
		},
	)

	StreamFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "p2s_sim_stream_frames_total",
			Help: "Synthetic JPEG frames sent.",
		},
	)

	WatchClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "p2s_sim_watch_clients",
			Help: "Number of websocket clients following /api/v1/watch.",
		},
	)

	// PrinterStatus is 1 for the current print status and 0 for the others.
	PrinterStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "p2s_sim_printer_status",
			Help: "Current print status (1 for the active one).",
		},
		[]string{"status"},
	)

	PrintJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2s_sim_print_jobs_total",
			Help: "Finished print jobs, by result (success/failed).",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		SessionsActive,
		SessionsAuthenticated,
		PacketsReceivedTotal,
		AuthAttemptsTotal,
		CommandsTotal,
		CommandLatency,
		TLSHandshakeFailuresTotal,
		BroadcastsTotal,
		StreamClients,
		StreamFramesTotal,
		WatchClients,
		PrinterStatus,
		PrintJobsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// SetPrinterStatus marks current as the only active status.
func SetPrinterStatus(current string, all ...string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		PrinterStatus.WithLabelValues(s).Set(v)
	}
}
