package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	clientCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "p4bridge",
			Subsystem: "client",
			Name:      "commands_total",
			Help:      "Commands forwarded to remote shells.",
		},
		[]string{"switch"},
	)
	clientCommandFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "p4bridge",
			Subsystem: "client",
			Name:      "command_failures_total",
			Help:      "Commands that failed: rejected, timed out, or lost to a closed connection.",
		},
		[]string{"switch"},
	)
	clientSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "p4bridge",
			Subsystem: "client",
			Name:      "open_sessions",
			Help:      "Remote shell sessions currently open.",
		},
		[]string{"switch"},
	)
	serverCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "p4bridge",
			Subsystem: "server",
			Name:      "commands_total",
			Help:      "Commands executed by the shell server, by outcome.",
		},
		[]string{"program", "outcome"},
	)
	serverCommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "p4bridge",
			Subsystem: "server",
			Name:      "command_duration_seconds",
			Help:      "Time spent executing one command against the pipeline.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"program"},
	)
	serverSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "p4bridge",
			Subsystem: "server",
			Name:      "sessions_total",
			Help:      "Shell server sessions, by acknowledgment mode.",
		},
		[]string{"program", "acks"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			clientCommands, clientCommandFailures, clientSessions,
			serverCommands, serverCommandDuration, serverSessions,
		)
	})
}

func RecordCommandSent(switchName string) {
	RegisterMetrics()
	clientCommands.WithLabelValues(switchName).Inc()
}

func RecordCommandFailed(switchName string) {
	RegisterMetrics()
	clientCommandFailures.WithLabelValues(switchName).Inc()
}

func RecordSessionOpen(switchName string) {
	RegisterMetrics()
	clientSessions.WithLabelValues(switchName).Inc()
}

func RecordSessionClose(switchName string) {
	RegisterMetrics()
	clientSessions.WithLabelValues(switchName).Dec()
}

func RecordServerCommand(program string, ok bool, duration time.Duration) {
	RegisterMetrics()
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	serverCommands.WithLabelValues(program, outcome).Inc()
	serverCommandDuration.WithLabelValues(program).Observe(duration.Seconds())
}

func RecordServerSession(program string, acks bool) {
	RegisterMetrics()
	serverSessions.WithLabelValues(program, strconv.FormatBool(acks)).Inc()
}
