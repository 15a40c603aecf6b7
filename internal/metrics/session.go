package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rtspcam",
		Subsystem: "session",
		Name:      "starts_total",
		Help:      "Session start attempts by outcome",
	}, []string{"result"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rtspcam",
		Subsystem: "session",
		Name:      "active",
		Help:      "Sessions with both children running",
	})

	sessionStartupSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rtspcam",
		Subsystem: "session",
		Name:      "startup_seconds",
		Help:      "Time from StartSession to a running transcoder",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	sessionCollapses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rtspcam",
		Subsystem: "session",
		Name:      "collapses_total",
		Help:      "Sessions torn down because a child exited unexpectedly",
	}, []string{"role"})

	probeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rtspcam",
		Subsystem: "probe",
		Name:      "attempts_total",
		Help:      "Media server readiness probes by mode and outcome",
	}, []string{"mode", "result"})

	childExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rtspcam",
		Subsystem: "process",
		Name:      "exits_total",
		Help:      "Child process exits by role and whether a stop was requested",
	}, []string{"role", "requested"})

	terminationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rtspcam",
		Subsystem: "process",
		Name:      "termination_failures_total",
		Help:      "Children that survived a forced kill",
	}, []string{"role"})
)

// RecordSessionStart counts a StartSession outcome ("ok" or an error kind).
func RecordSessionStart(result string) {
	sessionStarts.WithLabelValues(result).Inc()
}

// ObserveStartup records how long a successful start took.
func ObserveStartup(d time.Duration) {
	sessionStartupSeconds.Observe(d.Seconds())
}

// SessionActive adjusts the active session gauge by delta.
func SessionActive(delta float64) {
	sessionsActive.Add(delta)
}

// RecordCollapse counts a session collapse caused by role.
func RecordCollapse(role string) {
	sessionCollapses.WithLabelValues(role).Inc()
}

// RecordProbe counts one readiness probe.
func RecordProbe(mode string, ok bool) {
	result := "fail"
	if ok {
		result = "ok"
	}
	probeAttempts.WithLabelValues(mode, result).Inc()
}

// RecordChildExit counts a child exit.
func RecordChildExit(role string, requested bool) {
	label := "false"
	if requested {
		label = "true"
	}
	childExits.WithLabelValues(role, label).Inc()
}

// RecordTerminationFailure counts a child that could not be killed.
func RecordTerminationFailure(role string) {
	terminationFailures.WithLabelValues(role).Inc()
}
