// Package observability exposes Prometheus metrics for the activity engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	liveTimers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "starcards",
		Subsystem: "scheduler",
		Name:      "live_timers",
		Help:      "Number of activity timers currently armed.",
	})

	completions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starcards",
		Subsystem: "scheduler",
		Name:      "completions_total",
		Help:      "Completions run by the scheduler, labeled by kind and result (done, rescheduled, error, vanished).",
	}, []string{"kind", "result"})

	completionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "starcards",
		Subsystem: "scheduler",
		Name:      "completion_duration_seconds",
		Help:      "Time spent inside rule completions.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"kind"})

	started = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starcards",
		Subsystem: "activity",
		Name:      "started_total",
		Help:      "Activity records created, labeled by kind.",
	}, []string{"kind"})

	cancelled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starcards",
		Subsystem: "activity",
		Name:      "cancelled_total",
		Help:      "Activities cancelled and refunded, labeled by kind.",
	}, []string{"kind"})

	resumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "starcards",
		Subsystem: "activity",
		Name:      "resumed_total",
		Help:      "Activity timers re-armed from storage at startup.",
	})
)

func init() {
	prometheus.MustRegister(liveTimers, completions, completionDuration, started, cancelled, resumed)
}

// TimerArmed records a newly armed timer.
func TimerArmed() { liveTimers.Inc() }

// TimerReleased records a timer leaving the live set.
func TimerReleased() { liveTimers.Dec() }

// CompletionFinished records one completion attempt.
func CompletionFinished(kind, result string, elapsed time.Duration) {
	completions.WithLabelValues(kind, result).Inc()
	completionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ActivityStarted counts a created record.
func ActivityStarted(kind string) { started.WithLabelValues(kind).Inc() }

// ActivityCancelled counts a cancelled record.
func ActivityCancelled(kind string) { cancelled.WithLabelValues(kind).Inc() }

// ActivitiesResumed counts records re-armed at startup.
func ActivitiesResumed(n int) {
	if n <= 0 {
		return
	}
	resumed.Add(float64(n))
}
