// Package metrics exposes Prometheus collectors for the booking bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of booking pipeline runs labeled by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)
	pipelineDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "Duration of booking pipeline runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)
	bookingAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_attempts_total",
			Help: "Total number of reservation attempts labeled by result",
		},
		[]string{"result"},
	)
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of outbound chat messages labeled by status",
		},
		[]string{"status"},
	)
	subscribersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscribers",
			Help: "Current number of subscribed chat identities",
		},
	)
)

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordPipelineRun tracks one full booking run from fetch to notification.
func RecordPipelineRun(trigger, outcome string, duration time.Duration) {
	if trigger == "" {
		trigger = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}

	pipelineRunsTotal.WithLabelValues(trigger, outcome).Inc()
	pipelineDurationSeconds.Observe(duration.Seconds())
}

// RecordBookingAttempt counts a single reservation attempt.
func RecordBookingAttempt(result string) {
	if result == "" {
		result = "unknown"
	}

	bookingAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordNotification counts one outbound chat message delivery.
func RecordNotification(status string) {
	if status == "" {
		status = "unknown"
	}

	notificationsTotal.WithLabelValues(status).Inc()
}

// SetSubscribers updates the subscriber count gauge.
func SetSubscribers(count int) {
	subscribersGauge.Set(float64(count))
}
