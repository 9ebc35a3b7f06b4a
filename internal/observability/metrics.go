// Package observability exposes the bot's Prometheus collectors.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tripbot"

var (
	validationRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_rejections_total",
		Help:      "Driver inputs rejected by the odometer and weight validators, by rejection code.",
	}, []string{"code"})
	storageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_errors_total",
		Help:      "Failed trip log or fleet table writes, by operation.",
	}, []string{"op"})
	readingsStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_stored_total",
		Help:      "Readings appended to trip logs, by event type.",
	}, []string{"event"})
	tripsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trips_completed_total",
		Help:      "Trips closed with a trip-end reading, by truck.",
	}, []string{"truck"})
	sessionsCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_cancelled_total",
		Help:      "Conversations ended through /cancel.",
	})
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Users with a conversation in progress.",
	})
)

func init() {
	prometheus.MustRegister(
		validationRejections,
		storageErrors,
		readingsStored,
		tripsCompleted,
		sessionsCancelled,
		activeSessions,
	)
}

// RecordValidationRejection counts a rejected input.
func RecordValidationRejection(code string) {
	if code == "" {
		code = "unknown"
	}
	validationRejections.WithLabelValues(code).Inc()
}

// RecordStorageError counts a failed store call; op is "trip.append" or "fleet.set" and the like.
func RecordStorageError(op string) {
	storageErrors.WithLabelValues(op).Inc()
}

// RecordReadingStored counts a persisted reading.
func RecordReadingStored(event string) {
	readingsStored.WithLabelValues(event).Inc()
}

// RecordTripCompleted counts a finished trip.
func RecordTripCompleted(truck string) {
	tripsCompleted.WithLabelValues(truck).Inc()
}

// RecordSessionCancelled counts a session ended by cancel.
func RecordSessionCancelled() {
	sessionsCancelled.Inc()
}

// SetActiveSessions publishes the current session count.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
