package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	emergenciesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospitales_emergencies_created_total",
			Help: "Total number of emergencies registered",
		},
		[]string{"critical"},
	)

	emergencyTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospitales_emergency_transitions_total",
			Help: "Total number of applied emergency state changes",
		},
		[]string{"from", "to"},
	)

	emergencyTransitionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospitales_emergency_transition_rejections_total",
			Help: "Total number of rejected emergency state changes",
		},
		[]string{"reason"},
	)

	notificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospitales_notifications_dispatched_total",
			Help: "Total number of notifications persisted by the alert dispatcher",
		},
		[]string{"category"},
	)

	notificationDispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospitales_notification_dispatch_failures_total",
			Help: "Total number of failed alert dispatch steps",
		},
		[]string{"operation"},
	)

	vitalsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospitales_vitals_recorded_total",
			Help: "Total number of vital readings persisted",
		},
		[]string{"type", "verdict"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func TrackInFlight() func() {
	httpRequestsInFlight.Inc()
	return httpRequestsInFlight.Dec
}

// ObserveHTTP records one finished request. path should be the route
// template so ids do not explode cardinality.
func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// --- Business metric helpers ---

func RecordEmergencyCreated(critical bool) {
	emergenciesCreated.WithLabelValues(strconv.FormatBool(critical)).Inc()
}

func RecordTransition(from, to string) {
	emergencyTransitions.WithLabelValues(from, to).Inc()
}

// RecordTransitionRejected counts a refused state change; reason is
// "invalid_state" or "forbidden".
func RecordTransitionRejected(reason string) {
	emergencyTransitionRejections.WithLabelValues(reason).Inc()
}

func RecordNotificationsDispatched(category string, n int) {
	if n <= 0 {
		return
	}
	notificationsDispatched.WithLabelValues(category).Add(float64(n))
}

func RecordDispatchFailure(operation string) {
	notificationDispatchFailures.WithLabelValues(operation).Inc()
}

func RecordVital(vitalType, verdict string) {
	vitalsRecorded.WithLabelValues(vitalType, verdict).Inc()
}
