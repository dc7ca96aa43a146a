package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for the bridge's upstream traffic
var (
	NotificationsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_notifications_dispatched_total",
			Help: "Total number of notifications dispatched upstream, by target and lifecycle state",
		},
		[]string{"target", "lifecycle_state"},
	)

	UpstreamFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_upstream_failures_total",
			Help: "Total number of failed upstream SDK calls, by method",
		},
		[]string{"method"},
	)

	AcknowledgmentTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_acknowledgment_timeouts_total",
			Help: "Total number of platform acknowledgments that did not return in time",
		},
	)

	TokenRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_token_registrations_total",
			Help: "Total number of device token registration attempts, by outcome",
		},
		[]string{"outcome"},
	)

	RegularOpensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_regular_opens_total",
			Help: "Total number of regular open signals sent upstream",
		},
	)

	CommerceEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_commerce_events_total",
			Help: "Total number of commerce events forwarded upstream, by type",
		},
		[]string{"type"},
	)

	DebugEventsRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_debug_events_recorded_total",
			Help: "Total number of debug events recorded in this session",
		},
	)

	PlatformEventProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_platform_event_processing_duration_seconds",
			Help:    "Duration of platform event processing",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests served, by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests, by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(NotificationsDispatchedTotal)
		prometheus.MustRegister(UpstreamFailuresTotal)
		prometheus.MustRegister(AcknowledgmentTimeoutsTotal)
		prometheus.MustRegister(TokenRegistrationsTotal)
		prometheus.MustRegister(RegularOpensTotal)
		prometheus.MustRegister(CommerceEventsTotal)
		prometheus.MustRegister(DebugEventsRecordedTotal)
		prometheus.MustRegister(PlatformEventProcessingDuration)
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
	})
}
