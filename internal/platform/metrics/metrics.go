package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	MembersCreated      prometheus.Counter
	MembersApproved     prometheus.Counter
	MembersRejected     prometheus.Counter
	AllocationConflicts prometheus.Counter
	LoginAttempts       prometheus.Counter
	LoginFailures       prometheus.Counter
	EventCheckIns       prometheus.Counter
	AuditRelayPublished prometheus.Counter
	AuditRelayFailures  prometheus.Counter

	RequestDuration *prometheus.HistogramVec
}

// New creates all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registerer. Tests pass a fresh
// prometheus.NewRegistry so parallel suites don't collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MembersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_members_created_total",
			Help: "Total number of members created.",
		}),
		MembersApproved: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_members_approved_total",
			Help: "Total number of members approved.",
		}),
		MembersRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_members_rejected_total",
			Help: "Total number of members rejected.",
		}),
		AllocationConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_member_number_conflicts_total",
			Help: "Member number allocations that lost a race and were retried.",
		}),
		LoginAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_login_attempts_total",
			Help: "Total login attempts.",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_login_failures_total",
			Help: "Failed login attempts.",
		}),
		EventCheckIns: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_event_checkins_total",
			Help: "Total successful event check-ins.",
		}),
		AuditRelayPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_audit_relay_published_total",
			Help: "Audit entries published to the broker by the relay.",
		}),
		AuditRelayFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "memberd_audit_relay_failures_total",
			Help: "Audit relay publish failures.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memberd_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}
