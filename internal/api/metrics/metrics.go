// Package metrics defines and registers all custom Prometheus metrics for
// the visit-auth service. It is the single source of truth for metric names,
// labels, and help strings. Everything registers on the default registry at
// package init via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "visitauth"

// ── Authentication metrics ────────────────────────────────────────────────────

// SignInAttemptsTotal counts credential verification attempts.
// Label:
//   - result: "authorized", "rejected", or "error"
//
// There is no per-login rate limiting in this service; this counter is the
// only visibility into brute-force pressure.
var SignInAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signin_attempts_total",
		Help:      "Total number of Basic-auth sign-in attempts, by result.",
	},
	[]string{"result"},
)

// SignInDuration measures end-to-end sign-in handling, KDF included.
var SignInDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "signin_duration_seconds",
		Help:      "Duration of sign-in handling from header parse to response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// SignUpsTotal counts completed credential enrolments.
var SignUpsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of successfully enrolled credentials.",
	},
)

// ── Visit metrics ─────────────────────────────────────────────────────────────

// VisitsTrackedTotal counts visits recorded per request path.
var VisitsTrackedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "visits_tracked_total",
		Help:      "Total number of visits recorded, by request path.",
	},
	[]string{"path"},
)

// VisitTrackingFailuresTotal counts tracking attempts that were swallowed.
// Tracking is best-effort, so these never surface to clients.
var VisitTrackingFailuresTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "visit_tracking_failures_total",
		Help:      "Total number of visit tracking attempts that failed and were swallowed.",
	},
)

// ConfirmationsTotal counts confirmation attempts by outcome.
// Label:
//   - outcome: "confirmed", "already_confirmed", "invalid_code",
//     "session_expired", "empty_code", or "error"
var ConfirmationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmations_total",
		Help:      "Total number of visit confirmation attempts, by outcome.",
	},
	[]string{"outcome"},
)
