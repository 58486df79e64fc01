// Package metrics defines and registers all custom Prometheus metrics for the
// fixly session layer and its API. It is the single source of truth for metric
// names, labels, and help strings.
//
// All metrics register with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fixly"

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "invalid_credentials", "failed", "network"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// LogoutsTotal counts effective logouts (storage actually cleared).
// Label:
//   - reason: "user", "expired"
var LogoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_logouts_total",
		Help:      "Total number of effective logouts, by reason.",
	},
	[]string{"reason"},
)

// IdentityRefreshTotal counts identity refresh round trips.
// Label:
//   - result: "ok", "rejected", "transient"
var IdentityRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_identity_refresh_total",
		Help:      "Total number of identity refresh calls, by result.",
	},
	[]string{"result"},
)

// ── Transport metrics ─────────────────────────────────────────────────────────

// TransportRequestsTotal counts outbound requests.
// Label:
//   - outcome: "2xx", "4xx", "5xx", "network", "timeout"
var TransportRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transport_requests_total",
		Help:      "Total number of outbound requests, by outcome.",
	},
	[]string{"outcome"},
)

// TransportRequestDuration measures outbound request latency.
var TransportRequestDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transport_request_duration_seconds",
		Help:      "Duration of outbound requests made through the authenticated transport.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Access control metrics ────────────────────────────────────────────────────

// AccessDenialsTotal counts denied section checks.
// Label:
//   - section: the section id that was refused
var AccessDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acl_denials_total",
		Help:      "Total number of denied section checks, by section.",
	},
	[]string{"section"},
)

// ── Repair metrics ────────────────────────────────────────────────────────────

// RepairDeletionsTotal counts deletion requests that reached the service.
// Label:
//   - result: "deleted", "not_found", "not_archived", "error"
var RepairDeletionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "repair_deletions_total",
		Help:      "Total number of archived repair deletion attempts, by result.",
	},
	[]string{"result"},
)
