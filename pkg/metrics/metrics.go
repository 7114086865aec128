package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TenantLookups counts directory lookups by outcome (hit|miss|error).
	TenantLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "centry_tenant_lookups_total",
			Help: "Total number of tenant directory lookups",
		},
		[]string{"result"},
	)

	// AccessChecks counts membership verifications and their outcome (allow|deny|error).
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "centry_access_checks_total",
			Help: "Total number of tenant access checks",
		},
		[]string{"result"},
	)

	// InvitesIssued counts invite creations by delivery outcome (delivered|undelivered).
	InvitesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "centry_invites_issued_total",
			Help: "Total number of invites issued",
		},
		[]string{"delivery"},
	)

	// InviteRedemptions counts redemption attempts by result
	// (success|not_found|expired|already_used|email_mismatch|error).
	InviteRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "centry_invite_redemptions_total",
			Help: "Total number of invite redemption attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "centry_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
