// Package metrics defines and registers all custom Prometheus metrics for the
// auth broker. It is the single source of truth for metric names, labels, and
// help strings; promauto registers everything with the default registry at
// package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authd"

// LoginAttemptsTotal counts authentication attempts.
// Labels:
//   - method: "password", "evm_wallet", "solana_wallet", or "admin"
//   - result: "ok", "unauthorized", or "rate_limited"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by method and result.",
	},
	[]string{"method", "result"},
)

// SessionsIssuedTotal counts sessions minted by the token issuer.
// Label:
//   - session_type: "auth" or "reset_credential"
var SessionsIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_issued_total",
		Help:      "Total number of auth sessions issued, by session type.",
	},
	[]string{"session_type"},
)

// ChallengesIssuedTotal counts proof-of-possession challenges handed out.
var ChallengesIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "challenges_issued_total",
		Help:      "Total number of auth challenges issued.",
	},
)

// ChallengeConsumeTotal counts challenge consumption outcomes.
// Label:
//   - result: "ok", "rejected" (missing/expired/resolved/mismatch), or "lost_race"
var ChallengeConsumeTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "challenge_consume_total",
		Help:      "Total number of challenge consumption attempts, by result.",
	},
	[]string{"result"},
)

// TokenValidationDuration measures bearer-token validation end-to-end,
// including the session lookups.
// Label:
//   - result: "ok" or "unauthorized"
var TokenValidationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "token_validation_duration_seconds",
		Help:      "Duration of bearer token validation, including store lookups.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// MailQueueDepth tracks the pending messages in each mail dispatcher worker.
// Label:
//   - worker_id: numeric worker index
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of messages pending in each mail dispatcher worker.",
	},
	[]string{"worker_id"},
)
