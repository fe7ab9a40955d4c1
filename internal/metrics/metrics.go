package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Operation Metrics
var (
	// SessionOperationsTotal tracks session manager operations by operation and result
	SessionOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_operations_total",
			Help: "Total session operations by operation (login/register/otp_send/otp_verify/logout/refresh/...) and result (error type or success)",
		},
		[]string{"operation", "result"},
	)

	// SessionOperationDuration tracks session operation latency in seconds
	SessionOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_operation_duration_seconds",
			Help:    "Session operation duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// SessionRestoreOutcomes tracks how restoration ended
	SessionRestoreOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_restore_outcomes_total",
			Help: "Session restore outcomes (no_token/verified/kept_cached/kept_hydrated/cleared/discarded/store_error)",
		},
		[]string{"outcome"},
	)

	// SessionStaleResultsDiscarded tracks results dropped because the session epoch advanced
	SessionStaleResultsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_stale_results_discarded_total",
			Help: "Results discarded because logout or a new login happened while they were in flight",
		},
		[]string{"source"},
	)

	// ProfileBackfillTotal tracks background profile fetches by result
	ProfileBackfillTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_backfill_total",
			Help: "Background profile backfills by result (success/error/deduplicated)",
		},
		[]string{"result"},
	)

	// SessionSubscribers tracks current facade subscribers
	SessionSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_subscribers_current",
			Help: "Current number of session snapshot subscribers",
		},
	)
)

// Gateway Metrics
var (
	// GatewayRequestsTotal tracks outgoing backend requests by route and result
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total backend requests by route and result (HTTP status class or error type)",
		},
		[]string{"route", "result"},
	)

	// GatewayRequestDuration tracks backend request latency in seconds
	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15},
		},
		[]string{"route"},
	)

	// GatewayRetriesTotal tracks retries of idempotent backend reads
	GatewayRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_retries_total",
			Help: "Total retries of idempotent backend requests by route",
		},
		[]string{"route"},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Credential Store Metrics
var (
	// StoreOpsTotal tracks credential store batch operations by backend, operation and status
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_store_operations_total",
			Help: "Total credential store batch operations by backend, operation (get/set/remove) and status",
		},
		[]string{"backend", "operation", "status"},
	)

	// StoreOpDuration tracks credential store batch latency in seconds
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credential_store_operation_duration_seconds",
			Help:    "Credential store batch duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// RedisOpsTotal tracks total Redis commands by command name and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// DBConnectionsCurrent tracks current database connections by state
	DBConnectionsCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_connections_current",
			Help: "Current database connections by state (active/idle)",
		},
		[]string{"state"},
	)
)

// Sandbox Backend Metrics
var (
	// SandboxRequestsTotal tracks sandbox HTTP requests by route and status code
	SandboxRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_http_requests_total",
			Help: "Total sandbox HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	// SandboxOTPIssued tracks one-time codes issued by channel
	SandboxOTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_otp_issued_total",
			Help: "Total one-time codes issued by channel (sms/email)",
		},
		[]string{"channel"},
	)

	// SandboxRateLimited tracks requests rejected by the sandbox rate limiter
	SandboxRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sandbox_rate_limited_total",
			Help: "Total sandbox requests rejected by the rate limiter",
		},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)
