// Package gateway is the HTTP client for the agromarket authentication and
// profile backend. It implements domain.AuthGateway and domain.ProfileService
// and maps every failure onto the error taxonomy in internal/platform/errors.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/metrics"
	"github.com/pscheid92/agromarket/internal/platform/correlation"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
	"github.com/pscheid92/agromarket/internal/platform/retry"
	"github.com/pscheid92/agromarket/internal/platform/version"
)

const maxResponseBytes = 1 << 20

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int

	// Retry backoff for idempotent reads. Zero values use the defaults below.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Consecutive failures that open the breaker, and how long it stays open.
	BreakerFailures uint
	BreakerDelay    time.Duration

	Clock      clockwork.Clock
	HTTPClient *http.Client
}

const (
	defaultInitialBackoff  = 250 * time.Millisecond
	defaultMaxBackoff      = 2 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerDelay    = 30 * time.Second
)

type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker circuitbreaker.CircuitBreaker[any]
	policy  retry.Policy
}

var (
	_ domain.AuthGateway    = (*Client)(nil)
	_ domain.ProfileService = (*Client)(nil)
)

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid gateway base URL %q", cfg.BaseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	attempts := max(cfg.MaxAttempts, 1)
	initial := cfg.InitialBackoff
	if initial == 0 {
		initial = defaultInitialBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = defaultMaxBackoff
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	delay := cfg.BreakerDelay
	if delay == 0 {
		delay = defaultBreakerDelay
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		breaker: newBreaker(failures, delay),
		policy: retry.Policy{
			MaxAttempts:      attempts,
			InitialBackoff:   initial,
			MaxBackoff:       maxBackoff,
			RateLimitBackoff: 2 * maxBackoff,
			Clock:            cfg.Clock,
		},
	}, nil
}

func newBreaker(failures uint, delay time.Duration) circuitbreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues("gateway").Set(0)

	return circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(failures).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "gateway",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues("gateway", e.NewState.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues("gateway").Set(stateToFloat(e.NewState))
		}).
		Build()
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// BreakerState reports the circuit breaker state (for status output and tests).
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

type call struct {
	route      string
	method     string
	path       string
	token      string
	body       any
	idempotent bool
}

// send performs c with retries for idempotent calls and decodes a success
// body into the response envelope.
func (c *Client) send(ctx context.Context, req call) (*domain.AuthResponse, error) {
	if !req.idempotent {
		return c.attempt(ctx, req)
	}

	policy := c.policy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		metrics.GatewayRetriesTotal.WithLabelValues(req.route).Inc()
		slog.DebugContext(ctx, "Retrying gateway request",
			"route", req.route, "attempt", attempt, "backoff", backoff, "error", err)
	}

	resp, err := retry.Do(ctx, policy, retry.ClassifyError, func(ctx context.Context) (*domain.AuthResponse, error) {
		return c.attempt(ctx, req)
	})
	if err != nil {
		return nil, apperrors.AsStructuredError(err)
	}
	return resp, nil
}

func (c *Client) attempt(ctx context.Context, req call) (*domain.AuthResponse, error) {
	start := time.Now()
	resp, result, err := c.roundTrip(ctx, req)
	metrics.GatewayRequestsTotal.WithLabelValues(req.route, result).Inc()
	metrics.GatewayRequestDuration.WithLabelValues(req.route).Observe(time.Since(start).Seconds())
	return resp, err
}

// roundTrip returns the decoded envelope, the metrics result label and the
// classified error.
func (c *Client) roundTrip(ctx context.Context, req call) (*domain.AuthResponse, string, error) {
	if !c.breaker.TryAcquirePermit() {
		return nil, "breaker_open", apperrors.TransientError("", circuitbreaker.ErrOpen).
			WithField("route", req.route)
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		c.breaker.RecordSuccess()
		return nil, "internal", apperrors.InternalError("", err)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.breaker.RecordError(err)
		return nil, "network", apperrors.TransientError("", fmt.Errorf("%s %s: %w", req.method, req.path, err)).
			WithField("route", req.route)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		c.breaker.RecordError(err)
		return nil, "network", apperrors.TransientError("", fmt.Errorf("failed to read response: %w", err))
	}

	result := statusClass(httpResp.StatusCode)
	if httpResp.StatusCode >= 500 {
		c.breaker.RecordError(fmt.Errorf("backend returned %d", httpResp.StatusCode))
	} else {
		c.breaker.RecordSuccess()
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, result, classify(httpResp.StatusCode, body).WithField("route", req.route)
	}

	envelope := &domain.AuthResponse{}
	if len(bytes.TrimSpace(body)) == 0 {
		return envelope, result, nil
	}
	if err := json.Unmarshal(body, envelope); err != nil {
		slog.WarnContext(ctx, "Undecodable gateway response", "route", req.route, "error", err)
		return nil, "protocol", apperrors.ProtocolError("").WithField("route", req.route)
	}
	return envelope, result, nil
}

func (c *Client) newRequest(ctx context.Context, req call) (*http.Request, error) {
	u := *c.baseURL
	u.Path += req.path

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if id, ok := correlation.ID(ctx); ok {
		httpReq.Header.Set(correlation.HeaderName, id)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	return httpReq, nil
}

// classify maps a non-2xx response onto the error taxonomy, preferring the
// server-supplied message, then its error code.
func classify(status int, body []byte) *apperrors.Error {
	var payload apperrors.ErrorResponse
	_ = json.Unmarshal(body, &payload)

	msg := strings.TrimSpace(payload.Message)
	if msg == "" {
		msg = strings.TrimSpace(payload.Error)
	}
	return apperrors.FromStatus(status, msg, fmt.Errorf("backend returned %d", status))
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

var errNoToken = errors.New("access token is required")
