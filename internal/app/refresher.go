package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/platform/correlation"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultRefreshLeeway   = 2 * time.Minute
)

type tokenSession interface {
	Snapshot() domain.Session
	RefreshTokens(ctx context.Context) error
}

// TokenRefresher periodically refreshes the access token shortly before it
// expires. Opaque tokens without a readable exp claim are left alone.
type TokenRefresher struct {
	sessions tokenSession
	clock    clockwork.Clock
	interval time.Duration
	leeway   time.Duration
}

func NewTokenRefresher(sessions tokenSession, clock clockwork.Clock, interval, leeway time.Duration) *TokenRefresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if leeway <= 0 {
		leeway = DefaultRefreshLeeway
	}
	return &TokenRefresher{
		sessions: sessions,
		clock:    clock,
		interval: interval,
		leeway:   leeway,
	}
}

// Run starts the refresh loop. It blocks until ctx is cancelled.
func (r *TokenRefresher) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.check(ctx)
		}
	}
}

// check refreshes when the token expires within the leeway. It reports
// whether a refresh was attempted.
func (r *TokenRefresher) check(ctx context.Context) bool {
	snap := r.sessions.Snapshot()
	if snap.AccessToken == "" || snap.RefreshToken == "" {
		return false
	}

	exp, ok := TokenExpiry(snap.AccessToken)
	if !ok || r.clock.Now().Add(r.leeway).Before(exp) {
		return false
	}

	tickCtx := correlation.WithID(ctx, correlation.NewID())
	if err := r.sessions.RefreshTokens(tickCtx); err != nil {
		slog.WarnContext(tickCtx, "Background token refresh failed", "expires_at", exp, "error", err)
		return true
	}
	slog.DebugContext(tickCtx, "Refreshed access token", "previous_expiry", exp)
	return true
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The client can not verify tokens; the result is a scheduling hint only.
func TokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
