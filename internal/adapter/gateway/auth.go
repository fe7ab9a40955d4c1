package gateway

import (
	"context"
	"net/http"

	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
)

func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	return c.send(ctx, call{route: "login", method: http.MethodPost, path: "/auth/login", body: req})
}

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	return c.send(ctx, call{route: "register", method: http.MethodPost, path: "/auth/register", body: req})
}

func (c *Client) SendOTP(ctx context.Context, req domain.OTPSendRequest) (*domain.AuthResponse, error) {
	return c.send(ctx, call{route: "otp_send", method: http.MethodPost, path: "/auth/otp/send", body: req})
}

func (c *Client) VerifyOTP(ctx context.Context, req domain.OTPVerifyRequest) (*domain.AuthResponse, error) {
	return c.send(ctx, call{route: "otp_verify", method: http.MethodPost, path: "/auth/otp/verify", body: req})
}

// VerifySession is retried on transient failures; it has no side effects.
func (c *Client) VerifySession(ctx context.Context, accessToken string) (*domain.AuthResponse, error) {
	if accessToken == "" {
		return nil, apperrors.UnauthorizedError("", errNoToken)
	}
	return c.send(ctx, call{route: "verify_session", method: http.MethodGet, path: "/auth/session", token: accessToken, idempotent: true})
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResponse, error) {
	return c.send(ctx, call{
		route:  "refresh",
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   domain.RefreshRequest{RefreshToken: refreshToken},
	})
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	_, err := c.send(ctx, call{route: "logout", method: http.MethodPost, path: "/auth/logout", token: accessToken})
	return err
}

func (c *Client) ForgotPassword(ctx context.Context, identifier string) (*domain.AuthResponse, error) {
	return c.send(ctx, call{
		route:  "forgot_password",
		method: http.MethodPost,
		path:   "/auth/password/forgot",
		body:   domain.IdentifierRequest{Identifier: identifier},
	})
}
