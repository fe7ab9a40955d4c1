package gateway

import (
	"context"
	"net/http"

	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
)

func (c *Client) GetProfile(ctx context.Context, accessToken string) (*domain.AuthResponse, error) {
	if accessToken == "" {
		return nil, apperrors.UnauthorizedError("", errNoToken)
	}
	return c.send(ctx, call{route: "profile_get", method: http.MethodGet, path: "/profile", token: accessToken, idempotent: true})
}

func (c *Client) UpdateProfile(ctx context.Context, accessToken string, patch domain.ProfilePatch) (*domain.AuthResponse, error) {
	if accessToken == "" {
		return nil, apperrors.UnauthorizedError("", errNoToken)
	}
	return c.send(ctx, call{route: "profile_update", method: http.MethodPatch, path: "/profile", token: accessToken, body: patch})
}

func (c *Client) UpdateContact(ctx context.Context, accessToken, identifier string) error {
	if accessToken == "" {
		return apperrors.UnauthorizedError("", errNoToken)
	}
	_, err := c.send(ctx, call{
		route:  "contact_update",
		method: http.MethodPost,
		path:   "/profile/contact",
		token:  accessToken,
		body:   domain.IdentifierRequest{Identifier: identifier},
	})
	return err
}
