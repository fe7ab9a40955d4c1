package sandbox

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/agromarket/internal/metrics"
	"github.com/pscheid92/agromarket/internal/platform/correlation"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
)

// Context keys set by requireAuth.
const (
	ctxUserID      = "userID"
	ctxTokenClaims = "tokenClaims"
)

// correlationMiddleware adopts the caller's X-Request-ID or starts a new one,
// and echoes it on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(correlation.HeaderName)
		if id == "" {
			id = correlation.NewID()
		}
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.HeaderName, id)
		return next(c)
	}
}

func requestMetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		var httpErr *echo.HTTPError
		if err != nil && errors.As(err, &httpErr) {
			status = httpErr.Code
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		metrics.SandboxRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		return err
	}
}

// errorHandlingMiddleware renders every handler error as an ErrorResponse
// with the status its type maps to.
func errorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var structuredErr *apperrors.Error
			var httpErr *echo.HTTPError
			switch {
			case errors.As(err, &structuredErr):
			case errors.As(err, &httpErr):
				structuredErr = wrapHTTPError(httpErr)
			default:
				structuredErr = apperrors.InternalError("", err)
			}

			logError(c, structuredErr)
			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func wrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := ""
	if msg, ok := httpErr.Message.(string); ok {
		message = msg
	}
	return apperrors.FromStatus(httpErr.Code, message, httpErr.Internal)
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(ctxUserID); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeUnauthorized:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	case apperrors.TypeConflict, apperrors.TypeRejected:
		slog.WarnContext(ctx, "Request refused", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	default:
		slog.WarnContext(ctx, "Request failed", attrs...)
	}
}

// requireAuth admits requests carrying a valid, unrevoked bearer token for an
// existing account.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			return apperrors.UnauthorizedError("Sign in to continue.", nil)
		}

		claims, err := s.tokens.parse(raw)
		if err != nil {
			return apperrors.UnauthorizedError("Your session has expired. Please sign in again.", err)
		}
		if s.dir.isRevoked(claims.ID) {
			return apperrors.UnauthorizedError("Your session has ended. Please sign in again.", nil)
		}
		if _, ok := s.dir.get(claims.Subject); !ok {
			return apperrors.UnauthorizedError("This account no longer exists.", nil)
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxTokenClaims, claims)
		return next(c)
	}
}
