package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/metrics"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var phonePattern = regexp.MustCompile(`^\+?\d{10,}$`)

func errMalformedBody(err error) error {
	return apperrors.ValidationError("Malformed request body.").WithField("cause", err.Error())
}

func (s *Server) handleLogin(c echo.Context) error {
	var req domain.LoginRequest
	if err := c.Bind(&req); err != nil {
		return errMalformedBody(err)
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		return apperrors.ValidationError("Identifier and password are required.")
	}

	acct, ok := s.dir.lookup(identifier)
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		return apperrors.UnauthorizedError("Invalid phone number or password.", nil)
	}
	if !acct.verified {
		return apperrors.RejectedError("Verify your phone number before signing in.", nil).
			WithField("requires_verification", true)
	}

	resp, err := s.sessionResponse(c.Request().Context(), acct)
	if err != nil {
		return apperrors.InternalError("", err)
	}
	return s.respond(c, http.StatusOK, resp)
}

func validateRegistration(req domain.RegisterRequest) error {
	switch req.AccountType {
	case domain.AccountTypeFarmer, domain.AccountTypeBuyer:
	default:
		return apperrors.FromStatus(http.StatusUnprocessableEntity, "Account type must be farmer or buyer.", nil)
	}
	if strings.TrimSpace(req.FullName) == "" {
		return apperrors.FromStatus(http.StatusUnprocessableEntity, "Full name is required.", nil)
	}
	if !phonePattern.MatchString(req.Phone) {
		return apperrors.FromStatus(http.StatusUnprocessableEntity, "Phone number is invalid.", nil)
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return apperrors.FromStatus(http.StatusUnprocessableEntity, "Password must be at least 8 characters.", nil)
	}
	return nil
}

func (s *Server) handleRegister(c echo.Context) error {
	var req domain.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return errMalformedBody(err)
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validateRegistration(req); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return apperrors.InternalError("", fmt.Errorf("failed to hash password: %w", err))
	}

	acct, err := s.dir.create(req, hash)
	if errors.Is(err, errIdentifierTaken) {
		return apperrors.ConflictError("An account with this phone number already exists.")
	}
	if err != nil {
		return apperrors.InternalError("", err)
	}

	ctx := c.Request().Context()
	slog.InfoContext(ctx, "Account registered", "user_id", acct.user.ID, "account_type", acct.user.AccountType)
	if err := s.sendCode(ctx, req.Phone, domain.OTPPurposeRegistration); err != nil {
		return apperrors.InternalError("", err)
	}

	requires := true
	return s.respond(c, http.StatusCreated, domain.AuthResponse{
		RequiresVerification: &requires,
		Message:              "Account created. Enter the code we sent to your phone.",
	})
}

// sendCode issues a code and "delivers" it by logging.
func (s *Server) sendCode(ctx context.Context, identifier string, purpose domain.OTPPurpose) error {
	code, err := s.dir.issueCode(identifier, purpose, s.config.OTPTTL)
	if err != nil {
		return err
	}
	channel := domain.ChannelFor(identifier)
	metrics.SandboxOTPIssued.WithLabelValues(string(channel)).Inc()
	slog.InfoContext(ctx, "One-time code issued",
		"identifier", identifier,
		"channel", channel,
		"purpose", purpose,
		"code", code,
	)
	return nil
}

func (s *Server) handleSendOTP(c echo.Context) error {
	var req domain.OTPSendRequest
	if err := c.Bind(&req); err != nil {
		return errMalformedBody(err)
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return apperrors.ValidationError("Identifier is required.")
	}
	if req.Purpose == "" {
		req.Purpose = domain.OTPPurposeRegistration
	}
	if !req.Purpose.Valid() {
		return apperrors.ValidationError(fmt.Sprintf("Unknown purpose %q.", req.Purpose))
	}

	acct, ok := s.dir.lookup(identifier)
	if !ok {
		return apperrors.ValidationError("No account found for this phone number or email.")
	}
	if req.Purpose == domain.OTPPurposeRegistration && acct.verified {
		return apperrors.ValidationError("This account is already verified.")
	}

	if err := s.sendCode(c.Request().Context(), identifier, req.Purpose); err != nil {
		return apperrors.InternalError("", err)
	}
	return s.respond(c, http.StatusOK, domain.AuthResponse{Message: "Code sent."})
}

func (s *Server) handleVerifyOTP(c echo.Context) error {
	var req domain.OTPVerifyRequest
	if err := c.Bind(&req); err != nil {
		return errMalformedBody(err)
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Code == "" {
		return apperrors.ValidationError("Identifier and code are required.")
	}
	if req.Purpose == "" {
		req.Purpose = domain.OTPPurposeRegistration
	}

	acct, ok := s.dir.lookup(identifier)
	if !ok {
		return apperrors.ValidationError("Invalid or expired code.")
	}

	switch err := s.dir.consumeCode(identifier, req.Code, req.Purpose); {
	case errors.Is(err, errCodeExhausted):
		return apperrors.RejectedError("Too many wrong codes. Request a new one.", nil)
	case err != nil:
		return apperrors.ValidationError("Invalid or expired code.")
	}

	ctx := c.Request().Context()
	switch req.Purpose {
	case domain.OTPPurposePasswordReset:
		return s.respond(c, http.StatusOK, domain.AuthResponse{Message: "Code accepted. Choose a new password."})
	case domain.OTPPurposeRegistration:
		s.dir.markVerified(acct.user.ID)
		slog.InfoContext(ctx, "Account verified", "user_id", acct.user.ID)
	}

	resp, err := s.sessionResponse(ctx, acct)
	if err != nil {
		return apperrors.InternalError("", err)
	}
	return s.respond(c, http.StatusOK, resp)
}

func (s *Server) handleRefresh(c echo.Context) error {
	var req domain.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return errMalformedBody(err)
	}
	if req.RefreshToken == "" {
		return apperrors.ValidationError("Refresh token is required.")
	}

	userID, err := s.dir.redeem(req.RefreshToken)
	if err != nil {
		return apperrors.UnauthorizedError("Your session has expired. Please sign in again.", err)
	}
	acct, ok := s.dir.get(userID)
	if !ok {
		return apperrors.UnauthorizedError("This account no longer exists.", nil)
	}

	resp, err := s.sessionResponse(c.Request().Context(), acct)
	if err != nil {
		return apperrors.InternalError("", err)
	}
	resp.User = nil
	return s.respond(c, http.StatusOK, resp)
}

func (s *Server) handleVerifySession(c echo.Context) error {
	acct, ok := s.dir.get(c.Get(ctxUserID).(string))
	if !ok {
		return apperrors.UnauthorizedError("This account no longer exists.", nil)
	}
	return s.respond(c, http.StatusOK, domain.AuthResponse{User: acct.user.Clone()})
}

func (s *Server) handleLogout(c echo.Context) error {
	claims := c.Get(ctxTokenClaims).(*accessClaims)
	s.dir.revoke(claims.ID, claims.Subject, claims.ExpiresAt.Time)
	slog.InfoContext(c.Request().Context(), "Session revoked", "user_id", claims.Subject)
	return s.respond(c, http.StatusOK, domain.AuthResponse{Message: "Signed out."})
}

// handleForgotPassword answers the same way whether or not the account exists.
func (s *Server) handleForgotPassword(c echo.Context) error {
	var req domain.IdentifierRequest
	if err := c.Bind(&req); err != nil {
		return errMalformedBody(err)
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		return apperrors.ValidationError("Identifier is required.")
	}

	if _, ok := s.dir.lookup(identifier); ok {
		if err := s.sendCode(c.Request().Context(), identifier, domain.OTPPurposePasswordReset); err != nil {
			return apperrors.InternalError("", err)
		}
	}
	return s.respond(c, http.StatusOK, domain.AuthResponse{Message: "If an account exists, we sent a reset code."})
}

func (s *Server) handlePendingCode(c echo.Context) error {
	p, ok := s.dir.pendingCode(c.Param("identifier"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No pending code.")
	}
	response := map[string]any{
		"code":       p.code,
		"purpose":    p.purpose,
		"expires_at": p.expires.UTC(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
