package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
)

// Login signs in with an identifier (phone or email) and password.
func (m *Manager) Login(ctx context.Context, identifier, secret string) (err error) {
	identifier = stripSpace(identifier)
	if verr := validateIdentifier(identifier); verr != nil {
		return m.reject(ctx, "login", verr)
	}
	if verr := validateSecret(secret); verr != nil {
		return m.reject(ctx, "login", verr)
	}

	ctx, finish := m.begin(ctx, "login")
	defer func() { err = finish(err) }()

	resp, err := m.gateway.Login(ctx, domain.LoginRequest{Identifier: identifier, Password: secret})
	if err != nil {
		return err
	}
	return m.establish(ctx, normalizeAuth(resp))
}

// Register provisions an account. It never establishes a session; the
// outcome says whether a one-time code must be verified first.
func (m *Manager) Register(ctx context.Context, req domain.RegisterRequest) (outcome domain.RegisterOutcome, err error) {
	req.Phone = stripSpace(req.Phone)
	if verr := validateRegistration(req); verr != nil {
		return outcome, m.reject(ctx, "register", verr)
	}

	ctx, finish := m.begin(ctx, "register")
	defer func() { err = finish(err) }()

	resp, err := m.gateway.Register(ctx, req)
	if err != nil {
		return outcome, err
	}

	res := normalizeAuth(resp)
	if res.explicitlyFailed() {
		return outcome, apperrors.RejectedError(res.message, nil)
	}

	// Absent flag: ask for the code rather than leave an unverified account unusable.
	outcome.RequiresVerification = res.requiresVerification == nil || *res.requiresVerification
	outcome.Message = res.message
	return outcome, nil
}

// SendOTP asks the backend to deliver a one-time code. The channel follows
// the identifier's shape.
func (m *Manager) SendOTP(ctx context.Context, identifier string, purpose domain.OTPPurpose) (err error) {
	identifier = stripSpace(identifier)
	if verr := validateIdentifier(identifier); verr != nil {
		return m.reject(ctx, "otp_send", verr)
	}
	if purpose == "" {
		purpose = domain.OTPPurposeRegistration
	}
	if !purpose.Valid() {
		return m.reject(ctx, "otp_send", apperrors.ValidationError(fmt.Sprintf("Unknown code purpose %q.", purpose)))
	}
	wait, cerr := m.cooldown.Acquire(ctx, identifier)
	if cerr != nil {
		slog.WarnContext(ctx, "Code cooldown unavailable, sending anyway", "error", cerr)
	}
	if wait > 0 {
		seconds := int(math.Ceil(wait.Seconds()))
		return m.reject(ctx, "otp_send",
			apperrors.ValidationError(fmt.Sprintf("Please wait %d seconds before requesting a new code.", seconds)).
				WithField("retry_after_seconds", seconds))
	}

	ctx, finish := m.begin(ctx, "otp_send")
	defer func() { err = finish(err) }()

	resp, err := m.gateway.SendOTP(ctx, domain.OTPSendRequest{
		Identifier: identifier,
		Channel:    domain.ChannelFor(identifier),
		Purpose:    purpose,
	})
	if err != nil {
		m.releaseCooldown(ctx, identifier)
		return err
	}

	res := normalizeAuth(resp)
	if !res.succeeded() {
		m.releaseCooldown(ctx, identifier)
		return apperrors.RejectedError(firstString(res.message, "Could not send the code. Please try again."), nil)
	}
	return nil
}

func (m *Manager) releaseCooldown(ctx context.Context, identifier string) {
	if err := m.cooldown.Release(ctx, identifier); err != nil {
		slog.WarnContext(ctx, "Failed to release code cooldown", "error", err)
	}
}

// VerifyOTP confirms a one-time code. A response carrying credentials
// establishes the session exactly like Login.
func (m *Manager) VerifyOTP(ctx context.Context, identifier, code string, purpose domain.OTPPurpose) (err error) {
	identifier = stripSpace(identifier)
	code = stripSpace(code)
	if verr := validateIdentifier(identifier); verr != nil {
		return m.reject(ctx, "otp_verify", verr)
	}
	if verr := validateCode(code); verr != nil {
		return m.reject(ctx, "otp_verify", verr)
	}
	if purpose == "" {
		purpose = domain.OTPPurposeRegistration
	}

	ctx, finish := m.begin(ctx, "otp_verify")
	defer func() { err = finish(err) }()

	resp, err := m.gateway.VerifyOTP(ctx, domain.OTPVerifyRequest{Identifier: identifier, Code: code, Purpose: purpose})
	if err != nil {
		return err
	}

	res := normalizeAuth(resp)
	// A password reset code proves ownership without signing in.
	if purpose == domain.OTPPurposePasswordReset && res.accessToken == "" {
		if !res.succeeded() {
			return apperrors.RejectedError(res.message, nil)
		}
		return nil
	}
	return m.establish(ctx, res)
}

// Logout invalidates the session remotely when possible and always clears
// local state and all three credential keys.
func (m *Manager) Logout(ctx context.Context) (err error) {
	ctx, finish := m.begin(ctx, "logout")
	defer func() { err = finish(err) }()

	snap, _ := m.current()
	if snap.AccessToken != "" {
		if rerr := m.gateway.Logout(ctx, snap.AccessToken); rerr != nil {
			slog.WarnContext(ctx, "Remote logout failed, clearing local session anyway", "error", rerr)
		}
	}

	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	removeErr := m.store.RemoveMany(ctx, m.keys.All())
	m.update(func(s *domain.Session) {
		m.epoch++
		clearSession(s)
	})
	if removeErr != nil {
		return apperrors.InternalError("Signed out, but saved credentials could not be removed.", removeErr)
	}
	return nil
}

// RefreshTokens exchanges the refresh token for a new pair. A rejected
// refresh token ends the session.
func (m *Manager) RefreshTokens(ctx context.Context) (err error) {
	snap, epoch := m.current()
	refresh := snap.RefreshToken
	if snap.User == nil {
		return m.reject(ctx, "refresh", apperrors.UnauthorizedError("You are not signed in.", domain.ErrNoSession))
	}
	if refresh == "" {
		return m.reject(ctx, "refresh", apperrors.RejectedError("This session can not be refreshed. Please sign in again.", nil))
	}

	ctx, finish := m.begin(ctx, "refresh")
	defer func() { err = finish(err) }()

	resp, err := m.gateway.RefreshToken(ctx, refresh)
	if err != nil {
		if apperrors.IsType(err, apperrors.TypeUnauthorized) {
			if _, cerr := m.clearIf(ctx, epoch); cerr != nil {
				slog.WarnContext(ctx, "Failed to remove revoked credentials", "error", cerr)
			}
		}
		return err
	}

	res := normalizeAuth(resp)
	if res.accessToken == "" {
		return apperrors.ProtocolError("").WithField("reason", "access token missing")
	}
	newRefresh := firstString(res.refreshToken, refresh)

	pairs, err := m.triplet(res.accessToken, newRefresh, snap.User)
	if err != nil {
		return apperrors.InternalError("", err)
	}

	applied, err := m.commitIf(ctx, epoch, pairs, func(s *domain.Session) {
		s.AccessToken = res.accessToken
		s.RefreshToken = newRefresh
	})
	if err != nil {
		return apperrors.InternalError("Could not save your session. Please try again.", err)
	}
	if !applied {
		discarded("refresh")
		slog.DebugContext(ctx, "Discarding refreshed tokens for an ended session")
	}
	return nil
}

// ForgotPassword starts a password reset for identifier.
func (m *Manager) ForgotPassword(ctx context.Context, identifier string) (err error) {
	identifier = stripSpace(identifier)
	if verr := validateIdentifier(identifier); verr != nil {
		return m.reject(ctx, "forgot_password", verr)
	}

	ctx, finish := m.begin(ctx, "forgot_password")
	defer func() { err = finish(err) }()

	resp, err := m.gateway.ForgotPassword(ctx, identifier)
	if err != nil {
		return err
	}
	res := normalizeAuth(resp)
	if !res.succeeded() {
		return apperrors.RejectedError(firstString(res.message, "Could not start the password reset."), nil)
	}
	return nil
}
