package sandbox

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
)

func (s *Server) handleGetProfile(c echo.Context) error {
	acct, ok := s.dir.get(c.Get(ctxUserID).(string))
	if !ok {
		return apperrors.UnauthorizedError("This account no longer exists.", nil)
	}
	profile := acct.profile
	return s.respond(c, http.StatusOK, domain.AuthResponse{Profile: &profile})
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var patch domain.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return errMalformedBody(err)
	}
	if patch.IsEmpty() {
		return apperrors.ValidationError("Nothing to update.")
	}
	if patch.FullName != nil && strings.TrimSpace(*patch.FullName) == "" {
		return apperrors.FromStatus(http.StatusUnprocessableEntity, "Full name must not be empty.", nil)
	}

	profile, err := s.dir.updateProfile(c.Get(ctxUserID).(string), patch)
	if err != nil {
		return apperrors.UnauthorizedError("This account no longer exists.", err)
	}
	return s.respond(c, http.StatusOK, domain.AuthResponse{Profile: &profile, Message: "Profile updated."})
}

func (s *Server) handleUpdateContact(c echo.Context) error {
	var req domain.IdentifierRequest
	if err := c.Bind(&req); err != nil {
		return errMalformedBody(err)
	}
	identifier := strings.TrimSpace(req.Identifier)
	switch {
	case identifier == "":
		return apperrors.ValidationError("Identifier is required.")
	case domain.ChannelFor(identifier) == domain.OTPChannelSMS && !phonePattern.MatchString(identifier):
		return apperrors.FromStatus(http.StatusUnprocessableEntity, "Phone number is invalid.", nil)
	}

	err := s.dir.updateContact(c.Get(ctxUserID).(string), identifier)
	switch {
	case errors.Is(err, errIdentifierTaken):
		return apperrors.ConflictError("This phone number or email is already in use.")
	case err != nil:
		return apperrors.UnauthorizedError("This account no longer exists.", err)
	}
	return s.respond(c, http.StatusOK, domain.AuthResponse{Message: "Contact updated."})
}
