package session

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
)

const minSecretLength = 8

var phonePattern = regexp.MustCompile(`^\+?\d{10,}$`)

// stripSpace removes every whitespace rune, so "+374 99 123 456" becomes
// "+37499123456".
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func validateIdentifier(identifier string) *apperrors.Error {
	if identifier == "" {
		return apperrors.ValidationError("Enter your phone number or email.").WithField("field", "identifier")
	}
	return nil
}

func validateSecret(secret string) *apperrors.Error {
	if secret == "" {
		return apperrors.ValidationError("Enter your password.").WithField("field", "password")
	}
	if utf8.RuneCountInString(secret) < minSecretLength {
		return apperrors.ValidationError("Password must be at least 8 characters.").WithField("field", "password")
	}
	return nil
}

func validatePhone(phone string) *apperrors.Error {
	if !phonePattern.MatchString(phone) {
		return apperrors.ValidationError("Enter a valid phone number.").WithField("field", "phone")
	}
	return nil
}

func validateRegistration(req domain.RegisterRequest) *apperrors.Error {
	if req.AccountType == "" {
		return apperrors.ValidationError("Choose an account type.").WithField("field", "account_type")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return apperrors.ValidationError("Enter your name.").WithField("field", "full_name")
	}
	if err := validatePhone(req.Phone); err != nil {
		return err
	}
	return validateSecret(req.Password)
}

func validateCode(code string) *apperrors.Error {
	if code == "" {
		return apperrors.ValidationError("Enter the code you received.").WithField("field", "code")
	}
	return nil
}
