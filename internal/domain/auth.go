package domain

import "strings"

type OTPChannel string

const (
	OTPChannelSMS   OTPChannel = "sms"
	OTPChannelEmail OTPChannel = "email"
)

// ChannelFor picks the delivery channel from the identifier's shape.
func ChannelFor(identifier string) OTPChannel {
	if strings.Contains(identifier, "@") {
		return OTPChannelEmail
	}
	return OTPChannelSMS
}

type OTPPurpose string

const (
	OTPPurposeRegistration  OTPPurpose = "registration"
	OTPPurposeLogin         OTPPurpose = "login"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

func (p OTPPurpose) Valid() bool {
	switch p {
	case OTPPurposeRegistration, OTPPurposeLogin, OTPPurposePasswordReset:
		return true
	}
	return false
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type RegisterRequest struct {
	AccountType AccountType `json:"account_type"`
	FullName    string      `json:"full_name"`
	Phone       string      `json:"phone"`
	Password    string      `json:"password"`
}

type OTPSendRequest struct {
	Identifier string     `json:"identifier"`
	Channel    OTPChannel `json:"channel"`
	Purpose    OTPPurpose `json:"purpose"`
}

type OTPVerifyRequest struct {
	Identifier string     `json:"identifier"`
	Code       string     `json:"code"`
	Purpose    OTPPurpose `json:"purpose"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type IdentifierRequest struct {
	Identifier string `json:"identifier"`
}

// AuthResponse is the backend's response envelope. Every field may appear at
// the top level or inside Data; which one the backend uses is not stable.
type AuthResponse struct {
	Success              *bool         `json:"success,omitempty"`
	RequiresVerification *bool         `json:"requires_verification,omitempty"`
	Message              string        `json:"message,omitempty"`
	AccessToken          string        `json:"access_token,omitempty"`
	RefreshToken         string        `json:"refresh_token,omitempty"`
	User                 *User         `json:"user,omitempty"`
	Profile              *Profile      `json:"profile,omitempty"`
	Data                 *AuthResponse `json:"data,omitempty"`
}

// RegisterOutcome reports whether the new account must be confirmed with a
// one-time code before it can sign in.
type RegisterOutcome struct {
	RequiresVerification bool
	Message              string
}
