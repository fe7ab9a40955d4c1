package domain

import "context"

// AuthGateway is the remote authentication backend. Errors are
// *errors.Error values from internal/platform/errors.
type AuthGateway interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	SendOTP(ctx context.Context, req OTPSendRequest) (*AuthResponse, error)
	VerifyOTP(ctx context.Context, req OTPVerifyRequest) (*AuthResponse, error)
	VerifySession(ctx context.Context, accessToken string) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	ForgotPassword(ctx context.Context, identifier string) (*AuthResponse, error)
}

// ProfileService is the remote profile backend. Profile responses use the
// same envelope as authentication responses.
type ProfileService interface {
	GetProfile(ctx context.Context, accessToken string) (*AuthResponse, error)
	UpdateProfile(ctx context.Context, accessToken string, patch ProfilePatch) (*AuthResponse, error)
	UpdateContact(ctx context.Context, accessToken, identifier string) error
}
