package session

import "github.com/pscheid92/agromarket/internal/domain"

// authResult is a backend envelope with the top-level/nested ambiguity
// resolved. Absent stays absent: nil pointers, empty strings.
type authResult struct {
	accessToken          string
	refreshToken         string
	user                 *domain.User
	profile              *domain.Profile
	success              *bool
	requiresVerification *bool
	message              string
}

// normalizeAuth reads every field from the top level first and falls back to
// the nested data object.
func normalizeAuth(resp *domain.AuthResponse) authResult {
	if resp == nil {
		return authResult{}
	}
	nested := resp.Data
	if nested == nil {
		nested = &domain.AuthResponse{}
	}

	return authResult{
		accessToken:          firstString(resp.AccessToken, nested.AccessToken),
		refreshToken:         firstString(resp.RefreshToken, nested.RefreshToken),
		user:                 firstOf(resp.User, nested.User),
		profile:              firstOf(resp.Profile, nested.Profile),
		success:              firstOf(resp.Success, nested.Success),
		requiresVerification: firstOf(resp.RequiresVerification, nested.RequiresVerification),
		message:              firstString(resp.Message, nested.Message),
	}
}

// hasCredentials reports whether the result can establish a session.
func (r authResult) hasCredentials() bool {
	return r.accessToken != "" && r.user.Valid()
}

// succeeded reports an explicit success flag.
func (r authResult) succeeded() bool {
	return r.success != nil && *r.success
}

// explicitlyFailed reports success=false.
func (r authResult) explicitlyFailed() bool {
	return r.success != nil && !*r.success
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstOf[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
