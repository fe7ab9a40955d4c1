package session

import (
	"context"
	"log/slog"

	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
)

func errNotSignedIn() *apperrors.Error {
	return apperrors.UnauthorizedError("You are not signed in.", domain.ErrNoSession)
}

// FetchProfile reloads the profile in the foreground.
func (m *Manager) FetchProfile(ctx context.Context) (err error) {
	snap, epoch := m.current()
	if snap.User == nil {
		return m.reject(ctx, "profile_fetch", errNotSignedIn())
	}

	ctx, finish := m.begin(ctx, "profile_fetch")
	defer func() { err = finish(err) }()

	return m.fetchProfile(ctx, epoch, snap.AccessToken)
}

func (m *Manager) fetchProfile(ctx context.Context, epoch uint64, accessToken string) error {
	resp, err := m.profiles.GetProfile(ctx, accessToken)
	if err != nil {
		return err
	}
	profile := normalizeAuth(resp).profile
	if profile == nil {
		return apperrors.ProtocolError("").WithField("reason", "profile missing")
	}
	if !m.applyIf(epoch, func(s *domain.Session) { s.Profile = profile.Clone() }) {
		discarded("profile_fetch")
	}
	return nil
}

// UpdateProfile sends patch to the backend and replaces the in-memory
// profile with the result. An empty patch is a no-op.
func (m *Manager) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (err error) {
	if patch.IsEmpty() {
		return nil
	}
	snap, epoch := m.current()
	if snap.User == nil {
		return m.reject(ctx, "profile_update", errNotSignedIn())
	}

	ctx, finish := m.begin(ctx, "profile_update")
	defer func() { err = finish(err) }()

	resp, err := m.profiles.UpdateProfile(ctx, snap.AccessToken, patch)
	if err != nil {
		return err
	}

	profile := normalizeAuth(resp).profile
	if !m.applyIf(epoch, func(s *domain.Session) {
		if profile != nil {
			s.Profile = profile.Clone()
			return
		}
		// Backend acknowledged without echoing the profile.
		s.Profile = s.Profile.Apply(patch)
	}) {
		discarded("profile_update")
	}
	return nil
}

// UpdateContact changes the account's contact identifier and then reloads
// the profile.
func (m *Manager) UpdateContact(ctx context.Context, identifier string) (err error) {
	identifier = stripSpace(identifier)
	if verr := validateIdentifier(identifier); verr != nil {
		return m.reject(ctx, "contact_update", verr)
	}
	snap, epoch := m.current()
	if snap.User == nil {
		return m.reject(ctx, "contact_update", errNotSignedIn())
	}

	ctx, finish := m.begin(ctx, "contact_update")
	defer func() { err = finish(err) }()

	if err := m.profiles.UpdateContact(ctx, snap.AccessToken, identifier); err != nil {
		return err
	}
	if err := m.fetchProfile(ctx, epoch, snap.AccessToken); err != nil {
		slog.WarnContext(ctx, "Contact updated but profile reload failed", "error", err)
	}
	return nil
}

// UpdateUser merges patch into the in-memory user. Nothing is persisted or
// sent. Without a user, or with an empty patch, the session is untouched.
func (m *Manager) UpdateUser(patch domain.UserPatch) {
	if patch.IsEmpty() {
		return
	}
	m.mutate(func(s *domain.Session) bool {
		if s.User == nil {
			return false
		}
		s.User = s.User.Merge(patch)
		return true
	})
}
