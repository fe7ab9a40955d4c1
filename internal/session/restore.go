package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/metrics"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
)

// Restore outcomes, also used as metric labels.
const (
	outcomeNoToken      = "no_token"
	outcomeVerified     = "verified"
	outcomeKeptCached   = "kept_cached"
	outcomeKeptHydrated = "kept_hydrated"
	outcomeCleared      = "cleared"
	outcomeDiscarded    = "discarded"
	outcomeStoreError   = "store_error"
)

// Restore reconciles the persisted credentials with the backend. It runs at
// most once per Manager; concurrent callers wait for the same run and later
// calls return its result. Initialized is true afterwards on every path.
//
// Only an explicit Unauthorized answer destroys a cached session. Transient
// failures keep the cached user so the client degrades gracefully offline.
func (m *Manager) Restore(ctx context.Context) error {
	m.restoreOnce.Do(func() {
		m.restoreErr = m.restore(ctx)
	})
	return m.restoreErr
}

func (m *Manager) restore(ctx context.Context) (err error) {
	ctx, finish := m.begin(ctx, "restore")
	defer func() { err = finish(err) }()

	m.update(func(s *domain.Session) { s.Restoring = true })
	epoch := m.currentEpoch()
	outcome, err := m.reconcile(ctx, epoch)

	m.update(func(s *domain.Session) {
		s.Initialized = true
		s.Restoring = false
	})
	metrics.SessionRestoreOutcomes.WithLabelValues(outcome).Inc()

	snap := m.Snapshot()
	slog.InfoContext(ctx, "Session restore finished",
		"outcome", outcome,
		"authenticated", snap.Authenticated(),
	)
	return err
}

func (m *Manager) reconcile(ctx context.Context, epoch uint64) (string, error) {
	stored, err := m.store.GetMany(ctx, m.keys.All())
	if err != nil {
		return outcomeStoreError, apperrors.InternalError("Could not read the saved session.", err)
	}

	token := stored[m.keys.AccessToken]
	if token == "" {
		return outcomeNoToken, nil
	}
	refresh := stored[m.keys.RefreshToken]

	// Optimistic hydration: render as signed in before the backend answers.
	hydrated := false
	if cached := decodeUser(ctx, stored[m.keys.User]); cached != nil {
		hydrated = m.applyIf(epoch, func(s *domain.Session) {
			s.User = cached
			s.AccessToken = token
			s.RefreshToken = refresh
		})
		if !hydrated {
			return outcomeDiscarded, nil
		}
	}

	resp, verr := m.gateway.VerifySession(ctx, token)
	if verr == nil {
		res := normalizeAuth(resp)
		if res.user.Valid() && !res.explicitlyFailed() {
			return m.adoptVerified(ctx, epoch, token, refresh, res), nil
		}
		slog.WarnContext(ctx, "Session verification returned no usable user")
		if hydrated {
			return outcomeKeptHydrated, nil
		}
		return m.clearForRestore(ctx, epoch), nil
	}

	if apperrors.IsType(verr, apperrors.TypeUnauthorized) {
		slog.InfoContext(ctx, "Stored credentials were rejected", "error", verr)
		return m.clearForRestore(ctx, epoch), nil
	}

	slog.WarnContext(ctx, "Session verification failed", "error", verr, "cached_user", hydrated)
	if hydrated {
		return outcomeKeptCached, nil
	}
	return m.clearForRestore(ctx, epoch), nil
}

// adoptVerified persists the refreshed user and adopts it. A failed write is
// logged only: the backend just confirmed the session. Tokens rotated by a
// refresh while verification was in flight are kept.
func (m *Manager) adoptVerified(ctx context.Context, epoch uint64, token, refresh string, res authResult) string {
	m.storeMu.Lock()
	snap, current := m.current()
	if current != epoch {
		m.storeMu.Unlock()
		discarded("restore")
		return outcomeDiscarded
	}
	if snap.AccessToken != "" && snap.AccessToken != token {
		token, refresh = snap.AccessToken, snap.RefreshToken
	}

	if pairs, err := m.triplet(token, refresh, res.user); err != nil {
		slog.WarnContext(ctx, "Failed to encode verified user", "error", err)
	} else if err := m.store.SetMany(ctx, pairs); err != nil {
		slog.WarnContext(ctx, "Failed to persist verified user", "error", err)
	}

	applied := m.applyIf(epoch, func(s *domain.Session) {
		s.User = res.user.Clone()
		s.AccessToken = token
		s.RefreshToken = refresh
		if res.profile != nil {
			s.Profile = res.profile.Clone()
		}
	})
	m.storeMu.Unlock()

	if !applied {
		discarded("restore")
		return outcomeDiscarded
	}
	if res.profile == nil {
		m.backfillProfile(ctx, epoch, token)
	}
	return outcomeVerified
}

func (m *Manager) clearForRestore(ctx context.Context, epoch uint64) string {
	applied, err := m.clearIf(ctx, epoch)
	if err != nil {
		slog.WarnContext(ctx, "Failed to remove stored credentials", "error", err)
	}
	if !applied {
		discarded("restore")
		return outcomeDiscarded
	}
	return outcomeCleared
}

// decodeUser parses the cached user. Parse failures skip hydration.
func decodeUser(ctx context.Context, raw string) *domain.User {
	if raw == "" {
		return nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		slog.WarnContext(ctx, "Ignoring unreadable cached user", "error", err)
		return nil
	}
	if !user.Valid() {
		slog.WarnContext(ctx, "Ignoring cached user without id")
		return nil
	}
	return &user
}
