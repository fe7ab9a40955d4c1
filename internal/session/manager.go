package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/agromarket/internal/credentials"
	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/metrics"
	"github.com/pscheid92/agromarket/internal/platform/correlation"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
	"golang.org/x/sync/singleflight"
)

type Options struct {
	// Keys is the credential layout; zero value uses credentials.NewKeys("").
	Keys credentials.Keys
	// OTPCooldown is the minimum gap between code requests per identifier.
	// Zero disables the cooldown.
	OTPCooldown time.Duration
	// Cooldown replaces the in-process cooldown, e.g. with one shared between
	// processes. OTPCooldown is ignored when set.
	Cooldown domain.CodeCooldown
	Clock    clockwork.Clock
}

// Manager owns the single live Session of the process.
type Manager struct {
	gateway  domain.AuthGateway
	profiles domain.ProfileService
	store    domain.CredentialStore
	keys     credentials.Keys
	clock    clockwork.Clock
	cooldown domain.CodeCooldown

	// mu guards state, inflight, epoch, version and watchers.
	mu       sync.Mutex
	state    domain.Session
	inflight int
	epoch    uint64
	version  uint64
	watchers []func(domain.Session)

	// storeMu serializes credential writes with the epoch changes they imply.
	// Lock order: storeMu before mu.
	storeMu sync.Mutex

	restoreOnce sync.Once
	restoreErr  error

	backfills singleflight.Group
	wg        sync.WaitGroup
}

func NewManager(gateway domain.AuthGateway, profiles domain.ProfileService, store domain.CredentialStore, opts Options) *Manager {
	keys := opts.Keys
	if keys == (credentials.Keys{}) {
		keys = credentials.NewKeys("")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	cooldown := opts.Cooldown
	if cooldown == nil {
		cooldown = newLocalCooldown(opts.OTPCooldown, clock)
	}

	return &Manager{
		gateway:  gateway,
		profiles: profiles,
		store:    store,
		keys:     keys,
		clock:    clock,
		cooldown: cooldown,
	}
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Watch registers fn to receive every published snapshot. fn is called
// outside the manager lock and must not block; snapshots can arrive out of
// order, use Session.Version to discard older ones.
func (m *Manager) Watch(fn func(domain.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

// Wait blocks until background profile backfills have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// mutate applies fn under the lock and publishes the new snapshot when fn
// reports a change.
func (m *Manager) mutate(fn func(s *domain.Session) bool) bool {
	m.mu.Lock()
	if !fn(&m.state) {
		m.mu.Unlock()
		return false
	}
	m.version++
	m.state.Version = m.version
	m.state.Loading = m.inflight > 0
	snap := m.state.Clone()
	watchers := slices.Clone(m.watchers)
	m.mu.Unlock()

	for _, w := range watchers {
		w(snap)
	}
	return true
}

func (m *Manager) update(fn func(s *domain.Session)) {
	m.mutate(func(s *domain.Session) bool {
		fn(s)
		return true
	})
}

// applyIf applies fn only while the session is still at epoch.
func (m *Manager) applyIf(epoch uint64, fn func(s *domain.Session)) bool {
	return m.mutate(func(s *domain.Session) bool {
		if m.epoch != epoch {
			return false
		}
		fn(s)
		return true
	})
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// begin marks an operation in flight. The returned finish must be deferred;
// it clears the in-flight mark and normalizes err to *apperrors.Error.
func (m *Manager) begin(ctx context.Context, op string) (context.Context, func(err error) error) {
	ctx, _ = correlation.Ensure(ctx)
	start := m.clock.Now()
	m.update(func(*domain.Session) { m.inflight++ })

	return ctx, func(err error) error {
		m.update(func(*domain.Session) { m.inflight-- })
		metrics.SessionOperationDuration.WithLabelValues(op).Observe(m.clock.Since(start).Seconds())
		return m.record(ctx, op, err)
	}
}

func (m *Manager) record(ctx context.Context, op string, err error) error {
	if err == nil {
		metrics.SessionOperationsTotal.WithLabelValues(op, "success").Inc()
		return nil
	}
	structured := apperrors.AsStructuredError(err)
	metrics.SessionOperationsTotal.WithLabelValues(op, string(structured.Type)).Inc()
	slog.InfoContext(ctx, "Session operation failed", "operation", op, "error_type", structured.Type, "error", err)
	return structured
}

// reject reports a validation failure that never reached the network.
func (m *Manager) reject(ctx context.Context, op string, err *apperrors.Error) error {
	return m.record(ctx, op, err)
}

// current returns the session together with the epoch it belongs to.
func (m *Manager) current() (domain.Session, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), m.epoch
}

func discarded(source string) {
	metrics.SessionStaleResultsDiscarded.WithLabelValues(source).Inc()
}

func (m *Manager) triplet(access, refresh string, user *domain.User) (map[string]string, error) {
	encoded, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	return map[string]string{
		m.keys.AccessToken:  access,
		m.keys.RefreshToken: refresh,
		m.keys.User:         string(encoded),
	}, nil
}

// establish persists the triplet of a successful login or code verification,
// adopts it in memory and starts a new epoch.
func (m *Manager) establish(ctx context.Context, res authResult) error {
	if !res.hasCredentials() {
		return apperrors.ProtocolError("").WithField("reason", domain.ErrInvalidResponse.Error())
	}

	pairs, err := m.triplet(res.accessToken, res.refreshToken, res.user)
	if err != nil {
		return apperrors.InternalError("", err)
	}

	m.storeMu.Lock()
	if err := m.store.SetMany(ctx, pairs); err != nil {
		m.storeMu.Unlock()
		return apperrors.InternalError("Could not save your session. Please try again.", err)
	}
	var epoch uint64
	m.update(func(s *domain.Session) {
		m.epoch++
		epoch = m.epoch
		s.User = res.user.Clone()
		s.Profile = res.profile.Clone()
		s.AccessToken = res.accessToken
		s.RefreshToken = res.refreshToken
	})
	m.storeMu.Unlock()

	slog.InfoContext(ctx, "Session established", "user_id", res.user.ID)

	if res.profile == nil {
		m.backfillProfile(ctx, epoch, res.accessToken)
	}
	return nil
}

// commitIf writes pairs and applies fn, both only while the session is still
// at epoch. applied is false when the epoch moved on.
func (m *Manager) commitIf(ctx context.Context, epoch uint64, pairs map[string]string, fn func(s *domain.Session)) (applied bool, err error) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	if m.currentEpoch() != epoch {
		return false, nil
	}
	if err := m.store.SetMany(ctx, pairs); err != nil {
		return true, err
	}
	return m.applyIf(epoch, fn), nil
}

// clearIf removes the triplet and empties the session while it is still at
// epoch. The removal error is returned after memory has been cleared.
func (m *Manager) clearIf(ctx context.Context, epoch uint64) (applied bool, err error) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	if m.currentEpoch() != epoch {
		return false, nil
	}
	err = m.store.RemoveMany(ctx, m.keys.All())
	m.update(func(s *domain.Session) {
		m.epoch++
		clearSession(s)
	})
	return true, err
}

func clearSession(s *domain.Session) {
	s.User = nil
	s.Profile = nil
	s.AccessToken = ""
	s.RefreshToken = ""
}

// backfillProfile fetches the profile in the background. Failures are logged
// only; the result is dropped if the session changed meanwhile.
func (m *Manager) backfillProfile(ctx context.Context, epoch uint64, accessToken string) {
	bctx := context.WithoutCancel(ctx)

	m.wg.Go(func() {
		v, err, shared := m.backfills.Do(accessToken, func() (any, error) {
			resp, err := m.profiles.GetProfile(bctx, accessToken)
			if err != nil {
				return nil, err
			}
			profile := normalizeAuth(resp).profile
			if profile == nil {
				return nil, apperrors.ProtocolError("").WithField("reason", "profile missing")
			}
			return profile, nil
		})
		if err != nil {
			metrics.ProfileBackfillTotal.WithLabelValues("error").Inc()
			slog.WarnContext(bctx, "Profile backfill failed", "error", err)
			return
		}
		if shared {
			metrics.ProfileBackfillTotal.WithLabelValues("deduplicated").Inc()
		} else {
			metrics.ProfileBackfillTotal.WithLabelValues("success").Inc()
		}

		profile := v.(*domain.Profile)
		if !m.applyIf(epoch, func(s *domain.Session) { s.Profile = profile.Clone() }) {
			discarded("profile_backfill")
			slog.DebugContext(bctx, "Discarding stale profile backfill")
		}
	})
}
