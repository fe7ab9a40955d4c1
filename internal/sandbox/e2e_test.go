package sandbox_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/agromarket/internal/adapter/gateway"
	"github.com/pscheid92/agromarket/internal/credentials"
	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
	"github.com/pscheid92/agromarket/internal/platform/config"
	"github.com/pscheid92/agromarket/internal/sandbox"
	"github.com/pscheid92/agromarket/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	phone    = "+37499123456"
	password = "password123"
)

type stack struct {
	srv   *sandbox.Server
	ts    *httptest.Server
	gw    *gateway.Client
	store *credentials.MemoryStore
	clock *clockwork.FakeClock
}

func newStack(t *testing.T, nest bool) *stack {
	t.Helper()
	clock := clockwork.NewFakeClock()
	cfg := &config.SandboxConfig{
		AppEnv:        "development",
		JWTSecret:     "0123456789abcdef",
		NestResponses: nest,
		TokenTTL:      15 * time.Minute,
		RefreshTTL:    time.Hour,
		OTPTTL:        5 * time.Minute,
		RateLimit:     1000,
		RateBurst:     1000,
	}
	srv := sandbox.New(cfg, sandbox.Options{Clock: clock, BcryptCost: bcrypt.MinCost})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	gw, err := gateway.New(gateway.Config{BaseURL: ts.URL, Timeout: 5 * time.Second, MaxAttempts: 1})
	require.NoError(t, err)

	return &stack{srv: srv, ts: ts, gw: gw, store: credentials.NewMemoryStore(), clock: clock}
}

// manager starts a fresh client process sharing the stack's credential store.
func (s *stack) manager(t *testing.T) *session.Manager {
	t.Helper()
	m := session.NewManager(s.gw, s.gw, s.store, session.Options{})
	t.Cleanup(m.Wait)
	return m
}

func (s *stack) registerVerified(t *testing.T, m *session.Manager) {
	t.Helper()
	ctx := context.Background()

	outcome, err := m.Register(ctx, domain.RegisterRequest{
		AccountType: domain.AccountTypeFarmer,
		FullName:    "Ani Petrosyan",
		Phone:       "+374 99 123 456",
		Password:    password,
	})
	require.NoError(t, err)
	require.True(t, outcome.RequiresVerification)
	assert.False(t, m.Snapshot().Authenticated(), "registration alone does not sign in")

	code, ok := s.srv.PendingCode(phone)
	require.True(t, ok)
	require.NoError(t, m.VerifyOTP(ctx, phone, code, domain.OTPPurposeRegistration))
	m.Wait()
}

func TestSessionLifecycle(t *testing.T) {
	for _, nest := range []bool{false, true} {
		name := "flat responses"
		if nest {
			name = "nested responses"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStack(t, nest)

			first := s.manager(t)
			require.NoError(t, first.Restore(ctx))
			assert.Equal(t, domain.PhaseUnauthenticated, first.Snapshot().Phase())

			s.registerVerified(t, first)
			snap := first.Snapshot()
			require.True(t, snap.Authenticated())
			assert.Equal(t, phone, snap.User.Phone)
			assert.Equal(t, domain.AccountTypeFarmer, snap.User.AccountType)
			require.NotNil(t, snap.Profile, "profile is backfilled after sign-in")
			assert.Equal(t, "Ani Petrosyan", snap.Profile.FullName)

			// A second process restores from the shared store.
			second := s.manager(t)
			require.NoError(t, second.Restore(ctx))
			second.Wait()
			restored := second.Snapshot()
			require.True(t, restored.Authenticated())
			assert.Equal(t, snap.User.ID, restored.User.ID)
			assert.Equal(t, snap.AccessToken, restored.AccessToken)
			require.NotNil(t, restored.Profile)

			farm := "Ararat Orchards"
			require.NoError(t, second.UpdateProfile(ctx, domain.ProfilePatch{FarmName: &farm}))
			assert.Equal(t, "Ararat Orchards", second.Snapshot().Profile.FarmName)

			require.NoError(t, second.RefreshTokens(ctx))
			refreshed := second.Snapshot()
			assert.NotEqual(t, snap.AccessToken, refreshed.AccessToken)
			assert.NotEqual(t, snap.RefreshToken, refreshed.RefreshToken)
			assert.Equal(t, snap.User.ID, refreshed.User.ID)

			require.NoError(t, second.Logout(ctx))
			assert.False(t, second.Snapshot().Authenticated())
			assert.Equal(t, 0, s.store.Len())

			_, err := s.gw.VerifySession(ctx, refreshed.AccessToken)
			assert.True(t, apperrors.IsType(err, apperrors.TypeUnauthorized), "logout revokes the token")

			third := s.manager(t)
			require.NoError(t, third.Restore(ctx))
			assert.Equal(t, domain.PhaseUnauthenticated, third.Snapshot().Phase())
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, false)
	m := s.manager(t)

	_, err := m.Register(ctx, domain.RegisterRequest{
		AccountType: domain.AccountTypeBuyer,
		FullName:    "Aram",
		Phone:       phone,
		Password:    password,
	})
	require.NoError(t, err)

	err = m.Login(ctx, phone, password)
	assert.True(t, apperrors.IsType(err, apperrors.TypeRejected), "unverified accounts can not sign in")

	code, _ := s.srv.PendingCode(phone)
	require.NoError(t, m.VerifyOTP(ctx, phone, code, ""))
	require.NoError(t, m.Logout(ctx))

	err = m.Login(ctx, phone, "wrong-password")
	assert.True(t, apperrors.IsType(err, apperrors.TypeUnauthorized))
	assert.False(t, m.Snapshot().Authenticated())

	require.NoError(t, m.Login(ctx, phone, password))
	m.Wait()
	snap := m.Snapshot()
	assert.True(t, snap.Authenticated())
	assert.Equal(t, domain.AccountTypeBuyer, snap.User.AccountType)
	assert.NotNil(t, snap.Profile)
}

func TestRegister_DuplicatePhoneConflicts(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, false)
	m := s.manager(t)
	req := domain.RegisterRequest{AccountType: domain.AccountTypeFarmer, FullName: "Ani", Phone: phone, Password: password}

	_, err := m.Register(ctx, req)
	require.NoError(t, err)
	_, err = m.Register(ctx, req)

	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict))
	assert.Equal(t, "An account with this phone number already exists.", apperrors.UserMessage(err))
}

func TestVerifyOTP_WrongCodes(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, false)
	m := s.manager(t)
	_, err := m.Register(ctx, domain.RegisterRequest{AccountType: domain.AccountTypeFarmer, FullName: "Ani", Phone: phone, Password: password})
	require.NoError(t, err)

	code, _ := s.srv.PendingCode(phone)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	err = m.VerifyOTP(ctx, phone, wrong, "")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))
	assert.Equal(t, "Invalid or expired code.", apperrors.UserMessage(err))

	for range 3 {
		_ = m.VerifyOTP(ctx, phone, wrong, "")
	}
	err = m.VerifyOTP(ctx, phone, wrong, "")
	assert.True(t, apperrors.IsType(err, apperrors.TypeRejected), "the fifth wrong code burns it")

	require.NoError(t, m.SendOTP(ctx, phone, domain.OTPPurposeRegistration))
	fresh, ok := s.srv.PendingCode(phone)
	require.True(t, ok)
	require.NoError(t, m.VerifyOTP(ctx, phone, fresh, ""))
	assert.True(t, m.Snapshot().Authenticated())
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, false)
	m := s.manager(t)
	s.registerVerified(t, m)
	require.NoError(t, m.Logout(ctx))

	require.NoError(t, m.ForgotPassword(ctx, "+37477000000"), "unknown accounts get the same answer")
	_, ok := s.srv.PendingCode("+37477000000")
	assert.False(t, ok)

	require.NoError(t, m.ForgotPassword(ctx, phone))
	code, ok := s.srv.PendingCode(phone)
	require.True(t, ok)

	require.NoError(t, m.VerifyOTP(ctx, phone, code, domain.OTPPurposePasswordReset))
	assert.False(t, m.Snapshot().Authenticated(), "a reset code does not sign in")
}

func TestUpdateContact_EmailBecomesLoginIdentifier(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, false)
	m := s.manager(t)
	s.registerVerified(t, m)

	require.NoError(t, m.UpdateContact(ctx, "Ani@Example.am"))
	assert.NotNil(t, m.Snapshot().Profile)

	require.NoError(t, m.Logout(ctx))
	require.NoError(t, m.Login(ctx, "ani@example.am", password))
	assert.True(t, m.Snapshot().Authenticated())
}

func TestRestore_ExpiredTokenClearsSession(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, false)
	s.registerVerified(t, s.manager(t))

	s.clock.Advance(16 * time.Minute)

	m := s.manager(t)
	require.NoError(t, m.Restore(ctx))
	assert.Equal(t, domain.PhaseUnauthenticated, m.Snapshot().Phase())
	assert.Equal(t, 0, s.store.Len())
}

func TestRestore_BackendDownKeepsCachedUser(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, false)
	s.registerVerified(t, s.manager(t))

	s.ts.Close()

	m := s.manager(t)
	require.NoError(t, m.Restore(ctx))
	snap := m.Snapshot()
	require.True(t, snap.Authenticated())
	assert.Equal(t, phone, snap.User.Phone)
	assert.Equal(t, 3, s.store.Len())
}
