package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/agromarket/internal/credentials"
	"github.com/pscheid92/agromarket/internal/domain"
	apperrors "github.com/pscheid92/agromarket/internal/platform/errors"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockGateway struct {
	mu    sync.Mutex
	calls map[string]int

	loginFn          func(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
	registerFn       func(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error)
	sendOTPFn        func(ctx context.Context, req domain.OTPSendRequest) (*domain.AuthResponse, error)
	verifyOTPFn      func(ctx context.Context, req domain.OTPVerifyRequest) (*domain.AuthResponse, error)
	verifySessionFn  func(ctx context.Context, accessToken string) (*domain.AuthResponse, error)
	refreshTokenFn   func(ctx context.Context, refreshToken string) (*domain.AuthResponse, error)
	logoutFn         func(ctx context.Context, accessToken string) error
	forgotPasswordFn func(ctx context.Context, identifier string) (*domain.AuthResponse, error)
	getProfileFn     func(ctx context.Context, accessToken string) (*domain.AuthResponse, error)
	updateProfileFn  func(ctx context.Context, accessToken string, patch domain.ProfilePatch) (*domain.AuthResponse, error)
	updateContactFn  func(ctx context.Context, accessToken, identifier string) error
}

func (g *mockGateway) record(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[name]++
}

func (g *mockGateway) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *mockGateway) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

var errNotImplemented = fmt.Errorf("not implemented")

func (g *mockGateway) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	g.record("login")
	if g.loginFn != nil {
		return g.loginFn(ctx, req)
	}
	return nil, errNotImplemented
}

func (g *mockGateway) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	g.record("register")
	if g.registerFn != nil {
		return g.registerFn(ctx, req)
	}
	return nil, errNotImplemented
}

func (g *mockGateway) SendOTP(ctx context.Context, req domain.OTPSendRequest) (*domain.AuthResponse, error) {
	g.record("send_otp")
	if g.sendOTPFn != nil {
		return g.sendOTPFn(ctx, req)
	}
	return nil, errNotImplemented
}

func (g *mockGateway) VerifyOTP(ctx context.Context, req domain.OTPVerifyRequest) (*domain.AuthResponse, error) {
	g.record("verify_otp")
	if g.verifyOTPFn != nil {
		return g.verifyOTPFn(ctx, req)
	}
	return nil, errNotImplemented
}

func (g *mockGateway) VerifySession(ctx context.Context, accessToken string) (*domain.AuthResponse, error) {
	g.record("verify_session")
	if g.verifySessionFn != nil {
		return g.verifySessionFn(ctx, accessToken)
	}
	return nil, errNotImplemented
}

func (g *mockGateway) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResponse, error) {
	g.record("refresh")
	if g.refreshTokenFn != nil {
		return g.refreshTokenFn(ctx, refreshToken)
	}
	return nil, errNotImplemented
}

func (g *mockGateway) Logout(ctx context.Context, accessToken string) error {
	g.record("logout")
	if g.logoutFn != nil {
		return g.logoutFn(ctx, accessToken)
	}
	return nil
}

func (g *mockGateway) ForgotPassword(ctx context.Context, identifier string) (*domain.AuthResponse, error) {
	g.record("forgot_password")
	if g.forgotPasswordFn != nil {
		return g.forgotPasswordFn(ctx, identifier)
	}
	return nil, errNotImplemented
}

func (g *mockGateway) GetProfile(ctx context.Context, accessToken string) (*domain.AuthResponse, error) {
	g.record("get_profile")
	if g.getProfileFn != nil {
		return g.getProfileFn(ctx, accessToken)
	}
	return nil, apperrors.TransientError("", errNotImplemented)
}

func (g *mockGateway) UpdateProfile(ctx context.Context, accessToken string, patch domain.ProfilePatch) (*domain.AuthResponse, error) {
	g.record("update_profile")
	if g.updateProfileFn != nil {
		return g.updateProfileFn(ctx, accessToken, patch)
	}
	return nil, errNotImplemented
}

func (g *mockGateway) UpdateContact(ctx context.Context, accessToken, identifier string) error {
	g.record("update_contact")
	if g.updateContactFn != nil {
		return g.updateContactFn(ctx, accessToken, identifier)
	}
	return errNotImplemented
}

// recordingStore counts batch calls and can fail on demand.
type recordingStore struct {
	*credentials.MemoryStore

	mu          sync.Mutex
	getCalls    int
	setCalls    int
	removeCalls int
	getErr      error
	setErr      error
	removeErr   error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: credentials.NewMemoryStore()}
}

func (s *recordingStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	s.mu.Lock()
	s.getCalls++
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.GetMany(ctx, keys)
}

func (s *recordingStore) SetMany(ctx context.Context, pairs map[string]string) error {
	s.mu.Lock()
	s.setCalls++
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.SetMany(ctx, pairs)
}

func (s *recordingStore) RemoveMany(ctx context.Context, keys []string) error {
	s.mu.Lock()
	s.removeCalls++
	err := s.removeErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.RemoveMany(ctx, keys)
}

func (s *recordingStore) writes() (set, remove int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCalls, s.removeCalls
}

// --- Helpers ---

var testKeys = credentials.NewKeys("agromarket")

const testCooldown = 60 * time.Second

func newTestManager(t *testing.T, gw *mockGateway, store *recordingStore) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	m := NewManager(gw, gw, store, Options{Keys: testKeys, OTPCooldown: testCooldown, Clock: clock})
	t.Cleanup(m.Wait)
	return m, clock
}

func seedStore(t *testing.T, store *recordingStore, pairs map[string]string) {
	t.Helper()
	require.NoError(t, store.MemoryStore.SetMany(context.Background(), pairs))
}

func storedTriplet(t *testing.T, store *recordingStore) map[string]string {
	t.Helper()
	got, err := store.MemoryStore.GetMany(context.Background(), testKeys.All())
	require.NoError(t, err)
	return got
}

func ptr[T any](v T) *T { return &v }

func authOK(token, refresh string, user *domain.User) *domain.AuthResponse {
	return &domain.AuthResponse{AccessToken: token, RefreshToken: refresh, User: user}
}

func profileResponse(p *domain.Profile) *domain.AuthResponse {
	return &domain.AuthResponse{Profile: p}
}

// assertInvariant checks that a user is present exactly when an access token is.
func assertInvariant(t *testing.T, s domain.Session) {
	t.Helper()
	require.Equal(t, s.User != nil, s.AccessToken != "", "user/access token invariant violated: %+v", s)
}

type stubCooldown struct {
	wait     time.Duration
	err      error
	acquired []string
	released []string
}

func (c *stubCooldown) Acquire(_ context.Context, identifier string) (time.Duration, error) {
	c.acquired = append(c.acquired, identifier)
	return c.wait, c.err
}

func (c *stubCooldown) Release(_ context.Context, identifier string) error {
	c.released = append(c.released, identifier)
	return nil
}
