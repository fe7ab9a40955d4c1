package app

import (
	"context"
	"sync"

	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/metrics"
	"github.com/pscheid92/agromarket/internal/session"
)

// Service is the only component presentation code references. It owns no
// session state; the Manager does.
type Service struct {
	sessions *session.Manager

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

func NewService(sessions *session.Manager) *Service {
	s := &Service{
		sessions: sessions,
		subs:     make(map[*subscriber]struct{}),
	}
	sessions.Watch(s.publish)
	return s
}

// Snapshot returns the current session.
func (s *Service) Snapshot() domain.Session {
	return s.sessions.Snapshot()
}

// IsAuthenticated is derived from the presence of a user.
func (s *Service) IsAuthenticated() bool {
	return s.sessions.Snapshot().Authenticated()
}

// Subscribe returns a channel that carries the current snapshot and then
// every newer one. A slow reader only ever sees the latest snapshot. The
// returned func unsubscribes and closes the channel; it is safe to call more
// than once.
func (s *Service) Subscribe() (<-chan domain.Session, func()) {
	sub := newSubscriber()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	metrics.SessionSubscribers.Inc()

	sub.offer(s.sessions.Snapshot())

	return sub.ch, func() { s.unsubscribe(sub) }
}

func (s *Service) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	_, ok := s.subs[sub]
	delete(s.subs, sub)
	s.mu.Unlock()

	if ok {
		metrics.SessionSubscribers.Dec()
		sub.close()
	}
}

func (s *Service) publish(snap domain.Session) {
	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.offer(snap)
	}
}

// Close waits for background session work and closes every subscription.
func (s *Service) Close() {
	s.sessions.Wait()

	s.mu.Lock()
	s.closed = true
	subs := s.subs
	s.subs = make(map[*subscriber]struct{})
	s.mu.Unlock()

	for sub := range subs {
		metrics.SessionSubscribers.Dec()
		sub.close()
	}
}

// Wait blocks until background work such as the profile backfill is done.
func (s *Service) Wait() {
	s.sessions.Wait()
}

func (s *Service) Restore(ctx context.Context) error {
	return s.sessions.Restore(ctx)
}

func (s *Service) Login(ctx context.Context, identifier, secret string) error {
	return s.sessions.Login(ctx, identifier, secret)
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterOutcome, error) {
	return s.sessions.Register(ctx, req)
}

func (s *Service) SendOTP(ctx context.Context, identifier string, purpose domain.OTPPurpose) error {
	return s.sessions.SendOTP(ctx, identifier, purpose)
}

func (s *Service) VerifyOTP(ctx context.Context, identifier, code string, purpose domain.OTPPurpose) error {
	return s.sessions.VerifyOTP(ctx, identifier, code, purpose)
}

func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Logout(ctx)
}

func (s *Service) RefreshTokens(ctx context.Context) error {
	return s.sessions.RefreshTokens(ctx)
}

func (s *Service) ForgotPassword(ctx context.Context, identifier string) error {
	return s.sessions.ForgotPassword(ctx, identifier)
}

func (s *Service) FetchProfile(ctx context.Context) error {
	return s.sessions.FetchProfile(ctx)
}

func (s *Service) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) error {
	return s.sessions.UpdateProfile(ctx, patch)
}

func (s *Service) UpdateContact(ctx context.Context, identifier string) error {
	return s.sessions.UpdateContact(ctx, identifier)
}

func (s *Service) UpdateUser(patch domain.UserPatch) {
	s.sessions.UpdateUser(patch)
}
