package credentials

import (
	"context"
	"time"

	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/metrics"
)

// Instrumented records batch counts and latency for the wrapped store.
type Instrumented struct {
	inner   domain.CredentialStore
	backend string
}

var _ domain.CredentialStore = (*Instrumented)(nil)

func NewInstrumented(inner domain.CredentialStore, backend string) *Instrumented {
	return &Instrumented{inner: inner, backend: backend}
}

func (s *Instrumented) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreOpsTotal.WithLabelValues(s.backend, operation, status).Inc()
	metrics.StoreOpDuration.WithLabelValues(s.backend, operation).Observe(time.Since(start).Seconds())
}

func (s *Instrumented) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	start := time.Now()
	out, err := s.inner.GetMany(ctx, keys)
	s.observe("get", start, err)
	return out, err
}

func (s *Instrumented) SetMany(ctx context.Context, pairs map[string]string) error {
	start := time.Now()
	err := s.inner.SetMany(ctx, pairs)
	s.observe("set", start, err)
	return err
}

func (s *Instrumented) RemoveMany(ctx context.Context, keys []string) error {
	start := time.Now()
	err := s.inner.RemoveMany(ctx, keys)
	s.observe("remove", start, err)
	return err
}
