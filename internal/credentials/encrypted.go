package credentials

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/platform/crypto"
)

// EncryptedStore seals every value before it reaches the wrapped store. The
// key name is bound as associated data.
type EncryptedStore struct {
	inner  domain.CredentialStore
	crypto crypto.Service
}

var _ domain.CredentialStore = (*EncryptedStore)(nil)

func NewEncryptedStore(inner domain.CredentialStore, svc crypto.Service) *EncryptedStore {
	return &EncryptedStore{inner: inner, crypto: svc}
}

// GetMany treats the requested keys as one credential set. If any value fails
// to open (rotated key, tampering) the whole set is removed from the wrapped
// store and reported as absent, so the caller signs in again from scratch.
func (s *EncryptedStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	sealed, err := s.inner.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(sealed))
	for k, v := range sealed {
		plain, err := s.crypto.Open(v, k)
		if err != nil {
			slog.WarnContext(ctx, "Discarding unreadable credentials", "key", k, "error", err)
			if rerr := s.inner.RemoveMany(ctx, keys); rerr != nil {
				slog.WarnContext(ctx, "Failed to remove unreadable credentials", "error", rerr)
			}
			return map[string]string{}, nil
		}
		out[k] = plain
	}
	return out, nil
}

func (s *EncryptedStore) SetMany(ctx context.Context, pairs map[string]string) error {
	sealed := make(map[string]string, len(pairs))
	for k, v := range pairs {
		enc, err := s.crypto.Seal(v, k)
		if err != nil {
			return fmt.Errorf("failed to seal %s: %w", k, err)
		}
		sealed[k] = enc
	}
	return s.inner.SetMany(ctx, sealed)
}

func (s *EncryptedStore) RemoveMany(ctx context.Context, keys []string) error {
	return s.inner.RemoveMany(ctx, keys)
}
