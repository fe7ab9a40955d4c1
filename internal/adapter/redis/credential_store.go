package redis

import (
	"context"
	"fmt"

	"github.com/pscheid92/agromarket/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// CredentialStore keeps the credential triplet as plain Redis strings. Writes
// go through MULTI/EXEC so a batch is applied as one unit.
type CredentialStore struct {
	rdb *goredis.Client
}

var _ domain.CredentialStore = (*CredentialStore)(nil)

func NewCredentialStore(rdb *goredis.Client) *CredentialStore {
	return &CredentialStore{rdb: rdb}
}

func (s *CredentialStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	for i, v := range values {
		// MGET answers nil for missing keys
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

func (s *CredentialStore) SetMany(ctx context.Context, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, v := range pairs {
			pipe.Set(ctx, k, v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
