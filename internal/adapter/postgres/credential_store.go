package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/agromarket/internal/domain"
)

const (
	selectCredentials = `SELECT key, value FROM credentials WHERE key = ANY($1)`
	upsertCredential  = `
		INSERT INTO credentials (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteCredentials = `DELETE FROM credentials WHERE key = ANY($1)`
)

// CredentialStore keeps credentials in the credentials table. Every batch
// runs in one transaction.
type CredentialStore struct {
	pool *pgxpool.Pool
}

var _ domain.CredentialStore = (*CredentialStore)(nil)

func NewCredentialStore(pool *pgxpool.Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

func (s *CredentialStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, selectCredentials, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return out, nil
}

func (s *CredentialStore) SetMany(ctx context.Context, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for k, v := range pairs {
			batch.Queue(upsertCredential, k, v)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to write credentials: %w", err)
		}
		return nil
	})
}

func (s *CredentialStore) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, deleteCredentials, keys); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
