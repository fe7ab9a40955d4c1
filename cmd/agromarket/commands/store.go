package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/agromarket/internal/adapter/postgres"
	redisadapter "github.com/pscheid92/agromarket/internal/adapter/redis"
	"github.com/pscheid92/agromarket/internal/credentials"
	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/platform/config"
	"github.com/pscheid92/agromarket/internal/platform/crypto"
)

const connectTimeout = 10 * time.Second

type backend struct {
	store domain.CredentialStore
	// cooldown is set when the backend can share code cooldowns between
	// processes.
	cooldown domain.CodeCooldown
	close    func()
}

// openStore builds the configured credential backend, wrapped in encryption
// when a key or passphrase is set, and instrumented for metrics.
func openStore(ctx context.Context, cfg *config.Config) (*backend, error) {
	var (
		store    domain.CredentialStore
		cooldown domain.CodeCooldown
		closeFn  = func() {}
	)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		store = credentials.NewMemoryStore()

	case config.BackendFile:
		dir := cfg.StoreDir
		if dir == "" {
			var err error
			if dir, err = credentials.DefaultDir(); err != nil {
				return nil, err
			}
		}
		fs, err := credentials.NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		slog.Debug("Using file credential store", "path", fs.Path())
		store = fs

	case config.BackendRedis:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		rdb, err := redisadapter.NewClient(connectCtx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		store = redisadapter.NewCredentialStore(rdb)
		cooldown = redisadapter.NewCooldown(rdb, cfg.StorePrefix, cfg.OTPResendCooldown)
		closeFn = func() { _ = rdb.Close() }

	case config.BackendPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.Migrate(connectCtx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		store = postgres.NewCredentialStore(pool)
		closeFn = pool.Close

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	svc, err := cipher(cfg)
	if err != nil {
		closeFn()
		return nil, err
	}
	if svc != nil {
		store = credentials.NewEncryptedStore(store, svc)
	}

	return &backend{
		store:    credentials.NewInstrumented(store, cfg.StoreBackend),
		cooldown: cooldown,
		close:    closeFn,
	}, nil
}

func cipher(cfg *config.Config) (crypto.Service, error) {
	switch {
	case cfg.TokenEncryptionKey != "":
		svc, err := crypto.NewAesGcmService(cfg.TokenEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create crypto service: %w", err)
		}
		return svc, nil
	case cfg.StorePassphrase != "":
		svc, err := crypto.NewPassphraseService(cfg.StorePassphrase, crypto.DefaultScryptParams)
		if err != nil {
			return nil, fmt.Errorf("failed to create crypto service: %w", err)
		}
		return svc, nil
	default:
		return nil, nil
	}
}
