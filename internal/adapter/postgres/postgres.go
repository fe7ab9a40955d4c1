package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"github.com/pscheid92/agromarket/internal/metrics"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	applicationName = "agromarket"

	// A CLI process holds one session; a couple of connections cover a batch
	// plus the migration connection. pool_max_conns in the URL overrides it.
	defaultMaxConns = 2

	schemaVersionTable = "public.agromarket_schema_version"

	// migrationLockID is the advisory lock taken while migrating ("agrom" in ASCII hex).
	migrationLockID      = 0x6167726f6d
	migrationLockTimeout = 5 * time.Second
)

// Connect opens a pool tagged with the application name so credential
// traffic is recognisable in pg_stat_activity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if !strings.Contains(databaseURL, "pool_max_conns") {
		poolCfg.MaxConns = defaultMaxConns
	}
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	RecordPoolStats(pool)
	slog.Debug("Credential database connected", "max_conns", poolCfg.MaxConns)
	return pool, nil
}

// RecordPoolStats publishes the pool's connection counts.
func RecordPoolStats(pool *pgxpool.Pool) {
	stat := pool.Stat()
	metrics.DBConnectionsCurrent.WithLabelValues("active").Set(float64(stat.AcquiredConns()))
	metrics.DBConnectionsCurrent.WithLabelValues("idle").Set(float64(stat.IdleConns()))
}

// Migrate brings the credentials schema up to date. Processes starting at
// the same time serialize on an advisory lock, so only the first one applies
// pending migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	return withAdvisoryLock(ctx, conn.Conn(), func() error {
		from, to, err := migrateSchema(ctx, conn.Conn())
		if err != nil {
			return err
		}
		if from != to {
			slog.Info("Credential schema migrated", "from_version", from, "to_version", to)
		}
		return nil
	})
}

func migrateSchema(ctx context.Context, conn *pgx.Conn) (from, to int32, err error) {
	migrationFS, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read migrations: %w", err)
	}

	migrator, err := migrate.NewMigrator(ctx, conn, schemaVersionTable)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := migrator.LoadMigrations(migrationFS); err != nil {
		return 0, 0, fmt.Errorf("failed to load migrations: %w", err)
	}

	// NewMigrator creates the version table, so a fresh database reports 0.
	if from, err = migrator.GetCurrentVersion(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if err := migrator.Migrate(ctx); err != nil {
		return from, from, fmt.Errorf("failed to migrate credential schema: %w", err)
	}
	return from, int32(len(migrator.Migrations)), nil
}

// withAdvisoryLock runs fn while holding the migration lock on conn. The
// unlock gets its own deadline so a cancelled ctx still releases the lock.
func withAdvisoryLock(ctx context.Context, conn *pgx.Conn, fn func() error) error {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), migrationLockTimeout)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			slog.Error("Failed to release migration lock", "error", err)
		}
	}()
	return fn()
}
