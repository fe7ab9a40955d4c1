package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/agromarket/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Cooldown is a domain.CodeCooldown shared by every process using the same
// Redis. A slot is a key set with NX and a TTL of one interval.
type Cooldown struct {
	rdb      *goredis.Client
	prefix   string
	interval time.Duration
}

var _ domain.CodeCooldown = (*Cooldown)(nil)

func NewCooldown(rdb *goredis.Client, prefix string, interval time.Duration) *Cooldown {
	return &Cooldown{rdb: rdb, prefix: prefix, interval: interval}
}

func (c *Cooldown) Acquire(ctx context.Context, identifier string) (time.Duration, error) {
	if c.interval <= 0 {
		return 0, nil
	}
	key := c.key(identifier)

	args := goredis.SetArgs{TTL: c.interval, Mode: "NX"}
	_, err := c.rdb.SetArgs(ctx, key, "1", args).Result()
	if err == nil {
		return 0, nil
	}
	if !errors.Is(err, goredis.Nil) {
		return 0, fmt.Errorf("failed to set cooldown: %w", err)
	}

	ttl, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read cooldown: %w", err)
	}
	// The key expired between the two calls; the next request will get it.
	if ttl <= 0 {
		return time.Millisecond, nil
	}
	return ttl, nil
}

func (c *Cooldown) Release(ctx context.Context, identifier string) error {
	if err := c.rdb.Del(ctx, c.key(identifier)).Err(); err != nil {
		return fmt.Errorf("failed to release cooldown: %w", err)
	}
	return nil
}

func (c *Cooldown) key(identifier string) string {
	return c.prefix + ":otp_cooldown:" + identifier
}
