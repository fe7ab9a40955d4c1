package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/agromarket/internal/domain"
	"golang.org/x/time/rate"
)

// localCooldown allows one code request per identifier per interval within
// this process.
type localCooldown struct {
	mu       sync.Mutex
	interval time.Duration
	clock    clockwork.Clock
	limiters map[string]*rate.Limiter
}

var _ domain.CodeCooldown = (*localCooldown)(nil)

func newLocalCooldown(interval time.Duration, clock clockwork.Clock) *localCooldown {
	return &localCooldown{
		interval: interval,
		clock:    clock,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (c *localCooldown) Acquire(_ context.Context, identifier string) (time.Duration, error) {
	if c.interval <= 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lim, ok := c.limiters[identifier]
	if !ok {
		lim = rate.NewLimiter(rate.Every(c.interval), 1)
		c.limiters[identifier] = lim
	}

	now := c.clock.Now()
	if lim.AllowN(now, 1) {
		return 0, nil
	}

	r := lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return wait, nil
}

func (c *localCooldown) Release(_ context.Context, identifier string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.limiters, identifier)
	return nil
}
