package redis

import (
	"context"
	"errors"
	"net"

	"github.com/pscheid92/agromarket/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// MetricsHook counts every Redis command and dial failure.
type MetricsHook struct{}

var _ goredis.Hook = (*MetricsHook)(nil)

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			metrics.RedisConnectionErrors.Inc()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		err := next(ctx, cmd)
		metrics.RedisOpsTotal.WithLabelValues(cmd.Name(), statusOf(err)).Inc()
		return err
	}
}

// ProcessPipelineHook counts a MULTI/EXEC batch as one operation.
func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		err := next(ctx, cmds)
		metrics.RedisOpsTotal.WithLabelValues("pipeline", statusOf(err)).Inc()
		return err
	}
}

func statusOf(err error) string {
	if err != nil && !errors.Is(err, goredis.Nil) {
		return "error"
	}
	return "success"
}
