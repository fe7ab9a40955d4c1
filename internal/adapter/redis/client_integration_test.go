package redis

import (
	"context"
	"testing"

	"github.com/pscheid92/agromarket/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHook_MissingKeyIsNotAnError(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	gets := metrics.RedisOpsTotal.WithLabelValues("get", "success")
	before := testutil.ToFloat64(gets)

	err := client.Get(ctx, "agromarket:missing").Err()
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(gets))
	assert.Zero(t, testutil.ToFloat64(metrics.RedisOpsTotal.WithLabelValues("get", "error")))
}
