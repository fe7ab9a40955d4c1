package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldown_SharedBetweenInstances(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	first := NewCooldown(client, "agromarket", time.Minute)
	second := NewCooldown(client, "agromarket", time.Minute)

	wait, err := first.Acquire(ctx, "+37499123456")
	require.NoError(t, err)
	assert.Zero(t, wait)

	wait, err = second.Acquire(ctx, "+37499123456")
	require.NoError(t, err)
	assert.Greater(t, wait, 50*time.Second)
	assert.LessOrEqual(t, wait, time.Minute)

	wait, err = second.Acquire(ctx, "ani@example.am")
	require.NoError(t, err)
	assert.Zero(t, wait, "identifiers are independent")

	require.NoError(t, first.Release(ctx, "+37499123456"))
	wait, err = second.Acquire(ctx, "+37499123456")
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestCooldown_ZeroIntervalDisables(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	c := NewCooldown(client, "agromarket", 0)

	for range 3 {
		wait, err := c.Acquire(ctx, "+37499123456")
		require.NoError(t, err)
		assert.Zero(t, wait)
	}
	n, err := client.Exists(ctx, "agromarket:otp_cooldown:+37499123456").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCooldown_Expires(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	c := NewCooldown(client, "agromarket", 200*time.Millisecond)

	_, err := c.Acquire(ctx, "+37499123456")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		wait, err := c.Acquire(ctx, "+37499123456")
		return err == nil && wait == 0
	}, 2*time.Second, 50*time.Millisecond)
}
