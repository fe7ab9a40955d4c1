package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_IsULID(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 26)

	_, err := ulid.Parse(id)
	require.NoError(t, err)
}

func TestNewID_Unique(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for range 100 {
		ids[NewID()] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestWithID_and_ID_Roundtrip(t *testing.T) {
	ctx := WithID(context.Background(), "01HZXK0M4E")
	id, ok := ID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "01HZXK0M4E", id)
}

func TestID_MissingOrEmpty(t *testing.T) {
	_, ok := ID(context.Background())
	assert.False(t, ok)

	_, ok = ID(WithID(context.Background(), ""))
	assert.False(t, ok)
}

func TestEnsure(t *testing.T) {
	t.Run("keeps existing ID", func(t *testing.T) {
		orig := WithID(context.Background(), "login-1")
		ctx, id := Ensure(orig)
		assert.Equal(t, "login-1", id)
		assert.Equal(t, orig, ctx)
	})

	t.Run("creates new ID", func(t *testing.T) {
		ctx, id := Ensure(context.Background())
		assert.Len(t, id, 26)
		got, ok := ID(ctx)
		assert.True(t, ok)
		assert.Equal(t, id, got)
	})
}

func TestHandler_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewHandler(inner))

	ctx := WithID(context.Background(), "test1234")
	logger.InfoContext(ctx, "Login succeeded", "user_id", "u1")

	output := buf.String()
	assert.Contains(t, output, "correlation_id=test1234")
	assert.Contains(t, output, "user_id=u1")
}

func TestHandler_NoCorrelationID_WhenMissing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "no id")
	assert.NotContains(t, buf.String(), "correlation_id")
}

func TestHandler_WithAttrsAndGroupKeepCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil))).
		With("component", "gateway").
		WithGroup("req")

	logger.InfoContext(WithID(context.Background(), "abc"), "sent", "path", "/auth/login")

	output := buf.String()
	assert.Contains(t, output, "component=gateway")
	assert.Contains(t, output, "req.path=/auth/login")
	assert.Contains(t, output, "correlation_id=abc")
}
