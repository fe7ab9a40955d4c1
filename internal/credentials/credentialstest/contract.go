// Package credentialstest holds the behavioral contract every
// domain.CredentialStore implementation must satisfy.
package credentialstest

import (
	"context"
	"testing"

	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyAccess  = "test:access_token"
	keyRefresh = "test:refresh_token"
	keyUser    = "test:user"
)

var triplet = []string{keyAccess, keyRefresh, keyUser}

// Run exercises store against the contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) domain.CredentialStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store returns no values", func(t *testing.T) {
		store := newStore(t)

		got, err := store.GetMany(ctx, triplet)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("set then get triplet", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SetMany(ctx, map[string]string{
			keyAccess:  "tok1",
			keyRefresh: "ref1",
			keyUser:    `{"id":"u1","phone":"+37499123456"}`,
		}))

		got, err := store.GetMany(ctx, triplet)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			keyAccess:  "tok1",
			keyRefresh: "ref1",
			keyUser:    `{"id":"u1","phone":"+37499123456"}`,
		}, got)
	})

	t.Run("absent keys are omitted", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SetMany(ctx, map[string]string{keyAccess: "tok1"}))

		got, err := store.GetMany(ctx, triplet)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{keyAccess: "tok1"}, got)
	})

	t.Run("empty value is stored", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SetMany(ctx, map[string]string{keyAccess: "tok1", keyRefresh: ""}))

		got, err := store.GetMany(ctx, []string{keyRefresh})
		require.NoError(t, err)
		v, ok := got[keyRefresh]
		assert.True(t, ok)
		assert.Empty(t, v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SetMany(ctx, map[string]string{keyAccess: "tok1", keyUser: "u1"}))
		require.NoError(t, store.SetMany(ctx, map[string]string{keyAccess: "tok2", keyUser: "u2"}))

		got, err := store.GetMany(ctx, triplet)
		require.NoError(t, err)
		assert.Equal(t, "tok2", got[keyAccess])
		assert.Equal(t, "u2", got[keyUser])
	})

	t.Run("remove clears all listed keys", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.SetMany(ctx, map[string]string{
			keyAccess:    "tok1",
			keyRefresh:   "ref1",
			keyUser:      "u1",
			"test:other": "kept",
		}))
		require.NoError(t, store.RemoveMany(ctx, triplet))

		got, err := store.GetMany(ctx, append(triplet, "test:other"))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"test:other": "kept"}, got)
	})

	t.Run("remove of absent keys succeeds", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.RemoveMany(ctx, triplet))
	})
}
