package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pscheid92/agromarket/internal/credentials/credentialstest"
	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/pscheid92/agromarket/internal/metrics"
	"github.com/pscheid92/agromarket/internal/platform/crypto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestNewKeys(t *testing.T) {
	k := NewKeys("")
	assert.Equal(t, "agromarket:access_token", k.AccessToken)
	assert.Equal(t, "agromarket:refresh_token", k.RefreshToken)
	assert.Equal(t, "agromarket:user", k.User)
	assert.Equal(t, []string{k.AccessToken, k.RefreshToken, k.User}, k.All())

	assert.Equal(t, "dev:user", NewKeys("dev").User)
}

func TestMemoryStore_Contract(t *testing.T) {
	credentialstest.Run(t, func(t *testing.T) domain.CredentialStore {
		return NewMemoryStore()
	})
}

func TestFileStore_Contract(t *testing.T) {
	credentialstest.Run(t, func(t *testing.T) domain.CredentialStore {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		return store
	})
}

func TestEncryptedStore_Contract(t *testing.T) {
	aesSvc, err := crypto.NewAesGcmService(testKey)
	require.NoError(t, err)

	credentialstest.Run(t, func(t *testing.T) domain.CredentialStore {
		return NewEncryptedStore(NewMemoryStore(), aesSvc)
	})
}

func TestInstrumented_Contract(t *testing.T) {
	credentialstest.Run(t, func(t *testing.T) domain.CredentialStore {
		return NewInstrumented(NewMemoryStore(), "memory")
	})
}

func TestMemoryStore_RejectsEmptyKey(t *testing.T) {
	store := NewMemoryStore()
	err := store.SetMany(context.Background(), map[string]string{"": "x"})
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.SetMany(ctx, map[string]string{"agromarket:access_token": "tok1"}))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := second.GetMany(ctx, []string{"agromarket:access_token"})
	require.NoError(t, err)
	assert.Equal(t, "tok1", got["agromarket:access_token"])

	info, err := os.Stat(first.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, store.RemoveMany(ctx, []string{"a"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fileName, entries[0].Name())
}

func TestFileStore_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("{not json"), 0o600))

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.GetMany(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "failed to decode credentials")
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestEncryptedStore_SealsValuesAtRest(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	aesSvc, err := crypto.NewAesGcmService(testKey)
	require.NoError(t, err)
	store := NewEncryptedStore(inner, aesSvc)

	require.NoError(t, store.SetMany(ctx, map[string]string{"agromarket:access_token": "tok1"}))

	raw, err := inner.GetMany(ctx, []string{"agromarket:access_token"})
	require.NoError(t, err)
	assert.NotEqual(t, "tok1", raw["agromarket:access_token"])
	assert.NotContains(t, raw["agromarket:access_token"], "tok1")
}

func TestEncryptedStore_DropsSwappedValues(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	aesSvc, err := crypto.NewAesGcmService(testKey)
	require.NoError(t, err)
	store := NewEncryptedStore(inner, aesSvc)

	require.NoError(t, store.SetMany(ctx, map[string]string{"k:access_token": "tok1", "k:refresh_token": "ref1"}))

	// Swap the sealed values between keys; associated data must reject both.
	raw, err := inner.GetMany(ctx, []string{"k:access_token", "k:refresh_token"})
	require.NoError(t, err)
	require.NoError(t, inner.SetMany(ctx, map[string]string{
		"k:access_token":  raw["k:refresh_token"],
		"k:refresh_token": raw["k:access_token"],
	}))

	got, err := store.GetMany(ctx, []string{"k:access_token", "k:refresh_token"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEncryptedStore_UnreadableValueRemovesWholeSet(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	aesSvc, err := crypto.NewAesGcmService(testKey)
	require.NoError(t, err)
	store := NewEncryptedStore(inner, aesSvc)
	keys := NewKeys("k")

	require.NoError(t, store.SetMany(ctx, map[string]string{
		keys.AccessToken:  "tok1",
		keys.RefreshToken: "ref1",
		keys.User:         `{"id":"u1"}`,
	}))
	require.NoError(t, inner.SetMany(ctx, map[string]string{keys.AccessToken: "not-sealed"}))

	got, err := store.GetMany(ctx, keys.All())
	require.NoError(t, err)
	assert.Empty(t, got)

	raw, err := inner.GetMany(ctx, keys.All())
	require.NoError(t, err)
	assert.Empty(t, raw, "sealed refresh token and user must not outlive the broken set")
}

func TestEncryptedStore_PassphraseService(t *testing.T) {
	ctx := context.Background()
	svc, err := crypto.NewPassphraseService("correct horse battery staple", crypto.ScryptParams{N: 1 << 10, R: 8, P: 1})
	require.NoError(t, err)
	store := NewEncryptedStore(NewMemoryStore(), svc)

	require.NoError(t, store.SetMany(ctx, map[string]string{"k:user": `{"id":"u1"}`}))
	got, err := store.GetMany(ctx, []string{"k:user"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, got["k:user"])
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) SetMany(context.Context, map[string]string) error {
	return errors.New("disk full")
}

func TestInstrumented_RecordsOutcome(t *testing.T) {
	ctx := context.Background()
	metrics.StoreOpsTotal.Reset()

	ok := NewInstrumented(NewMemoryStore(), "memory")
	require.NoError(t, ok.SetMany(ctx, map[string]string{"a": "1"}))
	_, err := ok.GetMany(ctx, []string{"a"})
	require.NoError(t, err)

	bad := NewInstrumented(&failingStore{MemoryStore: NewMemoryStore()}, "memory")
	assert.Error(t, bad.SetMany(ctx, map[string]string{"a": "1"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOpsTotal.WithLabelValues("memory", "set", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOpsTotal.WithLabelValues("memory", "get", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOpsTotal.WithLabelValues("memory", "set", "error")))
}
