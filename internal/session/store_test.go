package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyName)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyName, "Thabo"))
	v, ok, err := s.Get(ctx, KeyName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Thabo", v)

	require.NoError(t, s.Set(ctx, KeyName, "Lerato"))
	v, err = GetString(ctx, s, KeyName)
	require.NoError(t, err)
	assert.Equal(t, "Lerato", v)

	require.NoError(t, s.Remove(ctx, KeyName))
	require.NoError(t, s.Remove(ctx, KeyName), "removing a missing key is not an error")
	v, err = GetString(ctx, s, KeyName)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestNamespacedMemoryBackend(t *testing.T) {
	backend := NewMemoryBackend()
	exerciseStore(t, Namespaced(backend, "a"))

	ctx := context.Background()
	a := Namespaced(backend, "a")
	b := Namespaced(backend, "b")
	require.NoError(t, a.Set(ctx, KeyEmail, "a@example.com"))

	_, ok, err := b.Get(ctx, KeyEmail)
	require.NoError(t, err)
	assert.False(t, ok, "namespaces must not share keys")
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions", "spanisami.db")

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, Namespaced(store, "s1"))

	require.NoError(t, store.SetNS(ctx, "s1", KeyLoggedIn, "true"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.GetNS(ctx, "s1", KeyLoggedIn)
	require.NoError(t, err)
	assert.True(t, ok, "values survive a reopen")
	assert.Equal(t, "true", v)
}

func TestRemoveAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, KeyName, "x"))
	require.NoError(t, s.Set(ctx, KeyEmail, "y"))
	require.NoError(t, s.Set(ctx, KeyPhone, "z"))

	require.NoError(t, RemoveAll(ctx, s, KeyName, KeyEmail))
	assert.Equal(t, 1, s.Len())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	_, err = Open(ctx, Options{Driver: DriverSQLite})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: DriverPostgres})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: "redis"})
	assert.Error(t, err)
}
