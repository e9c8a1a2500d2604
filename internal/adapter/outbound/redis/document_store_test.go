package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniedit/ghiblify/internal/port/outbound"
)

func setupStore(t *testing.T) (*DocumentStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDocumentStore(client), mr
}

func TestDocumentStore_LoadSave(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "users", []byte(`{"user123":{"count":5}}`)))

	got, err := mr.Get("ledger:doc:users")
	require.NoError(t, err)
	assert.Equal(t, `{"user123":{"count":5}}`, got)

	data, err := store.Load(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, `{"user123":{"count":5}}`, string(data))
	assert.False(t, mr.Exists("ledger:doc:history"))
}

func TestDocumentStore_Missing(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Load(context.Background(), "history")
	assert.ErrorIs(t, err, outbound.ErrDocumentNotFound)
}

func TestDocumentStore_ServerDown(t *testing.T) {
	store, mr := setupStore(t)
	mr.Close()

	_, err := store.Load(context.Background(), "users")
	require.Error(t, err)
	assert.NotErrorIs(t, err, outbound.ErrDocumentNotFound)
}
