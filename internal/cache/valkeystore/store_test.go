package valkeystore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := OpenWithOption(context.Background(), valkey.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
		AlwaysRESP2:  true,
	}, "cache:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStore_RoundTripWithPrefix(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "package_id:com.example")
	require.NoError(t, err)
	require.False(t, ok)

	payload := []byte(`{"found":true,"metatags":{"id":"com.example"}}`)
	require.NoError(t, store.Set(ctx, "package_id:com.example", payload, time.Hour))

	got, ok, err := store.Get(ctx, "package_id:com.example")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload, got)
	require.Equal(t, time.Hour, mr.TTL("cache:package_id:com.example"))
	require.NoError(t, store.Ping(ctx))
}

func TestOpen_BadURL(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "ftp://nowhere", "")
	require.Error(t, err)
}
