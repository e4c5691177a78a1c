package session_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payground/internal/session"
)

func newBridge(t *testing.T) (session.Bridge, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return session.Bridge{R: client, TTL: time.Minute, Logger: zerolog.Nop()}, mr
}

func TestBridgePersistRestoreSingleUse(t *testing.T) {
	bridge, _ := newBridge(t)
	ctx := context.Background()

	state := session.DefaultState(time.Now())
	state.Response = map[string]any{"id": "123", "gw_url": "https://pay.example/123"}
	state.Error = map[string]any{}
	state.Busy = false

	require.NoError(t, bridge.Persist(ctx, "tab-1", state))

	restored, err := bridge.Restore(ctx, "tab-1")
	require.NoError(t, err)
	require.NotNil(t, restored)
	require.Equal(t, state.Draft, restored.Draft)
	require.Equal(t, state.Credentials, restored.Credentials)
	require.Equal(t, state.Response, restored.Response)

	// single-use: the persisted copy is gone after the first restore
	second, err := bridge.Restore(ctx, "tab-1")
	require.NoError(t, err)
	require.Nil(t, second)
}

func TestBridgeRestoreMissing(t *testing.T) {
	bridge, _ := newBridge(t)
	restored, err := bridge.Restore(context.Background(), "never-persisted")
	require.NoError(t, err)
	require.Nil(t, restored)
}

func TestBridgeRestoreCorruptPayloadDegradesToNil(t *testing.T) {
	bridge, mr := newBridge(t)
	require.NoError(t, mr.Set("payground:session:tab-x", "{not json"))

	restored, err := bridge.Restore(context.Background(), "tab-x")
	require.NoError(t, err)
	require.Nil(t, restored)

	// the corrupt copy was still consumed
	require.False(t, mr.Exists("payground:session:tab-x"))
}

func TestBridgeIsolatesTabs(t *testing.T) {
	bridge, _ := newBridge(t)
	ctx := context.Background()

	one := session.DefaultState(time.Now())
	one.Draft.Amount = 111
	two := session.DefaultState(time.Now())
	two.Draft.Amount = 222

	require.NoError(t, bridge.Persist(ctx, "tab-1", one))
	require.NoError(t, bridge.Persist(ctx, "tab-2", two))

	restored, err := bridge.Restore(ctx, "tab-2")
	require.NoError(t, err)
	require.Equal(t, int64(222), restored.Draft.Amount)

	restored, err = bridge.Restore(ctx, "tab-1")
	require.NoError(t, err)
	require.Equal(t, int64(111), restored.Draft.Amount)
}
