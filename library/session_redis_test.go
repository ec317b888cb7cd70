package library

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	got, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, Session{}, got)

	require.NoError(t, s.Put(ctx, "t1", Session{Username: "alice"}))
	assert.True(t, redis.Exists("session:t1"))
	assert.Equal(t, time.Minute, redis.TTL("session:t1"))

	got, err = s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	require.NoError(t, s.Delete(ctx, "t1"))
	require.NoError(t, s.Delete(ctx, "t1"))
	assert.False(t, redis.Exists("session:t1"))
}

func TestRedisSessionStoreExpiry(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "t1", Session{Username: "alice"}))
	redis.FastForward(2 * time.Minute)

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, got.Authenticated())
}

func TestRedisSessionStoreUnavailable(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	var buf bytes.Buffer
	auth := NewSessionAuth(s, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, auth.Login(ctx, "tok", "alice"))

	redis.Close()

	assert.Error(t, s.Ping(ctx))
	assert.Error(t, auth.Login(ctx, "tok", "bob"))

	// Logout still completes; the failure only shows up in the log.
	auth.Logout(ctx, "tok")
	assert.Contains(t, buf.String(), "session discard failed")
	assert.Contains(t, buf.String(), "SESSION_STORE_DELETE")

	_, ok := auth.CurrentUser(ctx, "tok")
	assert.False(t, ok)
}
