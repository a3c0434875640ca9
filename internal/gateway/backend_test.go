package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/config"
)

// memBackend builds a backend with no Redis so the session slot lives in
// process memory, which is all these tests need.
func memBackend() *Backend {
	return NewBackend(config.Config{JWTSecret: "test-secret", AccessTTLMin: 15}, nil, nil, zap.NewNop())
}

func TestGetSessionEmptySlot(t *testing.T) {
	b := memBackend()
	s, err := b.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestGetSessionExpiredSlotIsCleared(t *testing.T) {
	b := memBackend()
	ctx := context.Background()
	require.NoError(t, b.saveSlot(ctx, &Session{
		UserID: 1, Email: "a@b.c", ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}))

	s, err := b.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s, "expired session reads as signed out")

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Nil(t, b.memSlot, "expired session is evicted from the slot")
}

func TestSignOutEmitsNilSession(t *testing.T) {
	b := memBackend()
	ctx := context.Background()
	require.NoError(t, b.saveSlot(ctx, &Session{
		UserID: 1, Email: "a@b.c", ExpiresAt: time.Now().UTC().Add(time.Hour),
	}))

	var gotKind EventKind
	var gotSession *Session
	called := false
	b.OnSessionChange(func(kind EventKind, s *Session) {
		called = true
		gotKind = kind
		gotSession = s
	})

	require.NoError(t, b.SignOut(ctx))
	require.True(t, called)
	assert.Equal(t, EventSignedOut, gotKind)
	assert.Nil(t, gotSession)

	s, err := b.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := memBackend()
	calls := 0
	sub := b.OnSessionChange(func(EventKind, *Session) { calls++ })

	b.emit(EventTokenRefreshed, nil)
	assert.Equal(t, 1, calls)

	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent
	b.emit(EventTokenRefreshed, nil)
	assert.Equal(t, 1, calls)
}

func TestRefreshSessionWithoutSessionIsNil(t *testing.T) {
	b := memBackend()
	s, err := b.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s, "no active session to refresh")
}

func TestSessionExpired(t *testing.T) {
	live := Session{ExpiresAt: time.Now().UTC().Add(time.Minute)}
	dead := Session{ExpiresAt: time.Now().UTC().Add(-time.Minute)}
	assert.False(t, live.Expired())
	assert.True(t, dead.Expired())
}
