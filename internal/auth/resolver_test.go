package auth_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/auth"
	"github.com/firemart/storefront/internal/gateway"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// fakeSessions is a hand-rolled SessionAPI: the resolver tests care about
// scripted returns, not call assertions.
type fakeSessions struct {
	session    *gateway.Session
	getErr     error
	refreshErr error
	signOutErr error
}

func (f *fakeSessions) GetSession(context.Context) (*gateway.Session, error) {
	return f.session, f.getErr
}

func (f *fakeSessions) RefreshSession(context.Context) (*gateway.Session, error) {
	return f.session, f.refreshErr
}

func (f *fakeSessions) SignOut(context.Context) error { return f.signOutErr }

// blockingRoleStore parks every RoleFor call until release is closed, so
// tests can hold a resolution in flight deliberately.
type blockingRoleStore struct {
	mu      sync.Mutex
	roles   map[uint64]string
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingRoleStore) RoleFor(_ context.Context, userID uint64) (string, error) {
	b.calls.Add(1)
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roles[userID], nil
}

type noQuotes struct{}

func (noQuotes) HasQuoteFor(context.Context, uint64, string) (bool, error) { return false, nil }

type noEmails struct{}

func (noEmails) EmailFor(context.Context, uint64) (string, error) { return "", nil }

func newResolver(sessions auth.SessionAPI, store auth.RoleStore) *auth.Resolver {
	svc := auth.NewRoleService(store, noQuotes{}, noEmails{}, zap.NewNop())
	return auth.NewResolver(sessions, svc, zap.NewNop())
}

func session(userID uint64) *gateway.Session {
	return &gateway.Session{UserID: userID, Email: "u@x.com", AccessToken: "tok"}
}

func TestHandleSessionChange_NilSessionClearsState(t *testing.T) {
	store := &blockingRoleStore{roles: map[uint64]string{1: "admin"}}
	r := newResolver(&fakeSessions{}, store)

	// Establish an authenticated admin state first.
	r.HandleSessionChange(context.Background(), session(1), gateway.EventSignedIn)
	require.Equal(t, auth.RoleAdmin, r.State().Role)

	r.HandleSessionChange(context.Background(), nil, gateway.EventSignedOut)

	st := r.State()
	assert.Zero(t, st.UserID)
	assert.Equal(t, auth.RoleNone, st.Role)
	assert.False(t, st.Loading)
	assert.False(t, st.IsAuthenticated())
}

func TestHandleSessionChange_ResolvesRole(t *testing.T) {
	store := &blockingRoleStore{roles: map[uint64]string{9: "seller"}}
	r := newResolver(&fakeSessions{}, store)

	r.HandleSessionChange(context.Background(), session(9), gateway.EventSignedIn)

	st := r.State()
	assert.Equal(t, uint64(9), st.UserID)
	assert.Equal(t, auth.RoleSeller, st.Role)
	assert.False(t, st.Loading)
	assert.True(t, st.IsAuthenticated())
}

func TestHandleSessionChange_DuplicateEventIsNoOp(t *testing.T) {
	store := &blockingRoleStore{
		roles:   map[uint64]string{2: "admin"},
		release: make(chan struct{}),
	}
	r := newResolver(&fakeSessions{}, store)

	done := make(chan struct{})
	go func() {
		r.HandleSessionChange(context.Background(), session(2), gateway.EventInitialLoad)
		close(done)
	}()

	// Wait for the first resolution to be parked inside the role lookup.
	require.Eventually(t, func() bool { return store.calls.Load() == 1 },
		waitFor, tick)
	assert.True(t, r.State().Loading)

	// A redundant notification for the same session must be dropped while
	// the first resolution is still pending.
	r.HandleSessionChange(context.Background(), session(2), gateway.EventTokenRefreshed)

	close(store.release)
	<-done

	st := r.State()
	assert.Equal(t, auth.RoleAdmin, st.Role)
	assert.False(t, st.Loading)
	assert.EqualValues(t, 1, store.calls.Load(), "duplicate event must not trigger a second lookup")
}

func TestHandleSessionChange_NewerSessionSupersedesInFlight(t *testing.T) {
	release1 := make(chan struct{})
	store := &superseding{
		first:   release1,
		roles:   map[uint64]string{1: "admin", 2: "seller"},
	}
	r := newResolver(&fakeSessions{}, store)

	done := make(chan struct{})
	go func() {
		r.HandleSessionChange(context.Background(), session(1), gateway.EventSignedIn)
		close(done)
	}()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, waitFor, tick)

	// A sign-in for a different user lands while user 1 is still resolving.
	r.HandleSessionChange(context.Background(), session(2), gateway.EventSignedIn)
	st := r.State()
	require.Equal(t, uint64(2), st.UserID)
	require.Equal(t, auth.RoleSeller, st.Role)

	// Now let the stale resolution finish: its result must be discarded.
	close(release1)
	<-done

	st = r.State()
	assert.Equal(t, uint64(2), st.UserID)
	assert.Equal(t, auth.RoleSeller, st.Role, "stale resolution must not overwrite the newer one")
	assert.False(t, st.Loading)
}

// superseding blocks only the first RoleFor call; later calls return
// immediately so the superseding resolution can complete while the first
// one is still parked.
type superseding struct {
	mu    sync.Mutex
	roles map[uint64]string
	first chan struct{}
	calls atomic.Int32
}

func (s *superseding) RoleFor(_ context.Context, userID uint64) (string, error) {
	if s.calls.Add(1) == 1 {
		<-s.first
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roles[userID], nil
}

func TestInitialize_FetchFailureSettlesSignedOut(t *testing.T) {
	r := newResolver(&fakeSessions{getErr: errors.New("network")}, &blockingRoleStore{})

	r.Initialize(context.Background())

	st := r.State()
	assert.False(t, st.IsAuthenticated())
	assert.Equal(t, auth.RoleNone, st.Role)
	assert.False(t, st.Loading)
}

func TestInitialize_ExistingSessionResolves(t *testing.T) {
	store := &blockingRoleStore{roles: map[uint64]string{4: "admin"}}
	r := newResolver(&fakeSessions{session: session(4)}, store)

	r.Initialize(context.Background())

	st := r.State()
	assert.Equal(t, uint64(4), st.UserID)
	assert.Equal(t, auth.RoleAdmin, st.Role)
}

func TestSignOut_ClearsEvenWhenBackendFails(t *testing.T) {
	store := &blockingRoleStore{roles: map[uint64]string{4: "admin"}}
	sessions := &fakeSessions{signOutErr: errors.New("broker hiccup")}
	r := newResolver(sessions, store)
	r.HandleSessionChange(context.Background(), session(4), gateway.EventSignedIn)
	require.True(t, r.State().IsAuthenticated())

	r.SignOut(context.Background())

	st := r.State()
	assert.False(t, st.IsAuthenticated())
	assert.Equal(t, auth.RoleNone, st.Role)
}

func TestRefreshAuth_NoSessionClears(t *testing.T) {
	store := &blockingRoleStore{roles: map[uint64]string{4: "admin"}}
	sessions := &fakeSessions{}
	r := newResolver(sessions, store)
	r.HandleSessionChange(context.Background(), session(4), gateway.EventSignedIn)
	require.True(t, r.State().IsAuthenticated())

	// Backend reports no session on manual refresh (e.g. it expired).
	sessions.session = nil
	r.RefreshAuth(context.Background())

	assert.False(t, r.State().IsAuthenticated())
}
