package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/auth"
	"github.com/firemart/storefront/internal/gateway"
)

type MockSessionFetcher struct {
	mock.Mock
}

func (m *MockSessionFetcher) GetSession(ctx context.Context) (*gateway.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Session), args.Error(1)
}

// staticState is a StateSource pinned to one snapshot.
type staticState struct{ v auth.StateView }

func (s staticState) State() auth.StateView { return s.v }

func TestMonitor_ThreeFetchFailuresTurnCritical(t *testing.T) {
	sessions := new(MockSessionFetcher)
	sessions.On("GetSession", mock.Anything).Return(nil, errors.New("network"))
	roles := new(MockRoleStore)
	m := auth.NewMonitor(sessions, roles, staticState{}, zap.NewNop())

	m.Check(context.Background())
	m.Check(context.Background())
	assert.False(t, m.Critical(), "two failures are not yet critical")

	m.Check(context.Background())
	assert.True(t, m.Critical())
	assert.Equal(t, 3, m.ConsecutiveFailures())
}

func TestMonitor_LostSessionCountsAsFailure(t *testing.T) {
	sessions := new(MockSessionFetcher)
	sessions.On("GetSession", mock.Anything).Return(nil, nil)
	roles := new(MockRoleStore)
	src := staticState{v: auth.StateView{UserID: 8, Role: auth.RoleSeller}}
	m := auth.NewMonitor(sessions, roles, src, zap.NewNop())

	m.Check(context.Background())

	assert.Equal(t, 1, m.ConsecutiveFailures())
	assert.False(t, m.Critical())
}

func TestMonitor_StateBehindSessionCountsAsFailure(t *testing.T) {
	sessions := new(MockSessionFetcher)
	sessions.On("GetSession", mock.Anything).Return(session(8), nil)
	roles := new(MockRoleStore)
	m := auth.NewMonitor(sessions, roles, staticState{}, zap.NewNop())

	m.Check(context.Background())

	assert.Equal(t, 1, m.ConsecutiveFailures())
}

func TestMonitor_MissingRoleRepairedByRequery(t *testing.T) {
	sessions := new(MockSessionFetcher)
	sessions.On("GetSession", mock.Anything).Return(session(8), nil)
	roles := new(MockRoleStore)
	roles.On("RoleFor", mock.Anything, uint64(8)).Return("seller", nil)
	src := staticState{v: auth.StateView{UserID: 8, Role: auth.RoleNone}}
	m := auth.NewMonitor(sessions, roles, src, zap.NewNop())

	m.Check(context.Background())

	assert.Equal(t, 0, m.ConsecutiveFailures())
	kg, ok := m.LastKnownGood()
	require.True(t, ok)
	assert.Equal(t, auth.KnownGood{UserID: 8, Role: auth.RoleSeller}, kg)
}

func TestMonitor_MissingRoleWithEmptyRequeryFails(t *testing.T) {
	sessions := new(MockSessionFetcher)
	sessions.On("GetSession", mock.Anything).Return(session(8), nil)
	roles := new(MockRoleStore)
	roles.On("RoleFor", mock.Anything, uint64(8)).Return("", nil)
	src := staticState{v: auth.StateView{UserID: 8, Role: auth.RoleNone}}
	m := auth.NewMonitor(sessions, roles, src, zap.NewNop())

	m.Check(context.Background())

	assert.Equal(t, 1, m.ConsecutiveFailures())
	_, ok := m.LastKnownGood()
	assert.False(t, ok)
}

func TestMonitor_ConsistentCheckResetsFailures(t *testing.T) {
	sessions := new(MockSessionFetcher)
	failing := sessions.On("GetSession", mock.Anything).Return(nil, errors.New("network"))
	roles := new(MockRoleStore)
	src := staticState{v: auth.StateView{UserID: 8, Role: auth.RoleAdmin}}
	m := auth.NewMonitor(sessions, roles, src, zap.NewNop())

	m.Check(context.Background())
	m.Check(context.Background())
	m.Check(context.Background())
	require.True(t, m.Critical())

	// Backend recovers and agrees with the resolved state.
	failing.Unset()
	sessions.On("GetSession", mock.Anything).Return(session(8), nil)
	m.Check(context.Background())

	assert.Equal(t, 0, m.ConsecutiveFailures())
	assert.False(t, m.Critical())
	kg, ok := m.LastKnownGood()
	require.True(t, ok)
	assert.Equal(t, auth.KnownGood{UserID: 8, Role: auth.RoleAdmin}, kg)
}

func TestMonitor_AgreedSignedOutIsBenign(t *testing.T) {
	sessions := new(MockSessionFetcher)
	sessions.On("GetSession", mock.Anything).Return(nil, nil)
	roles := new(MockRoleStore)
	m := auth.NewMonitor(sessions, roles, staticState{}, zap.NewNop())

	m.Check(context.Background())

	assert.Equal(t, 0, m.ConsecutiveFailures())
	_, ok := m.LastKnownGood()
	assert.False(t, ok, "signed-out agreement must not record a known-good pair")
}
