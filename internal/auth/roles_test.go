package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/firemart/storefront/internal/auth"
)

type MockRoleStore struct {
	mock.Mock
}

func (m *MockRoleStore) RoleFor(ctx context.Context, userID uint64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type MockQuoteProbe struct {
	mock.Mock
}

func (m *MockQuoteProbe) HasQuoteFor(ctx context.Context, userID uint64, email string) (bool, error) {
	args := m.Called(ctx, userID, email)
	return args.Bool(0), args.Error(1)
}

type MockEmailLookup struct {
	mock.Mock
}

func (m *MockEmailLookup) EmailFor(ctx context.Context, userID uint64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func newRoleService(roles *MockRoleStore, quotes *MockQuoteProbe, emails *MockEmailLookup) *auth.RoleService {
	return auth.NewRoleService(roles, quotes, emails, zap.NewNop())
}

func TestResolve_ExplicitRoleWinsOverInference(t *testing.T) {
	roles := new(MockRoleStore)
	quotes := new(MockQuoteProbe)
	emails := new(MockEmailLookup)
	roles.On("RoleFor", mock.Anything, uint64(7)).Return("user", nil)

	got := newRoleService(roles, quotes, emails).Resolve(context.Background(), 7)

	assert.Equal(t, auth.RoleUser, got)
	// The inference path must not even be consulted when a row exists,
	// even for a user who also owns quotes.
	quotes.AssertNotCalled(t, "HasQuoteFor", mock.Anything, mock.Anything, mock.Anything)
	emails.AssertNotCalled(t, "EmailFor", mock.Anything, mock.Anything)
}

func TestResolve_InfersSellerFromQuoteOwnership(t *testing.T) {
	roles := new(MockRoleStore)
	quotes := new(MockQuoteProbe)
	emails := new(MockEmailLookup)
	roles.On("RoleFor", mock.Anything, uint64(12)).Return("", nil)
	emails.On("EmailFor", mock.Anything, uint64(12)).Return("a@x.com", nil)
	quotes.On("HasQuoteFor", mock.Anything, uint64(12), "a@x.com").Return(true, nil)

	got := newRoleService(roles, quotes, emails).Resolve(context.Background(), 12)

	assert.Equal(t, auth.RoleSeller, got)
}

func TestResolve_NoRoleAndNoQuotesIsNone(t *testing.T) {
	roles := new(MockRoleStore)
	quotes := new(MockQuoteProbe)
	emails := new(MockEmailLookup)
	roles.On("RoleFor", mock.Anything, uint64(3)).Return("", nil)
	emails.On("EmailFor", mock.Anything, uint64(3)).Return("b@x.com", nil)
	quotes.On("HasQuoteFor", mock.Anything, uint64(3), "b@x.com").Return(false, nil)

	got := newRoleService(roles, quotes, emails).Resolve(context.Background(), 3)

	assert.Equal(t, auth.RoleNone, got)
}

func TestResolve_RoleQueryFailureDegradesToNone(t *testing.T) {
	roles := new(MockRoleStore)
	quotes := new(MockQuoteProbe)
	emails := new(MockEmailLookup)
	roles.On("RoleFor", mock.Anything, uint64(4)).Return("", errors.New("db down"))

	got := newRoleService(roles, quotes, emails).Resolve(context.Background(), 4)

	assert.Equal(t, auth.RoleNone, got)
	quotes.AssertNotCalled(t, "HasQuoteFor", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_InferenceFailureIsSwallowed(t *testing.T) {
	roles := new(MockRoleStore)
	quotes := new(MockQuoteProbe)
	emails := new(MockEmailLookup)
	roles.On("RoleFor", mock.Anything, uint64(5)).Return("", nil)
	emails.On("EmailFor", mock.Anything, uint64(5)).Return("", errors.New("no such user"))
	// The probe still runs, narrowed to created_by only.
	quotes.On("HasQuoteFor", mock.Anything, uint64(5), "").Return(false, errors.New("timeout"))

	got := newRoleService(roles, quotes, emails).Resolve(context.Background(), 5)

	assert.Equal(t, auth.RoleNone, got)
}

func TestResolve_UnknownRoleValueIsRejected(t *testing.T) {
	roles := new(MockRoleStore)
	quotes := new(MockQuoteProbe)
	emails := new(MockEmailLookup)
	roles.On("RoleFor", mock.Anything, uint64(6)).Return("superadmin", nil)

	got := newRoleService(roles, quotes, emails).Resolve(context.Background(), 6)

	assert.Equal(t, auth.RoleNone, got)
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]auth.Role{
		"":       auth.RoleNone,
		"user":   auth.RoleUser,
		"seller": auth.RoleSeller,
		"Admin":  auth.RoleAdmin,
	} {
		got, err := auth.ParseRole(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := auth.ParseRole("owner")
	assert.ErrorIs(t, err, auth.ErrUnknownRole)
}
